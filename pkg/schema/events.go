// Package schema holds the JSON messages exchanged over the bus.
package schema

type FailureType string

const (
	FailureTypeRetryable  FailureType = "retryable"
	FailureTypePermanent  FailureType = "permanent"
	FailureTypeValidation FailureType = "validation"
)

// CompressionJob asks a worker to compress one artwork. Zero-valued limits
// fall back to the worker's configured defaults.
type CompressionJob struct {
	ID               string  `json:"id"`
	Filename         string  `json:"filename,omitempty"`
	Data             []byte  `json:"data"`
	Format           string  `json:"format,omitempty"`
	TargetSizeKB     float64 `json:"target_size_kb,omitempty"`
	MaxDimension     int     `json:"max_dimension,omitempty"`
	HardCeilingBytes int     `json:"hard_ceiling_bytes,omitempty"`
	HappenedAt       int64   `json:"happened_at"`
}

// CompressionDone reports the outcome of a CompressionJob.
type CompressionDone struct {
	ID               string      `json:"id"`
	Filename         string      `json:"filename,omitempty"`
	Success          bool        `json:"success"`
	TargetReached    bool        `json:"target_reached"`
	Format           string      `json:"format,omitempty"`
	MimeType         string      `json:"mime_type,omitempty"`
	Quality          int         `json:"quality,omitempty"`
	Width            int         `json:"width"`
	Height           int         `json:"height"`
	OriginalSizeKB   float64     `json:"original_size_kb"`
	CompressedSizeKB float64     `json:"compressed_size_kb"`
	Attempts         int         `json:"attempts"`
	Data             []byte      `json:"data,omitempty"`
	ProcessingTimeMs int64       `json:"processing_time_ms"`
	Error            string      `json:"error,omitempty"`
	FailureType      FailureType `json:"failure_type,omitempty"`
	HappenedAt       int64       `json:"happened_at"`
}
