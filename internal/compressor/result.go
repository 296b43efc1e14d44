package compressor

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/harliandi/artpress/internal/codec"
	"github.com/harliandi/artpress/pkg/quality"
)

var (
	// ErrDecode means the input could not be interpreted as a raster image
	ErrDecode = errors.New("decode failed")
	// ErrEncode means no format/quality/dimension combination could be encoded
	ErrEncode = errors.New("encode failed")
	// ErrTargetUnreachable means every combination exceeded the soft target
	ErrTargetUnreachable = errors.New("target size unreachable")
	// ErrHardLimitExceeded means the best candidate is still over the hard ceiling
	ErrHardLimitExceeded = errors.New("hard size limit exceeded")
	// ErrInvalidOptions means the request cannot be searched at all
	ErrInvalidOptions = errors.New("invalid compression options")
)

// Candidate is one encoding produced during the search.
type Candidate struct {
	Format  codec.Format
	Quality int
	Width   int
	Height  int
	Data    []byte
}

// SizeKB returns the encoded size in kilobytes.
func (c *Candidate) SizeKB() float64 {
	return float64(len(c.Data)) / quality.KB
}

// Result is the terminal outcome of a Compress call.
type Result struct {
	Success          bool
	TargetReached    bool
	OriginalSizeKB   float64
	CompressedSizeKB float64
	OriginalWidth    int
	OriginalHeight   int
	Width            int
	Height           int
	Format           codec.Format
	Quality          int
	// Attempts counts encode operations, successful or not.
	Attempts int
	Data     []byte
	// Err explains a failure or, with Success set, why the target was missed.
	Err error
}

// Outcome classifies the result for metrics and logs.
func (r Result) Outcome() string {
	switch {
	case errors.Is(r.Err, context.Canceled), errors.Is(r.Err, context.DeadlineExceeded):
		return "cancelled"
	case r.Success && r.TargetReached:
		return "target_reached"
	case r.Success:
		return "target_unreachable"
	case errors.Is(r.Err, ErrHardLimitExceeded):
		return "hard_limit"
	default:
		return "failed"
	}
}

type resultJSON struct {
	Success          bool    `json:"success"`
	TargetReached    bool    `json:"target_reached"`
	OriginalSizeKB   float64 `json:"original_size_kb"`
	CompressedSizeKB float64 `json:"compressed_size_kb"`
	OriginalWidth    int     `json:"original_width"`
	OriginalHeight   int     `json:"original_height"`
	Width            int     `json:"width"`
	Height           int     `json:"height"`
	Format           string  `json:"format,omitempty"`
	Quality          int     `json:"quality,omitempty"`
	Attempts         int     `json:"attempts"`
	Error            string  `json:"error,omitempty"`
}

// MarshalJSON renders the bookkeeping fields; encoded bytes are left to the caller.
func (r Result) MarshalJSON() ([]byte, error) {
	v := resultJSON{
		Success:          r.Success,
		TargetReached:    r.TargetReached,
		OriginalSizeKB:   r.OriginalSizeKB,
		CompressedSizeKB: r.CompressedSizeKB,
		OriginalWidth:    r.OriginalWidth,
		OriginalHeight:   r.OriginalHeight,
		Width:            r.Width,
		Height:           r.Height,
		Format:           string(r.Format),
		Quality:          r.Quality,
		Attempts:         r.Attempts,
	}
	if r.Err != nil {
		v.Error = r.Err.Error()
	}
	return json.Marshal(v)
}
