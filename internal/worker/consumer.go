package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/harliandi/artpress/internal/codec"
	"github.com/harliandi/artpress/internal/compressor"
	"github.com/harliandi/artpress/pkg/metrics"
	"github.com/harliandi/artpress/pkg/schema"
)

// submitRetries bounds how long a bus job waits for a free worker.
const submitRetries = 20

// Publisher sends a JSON message to a subject.
type Publisher interface {
	PublishJSON(subject string, v any) error
}

// Consumer turns bus jobs into pool submissions and publishes the outcome.
type Consumer struct {
	pool          *Pool
	pub           Publisher
	resultSubject string
	defaults      compressor.Options
	logger        *zap.Logger
}

// NewConsumer creates a consumer. defaults fill any limit a job leaves unset.
func NewConsumer(pool *Pool, pub Publisher, resultSubject string, defaults compressor.Options, logger *zap.Logger) *Consumer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Consumer{
		pool:          pool,
		pub:           pub,
		resultSubject: resultSubject,
		defaults:      defaults,
		logger:        logger.Named("consumer"),
	}
}

// HandleMessage processes one raw job and publishes its CompressionDone.
func (c *Consumer) HandleMessage(ctx context.Context, data []byte) {
	done := c.Process(ctx, data)
	if err := c.pub.PublishJSON(c.resultSubject, done); err != nil {
		c.logger.Error("publish result failed", zap.String("subject", c.resultSubject), zap.String("id", done.ID), zap.Error(err))
	}
}

// Process runs one raw job and returns the event describing it.
func (c *Consumer) Process(ctx context.Context, data []byte) schema.CompressionDone {
	start := time.Now()

	var job schema.CompressionJob
	if err := json.Unmarshal(data, &job); err != nil {
		metrics.RecordJob("invalid")
		c.logger.Warn("invalid job payload", zap.Error(err))
		return failed(schema.CompressionDone{ID: uuid.NewString()}, fmt.Errorf("decode job: %w", err), schema.FailureTypeValidation, start)
	}
	if job.ID == "" {
		job.ID = uuid.NewString()
	}
	done := schema.CompressionDone{ID: job.ID, Filename: job.Filename}
	if len(job.Data) == 0 {
		metrics.RecordJob("invalid")
		return failed(done, errors.New("job carries no image data"), schema.FailureTypeValidation, start)
	}

	log := c.logger.With(zap.String("job_id", job.ID))
	log.Info("received job", zap.String("filename", job.Filename), zap.Int("bytes", len(job.Data)))

	res, err := c.pool.SubmitWithRetry(ctx, Request{
		Data:    job.Data,
		Options: c.options(job),
		Source:  "bus",
		ID:      job.ID,
	}, submitRetries)
	if err != nil {
		metrics.RecordJob("failed")
		log.Warn("job not run", zap.Error(err))
		return failed(done, err, schema.FailureTypeRetryable, start)
	}

	done.Success = res.Success
	done.TargetReached = res.TargetReached
	done.Format = string(res.Format)
	if res.Format.Valid() {
		done.MimeType = res.Format.MimeType()
	}
	done.Quality = res.Quality
	done.Width = res.Width
	done.Height = res.Height
	done.OriginalSizeKB = res.OriginalSizeKB
	done.CompressedSizeKB = res.CompressedSizeKB
	done.Attempts = res.Attempts
	if res.Success {
		done.Data = res.Data
	}
	done.ProcessingTimeMs = time.Since(start).Milliseconds()
	done.HappenedAt = time.Now().Unix()
	if res.Err != nil {
		done.Error = res.Err.Error()
	}
	if !res.Success {
		done.FailureType = classifyError(res.Err)
		metrics.RecordJob("failed")
		return done
	}

	metrics.RecordJob("succeeded")
	log.Info("completed job", zap.Bool("target_reached", res.TargetReached), zap.Int64("processing_time_ms", done.ProcessingTimeMs))
	return done
}

func (c *Consumer) options(job schema.CompressionJob) compressor.Options {
	opts := c.defaults
	if job.Format != "" {
		opts.PreferredFormat = codec.ParseFormat(job.Format)
	}
	if job.TargetSizeKB > 0 {
		opts.TargetSizeKB = job.TargetSizeKB
	}
	if job.MaxDimension > 0 {
		opts.MaxDimension = job.MaxDimension
	}
	if job.HardCeilingBytes > 0 {
		opts.HardCeilingBytes = job.HardCeilingBytes
	}
	return opts
}

func classifyError(err error) schema.FailureType {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, compressor.ErrDecode), errors.Is(err, compressor.ErrInvalidOptions):
		return schema.FailureTypeValidation
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return schema.FailureTypeRetryable
	default:
		return schema.FailureTypePermanent
	}
}

func failed(done schema.CompressionDone, err error, ft schema.FailureType, start time.Time) schema.CompressionDone {
	done.Error = err.Error()
	done.FailureType = ft
	done.ProcessingTimeMs = time.Since(start).Milliseconds()
	done.HappenedAt = time.Now().Unix()
	return done
}
