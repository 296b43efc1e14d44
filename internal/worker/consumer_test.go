package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harliandi/artpress/internal/codec"
	"github.com/harliandi/artpress/internal/compressor"
	"github.com/harliandi/artpress/pkg/schema"
)

type recordingPublisher struct {
	mu       sync.Mutex
	subjects []string
	messages []schema.CompressionDone
}

func (r *recordingPublisher) PublishJSON(subject string, v any) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	done, ok := v.(schema.CompressionDone)
	if !ok {
		return fmt.Errorf("unexpected message %T", v)
	}
	r.subjects = append(r.subjects, subject)
	r.messages = append(r.messages, done)
	return nil
}

// optionsCompressor reports the options it was called with through the result.
type optionsCompressor struct {
	got compressor.Options
	res compressor.Result
}

func (o *optionsCompressor) Compress(ctx context.Context, src []byte, opts compressor.Options) compressor.Result {
	o.got = opts
	return o.res
}

func newTestConsumer(t *testing.T, c Compressor) (*Consumer, *recordingPublisher) {
	t.Helper()
	pool := NewPool(c, 1, nil)
	t.Cleanup(pool.Stop)
	pub := &recordingPublisher{}
	defaults := compressor.Options{PreferredFormat: codec.WebP, TargetSizeKB: 43, HardCeilingBytes: compressor.DefaultHardCeilingBytes}
	return NewConsumer(pool, pub, "artpress.compress.done", defaults, nil), pub
}

func mustJSON(t *testing.T, v any) []byte {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return b
}

func TestConsumer_HandleMessage(t *testing.T) {
	oc := &optionsCompressor{res: compressor.Result{
		Success:          true,
		TargetReached:    true,
		Format:           codec.AVIF,
		Quality:          80,
		Width:            640,
		Height:           480,
		CompressedSizeKB: 0.01,
		Data:             []byte("avif-bytes"),
	}}
	c, pub := newTestConsumer(t, oc)

	c.HandleMessage(context.Background(), mustJSON(t, schema.CompressionJob{
		ID:           "job-1",
		Filename:     "art.png",
		Data:         []byte("png-bytes"),
		Format:       "avif",
		TargetSizeKB: 20,
	}))

	require.Len(t, pub.messages, 1)
	assert.Equal(t, "artpress.compress.done", pub.subjects[0])

	done := pub.messages[0]
	assert.Equal(t, "job-1", done.ID)
	assert.True(t, done.Success)
	assert.Equal(t, "avif", done.Format)
	assert.Equal(t, "image/avif", done.MimeType)
	assert.Equal(t, []byte("avif-bytes"), done.Data)
	assert.Empty(t, done.FailureType)

	assert.Equal(t, codec.AVIF, oc.got.PreferredFormat)
	assert.Equal(t, 20.0, oc.got.TargetSizeKB)
	assert.Equal(t, compressor.DefaultHardCeilingBytes, oc.got.HardCeilingBytes, "unset limits keep defaults")
}

func TestConsumer_InvalidJobs(t *testing.T) {
	c, _ := newTestConsumer(t, &optionsCompressor{})

	t.Run("Malformed JSON", func(t *testing.T) {
		done := c.Process(context.Background(), []byte("{not json"))
		assert.False(t, done.Success)
		assert.NotEmpty(t, done.ID)
		assert.Equal(t, schema.FailureTypeValidation, done.FailureType)
	})

	t.Run("No data", func(t *testing.T) {
		done := c.Process(context.Background(), mustJSON(t, schema.CompressionJob{ID: "empty"}))
		assert.Equal(t, "empty", done.ID)
		assert.Equal(t, schema.FailureTypeValidation, done.FailureType)
	})
}

func TestConsumer_FailedCompression(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want schema.FailureType
	}{
		{"Decode", fmt.Errorf("%w: garbage", compressor.ErrDecode), schema.FailureTypeValidation},
		{"Hard limit", fmt.Errorf("%w: too big", compressor.ErrHardLimitExceeded), schema.FailureTypePermanent},
		{"Cancelled", context.Canceled, schema.FailureTypeRetryable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _ := newTestConsumer(t, &optionsCompressor{res: compressor.Result{Err: tt.err, Data: []byte("partial")}})

			done := c.Process(context.Background(), mustJSON(t, schema.CompressionJob{Data: []byte{1}}))

			assert.False(t, done.Success)
			assert.Equal(t, tt.want, done.FailureType)
			assert.NotEmpty(t, done.Error)
			assert.Empty(t, done.Data, "failed jobs do not ship bytes")
		})
	}
}
