package middleware

import (
	"net/http"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/harliandi/artpress/pkg/metrics"
)

// ConcurrencyLimiter caps the number of requests in flight across all clients.
type ConcurrencyLimiter struct {
	slots  chan struct{}
	active atomic.Int32
}

// NewConcurrencyLimiter creates a limiter admitting at most max requests.
func NewConcurrencyLimiter(max int) *ConcurrencyLimiter {
	return &ConcurrencyLimiter{slots: make(chan struct{}, max)}
}

// Acquire takes a slot without blocking. It returns false when all are taken.
func (cl *ConcurrencyLimiter) Acquire() bool {
	select {
	case cl.slots <- struct{}{}:
		metrics.UpdateConcurrency(int(cl.active.Add(1)))
		return true
	default:
		return false
	}
}

// Release frees a slot taken by Acquire.
func (cl *ConcurrencyLimiter) Release() {
	metrics.UpdateConcurrency(int(cl.active.Add(-1)))
	<-cl.slots
}

// Active returns the number of requests currently admitted.
func (cl *ConcurrencyLimiter) Active() int {
	return int(cl.active.Load())
}

// ConcurrencyLimit returns middleware that answers 503 once max requests are
// in flight.
func ConcurrencyLimit(max int, logger *zap.Logger) func(http.Handler) http.Handler {
	cl := NewConcurrencyLimiter(max)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !cl.Acquire() {
				logger.Warn("concurrency limit reached", zap.Int("max", max), zap.String("path", r.URL.Path))
				metrics.RecordConcurrencyLimitExceeded()
				w.Header().Set("Content-Type", "application/json")
				w.Header().Set("Retry-After", "1")
				w.WriteHeader(http.StatusServiceUnavailable)
				w.Write([]byte(`{"error":"Service busy, please try again"}`))
				return
			}
			defer cl.Release()

			next.ServeHTTP(w, r)
		})
	}
}
