// Package worker runs compressions on a bounded pool of goroutines shared by
// the HTTP API and the bus consumer.
package worker

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/harliandi/artpress/internal/compressor"
	"github.com/harliandi/artpress/pkg/metrics"
)

var (
	// ErrPoolBusy is returned when the worker pool is at capacity
	ErrPoolBusy = errors.New("worker pool is busy, please retry later")
	// ErrPoolStopped is returned for submissions after Stop
	ErrPoolStopped = errors.New("worker pool is stopped")
)

// Compressor is the work each job performs.
type Compressor interface {
	Compress(ctx context.Context, src []byte, opts compressor.Options) compressor.Result
}

// Request is one compression submitted to the pool.
type Request struct {
	Data    []byte
	Options compressor.Options
	// Source labels metrics, e.g. "http" or "bus".
	Source string
	// ID correlates log lines, optional.
	ID string
}

type job struct {
	ctx    context.Context
	req    Request
	result chan<- compressor.Result
}

// Pool manages a pool of worker goroutines for compression jobs
type Pool struct {
	compressor Compressor
	logger     *zap.Logger
	jobs       chan job
	workers    int
	active     atomic.Int32

	wg    sync.WaitGroup
	once  sync.Once
	mu    sync.RWMutex
	state int32 // 0 idle, 1 running, 2 stopped
}

// NewPool creates a pool with the given number of workers. The queue holds
// twice as many pending jobs.
func NewPool(c Compressor, workers int, logger *zap.Logger) *Pool {
	if workers < 1 {
		workers = 1
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pool{
		compressor: c,
		logger:     logger.Named("pool"),
		jobs:       make(chan job, workers*2),
		workers:    workers,
	}
}

// Start starts the worker goroutines
func (p *Pool) Start() {
	p.once.Do(func() {
		p.mu.Lock()
		defer p.mu.Unlock()
		if p.state == 2 {
			return
		}
		p.state = 1
		p.logger.Info("starting worker pool", zap.Int("workers", p.workers))
		for i := 0; i < p.workers; i++ {
			p.wg.Add(1)
			go p.worker(i)
		}
	})
}

func (p *Pool) worker(id int) {
	defer p.wg.Done()
	for j := range p.jobs {
		j.result <- p.run(id, j)
		p.updateMetrics()
	}
}

func (p *Pool) run(id int, j job) compressor.Result {
	if err := j.ctx.Err(); err != nil {
		return compressor.Result{Err: err}
	}

	p.active.Add(1)
	p.updateMetrics()
	defer p.active.Add(-1)

	start := time.Now()
	res := p.compressor.Compress(j.ctx, j.req.Data, j.req.Options)
	elapsed := time.Since(start)

	metrics.RecordCompression(res.Outcome(), string(res.Format), j.req.Source,
		elapsed.Seconds(), res.Attempts, len(j.req.Data), len(res.Data))

	fields := []zap.Field{
		zap.Int("worker", id),
		zap.String("id", j.req.ID),
		zap.String("source", j.req.Source),
		zap.String("outcome", res.Outcome()),
		zap.Stringer("format", res.Format),
		zap.Int("quality", res.Quality),
		zap.Int("width", res.Width),
		zap.Int("height", res.Height),
		zap.Float64("original_kb", res.OriginalSizeKB),
		zap.Float64("compressed_kb", res.CompressedSizeKB),
		zap.Int("attempts", res.Attempts),
		zap.Duration("elapsed", elapsed),
	}
	if res.Err != nil {
		fields = append(fields, zap.Error(res.Err))
	}
	if res.Success {
		p.logger.Info("compression finished", fields...)
	} else {
		p.logger.Warn("compression failed", fields...)
	}
	return res
}

// Submit queues req and waits for its result. It returns ErrPoolBusy at once
// if the queue is full.
func (p *Pool) Submit(ctx context.Context, req Request) (compressor.Result, error) {
	p.Start()

	resultChan := make(chan compressor.Result, 1)
	j := job{ctx: ctx, req: req, result: resultChan}

	p.mu.RLock()
	if p.state == 2 {
		p.mu.RUnlock()
		return compressor.Result{}, ErrPoolStopped
	}
	select {
	case <-ctx.Done():
		p.mu.RUnlock()
		return compressor.Result{}, ctx.Err()
	case p.jobs <- j:
		p.mu.RUnlock()
	default:
		p.mu.RUnlock()
		return compressor.Result{}, ErrPoolBusy
	}
	p.updateMetrics()

	select {
	case <-ctx.Done():
		return compressor.Result{}, ctx.Err()
	case res := <-resultChan:
		return res, nil
	}
}

// SubmitWithRetry submits req, retrying with a linear backoff while the pool
// is busy.
func (p *Pool) SubmitWithRetry(ctx context.Context, req Request, maxRetries int) (compressor.Result, error) {
	lastErr := ErrPoolBusy
	for i := 0; i < maxRetries; i++ {
		res, err := p.Submit(ctx, req)
		if err == nil {
			return res, nil
		}
		if !errors.Is(err, ErrPoolBusy) {
			return compressor.Result{}, err
		}
		lastErr = err

		waitTime := time.Duration(i+1) * 10 * time.Millisecond
		select {
		case <-ctx.Done():
			return compressor.Result{}, ctx.Err()
		case <-time.After(waitTime):
		}
	}
	return compressor.Result{}, lastErr
}

// Stop drains queued jobs and waits for the workers to exit
func (p *Pool) Stop() {
	p.mu.Lock()
	if p.state == 2 {
		p.mu.Unlock()
		return
	}
	p.state = 2
	close(p.jobs)
	p.mu.Unlock()

	p.wg.Wait()
	p.updateMetrics()
	p.logger.Info("worker pool stopped")
}

// Stats returns the number of running and queued jobs
func (p *Pool) Stats() (active, queued int) {
	return int(p.active.Load()), len(p.jobs)
}

func (p *Pool) updateMetrics() {
	active, queued := p.Stats()
	metrics.UpdateWorkerPoolMetrics(queued, active)
}
