package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/harliandi/artpress/internal/codec"
	"github.com/harliandi/artpress/internal/compressor"
	"github.com/harliandi/artpress/internal/config"
	"github.com/harliandi/artpress/internal/handler"
	"github.com/harliandi/artpress/internal/logutil"
	"github.com/harliandi/artpress/internal/middleware"
	"github.com/harliandi/artpress/internal/network"
	"github.com/harliandi/artpress/internal/worker"
)

func main() {
	cfg := config.Load()

	logger, err := logutil.New(cfg.LoggerOptions())
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if err := run(cfg, logger); err != nil {
		logger.Error("server stopped", zap.Error(err))
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *zap.Logger) error {
	networks, err := network.LoadFile(cfg.NetworksFile)
	if err != nil {
		return fmt.Errorf("load networks: %w", err)
	}

	comp := compressor.New(codec.NewDefaultRegistry(), logger)
	pool := worker.NewPool(comp, cfg.WorkerCount, logger)
	pool.Start()
	defer pool.Stop()

	limiter := middleware.NewRateLimiter(cfg.RateLimitPerSec, cfg.RateLimitBurst)
	defer limiter.Close()

	h := handler.New(pool, networks, cfg.CompressorOptions(), cfg.MaxUploadMB, logger)

	// Configure server with timeouts to prevent slowloris and hanging connections
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      chain(routes(h), limiter, cfg.MaxConcurrent, logger),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	logger.Info("starting artwork compression API",
		zap.String("addr", server.Addr),
		zap.Float64("target_kb", cfg.TargetSizeKB),
		zap.Int("hard_ceiling_bytes", cfg.HardCeilingBytes),
		zap.Int("max_upload_mb", cfg.MaxUploadMB),
		zap.Int("max_concurrent", cfg.MaxConcurrent),
		zap.Int("rate_limit", cfg.RateLimitPerSec),
		zap.Int("workers", cfg.WorkerCount),
		zap.String("network", networks.Current().Name),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

func routes(h *handler.Handler) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/compress", h.Compress)
	mux.HandleFunc("/bridge/alias", h.BridgeAlias)
	mux.HandleFunc("/bridge/estimate", h.BridgeEstimate)
	mux.HandleFunc("/networks", h.Networks)
	mux.HandleFunc("/health", h.Health)
	mux.Handle("/metrics", promhttp.Handler())
	return mux
}

// chain applies middlewares in order (outermost first):
// security headers, per-IP rate limit, global concurrency limit, panic
// recovery, request id, then request logging.
func chain(next http.Handler, limiter *middleware.RateLimiter, maxConcurrent int, logger *zap.Logger) http.Handler {
	return middleware.Security(
		middleware.RateLimit(limiter, logger)(
			middleware.ConcurrencyLimit(maxConcurrent, logger)(
				middleware.Recovery(logger)(
					middleware.RequestID(
						middleware.Logger(logger)(next),
					),
				),
			),
		),
	)
}
