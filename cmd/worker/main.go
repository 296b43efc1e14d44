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

	"github.com/harliandi/artpress/internal/bus"
	"github.com/harliandi/artpress/internal/codec"
	"github.com/harliandi/artpress/internal/compressor"
	"github.com/harliandi/artpress/internal/config"
	"github.com/harliandi/artpress/internal/logutil"
	"github.com/harliandi/artpress/internal/worker"
)

// jobTimeout bounds a single bus job, queueing included.
const jobTimeout = 2 * time.Minute

func main() {
	cfg := config.Load()

	logger, err := logutil.New(cfg.LoggerOptions())
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if err := run(cfg, logger); err != nil {
		logger.Error("worker stopped", zap.Error(err))
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *zap.Logger) error {
	client, err := bus.Connect(cfg.NATSURL)
	if err != nil {
		return fmt.Errorf("connect nats: %w", err)
	}
	defer client.Close()

	comp := compressor.New(codec.NewDefaultRegistry(), logger)
	pool := worker.NewPool(comp, cfg.WorkerCount, logger)
	pool.Start()
	defer pool.Stop()

	consumer := worker.NewConsumer(pool, client, cfg.ResultSubject, cfg.CompressorOptions(), logger)

	// jobs outlive the shutdown signal; Drain below waits for them
	sub, err := client.QueueSubscribeJSON(context.Background(), cfg.JobSubject, cfg.WorkerQueue,
		cfg.WorkerCount, jobTimeout, consumer.HandleMessage)
	if err != nil {
		return fmt.Errorf("subscribe %s: %w", cfg.JobSubject, err)
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if !client.Conn().IsConnected() {
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(`{"status":"disconnected"}`))
			return
		}
		w.Write([]byte(`{"status":"ok"}`))
	})
	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server", zap.Error(err))
		}
	}()

	logger.Info("compression worker ready",
		zap.String("nats", cfg.NATSURL),
		zap.String("subject", cfg.JobSubject),
		zap.String("queue", cfg.WorkerQueue),
		zap.Int("workers", cfg.WorkerCount),
		zap.String("addr", server.Addr),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()

	logger.Info("shutting down")
	if err := sub.Drain(jobTimeout); err != nil {
		logger.Warn("drain subscription", zap.Error(err))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
