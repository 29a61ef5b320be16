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

	"github.com/okian/ringside/internal/adapters/archive"
	"github.com/okian/ringside/internal/adapters/broadcast"
	"github.com/okian/ringside/internal/adapters/http/api"
	"github.com/okian/ringside/internal/adapters/http/swagger"
	"github.com/okian/ringside/internal/adapters/repository"
	service "github.com/okian/ringside/internal/app"
	"github.com/okian/ringside/internal/config"
	"github.com/okian/ringside/pkg/logger"
	"github.com/okian/ringside/pkg/metrics"
)

// HTTP server timeout constants. Writes are unbounded so the stream endpoint can stay open;
// the stream sets its own per-frame deadlines.
const (
	readTimeout            = 10 * time.Second
	idleTimeout            = 60 * time.Second
	readHeaderTimeout      = 5 * time.Second
	serviceMetricsInterval = 5 * time.Second
)

func main() {
	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		// Use stderr since the logger may not be available yet
		os.Stderr.WriteString("ringside: " + err.Error() + "\n")
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	// Load configuration (defaults -> optional file -> env)
	cfg, err := config.Load(ctx)
	if err != nil {
		return err
	}

	if err := logger.Init(logger.WithFormat(cfg.LogFormat)); err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}
	defer func() { _ = logger.Sync() }()
	log := logger.Get()

	// Apply configured log level (fallback to info on invalid input)
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		log.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	svc, err := newService(ctx, cfg, log)
	if err != nil {
		return err
	}
	if err := svc.Start(ctx); err != nil {
		return fmt.Errorf("failed to start service: %w", err)
	}
	defer svc.Stop()

	go startServiceMetricsUpdater(ctx, svc)

	mux, err := newMux(ctx, svc, log)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           mux,
		ReadTimeout:       readTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info(ctx, "starting HTTP server", logger.String("addr", cfg.Addr), logger.String("storage", cfg.Storage.Driver))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("HTTP server failed: %w", err)
		}
	case <-ctx.Done():
	}
	log.Info(ctx, "shutting down server...")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error(ctx, "server shutdown failed", logger.Error(err))
	}

	log.Info(ctx, "server stopped")
	return nil
}

// newService opens storage and the archive sink and builds the service from cfg.
func newService(ctx context.Context, cfg *config.Config, log logger.Logger) (*service.Service, error) {
	store, err := repository.Open(ctx, cfg.Storage.Driver, cfg.Storage.DSN,
		repository.WithMaxOpenConns(cfg.Storage.MaxOpenConns),
		repository.WithConnMaxLifetime(cfg.Storage.ConnMaxLifetime),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to open storage: %w", err)
	}

	policy, err := broadcast.ParsePolicy(cfg.SubscriberPolicy)
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("subscriber policy %q: %w", cfg.SubscriberPolicy, err)
	}

	archiver, err := newArchiver(ctx, cfg.Archive)
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	return service.New(
		service.WithLogger(log),
		service.WithStore(store),
		service.WithArchiver(archiver),
		service.WithRules(cfg.Scoring),
		service.WithWorkerCount(cfg.WorkerCount),
		service.WithQueueSize(cfg.QueueSize),
		service.WithSubscriberBuffer(cfg.SubscriberBuffer),
		service.WithSubscriberPolicy(policy),
	), nil
}

// newArchiver returns the S3 sink when a bucket is configured and a no-op otherwise.
func newArchiver(ctx context.Context, cfg config.Archive) (archive.Archiver, error) {
	if cfg.Bucket == "" {
		return archive.Nop{}, nil
	}
	s3, err := archive.NewS3(ctx, archive.Config{
		Bucket:   cfg.Bucket,
		Prefix:   cfg.Prefix,
		Region:   cfg.Region,
		Endpoint: cfg.Endpoint,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to configure archive: %w", err)
	}
	return s3, nil
}

func newMux(ctx context.Context, svc *service.Service, log logger.Logger) (*http.ServeMux, error) {
	mux := http.NewServeMux()
	swagger.Register(ctx, mux)

	apiServer, err := api.NewServer(svc, svc, api.WithLogger(log.Named("api")))
	if err != nil {
		return nil, fmt.Errorf("failed to build API: %w", err)
	}
	apiServer.Register(ctx, mux)
	return mux, nil
}

// startServiceMetricsUpdater periodically refreshes gauges derived from service stats.
func startServiceMetricsUpdater(ctx context.Context, svc *service.Service) {
	ticker := time.NewTicker(serviceMetricsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			updateServiceMetrics(svc)
		}
	}
}

func updateServiceMetrics(svc *service.Service) {
	stats := svc.GetStats()

	if queueLen, ok := stats["queueLength"].(int); ok {
		metrics.UpdateQueueSize(queueLen)
	}
	if workerCount, ok := stats["workerCount"].(int); ok {
		metrics.UpdateWorkerCount(workerCount)
	}
	if subscribers, ok := stats["subscribers"].(int); ok {
		metrics.UpdateSubscribers(subscribers)
	}
}
