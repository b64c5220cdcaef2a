package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mailist/mailist/internal/api"
	"github.com/mailist/mailist/internal/audit"
	"github.com/mailist/mailist/internal/config"
	"github.com/mailist/mailist/internal/directory"
	"github.com/mailist/mailist/internal/logger"
	"github.com/mailist/mailist/internal/store"
	"github.com/mailist/mailist/internal/telemetry"
	"github.com/mailist/mailist/internal/webhook"
)

const (
	auditQueueSize  = 1000
	shutdownTimeout = 5 * time.Second
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("config: %v", err)
	}

	lg, err := logger.New(cfg.LogLevel)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err = run(ctx, cfg, lg)
	stop()
	if err != nil {
		lg.Errorw("server exited", "error", err)
		_ = lg.Sync()
		os.Exit(1)
	}
	_ = lg.Sync()
}

// run serves until ctx ends or a listener fails. Resources opened here are
// always released before it returns.
func run(ctx context.Context, cfg *config.Config, lg logger.Logger) error {
	st, err := store.NewStore(ctx, cfg.StoreType, cfg.DatabaseDSN)
	if err != nil {
		return fmt.Errorf("store %s: %w", cfg.StoreType, err)
	}
	defer st.Close()

	// directory: http -> circuit breaker -> cache
	src := directory.NewHTTPSource(cfg.DirectoryBaseURL, cfg.DirectoryToken)
	src.PageSize = cfg.DirectoryPageSize
	src.HTTPClient.Timeout = cfg.DirectoryTimeout
	dir := directory.NewCache(
		directory.NewBreakerSource(src, directory.DefaultBreakerConfig("directory")),
		directory.WithTTL(cfg.DirectoryTTL),
		directory.WithLogger(lg),
	)

	// warm the cache; a failure here is retried on first use
	if err := dir.RefreshIfInvalid(ctx); err != nil {
		lg.Warnw("initial directory refresh failed", "error", err)
	}

	// change trail: always logged, optionally pushed to a webhook
	var sink audit.Sink = audit.NewLoggerSink(lg)
	if cfg.WebhookURL != "" {
		sink = audit.MultiSink{sink, webhook.NewSink(cfg.WebhookURL, cfg.WebhookSecret, cfg.WebhookMaxRetries, lg)}
	}
	auditSvc := audit.NewService(sink, nil, nil, lg, auditQueueSize)
	defer auditSvc.Close()

	telemetry.Init()
	srvAPI := api.NewServer(st, dir, cfg.AdminAPIKey, lg, api.WithAudit(auditSvc))

	srv := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      srvAPI.Router(),
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 0,
		IdleTimeout:  60 * time.Second,
	}
	metrics := &http.Server{
		Addr:    cfg.MetricsAddr,
		Handler: promhttp.Handler(),
	}

	errCh := make(chan error, 2)
	go func() {
		lg.Infow("listening", "addr", cfg.HTTPAddr, "env", cfg.AppEnv, "store", cfg.StoreType)
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("server: %w", err)
		}
	}()
	go func() {
		lg.Infow("metrics listening", "addr", cfg.MetricsAddr)
		if err := metrics.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("metrics server: %w", err)
		}
	}()

	var serveErr error
	select {
	case <-ctx.Done():
	case serveErr = <-errCh:
	}

	// graceful shutdown
	ctxShut, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	_ = srv.Shutdown(ctxShut)
	_ = metrics.Shutdown(ctxShut)
	lg.Infow("stopped")
	return serveErr
}
