package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/questforge/questforge/internal/adapters/docstore"
	"github.com/questforge/questforge/internal/adapters/http/api"
	service "github.com/questforge/questforge/internal/app"
	"github.com/questforge/questforge/internal/config"
	"github.com/questforge/questforge/pkg/logger"
	"github.com/questforge/questforge/pkg/metrics"

	"github.com/joho/godotenv"
)

// HTTP server timeout constants.
const (
	readTimeout           = 10 * time.Second
	writeTimeout          = 10 * time.Second
	idleTimeout           = 60 * time.Second
	readHeaderTimeout     = 5 * time.Second
	shutdownTimeout       = 30 * time.Second
	systemMetricsInterval = 10 * time.Second
)

func main() {
	// A local .env is optional; real deployments set env vars directly.
	_ = godotenv.Load()

	if err := logger.Init(); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		return
	}
	defer func() {
		_ = logger.Sync()
	}()

	log := logger.Get()

	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(ctx)
	if err != nil {
		os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		return
	}

	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		log.Warn(ctx, "invalid log_level; falling back to info",
			logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	store, err := openStore(ctx, cfg, log)
	if err != nil {
		os.Stderr.WriteString("failed to open document store: " + err.Error() + "\n")
		return
	}

	svc := service.New(
		service.WithLogger(log),
		service.WithStore(store),
		service.WithConflictRetries(cfg.ConflictRetries),
		service.WithStoreTimeout(time.Duration(cfg.StoreTimeoutMS)*time.Millisecond),
		service.WithSubmitTimeout(time.Duration(cfg.SubmitTimeoutMS)*time.Millisecond),
		service.WithJournalQueueSize(cfg.JournalQueueSize),
		service.WithJournalWorkers(cfg.JournalWorkers),
		service.WithDedupeSize(cfg.DedupeSize),
		service.WithSnapshotInterval(time.Duration(cfg.SnapshotIntervalMS)*time.Millisecond),
		service.WithIdleWait(time.Duration(cfg.IdleWaitMS)*time.Millisecond),
		service.WithDefaultTopN(cfg.LeaderboardLimit),
	)
	if err := svc.Start(ctx); err != nil {
		os.Stderr.WriteString("failed to start service: " + err.Error() + "\n")
		return
	}

	go startSystemMetricsUpdater(ctx)

	mux := http.NewServeMux()
	apiServer := api.NewServer(svc, api.WithDefaultWindow(cfg.NearbyWindow))
	apiServer.Register(ctx, mux)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           mux,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	go func() {
		log.Info(ctx, "starting HTTP server", logger.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			os.Stderr.WriteString("HTTP server failed: " + err.Error() + "\n")
			stop()
		}
	}()

	<-ctx.Done()
	log.Info(ctx, "shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error(ctx, "server shutdown failed", logger.Error(err))
	}

	// Stop drains the completion journal before the store closes.
	svc.Stop(shutdownCtx)

	log.Info(ctx, "server stopped")
}

// openStore selects the document-store backend from configuration: a SQLite
// file when store_path is set, the in-memory store otherwise.
func openStore(ctx context.Context, cfg *config.Config, log logger.Logger) (docstore.Store, error) {
	if cfg.StorePath == "" {
		log.Info(ctx, "using in-memory document store")
		return docstore.NewMemoryStore(), nil
	}
	log.Info(ctx, "opening sqlite document store", logger.String("path", cfg.StorePath))
	return docstore.OpenSQLite(cfg.StorePath)
}

// startSystemMetricsUpdater periodically samples process-level metrics.
func startSystemMetricsUpdater(ctx context.Context) {
	ticker := time.NewTicker(systemMetricsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			var m runtime.MemStats
			runtime.ReadMemStats(&m)
			metrics.UpdateSystemMemoryUsage(m.Alloc)
			metrics.UpdateSystemGoroutineCount(runtime.NumGoroutine())
		}
	}
}
