package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kailas-cloud/newsrec/internal/domain"
	"github.com/kailas-cloud/newsrec/internal/metrics"
	"github.com/kailas-cloud/newsrec/internal/scheduler"
	chiTransport "github.com/kailas-cloud/newsrec/internal/transport/chi"
	"github.com/kailas-cloud/newsrec/internal/version"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API server",
	Long: `Start the HTTP API. The catalog is seeded (when enabled) and the first
index is built in the background; search answers 503 until it is ready.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runServer(cmd.Context())
	},
}

func runServer(parent context.Context) error {
	cfg, logger, err := setup()
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting newsrec API server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.String("db_driver", cfg.Database.Driver),
		zap.String("cache_driver", cfg.Cache.Driver),
	)

	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.close()

	metrics.RegisterEmbeddingMetrics()
	metrics.RegisterRecommenderMetrics()
	metrics.RegisterHTTPMetrics()

	// Background work (bootstrap, scheduled and HTTP-triggered refreshes)
	// runs under bgCtx, cancelled before the recommender closes.
	bgCtx, cancelBg := context.WithCancel(context.Background())
	defer cancelBg()

	sched := scheduler.New(logger)
	if spec := cfg.Recommender.RefreshSchedule; spec != "" {
		if err := sched.Add("index_refresh", spec, refreshJob(a)); err != nil {
			return fmt.Errorf("schedule refresh: %w", err)
		}
	}

	bootstrapped := make(chan struct{})
	go func() {
		defer close(bootstrapped)
		if err := a.bootstrap(bgCtx, cfg.Seed.Enabled); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("Bootstrap failed", zap.Error(err))
		}
	}()

	sched.Start()

	server := chiTransport.NewServer(bgCtx, a.catalog, a.rec, a.health, logger)
	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      chiTransport.NewRouter(server, cfg.Auth.APIKeys),
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case <-ctx.Done():
		logger.Info("Received shutdown signal")
	case err := <-serveErr:
		if err != nil {
			logger.Error("HTTP server error", zap.Error(err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}
	sched.Stop()
	cancelBg()
	<-bootstrapped
	server.Wait()

	logger.Info("Server stopped gracefully")
	return nil
}

// refreshJob rebuilds the index from the catalog. A refresh superseded by a
// newer one is not a failure.
func refreshJob(a *app) scheduler.Job {
	return func(ctx context.Context) error {
		if err := a.rec.Refresh(ctx); err != nil && !errors.Is(err, domain.ErrRebuildSuperseded) {
			return err
		}
		return nil
	}
}
