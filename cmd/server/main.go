/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the eligibility & reporting engine server.
  Handles configuration, dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Load configuration (.env / environment)
  2. Build the zap logger
  3. Initialize SQLite store
  4. Wire domain components (ledger, tracker, evaluator, runner)
  5. Configure HTTP router and start with graceful shutdown

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests to complete (30s timeout)
  3. Close database connection
  4. Exit

SEE ALSO:
  - config: environment knobs and defaults
  - api/server.go: Router configuration
  - store/sqlite/sqlite.go: Database implementation
*/
package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/warp/aca-engine/api"
	"github.com/warp/aca-engine/config"
	"github.com/warp/aca-engine/eligibility"
	"github.com/warp/aca-engine/hours"
	"github.com/warp/aca-engine/logger"
	"github.com/warp/aca-engine/measure"
	"github.com/warp/aca-engine/metrics"
	"github.com/warp/aca-engine/offer"
	"github.com/warp/aca-engine/report"
	"github.com/warp/aca-engine/store/sqlite"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	zlog, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer zlog.Sync()

	store, err := sqlite.New(cfg.DatabasePath)
	if err != nil {
		zlog.Fatal("failed to initialize database", zap.Error(err))
	}
	defer store.Close()

	stats := metrics.New(prometheus.DefaultRegisterer)

	// Domain wiring: one sqlite store backs every persistence interface.
	ledger := hours.NewLedger(store, store, zlog, cfg.Engine.MinDataFraction)
	tracker := measure.NewTracker(cfg.Engine.Measure(), store)
	evaluator := eligibility.NewEvaluator(ledger, tracker, store, store)
	assigner := offer.NewAssigner(tracker, cfg.Engine.OfferParams())
	runner := report.NewRunner(
		store, ledger, evaluator, assigner,
		store, store, store,
		cfg.Engine.PenaltyRates(), cfg.Engine.Workers,
		zlog, stats,
	)

	handler := api.NewHandler(store, ledger, store, store, evaluator, store, store, runner, zlog)
	router := api.NewRouter(handler, zlog, stats, cfg.CORS.AllowedOrigins)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	schedCtx, stopSched := context.WithCancel(context.Background())
	defer stopSched()
	scheduler := api.NewScheduler(runner, store, 24*time.Hour, zlog)
	go scheduler.Start(schedCtx)

	go func() {
		zlog.Info("server starting", zap.Int("port", cfg.Port), zap.String("env", cfg.Env))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zlog.Fatal("server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	zlog.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		zlog.Fatal("server forced to shutdown", zap.Error(err))
	}

	zlog.Info("server stopped")
}
