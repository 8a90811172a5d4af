// Command analytics runs the standalone mining analytics service.
//
// It consumes run events that gspd instances publish to the mining-events
// topic, aggregates them across the fleet (run totals, cache hit rate,
// latency percentiles, most frequent patterns) and serves the figures at
// GET /api/v1/analytics. With PostgreSQL enabled the aggregate is
// snapshotted every minute and restored on startup.
//
// Usage:
//
//	go run ./cmd/analytics [-config configs/development.yaml] [-port 8081]
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Adithya-Monish-Kumar-K/Sequential-Pattern-Mining-Platform/internal/analytics"
	snapshots "github.com/Adithya-Monish-Kumar-K/Sequential-Pattern-Mining-Platform/internal/analytics/aggregator"
	"github.com/Adithya-Monish-Kumar-K/Sequential-Pattern-Mining-Platform/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/Sequential-Pattern-Mining-Platform/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/Sequential-Pattern-Mining-Platform/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/Sequential-Pattern-Mining-Platform/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/Sequential-Pattern-Mining-Platform/pkg/middleware"
	"github.com/Adithya-Monish-Kumar-K/Sequential-Pattern-Mining-Platform/pkg/postgres"
)

func main() {
	configPath := flag.String("config", "configs/development.yaml", "path to config file")
	port := flag.Int("port", 8081, "HTTP port")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)
	if !cfg.Kafka.Enabled {
		slog.Error("analytics service needs kafka; set kafka.enabled")
		os.Exit(1)
	}
	slog.Info("starting analytics service", "port", *port, "topic", cfg.Kafka.Topics.MiningEvents)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	agg := analytics.NewAggregator(nil)
	checker := health.NewChecker()

	var pgPinger health.Pinger
	if cfg.Postgres.Enabled {
		db, err := postgres.New(cfg.Postgres)
		if err != nil {
			slog.Warn("postgres unavailable, analytics will not survive restarts", "error", err)
		} else {
			defer db.Close()
			pgPinger = db
			snaps := snapshots.NewStore(db)
			if err := snaps.Migrate(ctx); err != nil {
				slog.Error("failed to migrate analytics store", "error", err)
				os.Exit(1)
			}
			if latest, err := snaps.LatestSnapshot(ctx); err != nil {
				slog.Warn("could not load analytics snapshot", "error", err)
			} else if latest != nil {
				agg.Seed(*latest)
				slog.Info("restored analytics snapshot", "total_runs", latest.TotalRuns)
			}
			snaps.StartPeriodicSave(ctx, agg, time.Minute)
		}
	}
	checker.Register("postgres", health.PingCheck(pgPinger, true))

	// A separate group so this service sees every event rather than sharing
	// partitions with the gspd instances' own aggregators.
	kcfg := cfg.Kafka
	kcfg.ConsumerGroup += "-analytics"
	agg.SetConsumer(kafka.NewConsumer(kcfg, cfg.Kafka.Topics.MiningEvents, analytics.HandleEvent(agg)))
	go func() {
		if err := agg.Start(ctx); err != nil {
			slog.Error("aggregator error", "error", err)
		}
	}()
	checker.Register("kafka", health.Static(health.StatusUp, "consumer active"))

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/analytics", analytics.NewHandler(agg).Stats)
	mux.HandleFunc("GET /health/live", checker.LiveHandler())
	mux.HandleFunc("GET /health/ready", checker.ReadyHandler())

	var chain http.Handler = mux
	chain = middleware.RequestID(chain)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", *port),
		Handler:      chain,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: 30 * time.Second,
	}

	go func() {
		<-ctx.Done()
		slog.Info("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("server shutdown error", "error", err)
		}
	}()

	slog.Info("analytics service listening", "addr", server.Addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}

	slog.Info("analytics service stopped")
}
