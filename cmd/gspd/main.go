// Command gspd runs the mining service.
//
// It serves the HTTP mining API and, when Kafka is enabled, consumes mining
// jobs from the jobs topic and publishes their results. Redis, PostgreSQL and
// Kafka are all optional: without Redis only the in-process cache tier is
// used, without PostgreSQL runs are kept in memory, and without Kafka
// analytics events feed the aggregator directly.
//
// Usage:
//
//	go run ./cmd/gspd [-config configs/development.yaml]
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/Adithya-Monish-Kumar-K/Sequential-Pattern-Mining-Platform/internal/analytics"
	snapshots "github.com/Adithya-Monish-Kumar-K/Sequential-Pattern-Mining-Platform/internal/analytics/aggregator"
	"github.com/Adithya-Monish-Kumar-K/Sequential-Pattern-Mining-Platform/internal/jobs/consumer"
	"github.com/Adithya-Monish-Kumar-K/Sequential-Pattern-Mining-Platform/internal/jobs/handler"
	"github.com/Adithya-Monish-Kumar-K/Sequential-Pattern-Mining-Platform/internal/jobs/service"
	"github.com/Adithya-Monish-Kumar-K/Sequential-Pattern-Mining-Platform/internal/mining"
	"github.com/Adithya-Monish-Kumar-K/Sequential-Pattern-Mining-Platform/internal/results/cache"
	"github.com/Adithya-Monish-Kumar-K/Sequential-Pattern-Mining-Platform/internal/results/store"
	"github.com/Adithya-Monish-Kumar-K/Sequential-Pattern-Mining-Platform/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/Sequential-Pattern-Mining-Platform/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/Sequential-Pattern-Mining-Platform/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/Sequential-Pattern-Mining-Platform/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/Sequential-Pattern-Mining-Platform/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/Sequential-Pattern-Mining-Platform/pkg/middleware"
	"github.com/Adithya-Monish-Kumar-K/Sequential-Pattern-Mining-Platform/pkg/postgres"
	"github.com/Adithya-Monish-Kumar-K/Sequential-Pattern-Mining-Platform/pkg/ratelimit"
	pkgredis "github.com/Adithya-Monish-Kumar-K/Sequential-Pattern-Mining-Platform/pkg/redis"
)

const (
	eventBufferSize  = 10000
	memoryRunLimit   = 1000
	snapshotInterval = time.Minute
)

func main() {
	configPath := flag.String("config", "configs/development.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)
	slog.Info("starting mining service",
		"port", cfg.Server.Port,
		"workers", cfg.Mining.Workers,
		"matcher", cfg.Mining.Matcher,
		"min_support", cfg.Mining.MinSupport,
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.New(nil)
	if cfg.Metrics.Enabled {
		shutdownMetrics := metrics.StartServer(cfg.Metrics.Port, nil)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			shutdownMetrics(shutdownCtx)
		}()
	}

	checker := health.NewChecker()

	// Redis: shared result-cache tier.
	var remote cache.Remote
	var redisPinger health.Pinger
	if cfg.Redis.Enabled {
		redisClient, err := pkgredis.NewClient(cfg.Redis)
		if err != nil {
			slog.Warn("redis unavailable, using in-process cache only", "error", err)
		} else {
			defer redisClient.Close()
			remote = redisClient
			redisPinger = redisClient
			slog.Info("redis cache tier enabled", "addr", cfg.Redis.Addr, "ttl", cfg.Redis.CacheTTL)
		}
	}
	checker.Register("redis", health.PingCheck(redisPinger, true))

	resultCache, err := cache.New(remote, cfg.Redis.CacheTTL, cfg.Cache.LocalSize, m)
	if err != nil {
		slog.Error("failed to create result cache", "error", err)
		os.Exit(1)
	}

	// PostgreSQL: run history and analytics snapshots.
	var runs service.RunStore
	var snapshotStore *snapshots.Store
	var pgPinger health.Pinger
	if cfg.Postgres.Enabled {
		db, err := postgres.New(cfg.Postgres)
		if err != nil {
			slog.Warn("postgres unavailable, keeping runs in memory", "error", err)
		} else {
			defer db.Close()
			pgRuns := store.NewPostgres(db)
			snapshotStore = snapshots.NewStore(db)
			if err := pgRuns.Migrate(ctx); err != nil {
				slog.Error("failed to migrate run store", "error", err)
				os.Exit(1)
			}
			if err := snapshotStore.Migrate(ctx); err != nil {
				slog.Error("failed to migrate analytics store", "error", err)
				os.Exit(1)
			}
			runs = pgRuns
			pgPinger = db
			slog.Info("postgres run store enabled", "host", cfg.Postgres.Host, "database", cfg.Postgres.Database)
		}
	}
	if runs == nil {
		mem, err := store.NewMemory(memoryRunLimit)
		if err != nil {
			slog.Error("failed to create memory run store", "error", err)
			os.Exit(1)
		}
		runs = mem
	}
	checker.Register("postgres", health.PingCheck(pgPinger, true))

	// Analytics: through Kafka when enabled, otherwise fed in-process.
	agg := analytics.NewAggregator(nil)
	if snapshotStore != nil {
		latest, err := snapshotStore.LatestSnapshot(ctx)
		if err != nil {
			slog.Warn("could not load analytics snapshot", "error", err)
		} else if latest != nil {
			agg.Seed(*latest)
		}
	}

	var collector *analytics.Collector
	if cfg.Kafka.Enabled {
		eventsProducer := kafka.NewProducer(cfg.Kafka, cfg.Kafka.Topics.MiningEvents)
		defer eventsProducer.Close()
		collector = analytics.NewCollector(eventsProducer, nil, eventBufferSize)
		agg.SetConsumer(kafka.NewConsumer(cfg.Kafka, cfg.Kafka.Topics.MiningEvents, analytics.HandleEvent(agg)))
		checker.Register("kafka", health.Static(health.StatusUp, "brokers configured"))
	} else {
		collector = analytics.NewCollector(nil, agg, eventBufferSize)
		checker.Register("kafka", health.Static(health.StatusDegraded, "not configured"))
	}
	collector.Start(ctx)
	defer collector.Close()
	go func() {
		if err := agg.Start(ctx); err != nil {
			slog.Error("analytics aggregator error", "error", err)
		}
	}()
	if snapshotStore != nil {
		snapshotStore.StartPeriodicSave(ctx, agg, snapshotInterval)
	}

	miner, err := mining.New(mining.OptionsFromConfig(cfg.Mining), m)
	if err != nil {
		slog.Error("failed to create miner", "error", err)
		os.Exit(1)
	}
	workers := miner.Options().Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	checker.Register("miner", health.Static(health.StatusUp, fmt.Sprintf("%d workers", workers)))

	svc := service.New(miner, resultCache, runs, collector, cfg.Mining, cfg.Tracing.Enabled)

	// Kafka job intake.
	if cfg.Kafka.Enabled {
		resultsProducer := kafka.NewProducer(cfg.Kafka, cfg.Kafka.Topics.MiningResults)
		defer resultsProducer.Close()
		jobConsumer := kafka.NewConsumer(cfg.Kafka, cfg.Kafka.Topics.MiningJobs, consumer.Handle(svc, resultsProducer))
		go func() {
			if err := jobConsumer.Start(ctx); err != nil {
				slog.Error("job consumer error", "error", err)
			}
		}()
		slog.Info("consuming mining jobs",
			"jobs_topic", cfg.Kafka.Topics.MiningJobs,
			"results_topic", cfg.Kafka.Topics.MiningResults,
		)
	}

	mux := http.NewServeMux()
	handler.New(svc, cfg.Server.MaxBodyBytes).Register(mux)
	mux.HandleFunc("GET /api/v1/analytics", analytics.NewHandler(agg).Stats)
	mux.HandleFunc("GET /health/live", checker.LiveHandler())
	mux.HandleFunc("GET /health/ready", checker.ReadyHandler())

	limiter := ratelimit.New(time.Minute)
	defer limiter.Stop()

	// request → RequestID → Metrics → RateLimit → Timeout → mux
	var chain http.Handler = mux
	chain = middleware.Timeout(cfg.Server.WriteTimeout)(chain)
	chain = middleware.RateLimit(limiter, cfg.Server.RateLimit)(chain)
	chain = middleware.Metrics(m)(chain)
	chain = middleware.RequestID(chain)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      chain,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout + 5*time.Second,
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

	slog.Info("mining service listening", "addr", server.Addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}

	slog.Info("mining service stopped")
}
