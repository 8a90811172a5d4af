// Package analytics tracks mining activity: the service emits a RunEvent per
// request, a Collector ships it to Kafka, and an Aggregator folds the stream
// into the figures served by GET /api/v1/analytics.
package analytics

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Adithya-Monish-Kumar-K/Sequential-Pattern-Mining-Platform/pkg/kafka"
)

// maxLatencySamples bounds the latency window used for percentiles.
const maxLatencySamples = 10000

type AggregatedStats struct {
	TotalRuns         int64          `json:"total_runs"`
	FailedRuns        int64          `json:"failed_runs"`
	CacheHits         int64          `json:"cache_hits"`
	CacheMisses       int64          `json:"cache_misses"`
	TransactionsMined int64          `json:"transactions_mined"`
	PatternsFound     int64          `json:"patterns_found"`
	CountingFailures  int64          `json:"counting_failures"`
	AvgLatencyMs      float64        `json:"avg_latency_ms"`
	P50LatencyMs      int64          `json:"p50_latency_ms"`
	P95LatencyMs      int64          `json:"p95_latency_ms"`
	P99LatencyMs      int64          `json:"p99_latency_ms"`
	TopPatterns       []PatternCount `json:"top_patterns"`
	RunsPerMinute     float64        `json:"runs_per_minute"`
}

// PatternCount is how many runs reported a pattern among their top patterns.
type PatternCount struct {
	Pattern string `json:"pattern"`
	Runs    int64  `json:"runs"`
}

type Aggregator struct {
	mu                sync.RWMutex
	totalRuns         atomic.Int64
	failedRuns        atomic.Int64
	cacheHits         atomic.Int64
	cacheMisses       atomic.Int64
	transactionsMined atomic.Int64
	patternsFound     atomic.Int64
	countingFailures  atomic.Int64
	latencies         []int64
	patternRuns       map[string]int64
	startTime         time.Time

	consumer *kafka.Consumer
	logger   *slog.Logger
}

// NewAggregator creates an Aggregator. consumer may be nil when events are
// recorded directly.
func NewAggregator(consumer *kafka.Consumer) *Aggregator {
	return &Aggregator{
		latencies:   make([]int64, 0, 1024),
		patternRuns: make(map[string]int64),
		startTime:   time.Now(),
		consumer:    consumer,
		logger:      slog.Default().With("component", "analytics-aggregator"),
	}
}

// SetConsumer attaches the Kafka consumer read by Start.
func (a *Aggregator) SetConsumer(consumer *kafka.Consumer) {
	a.consumer = consumer
}

// Start consumes the event stream until ctx ends. Without a consumer it
// returns immediately.
func (a *Aggregator) Start(ctx context.Context) error {
	if a.consumer == nil {
		return nil
	}
	a.logger.Info("analytics aggregator starting")
	return a.consumer.Start(ctx)
}

// HandleEvent decodes RunEvents from Kafka into agg. Undecodable messages are
// logged and skipped.
func HandleEvent(agg *Aggregator) kafka.MessageHandler {
	return func(ctx context.Context, key []byte, value []byte) error {
		event, err := kafka.DecodeJSON[RunEvent](value)
		if err != nil {
			agg.logger.Error("failed to decode analytics event", "error", err)
			return nil
		}
		agg.Record(event)
		return nil
	}
}

// Record folds one event into the running totals.
func (a *Aggregator) Record(event RunEvent) {
	a.totalRuns.Add(1)
	if event.Type == EventRunFailed {
		a.failedRuns.Add(1)
		return
	}
	if event.CacheHit {
		a.cacheHits.Add(1)
	} else {
		a.cacheMisses.Add(1)
	}
	a.transactionsMined.Add(int64(event.Transactions))
	a.patternsFound.Add(int64(event.Patterns))
	a.countingFailures.Add(int64(event.Failures))

	a.mu.Lock()
	if len(a.latencies) == maxLatencySamples {
		a.latencies = a.latencies[1:]
	}
	a.latencies = append(a.latencies, event.LatencyMs)
	for _, p := range event.TopPatterns {
		a.patternRuns[p]++
	}
	a.mu.Unlock()
}

// Seed restores the counters of a saved snapshot. Latency samples and the
// pattern leaderboard start empty.
func (a *Aggregator) Seed(s AggregatedStats) {
	a.totalRuns.Store(s.TotalRuns)
	a.failedRuns.Store(s.FailedRuns)
	a.cacheHits.Store(s.CacheHits)
	a.cacheMisses.Store(s.CacheMisses)
	a.transactionsMined.Store(s.TransactionsMined)
	a.patternsFound.Store(s.PatternsFound)
	a.countingFailures.Store(s.CountingFailures)
}

func (a *Aggregator) Stats() AggregatedStats {
	a.mu.RLock()
	defer a.mu.RUnlock()

	stats := AggregatedStats{
		TotalRuns:         a.totalRuns.Load(),
		FailedRuns:        a.failedRuns.Load(),
		CacheHits:         a.cacheHits.Load(),
		CacheMisses:       a.cacheMisses.Load(),
		TransactionsMined: a.transactionsMined.Load(),
		PatternsFound:     a.patternsFound.Load(),
		CountingFailures:  a.countingFailures.Load(),
	}
	if len(a.latencies) > 0 {
		sorted := make([]int64, len(a.latencies))
		copy(sorted, a.latencies)
		sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

		var sum int64
		for _, l := range sorted {
			sum += l
		}
		stats.AvgLatencyMs = float64(sum) / float64(len(sorted))
		stats.P50LatencyMs = percentile(sorted, 50)
		stats.P95LatencyMs = percentile(sorted, 95)
		stats.P99LatencyMs = percentile(sorted, 99)
	}
	stats.TopPatterns = topN(a.patternRuns, 10)
	elapsed := time.Since(a.startTime).Minutes()
	if elapsed > 0 {
		stats.RunsPerMinute = float64(stats.TotalRuns) / elapsed
	}
	return stats
}

func percentile(sorted []int64, pct int) int64 {
	if len(sorted) == 0 {
		return 0
	}
	idx := (pct * len(sorted)) / 100
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}

func topN(counts map[string]int64, n int) []PatternCount {
	result := make([]PatternCount, 0, len(counts))
	for p, c := range counts {
		result = append(result, PatternCount{Pattern: p, Runs: c})
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Runs != result[j].Runs {
			return result[i].Runs > result[j].Runs
		}
		return result[i].Pattern < result[j].Pattern
	})
	if len(result) > n {
		result = result[:n]
	}
	return result
}
