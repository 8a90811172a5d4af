// Package service is the application layer of the mining API. It validates a
// request, serves it from the result cache or mines it, persists the run and
// reports it to analytics.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/Adithya-Monish-Kumar-K/Sequential-Pattern-Mining-Platform/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/Sequential-Pattern-Mining-Platform/internal/jobs"
	"github.com/Adithya-Monish-Kumar-K/Sequential-Pattern-Mining-Platform/internal/jobs/validator"
	"github.com/Adithya-Monish-Kumar-K/Sequential-Pattern-Mining-Platform/internal/mining"
	"github.com/Adithya-Monish-Kumar-K/Sequential-Pattern-Mining-Platform/internal/results/cache"
	"github.com/Adithya-Monish-Kumar-K/Sequential-Pattern-Mining-Platform/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/Sequential-Pattern-Mining-Platform/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/Sequential-Pattern-Mining-Platform/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/Sequential-Pattern-Mining-Platform/pkg/resilience"
	"github.com/Adithya-Monish-Kumar-K/Sequential-Pattern-Mining-Platform/pkg/tracing"
)

// topPatternsReported caps RunEvent.TopPatterns.
const topPatternsReported = 5

// RunStore persists completed runs.
type RunStore interface {
	Save(ctx context.Context, requestHash, idempotencyKey string, resp *jobs.MineResponse) error
	Get(ctx context.Context, runID string) (*jobs.MineResponse, error)
	FindByIdempotencyKey(ctx context.Context, key string) (*jobs.MineResponse, error)
	List(ctx context.Context, limit int) ([]jobs.RunSummary, error)
}

// Tracker receives one analytics event per request.
type Tracker interface {
	Track(event analytics.RunEvent)
}

// ErrCacheDisabled is returned by cache operations when no cache is set.
var ErrCacheDisabled = errors.New("result cache is disabled")

type Service struct {
	miner   *mining.Miner
	cache   *cache.ResultCache
	store   RunStore
	tracker Tracker
	cfg     config.MiningConfig
	tracing bool
	logger  *slog.Logger
}

// New creates a Service. resultCache and tracker may be nil.
func New(miner *mining.Miner, resultCache *cache.ResultCache, store RunStore, tracker Tracker, cfg config.MiningConfig, tracingEnabled bool) *Service {
	return &Service{
		miner:   miner,
		cache:   resultCache,
		store:   store,
		tracker: tracker,
		cfg:     cfg,
		tracing: tracingEnabled,
		logger:  slog.Default().With("component", "mining-service"),
	}
}

// Run serves one mining request.
func (s *Service) Run(ctx context.Context, req *jobs.MineRequest) (*jobs.MineResponse, error) {
	start := time.Now()
	log := logger.FromContext(ctx)

	if err := validator.ValidateMineRequest(req, s.cfg.MaxTransactions); err != nil {
		return nil, err
	}
	minSupport := s.cfg.MinSupport
	if req.MinSupport != nil {
		minSupport = *req.MinSupport
	}

	if req.IdempotencyKey != "" {
		existing, err := s.store.FindByIdempotencyKey(ctx, req.IdempotencyKey)
		if err != nil {
			return nil, fmt.Errorf("checking idempotency key: %w", err)
		}
		if existing != nil {
			log.Info("duplicate mining request", "idempotency_key", req.IdempotencyKey, "run_id", existing.RunID)
			return existing, nil
		}
	}

	runID := uuid.NewString()
	ctx, span := tracing.StartSpan(ctx, "run", runID)
	key := cache.Key(req.Transactions, minSupport, s.miner.Options())

	mined, err := resilience.Call(ctx, s.cfg.RunTimeout, "mining run", func(ctx context.Context) (minedRun, error) {
		resp, hit, err := s.mine(ctx, key, req.Transactions, minSupport)
		return minedRun{resp: resp, hit: hit}, err
	})
	result, hit := mined.resp, mined.hit
	span.SetAttr("cache_hit", hit)
	span.End(err)
	if s.tracing {
		span.Log(log)
	}
	if err != nil {
		err = timeoutError(err)
		log.Error("mining run failed", "run_id", runID, "error", err)
		s.track(analytics.RunEvent{
			Type:         analytics.EventRunFailed,
			RunID:        runID,
			RequestID:    logger.RequestID(ctx),
			Transactions: len(req.Transactions),
			MinSupport:   minSupport,
			LatencyMs:    time.Since(start).Milliseconds(),
			Error:        err.Error(),
			Timestamp:    time.Now().UTC(),
		})
		return nil, err
	}

	resp := *result
	resp.RunID = runID
	resp.Cached = hit
	resp.CreatedAt = time.Now().UTC()
	if hit {
		resp.DurationMs = time.Since(start).Milliseconds()
	}

	if err := s.store.Save(ctx, key, req.IdempotencyKey, &resp); err != nil {
		if errors.Is(err, apperrors.ErrIdempotencyConflict) {
			return s.resolveDuplicate(ctx, req.IdempotencyKey, runID)
		}
		log.Error("failed to persist mining run", "run_id", runID, "error", err)
	}

	log.Info("mining run completed",
		"run_id", runID,
		"transactions", resp.TransactionCount,
		"threshold", resp.Threshold,
		"patterns", resp.PatternCount(),
		"cache_hit", hit,
		"latency_ms", time.Since(start).Milliseconds(),
	)
	s.track(analytics.RunEvent{
		Type:         analytics.EventRunCompleted,
		RunID:        runID,
		RequestID:    logger.RequestID(ctx),
		Transactions: resp.TransactionCount,
		MinSupport:   resp.MinSupport,
		Threshold:    resp.Threshold,
		Levels:       len(resp.Levels),
		Patterns:     resp.PatternCount(),
		TopPatterns:  topPatterns(&resp, topPatternsReported),
		Failures:     len(resp.Failures),
		CacheHit:     hit,
		LatencyMs:    time.Since(start).Milliseconds(),
		Timestamp:    time.Now().UTC(),
	})
	return &resp, nil
}

// resolveDuplicate returns the run that claimed key while this request was
// mining under runID, which is then discarded.
func (s *Service) resolveDuplicate(ctx context.Context, key, runID string) (*jobs.MineResponse, error) {
	existing, err := s.store.FindByIdempotencyKey(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("resolving idempotency key: %w", err)
	}
	if existing == nil {
		return nil, apperrors.Newf(apperrors.ErrIdempotencyConflict, 409,
			"idempotency key %q is held by a run that is no longer stored", key)
	}
	logger.FromContext(ctx).Info("duplicate mining request finished after another",
		"idempotency_key", key,
		"run_id", existing.RunID,
		"discarded_run_id", runID,
	)
	return existing, nil
}

type minedRun struct {
	resp *jobs.MineResponse
	hit  bool
}

func (s *Service) mine(ctx context.Context, key string, txs [][][]string, minSupport float64) (*jobs.MineResponse, bool, error) {
	compute := func() (*jobs.MineResponse, error) {
		res, err := s.miner.Mine(ctx, txs, minSupport)
		if err != nil {
			return nil, err
		}
		return jobs.FromResult(res), nil
	}
	if s.cache == nil {
		resp, err := compute()
		return resp, false, err
	}
	return s.cache.GetOrCompute(ctx, key, compute)
}

// Get returns a stored run.
func (s *Service) Get(ctx context.Context, runID string) (*jobs.MineResponse, error) {
	return s.store.Get(ctx, runID)
}

// List returns recent runs, newest first.
func (s *Service) List(ctx context.Context, limit int) ([]jobs.RunSummary, error) {
	return s.store.List(ctx, limit)
}

// CacheStats reports result cache activity.
func (s *Service) CacheStats() (cache.Stats, error) {
	if s.cache == nil {
		return cache.Stats{}, ErrCacheDisabled
	}
	return s.cache.Stats(), nil
}

// InvalidateCache empties the result cache.
func (s *Service) InvalidateCache(ctx context.Context) error {
	if s.cache == nil {
		return ErrCacheDisabled
	}
	return s.cache.Invalidate(ctx)
}

func (s *Service) track(event analytics.RunEvent) {
	if s.tracker != nil {
		s.tracker.Track(event)
	}
}

// timeoutError maps a run deadline onto ErrTimeout. Level deadlines already
// arrive as ErrTimeout.
func timeoutError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) && !errors.Is(err, apperrors.ErrTimeout) {
		return apperrors.Newf(apperrors.ErrTimeout, 503, "mining run exceeded deadline: %v", err)
	}
	return err
}

// topPatterns returns the keys of the longest level's patterns, most frequent
// first.
func topPatterns(resp *jobs.MineResponse, n int) []string {
	if len(resp.Levels) == 0 {
		return nil
	}
	last := resp.Levels[len(resp.Levels)-1].Patterns
	if len(last) > n {
		last = last[:n]
	}
	out := make([]string, len(last))
	for i, p := range last {
		out[i] = p.Key
	}
	return out
}
