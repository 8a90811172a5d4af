// Package mining runs the GSP search: it seeds single-symbol candidates,
// counts their support, keeps the frequent ones, grows the next level from
// the surviving symbols and repeats until a level comes back empty or the
// patterns are as long as the longest transaction.
package mining

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"time"

	"github.com/Adithya-Monish-Kumar-K/Sequential-Pattern-Mining-Platform/internal/mining/containment"
	"github.com/Adithya-Monish-Kumar-K/Sequential-Pattern-Mining-Platform/internal/mining/counter"
	"github.com/Adithya-Monish-Kumar-K/Sequential-Pattern-Mining-Platform/internal/mining/generator"
	"github.com/Adithya-Monish-Kumar-K/Sequential-Pattern-Mining-Platform/internal/sequence"
	"github.com/Adithya-Monish-Kumar-K/Sequential-Pattern-Mining-Platform/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/Sequential-Pattern-Mining-Platform/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/Sequential-Pattern-Mining-Platform/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/Sequential-Pattern-Mining-Platform/pkg/tracing"
)

// thresholdEpsilon absorbs float error in fraction*N, so 0.7*10 needs 7
// transactions and not 8.
const thresholdEpsilon = 1e-9

// Options tune a Miner.
type Options struct {
	// Workers is the size of the counting pool; <= 0 means one per CPU.
	Workers int
	// Matcher names the containment matcher: "greedy" or "backtracking".
	Matcher string
	// LevelTimeout bounds the counting phase of each level; 0 disables it.
	LevelTimeout time.Duration
	// Prune drops candidates with an infrequent sub-pattern before counting.
	Prune bool
	// DropFinalLevel discards the last collected level even when it is
	// non-empty because the maximum length was reached.
	DropFinalLevel bool
}

// OptionsFromConfig maps the mining config section onto Options.
func OptionsFromConfig(cfg config.MiningConfig) Options {
	return Options{
		Workers:        cfg.Workers,
		Matcher:        cfg.Matcher,
		LevelTimeout:   cfg.LevelTimeout,
		Prune:          cfg.Prune,
		DropFinalLevel: cfg.DropFinalLevel,
	}
}

// Result is the outcome of a mining run.
type Result struct {
	// Levels[i] holds the frequent patterns of length i+1.
	Levels       []sequence.FrequencyMap
	MinSupport   float64
	Threshold    int
	Transactions int
	MaxLength    int
	Stats        []LevelStats
	Failures     []counter.CountingFailure
	Duration     time.Duration
}

// Patterns returns the total number of frequent patterns across levels.
func (r *Result) Patterns() int {
	n := 0
	for _, fm := range r.Levels {
		n += len(fm)
	}
	return n
}

// Miner runs GSP searches. A Miner holds no per-run state and may be used
// concurrently.
type Miner struct {
	opts    Options
	match   containment.Matcher
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// New creates a Miner. m may be nil.
func New(opts Options, m *metrics.Metrics) (*Miner, error) {
	match, err := containment.ForName(opts.Matcher)
	if err != nil {
		return nil, err
	}
	return &Miner{
		opts:    opts,
		match:   match,
		metrics: m,
		logger:  slog.Default().With("component", "miner"),
	}, nil
}

// Options returns the options the miner was created with.
func (m *Miner) Options() Options {
	return m.opts
}

// Threshold converts a support fraction into the minimum number of
// transactions a pattern must occur in.
func Threshold(fraction float64, transactions int) int {
	t := int(math.Ceil(fraction*float64(transactions) - thresholdEpsilon))
	if t < 1 {
		t = 1
	}
	return t
}

// ValidateSupport rejects support fractions outside (0, 1].
func ValidateSupport(minSupport float64) error {
	if math.IsNaN(minSupport) || minSupport <= 0 || minSupport > 1 {
		return apperrors.Newf(apperrors.ErrInvalidArgument, 400, "min support must be in (0, 1], got %v", minSupport)
	}
	return nil
}

// Mine validates its arguments, loads raw and runs the search.
func (m *Miner) Mine(ctx context.Context, raw [][][]string, minSupport float64) (*Result, error) {
	if err := ValidateSupport(minSupport); err != nil {
		m.observeRun("invalid", 0)
		return nil, err
	}
	ds, err := sequence.Load(raw)
	if err != nil {
		m.observeRun("invalid", 0)
		return nil, fmt.Errorf("loading transactions: %w", err)
	}
	return m.MineDataset(ctx, ds, minSupport)
}

// MineDataset runs the search over an already loaded dataset.
func (m *Miner) MineDataset(ctx context.Context, ds *sequence.Dataset, minSupport float64) (*Result, error) {
	if err := ValidateSupport(minSupport); err != nil {
		m.observeRun("invalid", 0)
		return nil, err
	}
	start := time.Now()
	ctx, span := tracing.StartChildSpan(ctx, "mine")
	res, err := m.run(ctx, ds, minSupport)
	span.End(err)
	elapsed := time.Since(start)
	if err != nil {
		status := "error"
		if errors.Is(err, apperrors.ErrTimeout) {
			status = "timeout"
		}
		m.observeRun(status, elapsed)
		return nil, err
	}
	res.Duration = elapsed
	span.SetAttr("levels", len(res.Levels))
	span.SetAttr("patterns", res.Patterns())
	m.observeRun("ok", elapsed)
	m.logger.Info("mining complete",
		"transactions", res.Transactions,
		"min_support", minSupport,
		"threshold", res.Threshold,
		"levels", len(res.Levels),
		"patterns", res.Patterns(),
		"failures", len(res.Failures),
		"duration_ms", elapsed.Milliseconds(),
	)
	return res, nil
}

func (m *Miner) run(ctx context.Context, ds *sequence.Dataset, minSupport float64) (*Result, error) {
	threshold := Threshold(minSupport, len(ds.Transactions))
	pool := counter.NewPool(m.opts.Workers)
	defer pool.Close()
	if m.metrics != nil {
		m.metrics.WorkerPoolSize.Set(float64(pool.Size()))
	}
	cnt := counter.New(pool, m.match)
	st := newState(ds.MaxLength)

	m.logger.Debug("mining started",
		"transactions", len(ds.Transactions),
		"symbols", ds.Symbols(),
		"max_length", ds.MaxLength,
		"threshold", threshold,
		"workers", pool.Size(),
	)

	candidates := ds.Singletons
	for level := 1; ; level++ {
		pruned := 0
		if level > 1 {
			candidates = generator.Generate(st.last().Symbols(), level)
			if m.opts.Prune {
				before := len(candidates)
				candidates = generator.Prune(candidates, st.last())
				pruned = before - len(candidates)
			}
		}
		lc, stats, err := m.countLevel(ctx, cnt, level, candidates, ds.Transactions, threshold)
		if err != nil {
			return nil, fmt.Errorf("level %d: %w", level, err)
		}
		stats.Pruned = pruned
		st.appendLevel(lc, stats)
		m.observeLevel(stats)
		m.logger.Debug("level complete",
			"level", level,
			"candidates", stats.Candidates,
			"pruned", stats.Pruned,
			"frequent", stats.Frequent,
			"failures", stats.Failures,
			"duration_ms", stats.Duration.Milliseconds(),
		)
		if st.done() {
			break
		}
	}

	return &Result{
		Levels:       st.finalize(m.opts.DropFinalLevel),
		MinSupport:   minSupport,
		Threshold:    threshold,
		Transactions: len(ds.Transactions),
		MaxLength:    ds.MaxLength,
		Stats:        st.stats,
		Failures:     st.failures,
	}, nil
}

func (m *Miner) countLevel(
	ctx context.Context,
	cnt *counter.Counter,
	level int,
	candidates []sequence.Candidate,
	txs []sequence.Transaction,
	threshold int,
) (*counter.LevelCount, LevelStats, error) {
	ctx, span := tracing.StartChildSpan(ctx, "level")
	span.SetAttr("level", level)
	span.SetAttr("candidates", len(candidates))
	if m.opts.LevelTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, m.opts.LevelTimeout)
		defer cancel()
	}

	start := time.Now()
	lc, err := cnt.Count(ctx, candidates, txs, threshold)
	stats := LevelStats{
		Level:      level,
		Candidates: len(candidates),
		Duration:   time.Since(start),
	}
	span.End(err)
	if err != nil {
		return nil, stats, err
	}
	stats.Frequent = len(lc.Frequent)
	stats.Failures = len(lc.Failures)
	span.SetAttr("frequent", stats.Frequent)
	return lc, stats, nil
}

func (m *Miner) observeRun(status string, elapsed time.Duration) {
	if m.metrics == nil {
		return
	}
	m.metrics.MiningRunsTotal.WithLabelValues(status).Inc()
	if status == "ok" {
		m.metrics.MiningRunDuration.Observe(elapsed.Seconds())
	}
}

func (m *Miner) observeLevel(st LevelStats) {
	if m.metrics == nil {
		return
	}
	m.metrics.LevelDuration.WithLabelValues(strconv.Itoa(st.Level)).Observe(st.Duration.Seconds())
	m.metrics.CandidatesGenerated.Add(float64(st.Candidates))
	m.metrics.CandidatesPruned.Add(float64(st.Pruned))
	m.metrics.CandidatesFrequent.Add(float64(st.Frequent))
	m.metrics.CountingFailures.Add(float64(st.Failures))
}
