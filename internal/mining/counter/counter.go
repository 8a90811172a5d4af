package counter

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/Adithya-Monish-Kumar-K/Sequential-Pattern-Mining-Platform/internal/mining/containment"
	"github.com/Adithya-Monish-Kumar-K/Sequential-Pattern-Mining-Platform/internal/sequence"
	apperrors "github.com/Adithya-Monish-Kumar-K/Sequential-Pattern-Mining-Platform/pkg/errors"
)

// CountingFailure records a candidate that could not be evaluated.
type CountingFailure struct {
	Candidate sequence.Candidate
	Err       error
}

func (f CountingFailure) Error() string {
	return fmt.Sprintf("%s: %v", f.Candidate, f.Err)
}

// LevelCount is the outcome of counting one batch of candidates.
type LevelCount struct {
	Frequent  sequence.FrequencyMap
	Evaluated int
	Failures  []CountingFailure
}

// Counter dispatches support counting onto a Pool.
type Counter struct {
	pool   *Pool
	match  containment.Matcher
	logger *slog.Logger
}

// New creates a Counter. A nil matcher selects the greedy matcher.
func New(pool *Pool, match containment.Matcher) *Counter {
	if match == nil {
		match = containment.Contains
	}
	return &Counter{
		pool:   pool,
		match:  match,
		logger: slog.Default().With("component", "support-counter"),
	}
}

// Count evaluates every candidate against txs and keeps those contained in
// at least minsup transactions. It returns only once every candidate has
// been evaluated. Candidates that fail evaluation are left out of the map
// and reported in Failures. If ctx ends first the whole batch fails.
func (c *Counter) Count(ctx context.Context, candidates []sequence.Candidate, txs []sequence.Transaction, minsup int) (*LevelCount, error) {
	lc := &LevelCount{Frequent: make(sequence.FrequencyMap)}
	if len(candidates) == 0 {
		return lc, nil
	}
	out := make(chan result, len(candidates))
	submitted := 0
	for i, cand := range candidates {
		err := c.pool.submit(ctx, job{
			idx:       i,
			candidate: cand,
			txs:       txs,
			match:     c.match,
			out:       out,
		})
		if err != nil {
			return nil, c.abort(err, submitted, len(candidates))
		}
		submitted++
	}

	for received := 0; received < submitted; received++ {
		var r result
		select {
		case r = <-out:
		case <-ctx.Done():
			return nil, c.abort(ctx.Err(), received, len(candidates))
		}
		cand := candidates[r.idx]
		lc.Evaluated++
		if r.err != nil {
			lc.Failures = append(lc.Failures, CountingFailure{Candidate: cand, Err: r.err})
			c.logger.Warn("candidate evaluation failed, excluding from level",
				"candidate", cand.String(),
				"error", r.err,
			)
			continue
		}
		if r.count >= minsup {
			lc.Frequent.Add(cand, r.count)
		}
	}
	return lc, nil
}

func (c *Counter) abort(err error, done, total int) error {
	c.logger.Error("support counting aborted",
		"completed", done,
		"candidates", total,
		"error", err,
	)
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return apperrors.Newf(apperrors.ErrTimeout, 503, "support counting exceeded deadline after %d of %d candidates", done, total)
	case errors.Is(err, ErrPoolClosed):
		return fmt.Errorf("support counting: %w", err)
	default:
		return fmt.Errorf("support counting cancelled: %w", err)
	}
}
