package counter

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/Sequential-Pattern-Mining-Platform/internal/mining/containment"
	"github.com/Adithya-Monish-Kumar-K/Sequential-Pattern-Mining-Platform/internal/sequence"
	apperrors "github.com/Adithya-Monish-Kumar-K/Sequential-Pattern-Mining-Platform/pkg/errors"
)

func load(t *testing.T, raw [][][]string) *sequence.Dataset {
	t.Helper()
	ds, err := sequence.Load(raw)
	require.NoError(t, err)
	return ds
}

func TestCountScenarioA(t *testing.T) {
	ds := load(t, [][][]string{{{"a", "b"}}, {{"a"}}, {{"a"}}})
	pool := NewPool(2)
	defer pool.Close()

	lc, err := New(pool, nil).Count(context.Background(), ds.Singletons, ds.Transactions, 3)
	require.NoError(t, err)
	assert.Equal(t, 2, lc.Evaluated)
	assert.Empty(t, lc.Failures)
	require.Len(t, lc.Frequent, 1)
	n, ok := lc.Frequent.Count(sequence.NewOrdered("a"))
	assert.True(t, ok)
	assert.Equal(t, 3, n)
	assert.False(t, lc.Frequent.Has(sequence.NewOrdered("b")))
}

func TestCountScenarioB(t *testing.T) {
	ds := load(t, [][][]string{{{"a"}, {"b"}}, {{"a"}, {"b"}}})
	pool := NewPool(4)
	defer pool.Close()

	candidates := []sequence.Candidate{
		sequence.NewOrdered("a", "b"),
		sequence.NewOrdered("b", "a"),
		sequence.NewSimultaneous("a", "b"),
	}
	lc, err := New(pool, nil).Count(context.Background(), candidates, ds.Transactions, 2)
	require.NoError(t, err)
	require.Len(t, lc.Frequent, 1)
	n, _ := lc.Frequent.Count(sequence.NewOrdered("a", "b"))
	assert.Equal(t, 2, n)
	assert.False(t, lc.Frequent.Has(sequence.NewSimultaneous("a", "b")))
}

func TestCountIndependentOfWorkerCount(t *testing.T) {
	ds := load(t, [][][]string{
		{{"a", "b"}, {"c"}, {"f", "g"}, {"g"}, {"e"}},
		{{"a", "d"}, {"c"}, {"b"}, {"a", "b", "e", "f"}},
		{{"a"}, {"b"}, {"f", "g"}, {"e"}},
		{{"b"}, {"f", "g"}},
	})
	var candidates []sequence.Candidate
	for _, x := range ds.Singletons {
		for _, y := range ds.Singletons {
			candidates = append(candidates, sequence.NewOrdered(x.Symbols[0], y.Symbols[0]))
			candidates = append(candidates, sequence.NewSimultaneous(x.Symbols[0], y.Symbols[0]))
		}
	}

	var baseline sequence.FrequencyMap
	for _, workers := range []int{1, 3, 16} {
		pool := NewPool(workers)
		lc, err := New(pool, nil).Count(context.Background(), candidates, ds.Transactions, 2)
		pool.Close()
		require.NoError(t, err)
		for _, f := range lc.Frequent {
			assert.GreaterOrEqual(t, f.Count, 2)
			assert.LessOrEqual(t, f.Count, len(ds.Transactions))
		}
		if baseline == nil {
			baseline = lc.Frequent
			continue
		}
		assert.Equal(t, baseline, lc.Frequent, "workers=%d", workers)
	}
}

func TestCountIsolatesFailures(t *testing.T) {
	ds := load(t, [][][]string{{{"a"}, {"b"}}, {{"a"}}})
	pool := NewPool(2)
	defer pool.Close()

	boom := func(c sequence.Candidate, tx sequence.Transaction) bool {
		if c.Key() == "<b>" {
			panic("matcher exploded")
		}
		return containment.Contains(c, tx)
	}
	candidates := []sequence.Candidate{
		sequence.NewOrdered("a"),
		sequence.NewOrdered("b"),
		{Kind: sequence.Kind(9), Symbols: []sequence.Symbol{"a", "b"}},
	}
	lc, err := New(pool, boom).Count(context.Background(), candidates, ds.Transactions, 1)
	require.NoError(t, err)
	assert.Equal(t, 3, lc.Evaluated)
	require.Len(t, lc.Failures, 2)
	for _, f := range lc.Failures {
		assert.True(t, errors.Is(f.Err, apperrors.ErrCountingFailure))
	}
	require.Len(t, lc.Frequent, 1)
	assert.True(t, lc.Frequent.Has(sequence.NewOrdered("a")))
}

func TestCountDeadlineFailsWholeLevel(t *testing.T) {
	ds := load(t, [][][]string{{{"a"}}})
	pool := NewPool(1)
	defer pool.Close()

	slow := func(c sequence.Candidate, tx sequence.Transaction) bool {
		time.Sleep(50 * time.Millisecond)
		return true
	}
	candidates := []sequence.Candidate{
		sequence.NewOrdered("a"), sequence.NewOrdered("a", "a"), sequence.NewOrdered("a", "a", "a"),
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	lc, err := New(pool, slow).Count(ctx, candidates, ds.Transactions, 1)
	assert.Nil(t, lc)
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrTimeout))
}

func TestCountAfterCloseFails(t *testing.T) {
	ds := load(t, [][][]string{{{"a"}}})
	pool := NewPool(1)
	pool.Close()
	pool.Close()

	_, err := New(pool, nil).Count(context.Background(), ds.Singletons, ds.Transactions, 1)
	assert.True(t, errors.Is(err, ErrPoolClosed))
}

func TestCountEmptyBatch(t *testing.T) {
	pool := NewPool(1)
	defer pool.Close()
	lc, err := New(pool, nil).Count(context.Background(), nil, nil, 1)
	require.NoError(t, err)
	assert.Empty(t, lc.Frequent)
}

func TestNewPoolDefaultsToCPUs(t *testing.T) {
	pool := NewPool(0)
	defer pool.Close()
	assert.Positive(t, pool.Size())
}
