package mining

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/Sequential-Pattern-Mining-Platform/internal/mining/containment"
	"github.com/Adithya-Monish-Kumar-K/Sequential-Pattern-Mining-Platform/internal/mining/generator"
	"github.com/Adithya-Monish-Kumar-K/Sequential-Pattern-Mining-Platform/internal/sequence"
	"github.com/Adithya-Monish-Kumar-K/Sequential-Pattern-Mining-Platform/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/Sequential-Pattern-Mining-Platform/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/Sequential-Pattern-Mining-Platform/pkg/metrics"
)

var shoppingTrips = [][][]string{
	{{"a", "b"}, {"c"}, {"f", "g"}, {"g"}, {"e"}},
	{{"a", "d"}, {"c"}, {"b"}, {"a", "b", "e", "f"}},
	{{"a"}, {"b"}, {"f", "g"}, {"e"}},
	{{"b"}, {"f", "g"}},
}

func newMiner(t *testing.T, opts Options) *Miner {
	t.Helper()
	m, err := New(opts, nil)
	require.NoError(t, err)
	return m
}

func keys(fm sequence.FrequencyMap) []string {
	out := make([]string, 0, len(fm))
	for _, f := range fm.Sorted() {
		out = append(out, f.Candidate.Key())
	}
	return out
}

func TestMineScenarioA(t *testing.T) {
	res, err := newMiner(t, Options{Workers: 2}).Mine(context.Background(),
		[][][]string{{{"a", "b"}}, {{"a"}}, {{"a"}}}, 1.0)
	require.NoError(t, err)

	assert.Equal(t, 3, res.Threshold)
	assert.Equal(t, 1, res.MaxLength)
	require.Len(t, res.Levels, 1)
	assert.Equal(t, []string{"<a>"}, keys(res.Levels[0]))
	n, _ := res.Levels[0].Count(sequence.NewOrdered("a"))
	assert.Equal(t, 3, n)
}

func TestMineScenarioB(t *testing.T) {
	res, err := newMiner(t, Options{}).Mine(context.Background(),
		[][][]string{{{"a"}, {"b"}}, {{"a"}, {"b"}}}, 1.0)
	require.NoError(t, err)

	require.Len(t, res.Levels, 2)
	assert.Equal(t, []string{"<a>", "<b>"}, keys(res.Levels[0]))
	assert.Equal(t, []string{"<a b>"}, keys(res.Levels[1]))
	assert.False(t, res.Levels[1].Has(sequence.NewSimultaneous("a", "b")))
	require.Len(t, res.Stats, 2)
	assert.Equal(t, 5, res.Stats[1].Candidates)
}

func TestMineLengthCappedByLongestTransaction(t *testing.T) {
	res, err := newMiner(t, Options{}).Mine(context.Background(),
		[][][]string{{{"a"}, {"a"}}, {{"a"}, {"a"}}, {{"a"}}}, 0.5)
	require.NoError(t, err)

	require.Len(t, res.Levels, 2)
	assert.Equal(t, []string{"<a a>"}, keys(res.Levels[1]))
	for _, fm := range res.Levels {
		for _, f := range fm {
			assert.LessOrEqual(t, f.Candidate.Len(), 2)
		}
	}
	assert.Len(t, res.Stats, 2)
}

func TestMineRejectsSupportOutOfRange(t *testing.T) {
	m := newMiner(t, Options{})
	for _, s := range []float64{1.5, 0, -0.2, math.NaN()} {
		res, err := m.Mine(context.Background(), shoppingTrips, s)
		assert.Nil(t, res)
		require.Error(t, err)
		assert.True(t, errors.Is(err, apperrors.ErrInvalidArgument), "support %v", s)
	}
}

func TestMineRejectsInvalidInput(t *testing.T) {
	_, err := newMiner(t, Options{}).Mine(context.Background(), [][][]string{{{"a"}}, {}}, 0.5)
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrInvalidInput))
}

func TestMineStopsOnEmptyLevel(t *testing.T) {
	raw := [][][]string{{{"a"}, {"b"}}, {{"b"}, {"a"}}}
	res, err := newMiner(t, Options{}).Mine(context.Background(), raw, 1.0)
	require.NoError(t, err)

	require.Len(t, res.Levels, 1)
	assert.Equal(t, []string{"<a>", "<b>"}, keys(res.Levels[0]))
	// The empty second level was counted and then dropped.
	require.Len(t, res.Stats, 2)
	assert.Zero(t, res.Stats[1].Frequent)
}

func TestMineDropFinalLevel(t *testing.T) {
	m := newMiner(t, Options{DropFinalLevel: true})

	capped, err := m.Mine(context.Background(), [][][]string{{{"a"}, {"b"}}, {{"a"}, {"b"}}}, 1.0)
	require.NoError(t, err)
	require.Len(t, capped.Levels, 1)
	assert.Equal(t, []string{"<a>", "<b>"}, keys(capped.Levels[0]))

	emptied, err := m.Mine(context.Background(), [][][]string{{{"a"}, {"b"}}, {{"b"}, {"a"}}}, 1.0)
	require.NoError(t, err)
	assert.Len(t, emptied.Levels, 1)
}

func TestMineShoppingTrips(t *testing.T) {
	res, err := newMiner(t, Options{Workers: 3}).Mine(context.Background(), shoppingTrips, 0.75)
	require.NoError(t, err)

	assert.Equal(t, 3, res.Threshold)
	require.NotEmpty(t, res.Levels)
	assert.Equal(t, []string{"<b>", "<f>", "<a>", "<e>", "<g>"}, keys(res.Levels[0]))
	require.GreaterOrEqual(t, len(res.Levels), 2)

	n, ok := res.Levels[1].Count(sequence.NewSimultaneous("f", "g"))
	assert.True(t, ok)
	assert.Equal(t, 3, n)
	n, ok = res.Levels[1].Count(sequence.NewOrdered("b", "f"))
	assert.True(t, ok)
	assert.Equal(t, 4, n)
	assert.False(t, res.Levels[1].Has(sequence.NewOrdered("a", "b")))
}

func TestMineEveryPatternMeetsThreshold(t *testing.T) {
	res, err := newMiner(t, Options{}).Mine(context.Background(), shoppingTrips, 0.5)
	require.NoError(t, err)
	ds, err := sequence.Load(shoppingTrips)
	require.NoError(t, err)

	for i, fm := range res.Levels {
		for _, f := range fm {
			assert.Equal(t, i+1, f.Candidate.Len())
			assert.GreaterOrEqual(t, f.Count, res.Threshold)
			support := 0
			for _, tx := range ds.Transactions {
				if containment.ContainsBacktracking(f.Candidate, tx) {
					support++
				}
			}
			assert.Equal(t, support, f.Count, f.Candidate.String())
		}
	}
}

func TestMineSubPatternsAreFrequent(t *testing.T) {
	res, err := newMiner(t, Options{}).Mine(context.Background(), shoppingTrips, 0.5)
	require.NoError(t, err)

	for i := 1; i < len(res.Levels); i++ {
		for _, f := range res.Levels[i] {
			for _, sub := range generator.SubPatterns(f.Candidate) {
				n, ok := res.Levels[i-1].Count(sub)
				require.True(t, ok, "%s missing sub-pattern %s", f.Candidate, sub)
				assert.GreaterOrEqual(t, n, f.Count)
			}
		}
	}
}

func randomTransactions(r *rand.Rand, n int) [][][]string {
	alphabet := []string{"a", "b", "c", "d"}
	raw := make([][][]string, n)
	for i := range raw {
		tx := make([][]string, 1+r.Intn(4))
		for j := range tx {
			size := 1 + r.Intn(2)
			for k := 0; k < size; k++ {
				tx[j] = append(tx[j], alphabet[r.Intn(len(alphabet))])
			}
		}
		raw[i] = tx
	}
	return raw
}

func TestMineOptionsDoNotChangeResults(t *testing.T) {
	r := rand.New(rand.NewSource(7))
	variants := []Options{
		{Workers: 4, Prune: true},
		{Workers: 2, Matcher: containment.MatcherBacktracking},
		{Workers: 3, Matcher: containment.MatcherBacktracking, Prune: true},
	}
	for round := 0; round < 20; round++ {
		raw := randomTransactions(r, 6)
		base, err := newMiner(t, Options{Workers: 1}).Mine(context.Background(), raw, 0.34)
		require.NoError(t, err)
		for _, opts := range variants {
			got, err := newMiner(t, opts).Mine(context.Background(), raw, 0.34)
			require.NoError(t, err)
			require.Len(t, got.Levels, len(base.Levels))
			for i := range base.Levels {
				assert.Equal(t, base.Levels[i], got.Levels[i], "round %d level %d opts %+v", round, i+1, opts)
			}
		}
	}
}

func TestMinePruneReportsDroppedCandidates(t *testing.T) {
	res, err := newMiner(t, Options{Prune: true}).Mine(context.Background(), shoppingTrips, 0.5)
	require.NoError(t, err)
	pruned := 0
	for _, st := range res.Stats {
		pruned += st.Pruned
	}
	assert.Positive(t, pruned)
}

func TestMineLevelTimeout(t *testing.T) {
	m := newMiner(t, Options{Workers: 1, LevelTimeout: 10 * time.Millisecond})
	m.match = func(c sequence.Candidate, tx sequence.Transaction) bool {
		time.Sleep(50 * time.Millisecond)
		return true
	}

	res, err := m.Mine(context.Background(), shoppingTrips, 0.5)
	assert.Nil(t, res)
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrTimeout))
}

func TestMineRecordsMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	mx := metrics.New(reg)
	m, err := New(Options{Workers: 2}, mx)
	require.NoError(t, err)

	_, err = m.Mine(context.Background(), shoppingTrips, 0.5)
	require.NoError(t, err)
	_, err = m.Mine(context.Background(), shoppingTrips, 2)
	require.Error(t, err)

	assert.Equal(t, 1.0, testutil.ToFloat64(mx.MiningRunsTotal.WithLabelValues("ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(mx.MiningRunsTotal.WithLabelValues("invalid")))
	assert.Equal(t, 2.0, testutil.ToFloat64(mx.WorkerPoolSize))
	assert.Positive(t, testutil.ToFloat64(mx.CandidatesGenerated))
}

func TestThreshold(t *testing.T) {
	cases := []struct {
		fraction float64
		n, want  int
	}{
		{0.7, 10, 7},
		{1.0, 3, 3},
		{0.5, 4, 2},
		{0.5, 3, 2},
		{1.0 / 3.0, 3, 1},
		{0.0001, 3, 1},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, Threshold(tc.fraction, tc.n), "%v of %d", tc.fraction, tc.n)
	}
}

func TestNewRejectsUnknownMatcher(t *testing.T) {
	_, err := New(Options{Matcher: "fuzzy"}, nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrInvalidArgument))
}

func TestOptionsFromConfig(t *testing.T) {
	cfg := config.Default().Mining
	cfg.Workers = 3
	cfg.Prune = true
	opts := OptionsFromConfig(cfg)
	assert.Equal(t, 3, opts.Workers)
	assert.True(t, opts.Prune)
	assert.Equal(t, cfg.LevelTimeout, opts.LevelTimeout)
}
