package sequence

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/Adithya-Monish-Kumar-K/Sequential-Pattern-Mining-Platform/pkg/errors"
)

func TestNewItemsetCanonical(t *testing.T) {
	is := NewItemset([]string{"b", "a", "b", " ", "c"})
	assert.Equal(t, Itemset{"a", "b", "c"}, is)
	assert.True(t, is.Has("b"))
	assert.False(t, is.Has("d"))
	assert.True(t, is.HasAll([]Symbol{"a", "c"}))
	assert.False(t, is.HasAll([]Symbol{"a", "d"}))
}

func TestCandidateKeys(t *testing.T) {
	assert.Equal(t, "<a b a>", NewOrdered("a", "b", "a").Key())
	assert.Equal(t, "{a, b}", NewSimultaneous("b", "a", "b").Key())
	assert.NotEqual(t, NewOrdered("a", "b").Key(), NewSimultaneous("a", "b").Key())

	single := NewSimultaneous("a")
	assert.Equal(t, Ordered, single.Kind)
	assert.Equal(t, NewOrdered("a").Key(), single.Key())
}

func TestNewOrderedCopies(t *testing.T) {
	syms := []Symbol{"a", "b"}
	c := NewOrdered(syms...)
	syms[0] = "z"
	assert.Equal(t, Symbol("a"), c.Symbols[0])
}

func TestLoad(t *testing.T) {
	raw := [][][]string{
		{{"a", "b"}, {"c"}, {"f", "g"}, {"g"}, {"e"}},
		{{"a", "d"}, {"c"}, {"b"}, {"a", "b", "e", "f"}},
		{{"a"}, {"b"}, {"f", "g"}, {"e"}},
		{{"b"}, {"f", "g"}},
	}
	ds, err := Load(raw)
	require.NoError(t, err)
	assert.Len(t, ds.Transactions, 4)
	assert.Equal(t, 5, ds.MaxLength)
	assert.Equal(t, 7, ds.Symbols())
	assert.Equal(t, 4, ds.Occurrences("a"))
	assert.Equal(t, 4, ds.Occurrences("g"))

	keys := make([]string, len(ds.Singletons))
	for i, c := range ds.Singletons {
		keys[i] = c.Key()
	}
	assert.Equal(t, []string{"<a>", "<b>", "<c>", "<d>", "<e>", "<f>", "<g>"}, keys)
}

func TestLoadInvalidInput(t *testing.T) {
	cases := map[string][][][]string{
		"empty collection":  {},
		"empty transaction": {{{"a"}}, {}},
		"empty itemset":     {{{"a"}, {}}},
		"blank symbols":     {{{" ", ""}}},
	}
	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Load(raw)
			require.Error(t, err)
			assert.True(t, errors.Is(err, apperrors.ErrInvalidInput))
		})
	}
}

func TestFrequencyMap(t *testing.T) {
	fm := make(FrequencyMap)
	fm.Add(NewOrdered("a", "b"), 2)
	fm.Add(NewSimultaneous("c", "a"), 3)
	fm.Add(NewOrdered("d"), 2)

	n, ok := fm.Count(NewSimultaneous("a", "c"))
	assert.True(t, ok)
	assert.Equal(t, 3, n)
	assert.False(t, fm.Has(NewOrdered("b", "a")))
	assert.Equal(t, []Symbol{"a", "b", "c", "d"}, fm.Symbols())

	sorted := fm.Sorted()
	require.Len(t, sorted, 3)
	assert.Equal(t, "{a, c}", sorted[0].Candidate.Key())
	assert.Equal(t, "<a b>", sorted[1].Candidate.Key())
	assert.Equal(t, "<d>", sorted[2].Candidate.Key())
}
