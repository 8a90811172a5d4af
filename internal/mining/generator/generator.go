// Package generator derives the next level of candidates from the symbols
// that survived the previous level.
package generator

import (
	"github.com/Adithya-Monish-Kumar-K/Sequential-Pattern-Mining-Platform/internal/sequence"
)

// Generate returns every ordered sequence of length k drawn with repetition
// from symbols, followed by every k-combination of symbols as a
// simultaneous set. Duplicate candidates are removed. symbols is expected
// to be sorted and deduplicated, as returned by FrequencyMap.Symbols.
func Generate(symbols []sequence.Symbol, k int) []sequence.Candidate {
	if k <= 0 || len(symbols) == 0 {
		return nil
	}
	seen := make(map[string]struct{})
	out := make([]sequence.Candidate, 0, estimate(len(symbols), k))
	emit := func(c sequence.Candidate) {
		key := c.Key()
		if _, ok := seen[key]; ok {
			return
		}
		seen[key] = struct{}{}
		out = append(out, c)
	}

	product(symbols, k, func(tuple []sequence.Symbol) {
		emit(sequence.NewOrdered(tuple...))
	})
	combinations(symbols, k, func(combo []sequence.Symbol) {
		emit(sequence.NewSimultaneous(combo...))
	})
	return out
}

// Prune drops candidates that have a sub-pattern one symbol shorter which
// is missing from previous. Such candidates cannot be frequent, so pruning
// only saves counting work.
func Prune(candidates []sequence.Candidate, previous sequence.FrequencyMap) []sequence.Candidate {
	out := candidates[:0:0]
	for _, c := range candidates {
		if allFrequent(c, previous) {
			out = append(out, c)
		}
	}
	return out
}

// SubPatterns returns the distinct patterns obtained by deleting one symbol
// from c.
func SubPatterns(c sequence.Candidate) []sequence.Candidate {
	if c.Len() <= 1 {
		return nil
	}
	seen := make(map[string]struct{}, c.Len())
	subs := make([]sequence.Candidate, 0, c.Len())
	for i := range c.Symbols {
		rest := make([]sequence.Symbol, 0, c.Len()-1)
		rest = append(rest, c.Symbols[:i]...)
		rest = append(rest, c.Symbols[i+1:]...)
		var sub sequence.Candidate
		if c.Kind == sequence.Simultaneous {
			sub = sequence.NewSimultaneous(rest...)
		} else {
			sub = sequence.NewOrdered(rest...)
		}
		if _, ok := seen[sub.Key()]; ok {
			continue
		}
		seen[sub.Key()] = struct{}{}
		subs = append(subs, sub)
	}
	return subs
}

func allFrequent(c sequence.Candidate, previous sequence.FrequencyMap) bool {
	for _, sub := range SubPatterns(c) {
		if !previous.Has(sub) {
			return false
		}
	}
	return true
}

// product calls fn with every length-k tuple over symbols in lexicographic
// order. The slice passed to fn is reused between calls.
func product(symbols []sequence.Symbol, k int, fn func([]sequence.Symbol)) {
	idx := make([]int, k)
	tuple := make([]sequence.Symbol, k)
	for {
		for i, j := range idx {
			tuple[i] = symbols[j]
		}
		fn(tuple)
		pos := k - 1
		for pos >= 0 {
			idx[pos]++
			if idx[pos] < len(symbols) {
				break
			}
			idx[pos] = 0
			pos--
		}
		if pos < 0 {
			return
		}
	}
}

// combinations calls fn with every k-subset of symbols, preserving input
// order within each subset.
func combinations(symbols []sequence.Symbol, k int, fn func([]sequence.Symbol)) {
	n := len(symbols)
	if k > n {
		return
	}
	idx := make([]int, k)
	for i := range idx {
		idx[i] = i
	}
	combo := make([]sequence.Symbol, k)
	for {
		for i, j := range idx {
			combo[i] = symbols[j]
		}
		fn(combo)
		pos := k - 1
		for pos >= 0 && idx[pos] == n-k+pos {
			pos--
		}
		if pos < 0 {
			return
		}
		idx[pos]++
		for i := pos + 1; i < k; i++ {
			idx[i] = idx[i-1] + 1
		}
	}
}

func estimate(n, k int) int {
	total := 1
	for i := 0; i < k; i++ {
		total *= n
		if total > 1<<16 {
			return 1 << 16
		}
	}
	return total
}
