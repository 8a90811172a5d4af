// Package sequence defines the canonical in-memory model used by the miner:
// symbols, itemsets, transactions, candidate patterns and the per-level
// frequency maps produced by support counting.
package sequence

import (
	"sort"
	"strings"
)

// Symbol is an opaque item token.
type Symbol string

// Itemset is a set of symbols observed at one transaction position. It is
// kept sorted and free of duplicates.
type Itemset []Symbol

// NewItemset builds the canonical form of raw: empty symbols dropped,
// duplicates collapsed, sorted.
func NewItemset(raw []string) Itemset {
	seen := make(map[Symbol]struct{}, len(raw))
	items := make(Itemset, 0, len(raw))
	for _, r := range raw {
		s := Symbol(strings.TrimSpace(r))
		if s == "" {
			continue
		}
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		items = append(items, s)
	}
	sort.Slice(items, func(i, j int) bool { return items[i] < items[j] })
	return items
}

// Has reports whether s is a member of the itemset.
func (is Itemset) Has(s Symbol) bool {
	i := sort.Search(len(is), func(i int) bool { return is[i] >= s })
	return i < len(is) && is[i] == s
}

// HasAll reports whether every symbol in syms is a member of the itemset.
func (is Itemset) HasAll(syms []Symbol) bool {
	if len(syms) > len(is) {
		return false
	}
	for _, s := range syms {
		if !is.Has(s) {
			return false
		}
	}
	return true
}

// Transaction is an ordered sequence of itemsets. It is never mutated after
// Load returns it.
type Transaction []Itemset

// Len returns the number of positions in the transaction.
func (t Transaction) Len() int {
	return len(t)
}

// Kind distinguishes the two candidate shapes.
type Kind int

const (
	// Ordered symbols must occur at strictly increasing positions.
	Ordered Kind = iota
	// Simultaneous symbols must all occur inside one itemset.
	Simultaneous
)

func (k Kind) String() string {
	switch k {
	case Ordered:
		return "ordered"
	case Simultaneous:
		return "simultaneous"
	default:
		return "unknown"
	}
}

// Candidate is a pattern under evaluation.
type Candidate struct {
	Kind    Kind
	Symbols []Symbol
}

// NewOrdered returns an ordered sequence candidate. The symbol slice is
// copied.
func NewOrdered(syms ...Symbol) Candidate {
	out := make([]Symbol, len(syms))
	copy(out, syms)
	return Candidate{Kind: Ordered, Symbols: out}
}

// NewSimultaneous returns a simultaneous set candidate with its symbols
// sorted and deduplicated. A set of one symbol is the same pattern as an
// ordered sequence of one symbol and is returned as such.
func NewSimultaneous(syms ...Symbol) Candidate {
	set := make([]Symbol, 0, len(syms))
	seen := make(map[Symbol]struct{}, len(syms))
	for _, s := range syms {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		set = append(set, s)
	}
	sort.Slice(set, func(i, j int) bool { return set[i] < set[j] })
	if len(set) == 1 {
		return Candidate{Kind: Ordered, Symbols: set}
	}
	return Candidate{Kind: Simultaneous, Symbols: set}
}

// Len returns the pattern length.
func (c Candidate) Len() int {
	return len(c.Symbols)
}

// Key is the canonical identity of the candidate, equal for candidates that
// are equal by value.
func (c Candidate) Key() string {
	return c.String()
}

// String renders ordered sequences as <a b c> and simultaneous sets as
// {a, b, c}.
func (c Candidate) String() string {
	parts := make([]string, len(c.Symbols))
	for i, s := range c.Symbols {
		parts[i] = string(s)
	}
	if c.Kind == Simultaneous {
		return "{" + strings.Join(parts, ", ") + "}"
	}
	return "<" + strings.Join(parts, " ") + ">"
}
