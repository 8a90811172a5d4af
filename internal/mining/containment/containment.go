// Package containment decides whether a candidate pattern occurs inside a
// transaction.
//
// Ordered sequences are matched greedily: each symbol takes the first
// itemset strictly after the one used by the previous symbol. Because the
// earliest match always leaves the most room for the remaining symbols, the
// greedy walk finds a match whenever one exists. Backtracking explores every
// assignment and is kept as an independent oracle and as a selectable
// matcher.
//
// Matching is by itemset position, never by itemset value. Equal itemsets at
// different positions are distinct, so <b a> occurs in [{a} {b} {a}]: the a
// is taken from the third itemset. Looking an itemset up by value would
// always resolve to the first {a} and miss that match.
package containment

import (
	"fmt"

	"github.com/Adithya-Monish-Kumar-K/Sequential-Pattern-Mining-Platform/internal/sequence"
	apperrors "github.com/Adithya-Monish-Kumar-K/Sequential-Pattern-Mining-Platform/pkg/errors"
)

// Matcher reports whether a candidate occurs in a transaction.
type Matcher func(c sequence.Candidate, tx sequence.Transaction) bool

const (
	MatcherGreedy       = "greedy"
	MatcherBacktracking = "backtracking"
)

// ForName returns the matcher registered under name.
func ForName(name string) (Matcher, error) {
	switch name {
	case "", MatcherGreedy:
		return Contains, nil
	case MatcherBacktracking:
		return ContainsBacktracking, nil
	default:
		return nil, apperrors.Newf(apperrors.ErrInvalidArgument, 400, "unknown matcher %q", name)
	}
}

// Check reports why c cannot be evaluated, or nil if it can.
func Check(c sequence.Candidate) error {
	if c.Len() == 0 {
		return fmt.Errorf("%w: candidate has no symbols", apperrors.ErrCountingFailure)
	}
	switch c.Kind {
	case sequence.Ordered, sequence.Simultaneous:
		return nil
	default:
		return fmt.Errorf("%w: candidate %s has unknown kind %d", apperrors.ErrCountingFailure, c, int(c.Kind))
	}
}

// Contains is the greedy first-fit matcher.
func Contains(c sequence.Candidate, tx sequence.Transaction) bool {
	if c.Len() == 0 {
		return false
	}
	switch {
	case c.Len() == 1:
		return present(c.Symbols[0], tx)
	case c.Kind == sequence.Simultaneous:
		return together(c.Symbols, tx)
	case c.Kind == sequence.Ordered:
		prev := -1
		for _, s := range c.Symbols {
			pos := next(s, tx, prev+1)
			if pos < 0 {
				return false
			}
			prev = pos
		}
		return true
	default:
		return false
	}
}

// ContainsBacktracking matches ordered sequences by trying every
// admissible position for each symbol.
func ContainsBacktracking(c sequence.Candidate, tx sequence.Transaction) bool {
	if c.Len() == 0 {
		return false
	}
	switch {
	case c.Len() == 1:
		return present(c.Symbols[0], tx)
	case c.Kind == sequence.Simultaneous:
		return together(c.Symbols, tx)
	case c.Kind == sequence.Ordered:
		return search(c.Symbols, tx, 0)
	default:
		return false
	}
}

func search(syms []sequence.Symbol, tx sequence.Transaction, from int) bool {
	if len(syms) == 0 {
		return true
	}
	for pos := from; pos <= len(tx)-len(syms); pos++ {
		if tx[pos].Has(syms[0]) && search(syms[1:], tx, pos+1) {
			return true
		}
	}
	return false
}

func present(s sequence.Symbol, tx sequence.Transaction) bool {
	return next(s, tx, 0) >= 0
}

func together(syms []sequence.Symbol, tx sequence.Transaction) bool {
	for _, is := range tx {
		if is.HasAll(syms) {
			return true
		}
	}
	return false
}

// next returns the first position >= from whose itemset holds s, or -1.
func next(s sequence.Symbol, tx sequence.Transaction, from int) int {
	for pos := from; pos < len(tx); pos++ {
		if tx[pos].Has(s) {
			return pos
		}
	}
	return -1
}
