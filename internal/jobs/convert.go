package jobs

import (
	"github.com/Adithya-Monish-Kumar-K/Sequential-Pattern-Mining-Platform/internal/mining"
	"github.com/Adithya-Monish-Kumar-K/Sequential-Pattern-Mining-Platform/internal/sequence"
)

// FromResult converts a miner result into a response without run metadata.
func FromResult(res *mining.Result) *MineResponse {
	resp := &MineResponse{
		MinSupport:       res.MinSupport,
		Threshold:        res.Threshold,
		TransactionCount: res.Transactions,
		MaxLength:        res.MaxLength,
		Levels:           make([]LevelPatterns, 0, len(res.Levels)),
		DurationMs:       res.Duration.Milliseconds(),
	}
	for i, fm := range res.Levels {
		lvl := LevelPatterns{Length: i + 1, Patterns: make([]Pattern, 0, len(fm))}
		for _, f := range fm.Sorted() {
			lvl.Patterns = append(lvl.Patterns, toPattern(f, res.Transactions))
		}
		resp.Levels = append(resp.Levels, lvl)
	}
	for _, st := range res.Stats {
		resp.Stats = append(resp.Stats, LevelSummary{
			Level:      st.Level,
			Candidates: st.Candidates,
			Pruned:     st.Pruned,
			Frequent:   st.Frequent,
			Failures:   st.Failures,
			DurationMs: st.Duration.Milliseconds(),
		})
	}
	for _, f := range res.Failures {
		resp.Failures = append(resp.Failures, Failure{Candidate: f.Candidate.String(), Error: f.Err.Error()})
	}
	return resp
}

func toPattern(f sequence.Frequent, transactions int) Pattern {
	syms := make([]string, len(f.Candidate.Symbols))
	for i, s := range f.Candidate.Symbols {
		syms[i] = string(s)
	}
	p := Pattern{
		Kind:    f.Candidate.Kind.String(),
		Symbols: syms,
		Key:     f.Candidate.Key(),
		Count:   f.Count,
	}
	if transactions > 0 {
		p.Support = float64(f.Count) / float64(transactions)
	}
	return p
}
