package mining

import (
	"time"

	"github.com/Adithya-Monish-Kumar-K/Sequential-Pattern-Mining-Platform/internal/mining/counter"
	"github.com/Adithya-Monish-Kumar-K/Sequential-Pattern-Mining-Platform/internal/sequence"
)

// LevelStats summarises one completed level.
type LevelStats struct {
	Level      int           `json:"level"`
	Candidates int           `json:"candidates"`
	Pruned     int           `json:"pruned"`
	Frequent   int           `json:"frequent"`
	Failures   int           `json:"failures"`
	Duration   time.Duration `json:"duration"`
}

// state is the mutable record of a mining run. It is owned by a single Mine
// call and discarded with it.
type state struct {
	levels    []sequence.FrequencyMap
	stats     []LevelStats
	failures  []counter.CountingFailure
	level     int
	maxLength int
}

func newState(maxLength int) *state {
	return &state{maxLength: maxLength}
}

func (s *state) appendLevel(lc *counter.LevelCount, st LevelStats) {
	s.level = st.Level
	s.levels = append(s.levels, lc.Frequent)
	s.stats = append(s.stats, st)
	s.failures = append(s.failures, lc.Failures...)
}

func (s *state) last() sequence.FrequencyMap {
	if len(s.levels) == 0 {
		return nil
	}
	return s.levels[len(s.levels)-1]
}

// done reports whether the loop must stop: the last level came back empty
// or patterns have reached the longest transaction.
func (s *state) done() bool {
	return len(s.last()) == 0 || s.level >= s.maxLength
}

// finalize returns the levels handed back to the caller. An empty final
// level is always dropped. A non-empty final level reached at maxLength is
// kept unless dropFinal is set.
func (s *state) finalize(dropFinal bool) []sequence.FrequencyMap {
	if len(s.levels) == 0 {
		return nil
	}
	if len(s.last()) == 0 || dropFinal {
		return s.levels[:len(s.levels)-1]
	}
	return s.levels
}
