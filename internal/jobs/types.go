// Package jobs defines the request/response types and Kafka event schemas of
// the mining API, and converts miner results into their wire form.
package jobs

import "time"

// MineRequest is the JSON body accepted by POST /api/v1/mine and carried
// inside a JobEvent.
type MineRequest struct {
	Transactions [][][]string `json:"transactions"`
	// MinSupport is the support fraction in (0, 1]. Omitted means the
	// configured default.
	MinSupport     *float64 `json:"min_support,omitempty"`
	IdempotencyKey string   `json:"idempotency_key,omitempty"`
}

// Pattern is one frequent pattern in a response.
type Pattern struct {
	Kind    string   `json:"kind"`
	Symbols []string `json:"symbols"`
	Key     string   `json:"key"`
	Count   int      `json:"count"`
	Support float64  `json:"support"`
}

// LevelPatterns groups the frequent patterns of one length, most frequent
// first.
type LevelPatterns struct {
	Length   int       `json:"length"`
	Patterns []Pattern `json:"patterns"`
}

// Failure reports a candidate whose evaluation failed and was left out.
type Failure struct {
	Candidate string `json:"candidate"`
	Error     string `json:"error"`
}

// LevelSummary mirrors the miner's per-level statistics.
type LevelSummary struct {
	Level      int   `json:"level"`
	Candidates int   `json:"candidates"`
	Pruned     int   `json:"pruned"`
	Frequent   int   `json:"frequent"`
	Failures   int   `json:"failures"`
	DurationMs int64 `json:"duration_ms"`
}

// MineResponse is the result of a mining run.
type MineResponse struct {
	RunID            string          `json:"run_id"`
	MinSupport       float64         `json:"min_support"`
	Threshold        int             `json:"threshold"`
	TransactionCount int             `json:"transaction_count"`
	MaxLength        int             `json:"max_length"`
	Levels           []LevelPatterns `json:"levels"`
	Stats            []LevelSummary  `json:"stats,omitempty"`
	Failures         []Failure       `json:"failures,omitempty"`
	Cached           bool            `json:"cached"`
	DurationMs       int64           `json:"duration_ms"`
	CreatedAt        time.Time       `json:"created_at"`
}

// PatternCount is the number of frequent patterns in the response.
func (r *MineResponse) PatternCount() int {
	n := 0
	for _, lvl := range r.Levels {
		n += len(lvl.Patterns)
	}
	return n
}

// RunSummary is a row of GET /api/v1/runs.
type RunSummary struct {
	RunID            string    `json:"run_id"`
	MinSupport       float64   `json:"min_support"`
	Threshold        int       `json:"threshold"`
	TransactionCount int       `json:"transaction_count"`
	MaxLength        int       `json:"max_length"`
	Patterns         int       `json:"patterns"`
	CreatedAt        time.Time `json:"created_at"`
}

// Summary returns the list view of r.
func (r *MineResponse) Summary() RunSummary {
	return RunSummary{
		RunID:            r.RunID,
		MinSupport:       r.MinSupport,
		Threshold:        r.Threshold,
		TransactionCount: r.TransactionCount,
		MaxLength:        r.MaxLength,
		Patterns:         r.PatternCount(),
		CreatedAt:        r.CreatedAt,
	}
}

// JobEvent is the Kafka payload on the mining-jobs topic.
type JobEvent struct {
	JobID       string      `json:"job_id"`
	Request     MineRequest `json:"request"`
	SubmittedAt time.Time   `json:"submitted_at"`
}

// Job status values carried by ResultEvent.
const (
	StatusSucceeded = "succeeded"
	StatusFailed    = "failed"
)

// ResultEvent is the Kafka payload on the mining-results topic.
type ResultEvent struct {
	JobID       string        `json:"job_id"`
	Status      string        `json:"status"`
	Error       string        `json:"error,omitempty"`
	Result      *MineResponse `json:"result,omitempty"`
	CompletedAt time.Time     `json:"completed_at"`
}
