package analytics

import "time"

type EventType string

const (
	EventRunCompleted EventType = "run_completed"
	EventRunFailed    EventType = "run_failed"
)

// RunEvent describes one mining request, served from cache or mined.
type RunEvent struct {
	Type         EventType `json:"type"`
	RunID        string    `json:"run_id,omitempty"`
	RequestID    string    `json:"request_id,omitempty"`
	Transactions int       `json:"transactions"`
	MinSupport   float64   `json:"min_support"`
	Threshold    int       `json:"threshold"`
	Levels       int       `json:"levels"`
	Patterns     int       `json:"patterns"`
	// TopPatterns holds the keys of the longest patterns found, most
	// frequent first.
	TopPatterns []string  `json:"top_patterns,omitempty"`
	Failures    int       `json:"failures"`
	CacheHit    bool      `json:"cache_hit"`
	LatencyMs   int64     `json:"latency_ms"`
	Error       string    `json:"error,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
}
