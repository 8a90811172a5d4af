package store

import (
	"context"
	"fmt"
	"sort"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/Adithya-Monish-Kumar-K/Sequential-Pattern-Mining-Platform/internal/jobs"
	apperrors "github.com/Adithya-Monish-Kumar-K/Sequential-Pattern-Mining-Platform/pkg/errors"
)

// Memory keeps the most recent runs in process. It backs the runs API when
// Postgres is disabled; older runs are evicted once capacity is reached.
type Memory struct {
	// mu makes claiming an idempotency key and storing its run one step.
	mu          sync.Mutex
	runs        *lru.Cache[string, *jobs.MineResponse]
	idempotency *lru.Cache[string, string]
}

func NewMemory(capacity int) (*Memory, error) {
	if capacity <= 0 {
		capacity = MaxListLimit
	}
	runs, err := lru.New[string, *jobs.MineResponse](capacity)
	if err != nil {
		return nil, fmt.Errorf("creating run cache: %w", err)
	}
	keys, err := lru.New[string, string](capacity)
	if err != nil {
		return nil, fmt.Errorf("creating idempotency cache: %w", err)
	}
	return &Memory{runs: runs, idempotency: keys}, nil
}

// Save stores resp. If idempotencyKey already belongs to another stored run,
// nothing is stored and ErrIdempotencyConflict is returned.
func (m *Memory) Save(ctx context.Context, requestHash, idempotencyKey string, resp *jobs.MineResponse) error {
	if _, err := parseRunID(resp.RunID); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if idempotencyKey != "" {
		if owner, ok := m.idempotency.Get(idempotencyKey); ok && owner != resp.RunID && m.runs.Contains(owner) {
			return apperrors.Newf(apperrors.ErrIdempotencyConflict, 409,
				"idempotency key %q belongs to run %s", idempotencyKey, owner)
		}
		m.idempotency.Add(idempotencyKey, resp.RunID)
	}
	m.runs.Add(resp.RunID, resp)
	return nil
}

func (m *Memory) Get(ctx context.Context, runID string) (*jobs.MineResponse, error) {
	if _, err := parseRunID(runID); err != nil {
		return nil, err
	}
	resp, ok := m.runs.Get(runID)
	if !ok {
		return nil, apperrors.Newf(apperrors.ErrRunNotFound, 404, "run %s not found", runID)
	}
	return resp, nil
}

func (m *Memory) FindByIdempotencyKey(ctx context.Context, key string) (*jobs.MineResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	runID, ok := m.idempotency.Get(key)
	if !ok {
		return nil, nil
	}
	resp, ok := m.runs.Get(runID)
	if !ok {
		return nil, nil
	}
	return resp, nil
}

func (m *Memory) List(ctx context.Context, limit int) ([]jobs.RunSummary, error) {
	values := m.runs.Values()
	out := make([]jobs.RunSummary, 0, len(values))
	for _, resp := range values {
		out = append(out, resp.Summary())
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if n := ClampLimit(limit); len(out) > n {
		out = out[:n]
	}
	return out, nil
}
