// Package store persists completed mining runs so they can be fetched by
// run ID after the request that produced them has returned.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/Adithya-Monish-Kumar-K/Sequential-Pattern-Mining-Platform/internal/jobs"
	apperrors "github.com/Adithya-Monish-Kumar-K/Sequential-Pattern-Mining-Platform/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/Sequential-Pattern-Mining-Platform/pkg/postgres"
	"github.com/Adithya-Monish-Kumar-K/Sequential-Pattern-Mining-Platform/pkg/resilience"
)

const (
	DefaultListLimit = 20
	MaxListLimit     = 200
)

// Schema creates the runs table.
var Schema = []string{
	`CREATE TABLE IF NOT EXISTS mining_runs (
	    id                UUID PRIMARY KEY,
	    request_hash      TEXT NOT NULL,
	    idempotency_key   TEXT UNIQUE,
	    min_support       DOUBLE PRECISION NOT NULL,
	    threshold         INTEGER NOT NULL,
	    transaction_count INTEGER NOT NULL,
	    max_length        INTEGER NOT NULL,
	    pattern_count     INTEGER NOT NULL,
	    result            JSONB NOT NULL,
	    created_at        TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS mining_runs_created_at_idx ON mining_runs (created_at DESC)`,
}

// Postgres stores runs in the mining_runs table.
type Postgres struct {
	db     *postgres.Client
	retry  resilience.RetryConfig
	logger *slog.Logger
}

// NewPostgres creates a Postgres store. Call Migrate before first use.
func NewPostgres(db *postgres.Client) *Postgres {
	return &Postgres{
		db:     db,
		retry:  resilience.RetryConfig{MaxAttempts: 3},
		logger: slog.Default().With("component", "run-store"),
	}
}

// Migrate creates the schema if it does not exist.
func (s *Postgres) Migrate(ctx context.Context) error {
	return s.db.Migrate(ctx, Schema...)
}

// Save inserts resp under resp.RunID, retrying transient failures. If
// idempotencyKey is already on file the row is not written and
// ErrIdempotencyConflict is returned; FindByIdempotencyKey yields the run
// that holds it.
func (s *Postgres) Save(ctx context.Context, requestHash, idempotencyKey string, resp *jobs.MineResponse) error {
	id, err := parseRunID(resp.RunID)
	if err != nil {
		return err
	}
	data, err := json.Marshal(resp)
	if err != nil {
		return fmt.Errorf("marshaling run %s: %w", resp.RunID, err)
	}

	err = resilience.Retry(ctx, "save mining run", s.retry, func(ctx context.Context) error {
		var inserted uuid.UUID
		err := s.db.DB.QueryRowContext(ctx,
			`INSERT INTO mining_runs
			    (id, request_hash, idempotency_key, min_support, threshold, transaction_count, max_length, pattern_count, result, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
			ON CONFLICT (idempotency_key) DO NOTHING
			RETURNING id`,
			id, requestHash, nullableString(idempotencyKey), resp.MinSupport, resp.Threshold,
			resp.TransactionCount, resp.MaxLength, resp.PatternCount(), data, resp.CreatedAt,
		).Scan(&inserted)
		if errors.Is(err, sql.ErrNoRows) {
			return resilience.Permanent(apperrors.Newf(apperrors.ErrIdempotencyConflict, 409,
				"idempotency key %q already used", idempotencyKey))
		}
		if err != nil && !transient(err) {
			return resilience.Permanent(err)
		}
		return err
	})
	if err != nil {
		return fmt.Errorf("saving run %s: %w", resp.RunID, err)
	}
	s.logger.Debug("run saved", "run_id", resp.RunID, "patterns", resp.PatternCount())
	return nil
}

// Get loads a run by ID.
func (s *Postgres) Get(ctx context.Context, runID string) (*jobs.MineResponse, error) {
	id, err := parseRunID(runID)
	if err != nil {
		return nil, err
	}
	var data []byte
	err = s.db.DB.QueryRowContext(ctx, `SELECT result FROM mining_runs WHERE id = $1`, id).Scan(&data)
	if err == sql.ErrNoRows {
		return nil, apperrors.Newf(apperrors.ErrRunNotFound, 404, "run %s not found", runID)
	}
	if err != nil {
		return nil, fmt.Errorf("querying run %s: %w", runID, err)
	}
	return decode(data)
}

// FindByIdempotencyKey returns the run saved under key, or nil if none.
func (s *Postgres) FindByIdempotencyKey(ctx context.Context, key string) (*jobs.MineResponse, error) {
	var data []byte
	err := s.db.DB.QueryRowContext(ctx, `SELECT result FROM mining_runs WHERE idempotency_key = $1`, key).Scan(&data)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying by idempotency key: %w", err)
	}
	return decode(data)
}

// List returns the newest runs first.
func (s *Postgres) List(ctx context.Context, limit int) ([]jobs.RunSummary, error) {
	rows, err := s.db.DB.QueryContext(ctx,
		`SELECT id, min_support, threshold, transaction_count, max_length, pattern_count, created_at
		FROM mining_runs ORDER BY created_at DESC LIMIT $1`,
		ClampLimit(limit),
	)
	if err != nil {
		return nil, fmt.Errorf("listing runs: %w", err)
	}
	defer rows.Close()

	out := make([]jobs.RunSummary, 0)
	for rows.Next() {
		var r jobs.RunSummary
		if err := rows.Scan(&r.RunID, &r.MinSupport, &r.Threshold, &r.TransactionCount, &r.MaxLength, &r.Patterns, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning run row: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// ClampLimit maps a requested page size into [1, MaxListLimit], with
// non-positive values meaning DefaultListLimit.
func ClampLimit(limit int) int {
	switch {
	case limit <= 0:
		return DefaultListLimit
	case limit > MaxListLimit:
		return MaxListLimit
	default:
		return limit
	}
}

func parseRunID(runID string) (uuid.UUID, error) {
	id, err := uuid.Parse(runID)
	if err != nil {
		return uuid.Nil, apperrors.Newf(apperrors.ErrInvalidArgument, 400, "invalid run id %q", runID)
	}
	return id, nil
}

func decode(data []byte) (*jobs.MineResponse, error) {
	var resp jobs.MineResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("decoding stored run: %w", err)
	}
	return &resp, nil
}

// transient reports whether a write error is worth retrying. Constraint
// and syntax errors are not; connection loss, serialization conflicts and
// resource exhaustion are.
func transient(err error) bool {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return true
	}
	switch pqErr.Code.Class() {
	case "08", "40", "53", "57":
		return true
	}
	return false
}

// nullableString treats the empty string as NULL.
func nullableString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
