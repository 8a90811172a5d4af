package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/Adithya-Monish-Kumar-K/Sequential-Pattern-Mining-Platform/internal/jobs"
	"github.com/Adithya-Monish-Kumar-K/Sequential-Pattern-Mining-Platform/internal/jobs/service"
	"github.com/Adithya-Monish-Kumar-K/Sequential-Pattern-Mining-Platform/internal/jobs/validator"
	"github.com/Adithya-Monish-Kumar-K/Sequential-Pattern-Mining-Platform/internal/results/cache"
	apperrors "github.com/Adithya-Monish-Kumar-K/Sequential-Pattern-Mining-Platform/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/Sequential-Pattern-Mining-Platform/pkg/logger"
)

// Miner is the service surface the handler needs. *service.Service
// satisfies it.
type Miner interface {
	Run(ctx context.Context, req *jobs.MineRequest) (*jobs.MineResponse, error)
	Get(ctx context.Context, runID string) (*jobs.MineResponse, error)
	List(ctx context.Context, limit int) ([]jobs.RunSummary, error)
	CacheStats() (cache.Stats, error)
	InvalidateCache(ctx context.Context) error
}

type Handler struct {
	svc          Miner
	maxBodyBytes int64
	logger       *slog.Logger
}

func New(svc Miner, maxBodyBytes int64) *Handler {
	return &Handler{
		svc:          svc,
		maxBodyBytes: maxBodyBytes,
		logger:       slog.Default().With("component", "mining-handler"),
	}
}

// Register mounts the mining routes on mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/v1/mine", h.Mine)
	mux.HandleFunc("GET /api/v1/runs", h.ListRuns)
	mux.HandleFunc("GET /api/v1/runs/{id}", h.GetRun)
	mux.HandleFunc("GET /api/v1/cache/stats", h.CacheStats)
	mux.HandleFunc("POST /api/v1/cache/invalidate", h.CacheInvalidate)
	mux.HandleFunc("GET /health", h.Health)
}

func (h *Handler) Mine(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.FromContext(ctx)

	if h.maxBodyBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.maxBodyBytes)
	}
	var req jobs.MineRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
			return
		}
		h.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	resp, err := h.svc.Run(ctx, &req)
	if err != nil {
		var validationErr *validator.ValidationError
		if errors.As(err, &validationErr) {
			h.writeJSON(w, http.StatusBadRequest, map[string]any{
				"error":  "validation failed",
				"fields": validationErr.Fields,
			})
			return
		}
		status := apperrors.HTTPStatusCode(err)
		log.Error("mining request failed", "error", err, "status_code", status)
		h.writeError(w, status, errorMessage(err, status))
		return
	}
	h.writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) GetRun(w http.ResponseWriter, r *http.Request) {
	resp, err := h.svc.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		status := apperrors.HTTPStatusCode(err)
		if status >= http.StatusInternalServerError {
			logger.FromContext(r.Context()).Error("loading run failed", "error", err)
		}
		h.writeError(w, status, errorMessage(err, status))
		return
	}
	h.writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) ListRuns(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			h.writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = parsed
	}
	runs, err := h.svc.List(r.Context(), limit)
	if err != nil {
		logger.FromContext(r.Context()).Error("listing runs failed", "error", err)
		h.writeError(w, http.StatusInternalServerError, "listing runs failed")
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"runs": runs, "count": len(runs)})
}

func (h *Handler) CacheStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.svc.CacheStats()
	if errors.Is(err, service.ErrCacheDisabled) {
		h.writeJSON(w, http.StatusOK, map[string]string{"status": "disabled"})
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{
		"hits":          stats.Hits,
		"misses":        stats.Misses,
		"total":         stats.Hits + stats.Misses,
		"hit_rate":      strconv.FormatFloat(stats.HitRate(), 'f', 1, 64) + "%",
		"local_entries": stats.LocalEntries,
		"remote":        stats.Remote,
	})
}

func (h *Handler) CacheInvalidate(w http.ResponseWriter, r *http.Request) {
	err := h.svc.InvalidateCache(r.Context())
	switch {
	case errors.Is(err, service.ErrCacheDisabled):
		h.writeError(w, http.StatusServiceUnavailable, "caching is disabled")
	case err != nil:
		h.logger.Error("cache invalidation failed", "error", err)
		h.writeError(w, http.StatusInternalServerError, "cache invalidation failed")
	default:
		h.writeJSON(w, http.StatusOK, map[string]string{"status": "invalidated"})
	}
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// errorMessage exposes client errors verbatim and hides server-side detail.
func errorMessage(err error, status int) string {
	if status < http.StatusInternalServerError || status == http.StatusServiceUnavailable {
		var appErr *apperrors.AppError
		if errors.As(err, &appErr) {
			return appErr.Message
		}
		return err.Error()
	}
	return "internal error"
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to write response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
