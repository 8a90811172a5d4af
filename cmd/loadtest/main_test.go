package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/Sequential-Pattern-Mining-Platform/internal/jobs"
)

func TestBuildPayloadsIsDeterministic(t *testing.T) {
	a, err := buildPayloads(3, 20, 0.2, 7)
	require.NoError(t, err)
	b, err := buildPayloads(3, 20, 0.2, 7)
	require.NoError(t, err)
	assert.Equal(t, a, b)

	var req jobs.MineRequest
	require.NoError(t, json.Unmarshal(a[0], &req))
	assert.Len(t, req.Transactions, 20)
	require.NotNil(t, req.MinSupport)
	assert.Equal(t, 0.2, *req.MinSupport)
}

func TestPercentile(t *testing.T) {
	ds := []time.Duration{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}
	assert.Equal(t, time.Duration(5), percentile(ds, 50))
	assert.Equal(t, time.Duration(10), percentile(ds, 99))
	assert.Zero(t, percentile(nil, 50))
}

func TestRunAgainstStubServer(t *testing.T) {
	var calls atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := calls.Add(1)
		if n%5 == 0 {
			http.Error(w, `{"error":"rate limit exceeded"}`, http.StatusTooManyRequests)
			return
		}
		json.NewEncoder(w).Encode(map[string]any{"cached": n > 1})
	}))
	defer srv.Close()

	payloads, err := buildPayloads(2, 5, 0.5, 1)
	require.NoError(t, err)
	stats := run(Config{BaseURL: srv.URL, Concurrency: 2, Duration: 50 * time.Millisecond, Payloads: payloads})

	require.Positive(t, stats.total.Load())
	assert.Equal(t, stats.total.Load(), stats.succeeded.Load()+stats.failed.Load())

	var buf bytes.Buffer
	assert.Equal(t, stats.total.Load(), printReport(&buf, stats, 50*time.Millisecond))
	assert.Contains(t, buf.String(), "=== Latency ===")
	assert.Contains(t, buf.String(), "200:")
}
