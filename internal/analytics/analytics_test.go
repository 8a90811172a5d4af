package analytics

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/Sequential-Pattern-Mining-Platform/pkg/kafka"
)

func completed(latency int64, hit bool, top ...string) RunEvent {
	return RunEvent{
		Type:         EventRunCompleted,
		Transactions: 4,
		Patterns:     len(top),
		TopPatterns:  top,
		CacheHit:     hit,
		LatencyMs:    latency,
		Timestamp:    time.Now(),
	}
}

func TestAggregatorStats(t *testing.T) {
	agg := NewAggregator(nil)
	agg.Record(completed(10, false, "<a b>", "{f, g}"))
	agg.Record(completed(20, true, "<a b>"))
	agg.Record(completed(30, false, "<b f>"))
	agg.Record(RunEvent{Type: EventRunFailed, Error: "timeout"})

	st := agg.Stats()
	assert.Equal(t, int64(4), st.TotalRuns)
	assert.Equal(t, int64(1), st.FailedRuns)
	assert.Equal(t, int64(1), st.CacheHits)
	assert.Equal(t, int64(2), st.CacheMisses)
	assert.Equal(t, int64(12), st.TransactionsMined)
	assert.Equal(t, int64(4), st.PatternsFound)
	assert.InDelta(t, 20.0, st.AvgLatencyMs, 1e-9)
	assert.Equal(t, int64(20), st.P50LatencyMs)
	assert.Equal(t, int64(30), st.P99LatencyMs)
	require.NotEmpty(t, st.TopPatterns)
	assert.Equal(t, PatternCount{Pattern: "<a b>", Runs: 2}, st.TopPatterns[0])
	assert.Equal(t, "<b f>", st.TopPatterns[1].Pattern)
}

func TestAggregatorSeed(t *testing.T) {
	agg := NewAggregator(nil)
	agg.Seed(AggregatedStats{TotalRuns: 7, CacheHits: 3})
	agg.Record(completed(5, true))
	st := agg.Stats()
	assert.Equal(t, int64(8), st.TotalRuns)
	assert.Equal(t, int64(4), st.CacheHits)
}

func TestHandleEventSkipsGarbage(t *testing.T) {
	agg := NewAggregator(nil)
	handle := HandleEvent(agg)

	body, err := json.Marshal(completed(12, false, "<a>"))
	require.NoError(t, err)
	require.NoError(t, handle(context.Background(), nil, body))
	require.NoError(t, handle(context.Background(), nil, []byte("not json")))
	assert.Equal(t, int64(1), agg.Stats().TotalRuns)
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []kafka.Event
	err    error
}

func (p *recordingPublisher) Publish(ctx context.Context, event kafka.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return p.err
}

func TestCollectorPublishesToKafka(t *testing.T) {
	pub := &recordingPublisher{}
	c := NewCollector(pub, nil, 8)
	c.Start(context.Background())
	c.Track(completed(1, false))
	c.Track(RunEvent{Type: EventRunFailed})
	c.Close()

	require.Len(t, pub.events, 2)
	assert.Equal(t, string(EventRunCompleted), pub.events[0].Key)
	assert.Equal(t, string(EventRunFailed), pub.events[1].Key)
}

func TestCollectorFeedsRecorderWithoutKafka(t *testing.T) {
	agg := NewAggregator(nil)
	c := NewCollector(nil, agg, 8)
	c.Start(context.Background())
	c.Track(completed(1, true))
	c.Close()
	assert.Equal(t, int64(1), agg.Stats().CacheHits)
}

func TestCollectorSurvivesPublishErrors(t *testing.T) {
	pub := &recordingPublisher{err: errors.New("broker down")}
	c := NewCollector(pub, nil, 8)
	c.Start(context.Background())
	c.Track(completed(1, false))
	c.Close()
	assert.Len(t, pub.events, 1)
}

type batchingPublisher struct {
	recordingPublisher
	batches [][]kafka.Event
}

func (p *batchingPublisher) PublishBatch(ctx context.Context, events []kafka.Event) error {
	p.batches = append(p.batches, events)
	return nil
}

func TestCollectorFlushesBacklogAsBatch(t *testing.T) {
	pub := &batchingPublisher{}
	c := NewCollector(pub, nil, 8)
	c.Track(completed(1, false))
	c.Track(completed(2, true))
	c.Track(RunEvent{Type: EventRunFailed})

	c.drainRemaining()
	require.Len(t, pub.batches, 1)
	assert.Len(t, pub.batches[0], 3)
	assert.Empty(t, pub.events)
}

func TestCollectorDrainsIntoRecorder(t *testing.T) {
	agg := NewAggregator(nil)
	c := NewCollector(nil, agg, 8)
	c.Track(completed(1, false))
	c.Track(completed(2, false))
	c.drainRemaining()
	assert.Equal(t, int64(2), agg.Stats().TotalRuns)
}

func TestCollectorDropsWhenFull(t *testing.T) {
	c := NewCollector(&recordingPublisher{}, nil, 1)
	c.Track(completed(1, false))
	c.Track(completed(2, false))
	assert.Len(t, c.eventCh, 1)
}

func TestHandlerStats(t *testing.T) {
	agg := NewAggregator(nil)
	agg.Record(completed(10, false, "<a>", "<b>", "<c>"))
	h := NewHandler(agg)

	rec := httptest.NewRecorder()
	h.Stats(rec, httptest.NewRequest(http.MethodGet, "/api/v1/analytics?top=2", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var st AggregatedStats
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &st))
	assert.Equal(t, int64(1), st.TotalRuns)
	assert.Len(t, st.TopPatterns, 2)

	rec = httptest.NewRecorder()
	h.Stats(rec, httptest.NewRequest(http.MethodGet, "/api/v1/analytics?top=x", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
