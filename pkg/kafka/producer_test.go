package kafka

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingWriter struct {
	calls  [][]kafka.Message
	err    error
	closed bool
}

func (w *recordingWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.calls = append(w.calls, msgs)
	return nil
}

func (w *recordingWriter) Close() error {
	w.closed = true
	return nil
}

func newTestProducer(w *recordingWriter) *Producer {
	p := newProducer(w, "gsp.mining.results")
	p.now = func() time.Time { return time.Unix(1_700_000_000, 0) }
	return p
}

func TestPublishEncodesJSON(t *testing.T) {
	w := &recordingWriter{}
	p := newTestProducer(w)

	require.NoError(t, p.Publish(context.Background(), Event{Key: "job-1", Value: job{JobID: "job-1", Support: 0.4}}))
	require.Len(t, w.calls, 1)
	msg := w.calls[0][0]
	assert.Equal(t, "job-1", string(msg.Key))
	assert.JSONEq(t, `{"job_id":"job-1","min_support":0.4}`, string(msg.Value))
	assert.Equal(t, time.Unix(1_700_000_000, 0), msg.Time)
	require.Len(t, msg.Headers, 1)
	assert.Equal(t, contentTypeJSON, string(msg.Headers[0].Value))
}

func TestPublishBatchSingleWrite(t *testing.T) {
	w := &recordingWriter{}
	p := newTestProducer(w)

	events := []Event{{Key: "a", Value: 1}, {Key: "b", Value: 2}, {Key: "c", Value: 3}}
	require.NoError(t, p.PublishBatch(context.Background(), events))
	require.Len(t, w.calls, 1)
	assert.Len(t, w.calls[0], 3)

	require.NoError(t, p.PublishBatch(context.Background(), nil))
	assert.Len(t, w.calls, 1, "empty batch writes nothing")
}

func TestPublishBatchRejectsUnencodable(t *testing.T) {
	w := &recordingWriter{}
	p := newTestProducer(w)

	err := p.PublishBatch(context.Background(), []Event{{Key: "ok", Value: 1}, {Key: "bad", Value: make(chan int)}})
	assert.ErrorContains(t, err, `marshaling event "bad"`)
	assert.Empty(t, w.calls)
}

func TestPublishWrapsWriterError(t *testing.T) {
	w := &recordingWriter{err: errors.New("leader not available")}
	p := newTestProducer(w)

	err := p.Publish(context.Background(), Event{Key: "k", Value: "v"})
	assert.ErrorContains(t, err, "publishing to gsp.mining.results")
	assert.ErrorIs(t, err, w.err)

	require.NoError(t, p.Close())
	assert.True(t, w.closed)
	assert.Equal(t, "gsp.mining.results", p.Topic())
}
