package analytics

import (
	"context"
	"log/slog"
	"time"

	"github.com/Adithya-Monish-Kumar-K/Sequential-Pattern-Mining-Platform/pkg/kafka"
)

// Publisher is the Kafka side of the collector. *kafka.Producer satisfies it.
type Publisher interface {
	Publish(ctx context.Context, event kafka.Event) error
}

// batchPublisher lets shutdown flush the backlog in one write.
type batchPublisher interface {
	PublishBatch(ctx context.Context, events []kafka.Event) error
}

const drainTimeout = 5 * time.Second

// Recorder receives events directly when no publisher is configured.
type Recorder interface {
	Record(event RunEvent)
}

// Collector buffers run events and ships them off the request path, either
// to Kafka or straight into a Recorder.
type Collector struct {
	producer Publisher
	sink     Recorder
	eventCh  chan RunEvent
	logger   *slog.Logger
	done     chan struct{}
}

// NewCollector creates a Collector. When producer is nil events are handed to
// sink instead.
func NewCollector(producer Publisher, sink Recorder, bufferSize int) *Collector {
	if bufferSize <= 0 {
		bufferSize = 10000
	}
	return &Collector{
		producer: producer,
		sink:     sink,
		eventCh:  make(chan RunEvent, bufferSize),
		logger:   slog.Default().With("component", "analytics-collector"),
		done:     make(chan struct{}),
	}
}

func (c *Collector) Start(ctx context.Context) {
	go func() {
		defer close(c.done)
		for {
			select {
			case event, ok := <-c.eventCh:
				if !ok {
					return
				}
				c.deliver(ctx, event)
			case <-ctx.Done():
				c.drainRemaining()
				return
			}
		}
	}()
	c.logger.Info("analytics collector started", "buffer_size", cap(c.eventCh), "kafka", c.producer != nil)
}

// Track enqueues event without blocking. Events are dropped when the buffer
// is full.
func (c *Collector) Track(event RunEvent) {
	select {
	case c.eventCh <- event:
	default:
		c.logger.Warn("analytics event dropped (buffer full)", "run_id", event.RunID)
	}
}

// Close stops accepting events and waits for the delivery loop to finish.
// Start must have been called.
func (c *Collector) Close() {
	close(c.eventCh)
	<-c.done
}

func (c *Collector) deliver(ctx context.Context, event RunEvent) {
	if c.producer == nil {
		if c.sink != nil {
			c.sink.Record(event)
		}
		return
	}
	if err := c.producer.Publish(ctx, kafka.Event{Key: string(event.Type), Value: event}); err != nil {
		c.logger.Error("failed to publish analytics event", "run_id", event.RunID, "error", err)
	}
}

func (c *Collector) drainRemaining() {
	var backlog []RunEvent
	for done := false; !done; {
		select {
		case event, ok := <-c.eventCh:
			if !ok {
				done = true
				break
			}
			backlog = append(backlog, event)
		default:
			done = true
		}
	}
	if len(backlog) == 0 {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), drainTimeout)
	defer cancel()
	if batch, ok := c.producer.(batchPublisher); ok {
		events := make([]kafka.Event, len(backlog))
		for i, event := range backlog {
			events[i] = kafka.Event{Key: string(event.Type), Value: event}
		}
		if err := batch.PublishBatch(ctx, events); err != nil {
			c.logger.Error("failed to flush analytics backlog", "count", len(events), "error", err)
		}
		return
	}
	for _, event := range backlog {
		c.deliver(ctx, event)
	}
}
