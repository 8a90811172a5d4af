// Package consumer runs mining jobs submitted over Kafka and publishes their
// outcome to the results topic.
package consumer

import (
	"context"
	"log/slog"
	"time"

	"github.com/Adithya-Monish-Kumar-K/Sequential-Pattern-Mining-Platform/internal/jobs"
	"github.com/Adithya-Monish-Kumar-K/Sequential-Pattern-Mining-Platform/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/Sequential-Pattern-Mining-Platform/pkg/logger"
)

// Runner executes a mining request. *service.Service satisfies it.
type Runner interface {
	Run(ctx context.Context, req *jobs.MineRequest) (*jobs.MineResponse, error)
}

// Publisher writes result events. *kafka.Producer satisfies it.
type Publisher interface {
	Publish(ctx context.Context, event kafka.Event) error
}

// Handle returns the message handler for the mining-jobs topic. A job that
// fails to mine is reported as failed and its message committed; only a
// failure to publish the result leaves the message uncommitted.
func Handle(runner Runner, results Publisher) kafka.MessageHandler {
	log := slog.Default().With("component", "job-consumer")
	return func(ctx context.Context, key []byte, value []byte) error {
		job, err := kafka.DecodeJSON[jobs.JobEvent](value)
		if err != nil {
			log.Error("dropping undecodable job", "key", string(key), "error", err)
			return nil
		}
		if job.JobID == "" {
			job.JobID = string(key)
		}
		if job.Request.IdempotencyKey == "" {
			job.Request.IdempotencyKey = job.JobID
		}
		ctx = logger.WithRequestID(ctx, job.JobID)

		event := jobs.ResultEvent{JobID: job.JobID, Status: jobs.StatusSucceeded}
		resp, err := runner.Run(ctx, &job.Request)
		if err != nil {
			event.Status = jobs.StatusFailed
			event.Error = err.Error()
			logger.FromContext(ctx).Warn("mining job failed", "error", err)
		} else {
			event.Result = resp
		}
		event.CompletedAt = time.Now().UTC()

		return results.Publish(ctx, kafka.Event{Key: job.JobID, Value: event})
	}
}
