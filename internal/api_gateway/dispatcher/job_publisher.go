package dispatcher

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/al3-renewal-pipeline/internal/domain/outbox"
	"github.com/al3-renewal-pipeline/internal/platform/messaging/producers"
)

// JobPublisher publishes queued outbox messages to the batch-job topic
type JobPublisher interface {
	PublishJob(ctx context.Context, message *outbox.Message) error
}

// JobPublisherImpl implements JobPublisher
type JobPublisherImpl struct {
	outboxRepo outbox.Repository
	producer   producers.MessagePublisher
	logger     *slog.Logger
}

// NewJobPublisher creates a new publisher
func NewJobPublisher(
	outboxRepo outbox.Repository,
	producer producers.MessagePublisher,
	logger *slog.Logger,
) JobPublisher {
	return &JobPublisherImpl{
		outboxRepo: outboxRepo,
		producer:   producer,
		logger:     logger,
	}
}

// PublishJob puts one outbox message onto Kafka and marks it processed.
// The message is keyed by batch id so every job for the same batch lands on
// the same partition and is consumed in order.
func (p *JobPublisherImpl) PublishJob(ctx context.Context, message *outbox.Message) error {
	job, err := message.GetBatchJob()
	if err != nil {
		p.logger.Error("Failed to unmarshal batch job from outbox payload",
			"outbox_id", message.ID, "batch_id", message.BatchID.String(), "error", err,
		)
		if markErr := p.outboxRepo.MarkFailed(ctx, message.ID); markErr != nil {
			p.logger.Error("Also failed to mark outbox message failed after unmarshal error",
				"outbox_id", message.ID, "mark_error", markErr,
			)
		}
		return fmt.Errorf("unmarshal payload for outbox %d failed: %w", message.ID, err)
	}

	logger := p.logger
	if job.CorrelationID != "" {
		logger = p.logger.With("correlation_id", job.CorrelationID)
	}

	if err := p.producer.Publish(ctx, job.BatchID.String(), job); err != nil {
		logger.Error("Failed to publish batch job to Kafka",
			"outbox_id", message.ID, "batch_id", job.BatchID.String(), "error", err,
		)
		return fmt.Errorf("failed to publish batch job for outbox %d: %w", message.ID, err)
	}

	if err := p.outboxRepo.MarkProcessed(ctx, message.ID); err != nil {
		logger.Error("Job published but failed to mark outbox message processed",
			"outbox_id", message.ID, "batch_id", job.BatchID.String(), "error", err,
		)
		return fmt.Errorf("publish for outbox %d OK, but failed to mark processed: %w", message.ID, err)
	}

	logger.Info("Batch job published", "outbox_id", message.ID, "batch_id", job.BatchID.String())
	return nil
}
