package dispatcher

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/al3-renewal-pipeline/internal/config"
	"github.com/al3-renewal-pipeline/internal/domain/outbox"
)

// Poller drains the job outbox on an interval and hands pending messages to
// the publisher. Publishing is at-least-once; the consumer's uploaded-status
// check absorbs redeliveries.
type Poller struct {
	outboxRepo       outbox.Repository
	publisher        JobPublisher
	logger           *slog.Logger
	pollInterval     time.Duration
	batchSize        int
	maxRetryAttempts int
}

func NewPoller(
	cfg *config.JobOutboxConfig,
	outboxRepo outbox.Repository,
	publisher JobPublisher,
	logger *slog.Logger,
) *Poller {
	return &Poller{
		outboxRepo:       outboxRepo,
		publisher:        publisher,
		logger:           logger,
		pollInterval:     cfg.PollingInterval,
		batchSize:        cfg.BatchSize,
		maxRetryAttempts: cfg.MaxRetryAttempts,
	}
}

// Start begins polling until context is canceled
func (p *Poller) Start(ctx context.Context) {
	p.logger.Info("Starting job outbox poller",
		"poll_interval", p.pollInterval.String(),
		"batch_size", p.batchSize,
		"max_retry_attempts", p.maxRetryAttempts,
	)
	ticker := time.NewTicker(p.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("Job outbox poller stopping due to context cancellation")
			return
		case <-ticker.C:
			if err := p.processPendingMessages(ctx); err != nil {
				p.logger.Error("Error while publishing pending batch jobs", "error", err)
			}
		}
	}
}

func (p *Poller) processPendingMessages(ctx context.Context) error {
	messages, err := p.outboxRepo.GetPending(ctx, p.batchSize)
	if err != nil {
		return fmt.Errorf("failed to get pending outbox messages: %w", err)
	}

	if len(messages) == 0 {
		p.logger.Debug("No pending batch jobs found")
		return nil
	}

	p.logger.Info("Fetched pending batch jobs", "count", len(messages))

	for _, msg := range messages {
		if err := p.publisher.PublishJob(ctx, msg); err != nil {
			p.logger.Error("Failed to publish batch job",
				"outbox_id", msg.ID, "batch_id", msg.BatchID.String(), "current_attempts", msg.Attempts, "error", err,
			)

			if errInc := p.outboxRepo.IncrementAttempts(ctx, msg.ID); errInc != nil {
				p.logger.Error("Failed to increment attempts for outbox message", "outbox_id", msg.ID, "error", errInc)
				continue
			}

			if msg.Attempts+1 >= p.maxRetryAttempts {
				p.logger.Warn("Max publish attempts reached for batch job, marking as failed",
					"outbox_id", msg.ID, "batch_id", msg.BatchID.String(), "attempts_made", msg.Attempts+1,
				)
				if errMark := p.outboxRepo.MarkFailed(ctx, msg.ID); errMark != nil {
					p.logger.Error("Failed to mark outbox message failed after max retries", "outbox_id", msg.ID, "error", errMark)
				}
			}
			continue
		}
	}
	return nil
}
