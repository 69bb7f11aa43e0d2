package consumer

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/al3-renewal-pipeline/internal/batch_processor/service"
	"github.com/al3-renewal-pipeline/internal/domain/shared"
	"github.com/al3-renewal-pipeline/internal/platform/messaging/producers"
)

// BatchEventHandler handles incoming batch job messages from Kafka
type BatchEventHandler struct {
	processingService service.BatchProcessingService
	producer          producers.DeadLetterPublisher
	batchTimeout      time.Duration
	logger            *slog.Logger
}

// NewBatchEventHandler creates a new handler. batchTimeout bounds the
// processing of a single batch job; zero disables the bound.
func NewBatchEventHandler(
	logger *slog.Logger,
	processingService service.BatchProcessingService,
	producer producers.DeadLetterPublisher,
	batchTimeout time.Duration,
) *BatchEventHandler {
	return &BatchEventHandler{
		processingService: processingService,
		producer:          producer,
		batchTimeout:      batchTimeout,
		logger:            logger,
	}
}

// HandleMessage processes Kafka messages
func (h *BatchEventHandler) HandleMessage(ctx context.Context, key []byte, value []byte) error {
	var job shared.BatchJobMessage
	if err := json.Unmarshal(value, &job); err != nil {
		unmarshalErrorMsg := "Failed to unmarshal batch job from Kafka message"
		h.logger.Error(unmarshalErrorMsg,
			"error", err,
			"message_key", string(key),
		)

		// Send to DLQ if available
		if h.producer != nil {
			dlqReason := fmt.Sprintf("%s: %s", unmarshalErrorMsg, err.Error())
			if dlqErr := h.producer.PublishToDLQ(ctx, string(key), value, dlqReason); dlqErr != nil {
				h.logger.Error("Failed to publish message to DLQ after unmarshal error",
					"dlq_error", dlqErr,
					"original_error", err,
					"message_key", string(key),
				)
			} else {
				h.logger.Info("Successfully published unprocessable message to DLQ", "message_key", string(key), "reason", dlqReason)
				// Message handled, commit offset
				return nil
			}
		}
		// Allow Kafka retries
		return fmt.Errorf("failed to unmarshal message value: %w", err)
	}

	logger := h.logger
	if job.CorrelationID != "" {
		logger = h.logger.With("correlation_id", job.CorrelationID)
	}

	logger.Info("Received batch job for processing",
		"batch_id", job.BatchID.String(),
		"tenant_id", job.TenantID.String(),
		"reprocess", job.Reprocess,
	)

	jobCtx := ctx
	if h.batchTimeout > 0 {
		var cancel context.CancelFunc
		jobCtx, cancel = context.WithTimeout(ctx, h.batchTimeout)
		defer cancel()
	}

	if err := h.processingService.ProcessBatch(jobCtx, &job); err != nil {
		logger.Error("Failed to process batch",
			"batch_id", job.BatchID.String(),
			"error", err,
		)
		return fmt.Errorf("processing batch %s failed: %w", job.BatchID.String(), err)
	}

	logger.Info("Successfully processed batch", "batch_id", job.BatchID.String())
	return nil // Success, commit offset
}
