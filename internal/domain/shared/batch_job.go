package shared

import (
	"time"

	"github.com/google/uuid"
)

// BatchJobMessage defines a Kafka message that schedules processing of one
// uploaded batch. It carries only identity; the processor loads the archive
// and all batch state from the persistence layer.
type BatchJobMessage struct {
	BatchID       uuid.UUID `json:"batch_id"`
	TenantID      uuid.UUID `json:"tenant_id"`
	Reprocess     bool      `json:"reprocess,omitempty"`
	CorrelationID string    `json:"correlation_id"`
	Timestamp     time.Time `json:"timestamp"`
}
