// Package outbox implements the job outbox: batch-job messages written in
// the same database transaction as the batch row, then published to Kafka by
// a poller. This keeps "batch exists" and "job enqueued" atomic.
package outbox

import (
	"encoding/json"
	"time"

	"github.com/al3-renewal-pipeline/internal/domain/shared"
	"github.com/google/uuid"
)

// Message stores one batch-job payload awaiting reliable publishing
type Message struct {
	ID            int64               `json:"id"`
	BatchID       uuid.UUID           `json:"batch_id"`
	TenantID      uuid.UUID           `json:"tenant_id"`
	Payload       json.RawMessage     `json:"payload"`
	Status        shared.OutboxStatus `json:"status"`
	Attempts      int                 `json:"attempts"`
	CreatedAt     time.Time           `json:"created_at"`
	LastAttemptAt *time.Time          `json:"last_attempt_at,omitempty"`
}

// NewMessage wraps a batch-job message for outbox storage
func NewMessage(job *shared.BatchJobMessage) (*Message, error) {
	payload, err := json.Marshal(job)
	if err != nil {
		return nil, err
	}

	return &Message{
		BatchID:   job.BatchID,
		TenantID:  job.TenantID,
		Payload:   payload,
		Status:    shared.OutboxStatusPending,
		Attempts:  0,
		CreatedAt: time.Now(),
	}, nil
}

func (m *Message) IncrementAttempts() {
	m.Attempts++
	now := time.Now()
	m.LastAttemptAt = &now
}

func (m *Message) MarkAsProcessed() {
	m.Status = shared.OutboxStatusProcessed
	now := time.Now()
	m.LastAttemptAt = &now
}

func (m *Message) MarkAsFailed() {
	m.Status = shared.OutboxStatusFailedToPublish
	now := time.Now()
	m.LastAttemptAt = &now
}

// GetBatchJob extracts the batch-job message from the payload
func (m *Message) GetBatchJob() (*shared.BatchJobMessage, error) {
	var job shared.BatchJobMessage
	if err := json.Unmarshal(m.Payload, &job); err != nil {
		return nil, err
	}
	return &job, nil
}
