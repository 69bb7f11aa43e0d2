// Package processinglog is the append-only audit trail of batch processing.
// Entries are never updated or deleted; reprocessing a batch appends a new
// run of entries rather than rewriting history.
package processinglog

import (
	"time"

	"github.com/google/uuid"
)

// Level classifies the severity of a log entry
type Level string

const (
	LevelInfo    Level = "INFO"
	LevelWarning Level = "WARNING"
	LevelError   Level = "ERROR"
)

// Entry is one recorded processing event for a batch
type Entry struct {
	ID       uuid.UUID `bson:"_id" json:"id"`
	BatchID  uuid.UUID `bson:"batch_id" json:"batch_id"`
	TenantID uuid.UUID `bson:"tenant_id" json:"tenant_id"`
	Level    Level     `bson:"level" json:"level"`
	Event    string    `bson:"event" json:"event"`
	Message  string    `bson:"message" json:"message"`

	// FileName and PolicyNumber scope the entry when the event concerns a
	// specific archive member or renewal; empty for batch-level events.
	FileName     string `bson:"file_name,omitempty" json:"file_name,omitempty"`
	PolicyNumber string `bson:"policy_number,omitempty" json:"policy_number,omitempty"`

	CorrelationID string    `bson:"correlation_id,omitempty" json:"correlation_id,omitempty"`
	CreatedAt     time.Time `bson:"created_at" json:"created_at"`
}

// NewEntry creates a log entry for the given batch event
func NewEntry(batchID, tenantID uuid.UUID, level Level, event, message string) *Entry {
	return &Entry{
		ID:        uuid.New(),
		BatchID:   batchID,
		TenantID:  tenantID,
		Level:     level,
		Event:     event,
		Message:   message,
		CreatedAt: time.Now(),
	}
}
