package policy

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Repository defines read-only access to the system of record. The pipeline
// never writes policies; they are maintained by external sync jobs.
type Repository interface {
	// FindCurrentTerm returns the most recent policy term starting before
	// the renewal's effective date, i.e. the term the renewal replaces.
	// Returns nil (not an error) when no matching policy is recorded.
	FindCurrentTerm(ctx context.Context, tenantID uuid.UUID, policyNumber, carrierCode string, renewalEffective time.Time) (*Policy, error)
}
