package candidate

import (
	"context"

	"github.com/al3-renewal-pipeline/internal/domain/comparison"
	"github.com/al3-renewal-pipeline/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Repository defines renewal-candidate persistence operations
type Repository interface {
	// Insert performs a conflict-free insert keyed on (batch, policy
	// number, carrier, effective date). Returns false when an equivalent
	// candidate already exists; losing the race is a silent duplicate,
	// never an error.
	Insert(ctx context.Context, c *RenewalCandidate) (bool, error)

	GetByID(ctx context.Context, id uuid.UUID) (*RenewalCandidate, error)
	ListByBatch(ctx context.Context, batchID uuid.UUID, limit, offset int) ([]*RenewalCandidate, error)
	CountByBatch(ctx context.Context, batchID uuid.UUID) (int64, error)
	CountByBatchAndStatus(ctx context.Context, batchID uuid.UUID, status shared.CandidateStatus) (int64, error)

	UpdateStatus(ctx context.Context, id uuid.UUID, status shared.CandidateStatus, errorDetail string) error
	SetBaseline(ctx context.Context, id uuid.UUID, baseline *comparison.Snapshot, customerRef, policyRef *uuid.UUID) error
	LinkComparison(ctx context.Context, id uuid.UUID, comparisonID uuid.UUID) error

	// DeleteByBatch removes all candidates of a batch during reprocess.
	// Linked comparisons are handled separately so decided ones survive.
	DeleteByBatch(ctx context.Context, batchID uuid.UUID) (int64, error)

	WithTx(tx pgx.Tx) Repository
}

// ErrCandidateNotFound indicates a missing renewal candidate
type ErrCandidateNotFound struct {
	CandidateID uuid.UUID
}

func (e ErrCandidateNotFound) Error() string {
	return "renewal candidate not found: " + e.CandidateID.String()
}
