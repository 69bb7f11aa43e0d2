package comparison

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Repository defines comparison-result persistence operations
type Repository interface {
	Create(ctx context.Context, result *Result) error
	GetByID(ctx context.Context, id uuid.UUID) (*Result, error)
	GetByCandidateID(ctx context.Context, candidateID uuid.UUID) (*Result, error)

	// RecordDecision stores a human decision on the result, making it
	// immutable across batch reprocessing.
	RecordDecision(ctx context.Context, id uuid.UUID, decision string) error

	// DeleteUndecidedByBatch removes results belonging to the batch that
	// have not received a human decision. Returns the number deleted.
	DeleteUndecidedByBatch(ctx context.Context, batchID uuid.UUID) (int64, error)

	WithTx(tx pgx.Tx) Repository
}

// ErrComparisonNotFound indicates a missing comparison result
type ErrComparisonNotFound struct {
	ID uuid.UUID
}

func (e ErrComparisonNotFound) Error() string {
	return "comparison result not found: " + e.ID.String()
}

// ErrDecisionAlreadyRecorded indicates an attempt to overwrite a decision
type ErrDecisionAlreadyRecorded struct {
	ID uuid.UUID
}

func (e ErrDecisionAlreadyRecorded) Error() string {
	return "comparison result already has a decision: " + e.ID.String()
}
