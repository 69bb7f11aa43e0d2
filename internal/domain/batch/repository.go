package batch

import (
	"context"

	"github.com/al3-renewal-pipeline/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Repository defines batch persistence operations
type Repository interface {
	Create(ctx context.Context, b *Batch) error

	// GetByID retrieves batch metadata without the archive payload
	GetByID(ctx context.Context, id uuid.UUID) (*Batch, error)

	// GetArchive retrieves the raw ZIP payload for processing
	GetArchive(ctx context.Context, id uuid.UUID) ([]byte, error)

	UpdateStatus(ctx context.Context, id uuid.UUID, status shared.BatchStatus, errorDetail string) error
	UpdateCounters(ctx context.Context, id uuid.UUID, counters Counters) error

	// Reset returns a terminal batch to the uploaded state with zeroed
	// counters, as part of reprocessing.
	Reset(ctx context.Context, id uuid.UUID) error

	ListByTenant(ctx context.Context, tenantID uuid.UUID, limit, offset int) ([]*Batch, error)
	CountByTenant(ctx context.Context, tenantID uuid.UUID) (int64, error)

	WithTx(tx pgx.Tx) Repository
}

// ErrBatchNotFound indicates a missing batch
type ErrBatchNotFound struct {
	BatchID uuid.UUID
}

func (e ErrBatchNotFound) Error() string {
	return "batch not found: " + e.BatchID.String()
}
