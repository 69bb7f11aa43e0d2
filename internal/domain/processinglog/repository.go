package processinglog

import (
	"context"

	"github.com/google/uuid"
)

// Repository defines processing-log persistence operations. The log is
// append-only: there are no update or delete operations.
type Repository interface {
	Append(ctx context.Context, entry *Entry) error
	ListByBatch(ctx context.Context, batchID uuid.UUID, limit, offset int) ([]*Entry, error)
	CountByBatch(ctx context.Context, batchID uuid.UUID) (int64, error)
}
