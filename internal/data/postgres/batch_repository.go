// Package postgres provides PostgreSQL implementations of the domain
// repositories. All repositories operate through a shared Querier so the
// same code runs against the pool or inside a transaction.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/al3-renewal-pipeline/internal/domain/batch"
	"github.com/al3-renewal-pipeline/internal/domain/shared"
	"github.com/al3-renewal-pipeline/internal/platform/persistence"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// BatchRepository implements the batch.Repository interface for PostgreSQL
type BatchRepository struct {
	querier persistence.Querier // Can be *pgxpool.Pool or pgx.Tx
	logger  *slog.Logger
}

// NewBatchRepository creates a new PostgreSQL batch repository
func NewBatchRepository(logger *slog.Logger, db *persistence.PostgresDB) batch.Repository {
	return &BatchRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

// WithTx wraps the repository with a transaction for atomic operations
func (r *BatchRepository) WithTx(tx pgx.Tx) batch.Repository {
	return &BatchRepository{
		querier: tx,
		logger:  r.logger,
	}
}

// Create stores a new batch including its raw archive payload
func (r *BatchRepository) Create(ctx context.Context, b *batch.Batch) error {
	query := `
		INSERT INTO batches (id, tenant_id, file_name, file_size, archive, status, counters, error_detail, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err := r.querier.Exec(ctx, query,
		b.ID,
		b.TenantID,
		b.FileName,
		b.FileSize,
		b.Archive,
		b.Status,
		b.Counters,
		b.ErrorDetail,
		b.CreatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create batch", "error", err)
		return fmt.Errorf("failed to create batch: %w", err)
	}

	return nil
}

const batchColumns = `id, tenant_id, file_name, file_size, status, counters, error_detail, created_at, started_at, finished_at`

func scanBatch(row pgx.Row) (*batch.Batch, error) {
	var b batch.Batch
	err := row.Scan(
		&b.ID,
		&b.TenantID,
		&b.FileName,
		&b.FileSize,
		&b.Status,
		&b.Counters,
		&b.ErrorDetail,
		&b.CreatedAt,
		&b.StartedAt,
		&b.FinishedAt,
	)
	if err != nil {
		return nil, err
	}
	return &b, nil
}

// GetByID retrieves batch metadata. The archive payload is deliberately
// excluded; use GetArchive when processing needs the bytes.
func (r *BatchRepository) GetByID(ctx context.Context, id uuid.UUID) (*batch.Batch, error) {
	query := `SELECT ` + batchColumns + ` FROM batches WHERE id = $1`

	b, err := scanBatch(r.querier.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, batch.ErrBatchNotFound{BatchID: id}
		}
		r.logger.Error("Failed to get batch", "id", id.String(), "error", err)
		return nil, fmt.Errorf("failed to get batch: %w", err)
	}

	return b, nil
}

// GetArchive retrieves the raw ZIP payload of a batch
func (r *BatchRepository) GetArchive(ctx context.Context, id uuid.UUID) ([]byte, error) {
	query := `SELECT archive FROM batches WHERE id = $1`

	var archive []byte
	err := r.querier.QueryRow(ctx, query, id).Scan(&archive)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, batch.ErrBatchNotFound{BatchID: id}
		}
		r.logger.Error("Failed to get batch archive", "id", id.String(), "error", err)
		return nil, fmt.Errorf("failed to get batch archive: %w", err)
	}

	return archive, nil
}

// UpdateStatus transitions the batch and maintains the timestamps that go
// with the transition (started_at on processing, finished_at on terminal).
func (r *BatchRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status shared.BatchStatus, errorDetail string) error {
	query := `
		UPDATE batches
		SET status = $1,
		    error_detail = $2,
		    started_at = CASE WHEN $1 = $3 THEN $4 ELSE started_at END,
		    finished_at = CASE WHEN $1 IN ($5, $6) THEN $4 ELSE finished_at END
		WHERE id = $7
	`

	result, err := r.querier.Exec(ctx, query,
		status,
		errorDetail,
		shared.BatchStatusProcessing,
		time.Now(),
		shared.BatchStatusCompleted,
		shared.BatchStatusFailed,
		id,
	)
	if err != nil {
		r.logger.Error("Failed to update batch status", "id", id.String(), "error", err)
		return fmt.Errorf("failed to update batch status: %w", err)
	}

	if result.RowsAffected() == 0 {
		return batch.ErrBatchNotFound{BatchID: id}
	}

	return nil
}

// UpdateCounters replaces the batch's counters document
func (r *BatchRepository) UpdateCounters(ctx context.Context, id uuid.UUID, counters batch.Counters) error {
	query := `
		UPDATE batches
		SET counters = $1
		WHERE id = $2
	`

	result, err := r.querier.Exec(ctx, query, counters, id)
	if err != nil {
		r.logger.Error("Failed to update batch counters", "id", id.String(), "error", err)
		return fmt.Errorf("failed to update batch counters: %w", err)
	}

	if result.RowsAffected() == 0 {
		return batch.ErrBatchNotFound{BatchID: id}
	}

	return nil
}

// Reset returns a terminal batch to the uploaded state with zeroed counters.
// The original archive is retained, so reprocessing restarts from the exact
// uploaded payload.
func (r *BatchRepository) Reset(ctx context.Context, id uuid.UUID) error {
	query := `
		UPDATE batches
		SET status = $1, counters = $2, error_detail = '', started_at = NULL, finished_at = NULL
		WHERE id = $3
	`

	result, err := r.querier.Exec(ctx, query, shared.BatchStatusUploaded, batch.Counters{}, id)
	if err != nil {
		r.logger.Error("Failed to reset batch", "id", id.String(), "error", err)
		return fmt.Errorf("failed to reset batch: %w", err)
	}

	if result.RowsAffected() == 0 {
		return batch.ErrBatchNotFound{BatchID: id}
	}

	return nil
}

// ListByTenant retrieves a page of a tenant's batches, newest first
func (r *BatchRepository) ListByTenant(ctx context.Context, tenantID uuid.UUID, limit, offset int) ([]*batch.Batch, error) {
	query := `
		SELECT ` + batchColumns + `
		FROM batches
		WHERE tenant_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`

	rows, err := r.querier.Query(ctx, query, tenantID, limit, offset)
	if err != nil {
		r.logger.Error("Failed to list batches", "tenant_id", tenantID.String(), "error", err)
		return nil, fmt.Errorf("failed to list batches: %w", err)
	}
	defer rows.Close()

	var batches []*batch.Batch
	for rows.Next() {
		b, err := scanBatch(rows)
		if err != nil {
			r.logger.Error("Failed to scan batch", "error", err)
			return nil, fmt.Errorf("failed to scan batch: %w", err)
		}
		batches = append(batches, b)
	}

	if err := rows.Err(); err != nil {
		r.logger.Error("Error iterating over batches", "error", err)
		return nil, fmt.Errorf("error iterating over batches: %w", err)
	}

	return batches, nil
}

// CountByTenant returns the total number of a tenant's batches
func (r *BatchRepository) CountByTenant(ctx context.Context, tenantID uuid.UUID) (int64, error) {
	query := `SELECT COUNT(*) FROM batches WHERE tenant_id = $1`

	var count int64
	if err := r.querier.QueryRow(ctx, query, tenantID).Scan(&count); err != nil {
		r.logger.Error("Failed to count batches", "tenant_id", tenantID.String(), "error", err)
		return 0, fmt.Errorf("failed to count batches: %w", err)
	}

	return count, nil
}
