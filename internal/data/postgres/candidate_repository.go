package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/al3-renewal-pipeline/internal/domain/candidate"
	"github.com/al3-renewal-pipeline/internal/domain/comparison"
	"github.com/al3-renewal-pipeline/internal/domain/shared"
	"github.com/al3-renewal-pipeline/internal/platform/persistence"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// CandidateRepository implements the candidate.Repository interface for PostgreSQL
type CandidateRepository struct {
	querier persistence.Querier
	logger  *slog.Logger
}

// NewCandidateRepository creates a new PostgreSQL renewal-candidate repository
func NewCandidateRepository(logger *slog.Logger, db *persistence.PostgresDB) candidate.Repository {
	return &CandidateRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

// WithTx wraps the repository with a transaction for atomic operations
func (r *CandidateRepository) WithTx(tx pgx.Tx) candidate.Repository {
	return &CandidateRepository{
		querier: tx,
		logger:  r.logger,
	}
}

// Insert stores a candidate unless an equivalent one already exists for the
// batch. The uniqueness constraint on (batch_id, policy_number, carrier_code,
// effective_date) absorbs the conflict; zero rows affected means another
// insert won and the caller counts a skip, not an error.
func (r *CandidateRepository) Insert(ctx context.Context, c *candidate.RenewalCandidate) (bool, error) {
	query := `
		INSERT INTO renewal_candidates (
			id, batch_id, tenant_id, status, transaction_type, policy_number,
			carrier_code, carrier_name, line_of_business, effective_date,
			expiration_date, raw_al3, baseline, customer_ref, policy_ref,
			comparison_id, error_detail, created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)
		ON CONFLICT (batch_id, policy_number, carrier_code, effective_date) DO NOTHING
	`

	result, err := r.querier.Exec(ctx, query,
		c.ID,
		c.BatchID,
		c.TenantID,
		c.Status,
		c.TransactionType,
		c.PolicyNumber,
		c.CarrierCode,
		c.CarrierName,
		c.LineOfBusiness,
		c.EffectiveDate,
		c.ExpirationDate,
		c.RawAL3,
		c.Baseline,
		c.CustomerRef,
		c.PolicyRef,
		c.ComparisonID,
		c.ErrorDetail,
		c.CreatedAt,
		c.UpdatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to insert renewal candidate",
			"batch_id", c.BatchID.String(),
			"policy_number", c.PolicyNumber,
			"error", err,
		)
		return false, fmt.Errorf("failed to insert renewal candidate: %w", err)
	}

	return result.RowsAffected() > 0, nil
}

const candidateColumns = `id, batch_id, tenant_id, status, transaction_type, policy_number,
		carrier_code, carrier_name, line_of_business, effective_date,
		expiration_date, raw_al3, baseline, customer_ref, policy_ref,
		comparison_id, error_detail, created_at, updated_at`

func scanCandidate(row pgx.Row) (*candidate.RenewalCandidate, error) {
	var c candidate.RenewalCandidate
	err := row.Scan(
		&c.ID,
		&c.BatchID,
		&c.TenantID,
		&c.Status,
		&c.TransactionType,
		&c.PolicyNumber,
		&c.CarrierCode,
		&c.CarrierName,
		&c.LineOfBusiness,
		&c.EffectiveDate,
		&c.ExpirationDate,
		&c.RawAL3,
		&c.Baseline,
		&c.CustomerRef,
		&c.PolicyRef,
		&c.ComparisonID,
		&c.ErrorDetail,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// GetByID retrieves a renewal candidate by its ID
func (r *CandidateRepository) GetByID(ctx context.Context, id uuid.UUID) (*candidate.RenewalCandidate, error) {
	query := `SELECT ` + candidateColumns + ` FROM renewal_candidates WHERE id = $1`

	c, err := scanCandidate(r.querier.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, candidate.ErrCandidateNotFound{CandidateID: id}
		}
		r.logger.Error("Failed to get renewal candidate", "id", id.String(), "error", err)
		return nil, fmt.Errorf("failed to get renewal candidate: %w", err)
	}

	return c, nil
}

// ListByBatch retrieves a page of a batch's candidates in stable order
func (r *CandidateRepository) ListByBatch(ctx context.Context, batchID uuid.UUID, limit, offset int) ([]*candidate.RenewalCandidate, error) {
	query := `
		SELECT ` + candidateColumns + `
		FROM renewal_candidates
		WHERE batch_id = $1
		ORDER BY policy_number ASC, effective_date ASC
		LIMIT $2 OFFSET $3
	`

	rows, err := r.querier.Query(ctx, query, batchID, limit, offset)
	if err != nil {
		r.logger.Error("Failed to list renewal candidates", "batch_id", batchID.String(), "error", err)
		return nil, fmt.Errorf("failed to list renewal candidates: %w", err)
	}
	defer rows.Close()

	var candidates []*candidate.RenewalCandidate
	for rows.Next() {
		c, err := scanCandidate(rows)
		if err != nil {
			r.logger.Error("Failed to scan renewal candidate", "error", err)
			return nil, fmt.Errorf("failed to scan renewal candidate: %w", err)
		}
		candidates = append(candidates, c)
	}

	if err := rows.Err(); err != nil {
		r.logger.Error("Error iterating over renewal candidates", "error", err)
		return nil, fmt.Errorf("error iterating over renewal candidates: %w", err)
	}

	return candidates, nil
}

// CountByBatch returns the total number of candidates in a batch
func (r *CandidateRepository) CountByBatch(ctx context.Context, batchID uuid.UUID) (int64, error) {
	query := `SELECT COUNT(*) FROM renewal_candidates WHERE batch_id = $1`

	var count int64
	if err := r.querier.QueryRow(ctx, query, batchID).Scan(&count); err != nil {
		r.logger.Error("Failed to count renewal candidates", "batch_id", batchID.String(), "error", err)
		return 0, fmt.Errorf("failed to count renewal candidates: %w", err)
	}

	return count, nil
}

// CountByBatchAndStatus returns the number of a batch's candidates in a status
func (r *CandidateRepository) CountByBatchAndStatus(ctx context.Context, batchID uuid.UUID, status shared.CandidateStatus) (int64, error) {
	query := `SELECT COUNT(*) FROM renewal_candidates WHERE batch_id = $1 AND status = $2`

	var count int64
	if err := r.querier.QueryRow(ctx, query, batchID, status).Scan(&count); err != nil {
		r.logger.Error("Failed to count renewal candidates by status",
			"batch_id", batchID.String(),
			"status", string(status),
			"error", err,
		)
		return 0, fmt.Errorf("failed to count renewal candidates by status: %w", err)
	}

	return count, nil
}

// UpdateStatus transitions a candidate and records its error detail
func (r *CandidateRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status shared.CandidateStatus, errorDetail string) error {
	query := `
		UPDATE renewal_candidates
		SET status = $1, error_detail = $2, updated_at = $3
		WHERE id = $4
	`

	result, err := r.querier.Exec(ctx, query, status, errorDetail, time.Now(), id)
	if err != nil {
		r.logger.Error("Failed to update renewal candidate status", "id", id.String(), "error", err)
		return fmt.Errorf("failed to update renewal candidate status: %w", err)
	}

	if result.RowsAffected() == 0 {
		return candidate.ErrCandidateNotFound{CandidateID: id}
	}

	return nil
}

// SetBaseline stores the expiring-term snapshot captured for the candidate,
// together with the traceability references resolved during capture. A nil
// baseline is stored as NULL and means no prior term exists.
func (r *CandidateRepository) SetBaseline(ctx context.Context, id uuid.UUID, baseline *comparison.Snapshot, customerRef, policyRef *uuid.UUID) error {
	query := `
		UPDATE renewal_candidates
		SET baseline = $1, customer_ref = $2, policy_ref = $3, updated_at = $4
		WHERE id = $5
	`

	result, err := r.querier.Exec(ctx, query, baseline, customerRef, policyRef, time.Now(), id)
	if err != nil {
		r.logger.Error("Failed to set candidate baseline", "id", id.String(), "error", err)
		return fmt.Errorf("failed to set candidate baseline: %w", err)
	}

	if result.RowsAffected() == 0 {
		return candidate.ErrCandidateNotFound{CandidateID: id}
	}

	return nil
}

// LinkComparison attaches the persisted comparison result to the candidate
func (r *CandidateRepository) LinkComparison(ctx context.Context, id uuid.UUID, comparisonID uuid.UUID) error {
	query := `
		UPDATE renewal_candidates
		SET comparison_id = $1, updated_at = $2
		WHERE id = $3
	`

	result, err := r.querier.Exec(ctx, query, comparisonID, time.Now(), id)
	if err != nil {
		r.logger.Error("Failed to link comparison to candidate", "id", id.String(), "error", err)
		return fmt.Errorf("failed to link comparison to candidate: %w", err)
	}

	if result.RowsAffected() == 0 {
		return candidate.ErrCandidateNotFound{CandidateID: id}
	}

	return nil
}

// DeleteByBatch removes all of a batch's candidates ahead of reprocessing
func (r *CandidateRepository) DeleteByBatch(ctx context.Context, batchID uuid.UUID) (int64, error) {
	query := `DELETE FROM renewal_candidates WHERE batch_id = $1`

	result, err := r.querier.Exec(ctx, query, batchID)
	if err != nil {
		r.logger.Error("Failed to delete renewal candidates", "batch_id", batchID.String(), "error", err)
		return 0, fmt.Errorf("failed to delete renewal candidates: %w", err)
	}

	return result.RowsAffected(), nil
}
