package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/al3-renewal-pipeline/internal/domain/comparison"
	"github.com/al3-renewal-pipeline/internal/platform/persistence"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// ComparisonRepository implements the comparison.Repository interface for PostgreSQL
type ComparisonRepository struct {
	querier persistence.Querier
	logger  *slog.Logger
}

// NewComparisonRepository creates a new PostgreSQL comparison-result repository
func NewComparisonRepository(logger *slog.Logger, db *persistence.PostgresDB) comparison.Repository {
	return &ComparisonRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

// WithTx wraps the repository with a transaction for atomic operations
func (r *ComparisonRepository) WithTx(tx pgx.Tx) comparison.Repository {
	return &ComparisonRepository{
		querier: tx,
		logger:  r.logger,
	}
}

// Create stores a new comparison result
func (r *ComparisonRepository) Create(ctx context.Context, result *comparison.Result) error {
	query := `
		INSERT INTO comparison_results (
			id, candidate_id, batch_id, tenant_id, premium_old, premium_new,
			premium_delta, premium_delta_pct, coverage_changes, no_baseline,
			material_change, flags, thresholds, has_decision, created_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	`

	_, err := r.querier.Exec(ctx, query,
		result.ID,
		result.CandidateID,
		result.BatchID,
		result.TenantID,
		result.PremiumOld,
		result.PremiumNew,
		result.PremiumDelta,
		result.PremiumDeltaPct,
		result.CoverageChanges,
		result.NoBaseline,
		result.MaterialChange,
		result.Flags,
		result.Thresholds,
		result.HasDecision,
		result.CreatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create comparison result",
			"id", result.ID.String(),
			"batch_id", result.BatchID.String(),
			"error", err,
		)
		return fmt.Errorf("failed to create comparison result: %w", err)
	}

	return nil
}

const comparisonColumns = `id, candidate_id, batch_id, tenant_id, premium_old, premium_new,
		premium_delta, premium_delta_pct, coverage_changes, no_baseline,
		material_change, flags, thresholds, has_decision, decision, decided_at, created_at`

func scanComparison(row pgx.Row) (*comparison.Result, error) {
	var result comparison.Result
	err := row.Scan(
		&result.ID,
		&result.CandidateID,
		&result.BatchID,
		&result.TenantID,
		&result.PremiumOld,
		&result.PremiumNew,
		&result.PremiumDelta,
		&result.PremiumDeltaPct,
		&result.CoverageChanges,
		&result.NoBaseline,
		&result.MaterialChange,
		&result.Flags,
		&result.Thresholds,
		&result.HasDecision,
		&result.Decision,
		&result.DecidedAt,
		&result.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// GetByID retrieves a comparison result by its ID
func (r *ComparisonRepository) GetByID(ctx context.Context, id uuid.UUID) (*comparison.Result, error) {
	query := `SELECT ` + comparisonColumns + ` FROM comparison_results WHERE id = $1`

	result, err := scanComparison(r.querier.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, comparison.ErrComparisonNotFound{ID: id}
		}
		r.logger.Error("Failed to get comparison result", "id", id.String(), "error", err)
		return nil, fmt.Errorf("failed to get comparison result: %w", err)
	}

	return result, nil
}

// GetByCandidateID retrieves the comparison result linked to a candidate
func (r *ComparisonRepository) GetByCandidateID(ctx context.Context, candidateID uuid.UUID) (*comparison.Result, error) {
	query := `SELECT ` + comparisonColumns + ` FROM comparison_results WHERE candidate_id = $1`

	result, err := scanComparison(r.querier.QueryRow(ctx, query, candidateID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, comparison.ErrComparisonNotFound{ID: candidateID}
		}
		r.logger.Error("Failed to get comparison result by candidate",
			"candidate_id", candidateID.String(),
			"error", err,
		)
		return nil, fmt.Errorf("failed to get comparison result by candidate: %w", err)
	}

	return result, nil
}

// RecordDecision stores a human decision on the result. The guard on
// has_decision makes the write first-wins; a second decision attempt
// returns ErrDecisionAlreadyRecorded.
func (r *ComparisonRepository) RecordDecision(ctx context.Context, id uuid.UUID, decision string) error {
	query := `
		UPDATE comparison_results
		SET has_decision = TRUE, decision = $1, decided_at = $2
		WHERE id = $3 AND has_decision = FALSE
	`

	result, err := r.querier.Exec(ctx, query, decision, time.Now(), id)
	if err != nil {
		r.logger.Error("Failed to record comparison decision", "id", id.String(), "error", err)
		return fmt.Errorf("failed to record comparison decision: %w", err)
	}

	if result.RowsAffected() == 0 {
		// Distinguish a missing result from one already decided.
		var exists bool
		checkErr := r.querier.QueryRow(ctx,
			`SELECT EXISTS(SELECT 1 FROM comparison_results WHERE id = $1)`, id,
		).Scan(&exists)
		if checkErr != nil {
			r.logger.Error("Failed to check comparison result existence", "id", id.String(), "error", checkErr)
			return fmt.Errorf("failed to record comparison decision: %w", checkErr)
		}
		if exists {
			return comparison.ErrDecisionAlreadyRecorded{ID: id}
		}
		return comparison.ErrComparisonNotFound{ID: id}
	}

	return nil
}

// DeleteUndecidedByBatch removes the batch's comparison results that never
// received a human decision. Decided results survive reprocessing.
func (r *ComparisonRepository) DeleteUndecidedByBatch(ctx context.Context, batchID uuid.UUID) (int64, error) {
	query := `DELETE FROM comparison_results WHERE batch_id = $1 AND has_decision = FALSE`

	result, err := r.querier.Exec(ctx, query, batchID)
	if err != nil {
		r.logger.Error("Failed to delete undecided comparison results",
			"batch_id", batchID.String(),
			"error", err,
		)
		return 0, fmt.Errorf("failed to delete undecided comparison results: %w", err)
	}

	return result.RowsAffected(), nil
}
