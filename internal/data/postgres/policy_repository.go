package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/al3-renewal-pipeline/internal/domain/policy"
	"github.com/al3-renewal-pipeline/internal/platform/persistence"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// PolicyRepository implements read-only access to the policies read model.
// External sync jobs own the table; this repository never writes to it.
type PolicyRepository struct {
	querier persistence.Querier
	logger  *slog.Logger
}

// NewPolicyRepository creates a new PostgreSQL policy read repository
func NewPolicyRepository(logger *slog.Logger, db *persistence.PostgresDB) policy.Repository {
	return &PolicyRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

// FindCurrentTerm returns the most recent term of the policy starting before
// the renewal's effective date. Returns nil when the system of record has no
// matching policy, which the pipeline treats as a no-baseline case rather
// than a failure.
func (r *PolicyRepository) FindCurrentTerm(ctx context.Context, tenantID uuid.UUID, policyNumber, carrierCode string, renewalEffective time.Time) (*policy.Policy, error) {
	query := `
		SELECT id, tenant_id, customer_id, policy_number, carrier_code, carrier_name,
		       line_of_business, effective_date, expiration_date, premium,
		       named_insureds, coverages, updated_at
		FROM policies
		WHERE tenant_id = $1
		  AND policy_number = $2
		  AND carrier_code = $3
		  AND effective_date < $4
		ORDER BY effective_date DESC
		LIMIT 1
	`

	var p policy.Policy
	err := r.querier.QueryRow(ctx, query, tenantID, policyNumber, carrierCode, renewalEffective).Scan(
		&p.ID,
		&p.TenantID,
		&p.CustomerID,
		&p.PolicyNumber,
		&p.CarrierCode,
		&p.CarrierName,
		&p.LineOfBusiness,
		&p.EffectiveDate,
		&p.ExpirationDate,
		&p.Premium,
		&p.NamedInsureds,
		&p.Coverages,
		&p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil // No prior term recorded for this policy
		}
		r.logger.Error("Failed to find current policy term",
			"tenant_id", tenantID.String(),
			"policy_number", policyNumber,
			"error", err,
		)
		return nil, fmt.Errorf("failed to find current policy term: %w", err)
	}

	return &p, nil
}
