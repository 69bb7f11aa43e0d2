package components

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/al3-renewal-pipeline/internal/domain/comparison"
	"github.com/al3-renewal-pipeline/internal/domain/policy"
)

// BaselineBuilder captures the expiring-term snapshot from the system of
// record, together with the customer and policy references used for
// traceability and premium verification.
type BaselineBuilder struct {
	policyRepo policy.Repository
	logger     *slog.Logger
}

func NewBaselineBuilder(policyRepo policy.Repository, logger *slog.Logger) *BaselineBuilder {
	return &BaselineBuilder{
		policyRepo: policyRepo,
		logger:     logger,
	}
}

// Capture reads the current term for the renewal's policy and normalizes it
// into a snapshot. A nil snapshot with a nil error means the system of
// record has no prior term; the comparison engine flags that as no-baseline.
func (b *BaselineBuilder) Capture(ctx context.Context, tenantID uuid.UUID, policyNumber, carrierCode string, renewalEffective time.Time) (*comparison.Snapshot, *uuid.UUID, *uuid.UUID, error) {
	term, err := b.policyRepo.FindCurrentTerm(ctx, tenantID, policyNumber, carrierCode, renewalEffective)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to look up current policy term: %w", err)
	}
	if term == nil {
		b.logger.Debug("No current term recorded for renewal",
			"policy_number", policyNumber,
			"carrier_code", carrierCode,
		)
		return nil, nil, nil, nil
	}

	snap := &comparison.Snapshot{
		Premium:       term.Premium,
		NamedInsureds: append([]string(nil), term.NamedInsureds...),
		Coverages:     make([]comparison.Coverage, 0, len(term.Coverages)),
	}
	for _, cov := range term.Coverages {
		snap.Coverages = append(snap.Coverages, comparison.Coverage{
			Code:        cov.Code,
			Description: cov.Description,
			Limit:       cov.Limit,
			Deductible:  cov.Deductible,
			Premium:     cov.Premium,
		})
	}
	snap.Normalize()

	customerRef := term.CustomerID
	policyRef := term.ID
	return snap, &customerRef, &policyRef, nil
}
