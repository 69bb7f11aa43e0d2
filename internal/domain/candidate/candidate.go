package candidate

import (
	"errors"
	"time"

	"github.com/al3-renewal-pipeline/internal/domain/comparison"
	"github.com/al3-renewal-pipeline/internal/domain/shared"
	"github.com/google/uuid"
)

// Common errors
var (
	ErrEmptyPolicyNumber = errors.New("policy number cannot be empty")
	ErrMissingEffective  = errors.New("effective date is required")
)

// RenewalCandidate is a renewal transaction promoted into a trackable unit of
// work: awaiting baseline capture, snapshot construction, and comparison.
// Identity for deduplication is the natural key (batch, policy number,
// carrier, effective date), enforced by a conflict-free insert.
type RenewalCandidate struct {
	ID       uuid.UUID `json:"id"`
	BatchID  uuid.UUID `json:"batch_id"`
	TenantID uuid.UUID `json:"tenant_id"`

	Status          shared.CandidateStatus `json:"status"`
	TransactionType string                 `json:"transaction_type"`
	PolicyNumber    string                 `json:"policy_number"`
	CarrierCode     string                 `json:"carrier_code"`
	CarrierName     string                 `json:"carrier_name,omitempty"`
	LineOfBusiness  string                 `json:"line_of_business,omitempty"`
	EffectiveDate   time.Time              `json:"effective_date"`
	ExpirationDate  *time.Time             `json:"expiration_date,omitempty"`

	// RawAL3 retains the originating segments for audit and reprocessing.
	RawAL3 string `json:"-"`

	// Baseline is the expiring-term snapshot captured at creation time.
	// Nil means no matching policy existed in the system of record.
	Baseline *comparison.Snapshot `json:"baseline,omitempty"`

	// Best-effort traceability annotations resolved during baseline capture.
	CustomerRef *uuid.UUID `json:"customer_ref,omitempty"`
	PolicyRef   *uuid.UUID `json:"policy_ref,omitempty"`

	ComparisonID *uuid.UUID `json:"comparison_id,omitempty"`
	ErrorDetail  string     `json:"error_detail,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewRenewalCandidate creates a pending candidate for one unique renewal
// transaction within a batch.
func NewRenewalCandidate(batchID, tenantID uuid.UUID, transactionType, policyNumber, carrierCode string, effectiveDate time.Time) (*RenewalCandidate, error) {
	if policyNumber == "" {
		return nil, ErrEmptyPolicyNumber
	}
	if effectiveDate.IsZero() {
		return nil, ErrMissingEffective
	}

	now := time.Now()
	return &RenewalCandidate{
		ID:              uuid.New(),
		BatchID:         batchID,
		TenantID:        tenantID,
		Status:          shared.CandidateStatusPending,
		TransactionType: transactionType,
		PolicyNumber:    policyNumber,
		CarrierCode:     carrierCode,
		EffectiveDate:   effectiveDate,
		CreatedAt:       now,
		UpdatedAt:       now,
	}, nil
}

// MarkProcessing transitions the candidate into the processing state
func (c *RenewalCandidate) MarkProcessing() {
	c.Status = shared.CandidateStatusProcessing
	c.UpdatedAt = time.Now()
}

// MarkCompleted records the terminal completed state with the linked comparison
func (c *RenewalCandidate) MarkCompleted(comparisonID uuid.UUID) {
	c.Status = shared.CandidateStatusCompleted
	c.ComparisonID = &comparisonID
	c.ErrorDetail = ""
	c.UpdatedAt = time.Now()
}

// MarkFailed records a candidate-level failure. Sibling candidates in the
// same batch are unaffected.
func (c *RenewalCandidate) MarkFailed(kind shared.FailureKind, detail string) {
	c.Status = shared.CandidateStatusFailed
	c.ErrorDetail = string(kind) + ": " + detail
	c.UpdatedAt = time.Now()
}

// MarkSkipped records that the candidate was set aside (e.g. unparseable
// content surfaced after creation).
func (c *RenewalCandidate) MarkSkipped(reason string) {
	c.Status = shared.CandidateStatusSkipped
	c.ErrorDetail = reason
	c.UpdatedAt = time.Now()
}
