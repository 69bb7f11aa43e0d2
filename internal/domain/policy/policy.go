// Package policy is the read model of the external policy-management system
// of record. The pipeline only reads it, to reconstruct the expiring term
// when a renewal candidate is created; unrelated sync jobs write to it
// concurrently, which is why baseline capture happens as early as possible.
package policy

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PolicyCoverage is one coverage row as recorded by the system of record
type PolicyCoverage struct {
	Code        string
	Description string
	Limit       decimal.NullDecimal
	Deductible  decimal.NullDecimal
	Premium     decimal.NullDecimal
}

// Policy is the currently-recorded state of one policy term
type Policy struct {
	ID             uuid.UUID
	TenantID       uuid.UUID
	CustomerID     uuid.UUID
	PolicyNumber   string
	CarrierCode    string
	CarrierName    string
	LineOfBusiness string
	EffectiveDate  time.Time
	ExpirationDate *time.Time
	Premium        decimal.Decimal
	NamedInsureds  []string
	Coverages      []PolicyCoverage
	UpdatedAt      time.Time
}
