// Package al3 parses the carrier-transaction subset of the AL3 interchange
// format: newline-delimited segments carrying a four-character group code
// followed by fixed-position fields. Only the groups needed to extract
// renewal-relevant data are mapped; everything else is preserved verbatim in
// an escape-hatch map so downstream comparison can still observe presence.
package al3

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// TransactionType is the coded transaction type from the 2TRG segment.
// Unknown codes are preserved verbatim rather than rejected.
type TransactionType string

const (
	TransactionTypeRenewal       TransactionType = "RWL"
	TransactionTypeNewBusiness   TransactionType = "NBS"
	TransactionTypeCancellation  TransactionType = "XLC"
	TransactionTypeEndorsement   TransactionType = "END"
	TransactionTypeReinstatement TransactionType = "REI"
)

// IsRenewal reports whether the type code indicates a renewal transaction
func (t TransactionType) IsRenewal() bool {
	return t == TransactionTypeRenewal
}

// ParseWarning records a per-segment tolerable defect: the field is left
// unset and the transaction is kept with partial data, since downstream
// filtering can reject incomplete records explicitly.
type ParseWarning struct {
	FileName string `json:"file_name,omitempty"`
	Group    string `json:"group"`
	Field    string `json:"field"`
	Value    string `json:"value"`
	Message  string `json:"message"`
}

// CoverageDetail is one 6CVG coverage group
type CoverageDetail struct {
	Code        string
	Description string
	Limit       decimal.NullDecimal
	Deductible  decimal.NullDecimal
	Premium     decimal.NullDecimal
}

// VehicleDetail is one 6VEH vehicle group (auto lines)
type VehicleDetail struct {
	ModelYear int
	Make      string
	Model     string
	VIN       string
}

// PropertyDetail is the 6PCH dwelling group (property lines)
type PropertyDetail struct {
	Construction  string
	YearBuilt     int
	DwellingValue decimal.NullDecimal
}

// Transaction is one parsed unit from an AL3 file. Transactions are
// immutable once parsed; identity for deduplication is the natural key
// (policy number, carrier, effective date, type), not a database key.
type Transaction struct {
	FileName string

	Type           TransactionType
	PolicyNumber   string
	CarrierCode    string
	CarrierName    string
	LineOfBusiness string
	EffectiveDate  *time.Time
	ExpirationDate *time.Time

	Premium       decimal.NullDecimal
	NamedInsureds []string
	Coverages     []CoverageDetail
	Vehicles      []VehicleDetail
	Property      *PropertyDetail

	// Extra preserves the payload of unmapped segment groups, keyed by
	// group code. Later occurrences of the same group overwrite earlier
	// ones.
	Extra map[string]string

	// Raw retains the transaction's original segments for audit and
	// reprocessing.
	Raw string

	Warnings []ParseWarning
}

// Key returns the natural deduplication key: policy number, carrier code,
// and effective date. Transactions missing an effective date key on the
// empty-date form and therefore only collide with each other.
func (t *Transaction) Key() string {
	eff := ""
	if t.EffectiveDate != nil {
		eff = t.EffectiveDate.Format("20060102")
	}
	return strings.Join([]string{t.PolicyNumber, t.CarrierCode, eff}, "|")
}
