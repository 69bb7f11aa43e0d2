// Package comparison holds the normalized policy-state value objects shared
// by the baseline builder, snapshot builder, and comparison engine, together
// with the persisted comparison result and its repository contract.
package comparison

import (
	"sort"

	"github.com/shopspring/decimal"
)

// Coverage is one coverage line inside a snapshot. Monetary fields are
// nullable because AL3 feeds routinely omit them for some coverage codes.
type Coverage struct {
	Code        string              `json:"code"`
	Description string              `json:"description,omitempty"`
	Limit       decimal.NullDecimal `json:"limit,omitempty"`
	Deductible  decimal.NullDecimal `json:"deductible,omitempty"`
	Premium     decimal.NullDecimal `json:"premium,omitempty"`
}

// Vehicle carries the auto line-of-business detail of a snapshot.
type Vehicle struct {
	ModelYear int    `json:"model_year,omitempty"`
	Make      string `json:"make,omitempty"`
	Model     string `json:"model,omitempty"`
	VIN       string `json:"vin,omitempty"`
}

// Property carries the dwelling detail for property lines.
type Property struct {
	Construction  string              `json:"construction,omitempty"`
	YearBuilt     int                 `json:"year_built,omitempty"`
	DwellingValue decimal.NullDecimal `json:"dwelling_value,omitempty"`
}

// Snapshot is a normalized policy-state record. Two snapshots of identical
// shape are compared: one from the system of record (the expiring term), one
// derived from the renewal transaction (the new term). Snapshots are value
// objects with no identity beyond the candidate that owns them.
type Snapshot struct {
	Premium       decimal.Decimal `json:"premium"`
	NamedInsureds []string        `json:"named_insureds,omitempty"`
	Coverages     []Coverage      `json:"coverages,omitempty"`
	Vehicles      []Vehicle       `json:"vehicles,omitempty"`
	Property      *Property       `json:"property,omitempty"`
}

// Normalize sorts the snapshot's collections into canonical order so that
// comparing and re-marshaling identical state is byte-stable.
func (s *Snapshot) Normalize() {
	sort.Strings(s.NamedInsureds)
	sort.SliceStable(s.Coverages, func(i, j int) bool {
		return s.Coverages[i].Code < s.Coverages[j].Code
	})
	sort.SliceStable(s.Vehicles, func(i, j int) bool {
		if s.Vehicles[i].VIN != s.Vehicles[j].VIN {
			return s.Vehicles[i].VIN < s.Vehicles[j].VIN
		}
		return s.Vehicles[i].Model < s.Vehicles[j].Model
	})
}

// CoverageByCode returns the coverage with the given code, or nil.
func (s *Snapshot) CoverageByCode(code string) *Coverage {
	for i := range s.Coverages {
		if s.Coverages[i].Code == code {
			return &s.Coverages[i]
		}
	}
	return nil
}

// Equal reports whether two nullable decimals carry the same value.
func decimalEqual(a, b decimal.NullDecimal) bool {
	if a.Valid != b.Valid {
		return false
	}
	if !a.Valid {
		return true
	}
	return a.Decimal.Equal(b.Decimal)
}

// Same reports whether two coverages are materially identical
// (limit, deductible, and premium all match).
func (c Coverage) Same(other Coverage) bool {
	return c.Code == other.Code &&
		decimalEqual(c.Limit, other.Limit) &&
		decimalEqual(c.Deductible, other.Deductible) &&
		decimalEqual(c.Premium, other.Premium)
}
