// Package snapshot derives a normalized policy-state record from a parsed
// renewal transaction. The output shape matches what the baseline builder
// produces from the system of record, so the two feed directly into the
// comparison engine.
package snapshot

import (
	"github.com/shopspring/decimal"

	"github.com/al3-renewal-pipeline/internal/al3"
	"github.com/al3-renewal-pipeline/internal/domain/comparison"
)

// knownCoverageDescriptions maps coverage codes whose feeds frequently ship
// without a description to a stable display label. Unknown codes still get
// a coverage line; they are labeled generically rather than dropped.
var knownCoverageDescriptions = map[string]string{
	"DWELL": "Dwelling",
	"LIAB":  "Personal liability",
	"MEDPM": "Medical payments",
	"COLL":  "Collision",
	"COMP":  "Comprehensive",
	"BI":    "Bodily injury",
	"PD":    "Property damage",
	"UM":    "Uninsured motorist",
}

// BuildRenewalSnapshot maps a renewal transaction to its normalized
// snapshot. Pure: no I/O, no mutation of the input, deterministic output
// (collections sorted). A transaction with no parseable premium snapshots
// at zero; the comparison engine decides what that means.
func BuildRenewalSnapshot(tx al3.Transaction) comparison.Snapshot {
	snap := comparison.Snapshot{
		Premium:       decimal.Zero,
		NamedInsureds: append([]string(nil), tx.NamedInsureds...),
	}
	if tx.Premium.Valid {
		snap.Premium = tx.Premium.Decimal
	}

	for _, cov := range tx.Coverages {
		snap.Coverages = append(snap.Coverages, comparison.Coverage{
			Code:        cov.Code,
			Description: coverageDescription(cov),
			Limit:       cov.Limit,
			Deductible:  cov.Deductible,
			Premium:     cov.Premium,
		})
	}

	for _, veh := range tx.Vehicles {
		snap.Vehicles = append(snap.Vehicles, comparison.Vehicle{
			ModelYear: veh.ModelYear,
			Make:      veh.Make,
			Model:     veh.Model,
			VIN:       veh.VIN,
		})
	}

	if tx.Property != nil {
		snap.Property = &comparison.Property{
			Construction:  tx.Property.Construction,
			YearBuilt:     tx.Property.YearBuilt,
			DwellingValue: tx.Property.DwellingValue,
		}
	}

	snap.Normalize()
	return snap
}

func coverageDescription(cov al3.CoverageDetail) string {
	if cov.Description != "" {
		return cov.Description
	}
	if desc, ok := knownCoverageDescriptions[cov.Code]; ok {
		return desc
	}
	return "Other coverage"
}
