// Package compare diffs a renewal snapshot against its baseline and decides
// whether the differences are material enough to need human review.
package compare

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/al3-renewal-pipeline/internal/config"
	"github.com/al3-renewal-pipeline/internal/domain/comparison"
)

var hundred = decimal.NewFromInt(100)

// ThresholdsFromConfig builds comparison thresholds from the pipeline
// configuration's floating-point floors.
func ThresholdsFromConfig(cfg *config.PipelineConfig) comparison.Thresholds {
	return comparison.Thresholds{
		AbsoluteFloor: decimal.NewFromFloat(cfg.PremiumAbsoluteFloor),
		PercentFloor:  decimal.NewFromFloat(cfg.PremiumPercentFloor),
	}
}

// CompareSnapshots diffs the renewal against the baseline. Pure and
// deterministic: identical inputs always produce the identical result, with
// coverage changes ordered by code. Identity fields of the result are left
// zero; callers stamp them before persisting.
//
// A nil baseline means no prior term exists in the system of record. That is
// itself material: the delta is the full renewal premium and the result is
// flagged no_baseline instead of premium_change.
func CompareSnapshots(renewal comparison.Snapshot, baseline *comparison.Snapshot, th comparison.Thresholds) comparison.Result {
	result := comparison.Result{
		PremiumNew: renewal.Premium,
		Thresholds: th,
	}

	if baseline == nil {
		result.NoBaseline = true
		result.PremiumOld = decimal.Zero
		result.PremiumDelta = renewal.Premium
		result.PremiumDeltaPct = decimal.Zero
		result.MaterialChange = true
		result.Flags = []string{comparison.FlagNoBaseline}
		return result
	}

	result.PremiumOld = baseline.Premium
	result.PremiumDelta = renewal.Premium.Sub(baseline.Premium)
	if !baseline.Premium.IsZero() {
		result.PremiumDeltaPct = result.PremiumDelta.Div(baseline.Premium).Mul(hundred)
	}

	premiumFlagged := premiumExceedsFloors(result.PremiumDelta, result.PremiumDeltaPct, th)
	if premiumFlagged {
		result.Flags = append(result.Flags, comparison.FlagPremiumChange)
	}

	result.CoverageChanges = diffCoverages(baseline, &renewal)
	for _, flag := range coverageFlags(result.CoverageChanges) {
		result.Flags = append(result.Flags, flag)
	}

	result.MaterialChange = premiumFlagged || len(result.CoverageChanges) > 0
	return result
}

// premiumExceedsFloors applies the dual-floor rule: a premium move is
// flagged only when its absolute size AND its percentage of the baseline
// both clear their floors.
func premiumExceedsFloors(delta, deltaPct decimal.Decimal, th comparison.Thresholds) bool {
	return delta.Abs().GreaterThan(th.AbsoluteFloor) &&
		deltaPct.Abs().GreaterThan(th.PercentFloor)
}

func diffCoverages(baseline, renewal *comparison.Snapshot) []comparison.CoverageChange {
	var changes []comparison.CoverageChange

	for i := range baseline.Coverages {
		old := baseline.Coverages[i]
		current := renewal.CoverageByCode(old.Code)
		if current == nil {
			oldCopy := old
			changes = append(changes, comparison.CoverageChange{
				Kind: comparison.ChangeKindRemoved,
				Code: old.Code,
				Old:  &oldCopy,
			})
			continue
		}
		if !old.Same(*current) {
			oldCopy, newCopy := old, *current
			changes = append(changes, comparison.CoverageChange{
				Kind: comparison.ChangeKindModified,
				Code: old.Code,
				Old:  &oldCopy,
				New:  &newCopy,
			})
		}
	}

	for i := range renewal.Coverages {
		current := renewal.Coverages[i]
		if baseline.CoverageByCode(current.Code) == nil {
			newCopy := current
			changes = append(changes, comparison.CoverageChange{
				Kind: comparison.ChangeKindAdded,
				Code: current.Code,
				New:  &newCopy,
			})
		}
	}

	sort.SliceStable(changes, func(i, j int) bool {
		return changes[i].Code < changes[j].Code
	})
	return changes
}

// coverageFlags derives the per-kind flags in a fixed order regardless of
// which change appeared first in the diff.
func coverageFlags(changes []comparison.CoverageChange) []string {
	var added, removed, modified bool
	for _, c := range changes {
		switch c.Kind {
		case comparison.ChangeKindAdded:
			added = true
		case comparison.ChangeKindRemoved:
			removed = true
		case comparison.ChangeKindModified:
			modified = true
		}
	}

	var flags []string
	if added {
		flags = append(flags, comparison.FlagCoverageAdded)
	}
	if removed {
		flags = append(flags, comparison.FlagCoverageRemoved)
	}
	if modified {
		flags = append(flags, comparison.FlagCoverageModified)
	}
	return flags
}
