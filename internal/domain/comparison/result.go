package comparison

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ChangeKind classifies a per-coverage difference
type ChangeKind string

const (
	ChangeKindAdded    ChangeKind = "ADDED"
	ChangeKindRemoved  ChangeKind = "REMOVED"
	ChangeKindModified ChangeKind = "MODIFIED"
)

// Flags attached to a comparison result
const (
	FlagPremiumChange    = "premium_change"
	FlagCoverageAdded    = "coverage_added"
	FlagCoverageRemoved  = "coverage_removed"
	FlagCoverageModified = "coverage_modified"
	FlagNoBaseline       = "no_baseline"
)

// Decision values a reviewer may record on a result
const (
	DecisionAccept = "accept"
	DecisionReview = "review"
	DecisionReject = "reject"
)

// ValidDecision reports whether s is a recordable decision value
func ValidDecision(s string) bool {
	switch s {
	case DecisionAccept, DecisionReview, DecisionReject:
		return true
	}
	return false
}

// CoverageChange records one coverage-level difference between the baseline
// and renewal snapshots. Unchanged coverages are omitted from results.
type CoverageChange struct {
	Kind ChangeKind `json:"kind"`
	Code string     `json:"code"`
	Old  *Coverage  `json:"old,omitempty"`
	New  *Coverage  `json:"new,omitempty"`
}

// Thresholds configure when a premium delta is flagged. A change is material
// only when BOTH floors are exceeded, so trivial dollar moves on large
// percentage bases (and vice versa) stay quiet.
type Thresholds struct {
	AbsoluteFloor decimal.Decimal `json:"absolute_floor"`
	PercentFloor  decimal.Decimal `json:"percent_floor"`
}

// Result is the output of diffing two snapshots. The diff fields are produced
// by a pure function and are deterministic for identical inputs; identity and
// timestamps are assigned only when the result is persisted.
type Result struct {
	ID uuid.UUID `json:"id"`
	// Nil once the owning candidate is deleted by a reprocess; a decided
	// result outlives its candidate and keeps only batch-level lineage.
	CandidateID *uuid.UUID `json:"candidate_id,omitempty"`
	BatchID     uuid.UUID  `json:"batch_id"`
	TenantID    uuid.UUID  `json:"tenant_id"`

	PremiumOld      decimal.Decimal  `json:"premium_old"`
	PremiumNew      decimal.Decimal  `json:"premium_new"`
	PremiumDelta    decimal.Decimal  `json:"premium_delta"`
	PremiumDeltaPct decimal.Decimal  `json:"premium_delta_pct"`
	CoverageChanges []CoverageChange `json:"coverage_changes,omitempty"`
	NoBaseline      bool             `json:"no_baseline"`
	MaterialChange  bool             `json:"material_change"`
	Flags           []string         `json:"flags,omitempty"`
	Thresholds      Thresholds       `json:"thresholds"`

	// A recorded human decision makes the result immutable across reprocess.
	HasDecision bool       `json:"has_decision"`
	Decision    string     `json:"decision,omitempty"`
	DecidedAt   *time.Time `json:"decided_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}
