package handler

import (
	"time"

	"github.com/al3-renewal-pipeline/internal/domain/batch"
	"github.com/al3-renewal-pipeline/internal/domain/candidate"
	"github.com/al3-renewal-pipeline/internal/domain/comparison"
	"github.com/al3-renewal-pipeline/internal/domain/processinglog"
)

// BatchResponse represents a batch in API responses
type BatchResponse struct {
	ID          string         `json:"id"`
	TenantID    string         `json:"tenant_id"`
	FileName    string         `json:"file_name"`
	FileSize    int64          `json:"file_size"`
	Status      string         `json:"status"`
	Counters    batch.Counters `json:"counters"`
	ErrorDetail string         `json:"error_detail,omitempty"`
	CreatedAt   string         `json:"created_at"`
	StartedAt   string         `json:"started_at,omitempty"`
	FinishedAt  string         `json:"finished_at,omitempty"`
}

// CandidateResponse represents a renewal candidate in API responses
type CandidateResponse struct {
	ID              string               `json:"id"`
	BatchID         string               `json:"batch_id"`
	Status          string               `json:"status"`
	TransactionType string               `json:"transaction_type"`
	PolicyNumber    string               `json:"policy_number"`
	CarrierCode     string               `json:"carrier_code"`
	CarrierName     string               `json:"carrier_name,omitempty"`
	LineOfBusiness  string               `json:"line_of_business,omitempty"`
	EffectiveDate   string               `json:"effective_date"`
	ExpirationDate  string               `json:"expiration_date,omitempty"`
	Baseline        *comparison.Snapshot `json:"baseline,omitempty"`
	CustomerRef     string               `json:"customer_ref,omitempty"`
	PolicyRef       string               `json:"policy_ref,omitempty"`
	ComparisonID    string               `json:"comparison_id,omitempty"`
	ErrorDetail     string               `json:"error_detail,omitempty"`
	CreatedAt       string               `json:"created_at"`
	UpdatedAt       string               `json:"updated_at"`
}

// ComparisonResponse represents a comparison result in API responses
type ComparisonResponse struct {
	ID              string                      `json:"id"`
	CandidateID     string                      `json:"candidate_id,omitempty"`
	BatchID         string                      `json:"batch_id"`
	PremiumOld      string                      `json:"premium_old"`
	PremiumNew      string                      `json:"premium_new"`
	PremiumDelta    string                      `json:"premium_delta"`
	PremiumDeltaPct string                      `json:"premium_delta_pct"`
	CoverageChanges []comparison.CoverageChange `json:"coverage_changes,omitempty"`
	NoBaseline      bool                        `json:"no_baseline"`
	MaterialChange  bool                        `json:"material_change"`
	Flags           []string                    `json:"flags,omitempty"`
	HasDecision     bool                        `json:"has_decision"`
	Decision        string                      `json:"decision,omitempty"`
	DecidedAt       string                      `json:"decided_at,omitempty"`
	CreatedAt       string                      `json:"created_at"`
}

// LogEntryResponse represents a processing log entry in API responses
type LogEntryResponse struct {
	Level        string `json:"level"`
	Event        string `json:"event"`
	Message      string `json:"message"`
	FileName     string `json:"file_name,omitempty"`
	PolicyNumber string `json:"policy_number,omitempty"`
	CreatedAt    string `json:"created_at"`
}

// DecisionRequest represents a request to record a decision on a comparison
type DecisionRequest struct {
	Decision string `json:"decision" binding:"required,oneof=accept review reject"`
}

// PaginationParams represents pagination parameters for list endpoints
type PaginationParams struct {
	Page    int `form:"page,default=1" binding:"min=1"`
	PerPage int `form:"per_page,default=20" binding:"min=1,max=100"`
}

func mapBatchToResponse(b *batch.Batch) BatchResponse {
	response := BatchResponse{
		ID:          b.ID.String(),
		TenantID:    b.TenantID.String(),
		FileName:    b.FileName,
		FileSize:    b.FileSize,
		Status:      string(b.Status),
		Counters:    b.Counters,
		ErrorDetail: b.ErrorDetail,
		CreatedAt:   b.CreatedAt.Format(time.RFC3339),
	}
	if b.StartedAt != nil {
		response.StartedAt = b.StartedAt.Format(time.RFC3339)
	}
	if b.FinishedAt != nil {
		response.FinishedAt = b.FinishedAt.Format(time.RFC3339)
	}
	return response
}

func mapCandidateToResponse(c *candidate.RenewalCandidate) CandidateResponse {
	response := CandidateResponse{
		ID:              c.ID.String(),
		BatchID:         c.BatchID.String(),
		Status:          string(c.Status),
		TransactionType: c.TransactionType,
		PolicyNumber:    c.PolicyNumber,
		CarrierCode:     c.CarrierCode,
		CarrierName:     c.CarrierName,
		LineOfBusiness:  c.LineOfBusiness,
		EffectiveDate:   c.EffectiveDate.Format("2006-01-02"),
		Baseline:        c.Baseline,
		ErrorDetail:     c.ErrorDetail,
		CreatedAt:       c.CreatedAt.Format(time.RFC3339),
		UpdatedAt:       c.UpdatedAt.Format(time.RFC3339),
	}
	if c.ExpirationDate != nil {
		response.ExpirationDate = c.ExpirationDate.Format("2006-01-02")
	}
	if c.CustomerRef != nil {
		response.CustomerRef = c.CustomerRef.String()
	}
	if c.PolicyRef != nil {
		response.PolicyRef = c.PolicyRef.String()
	}
	if c.ComparisonID != nil {
		response.ComparisonID = c.ComparisonID.String()
	}
	return response
}

func mapComparisonToResponse(r *comparison.Result) ComparisonResponse {
	response := ComparisonResponse{
		ID:              r.ID.String(),
		BatchID:         r.BatchID.String(),
		PremiumOld:      r.PremiumOld.String(),
		PremiumNew:      r.PremiumNew.String(),
		PremiumDelta:    r.PremiumDelta.String(),
		PremiumDeltaPct: r.PremiumDeltaPct.String(),
		CoverageChanges: r.CoverageChanges,
		NoBaseline:      r.NoBaseline,
		MaterialChange:  r.MaterialChange,
		Flags:           r.Flags,
		HasDecision:     r.HasDecision,
		Decision:        r.Decision,
		CreatedAt:       r.CreatedAt.Format(time.RFC3339),
	}
	if r.CandidateID != nil {
		response.CandidateID = r.CandidateID.String()
	}
	if r.DecidedAt != nil {
		response.DecidedAt = r.DecidedAt.Format(time.RFC3339)
	}
	return response
}

func mapLogEntryToResponse(e *processinglog.Entry) LogEntryResponse {
	return LogEntryResponse{
		Level:        string(e.Level),
		Event:        e.Event,
		Message:      e.Message,
		FileName:     e.FileName,
		PolicyNumber: e.PolicyNumber,
		CreatedAt:    e.CreatedAt.Format(time.RFC3339),
	}
}
