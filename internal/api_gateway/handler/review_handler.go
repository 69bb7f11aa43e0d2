package handler

import (
	"errors"
	"log/slog"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/al3-renewal-pipeline/internal/api_gateway/service"
	"github.com/al3-renewal-pipeline/internal/domain/candidate"
	"github.com/al3-renewal-pipeline/internal/domain/comparison"
)

// ReviewHandler handles HTTP requests for candidate review operations
type ReviewHandler struct {
	reviewService service.ReviewService
	logger        *slog.Logger
}

// NewReviewHandler creates a new review handler
func NewReviewHandler(logger *slog.Logger, reviewService service.ReviewService) *ReviewHandler {
	return &ReviewHandler{
		reviewService: reviewService,
		logger:        logger,
	}
}

// GetCandidate retrieves candidate detail including the baseline snapshot
func (h *ReviewHandler) GetCandidate(c *gin.Context) {
	id, ok := h.parseID(c, "Invalid candidate ID")
	if !ok {
		return
	}

	cand, err := h.reviewService.GetCandidate(c.Request.Context(), id)
	if err != nil {
		var notFound candidate.ErrCandidateNotFound
		if errors.As(err, &notFound) {
			RespondNotFound(c, "Candidate not found")
			return
		}
		h.logger.Error("Failed to get candidate", "candidate_id", id.String(), "error", err)
		RespondInternalError(c)
		return
	}

	RespondOK(c, mapCandidateToResponse(cand))
}

// GetComparison retrieves the comparison result linked to a candidate
func (h *ReviewHandler) GetComparison(c *gin.Context) {
	id, ok := h.parseID(c, "Invalid candidate ID")
	if !ok {
		return
	}

	result, err := h.reviewService.GetComparisonByCandidate(c.Request.Context(), id)
	if err != nil {
		var notFound candidate.ErrCandidateNotFound
		if errors.As(err, &notFound) {
			RespondNotFound(c, "Candidate not found")
			return
		}
		h.logger.Error("Failed to get comparison", "candidate_id", id.String(), "error", err)
		RespondInternalError(c)
		return
	}

	if result == nil {
		RespondNotFound(c, "Candidate has no comparison result yet")
		return
	}

	RespondOK(c, mapComparisonToResponse(result))
}

// RecordDecision records a human decision on a comparison result. A decision
// already present is a conflict, never an overwrite.
func (h *ReviewHandler) RecordDecision(c *gin.Context) {
	id, ok := h.parseID(c, "Invalid comparison ID")
	if !ok {
		return
	}

	var req DecisionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondBadRequest(c, "Decision must be one of: accept, review, reject")
		return
	}

	err := h.reviewService.RecordDecision(c.Request.Context(), id, req.Decision)
	if err != nil {
		var alreadyDecided comparison.ErrDecisionAlreadyRecorded
		if errors.As(err, &alreadyDecided) {
			RespondConflict(c, "A decision is already recorded on this comparison")
			return
		}
		var notFound comparison.ErrComparisonNotFound
		if errors.As(err, &notFound) {
			RespondNotFound(c, "Comparison not found")
			return
		}
		if errors.Is(err, service.ErrInvalidDecision) {
			RespondBadRequest(c, "Decision must be one of: accept, review, reject")
			return
		}
		h.logger.Error("Failed to record decision", "comparison_id", id.String(), "error", err)
		RespondInternalError(c)
		return
	}

	RespondOK(c, gin.H{
		"comparison_id": id.String(),
		"decision":      req.Decision,
	})
}

func (h *ReviewHandler) parseID(c *gin.Context, message string) (uuid.UUID, bool) {
	idParam := c.Param("id")
	id, err := uuid.Parse(idParam)
	if err != nil {
		h.logger.Error(message, "id", idParam, "error", err)
		RespondBadRequest(c, message)
		return uuid.Nil, false
	}
	return id, true
}
