package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/al3-renewal-pipeline/internal/domain/candidate"
	"github.com/al3-renewal-pipeline/internal/domain/comparison"
)

// ErrInvalidDecision marks a decision value outside accept/review/reject
var ErrInvalidDecision = errors.New("invalid decision value")

// ReviewServiceImpl implements the ReviewService interface
type ReviewServiceImpl struct {
	candidateRepo  candidate.Repository
	comparisonRepo comparison.Repository
	logger         *slog.Logger
}

// NewReviewService creates a new review service
func NewReviewService(
	logger *slog.Logger,
	candidateRepo candidate.Repository,
	comparisonRepo comparison.Repository,
) ReviewService {
	return &ReviewServiceImpl{
		candidateRepo:  candidateRepo,
		comparisonRepo: comparisonRepo,
		logger:         logger,
	}
}

// GetCandidate retrieves a candidate with its baseline snapshot
func (s *ReviewServiceImpl) GetCandidate(ctx context.Context, id uuid.UUID) (*candidate.RenewalCandidate, error) {
	return s.candidateRepo.GetByID(ctx, id)
}

// GetComparisonByCandidate retrieves the comparison linked to a candidate.
// A candidate that exists but has not been compared yet yields nil.
func (s *ReviewServiceImpl) GetComparisonByCandidate(ctx context.Context, candidateID uuid.UUID) (*comparison.Result, error) {
	if _, err := s.candidateRepo.GetByID(ctx, candidateID); err != nil {
		return nil, err
	}

	result, err := s.comparisonRepo.GetByCandidateID(ctx, candidateID)
	if err != nil {
		var notFound comparison.ErrComparisonNotFound
		if errors.As(err, &notFound) {
			return nil, nil
		}
		return nil, err
	}
	return result, nil
}

// RecordDecision stores a human decision on a comparison result
func (s *ReviewServiceImpl) RecordDecision(ctx context.Context, comparisonID uuid.UUID, decision string) error {
	if !comparison.ValidDecision(decision) {
		return fmt.Errorf("%w: %q", ErrInvalidDecision, decision)
	}

	if err := s.comparisonRepo.RecordDecision(ctx, comparisonID, decision); err != nil {
		return err
	}

	s.logger.Info("Decision recorded on comparison",
		"comparison_id", comparisonID.String(),
		"decision", decision,
	)
	return nil
}
