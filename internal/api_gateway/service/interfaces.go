package service

import (
	"context"

	"github.com/google/uuid"

	"github.com/al3-renewal-pipeline/internal/domain/batch"
	"github.com/al3-renewal-pipeline/internal/domain/candidate"
	"github.com/al3-renewal-pipeline/internal/domain/comparison"
	"github.com/al3-renewal-pipeline/internal/domain/processinglog"
)

// BatchService defines the interface for batch upload and lifecycle operations
type BatchService interface {
	// UploadBatch stores the archive and enqueues a processing job in the
	// same database transaction. Returns the created batch.
	UploadBatch(ctx context.Context, tenantID uuid.UUID, fileName string, archive []byte, correlationID string) (*batch.Batch, error)

	// GetBatch retrieves batch status and counters by ID
	// Returns ErrBatchNotFound if the batch doesn't exist
	GetBatch(ctx context.Context, id uuid.UUID) (*batch.Batch, error)

	// GetBatchLog retrieves the paginated processing log for a batch
	// Returns entries, total count, and any error
	GetBatchLog(ctx context.Context, batchID uuid.UUID, page, perPage int) ([]*processinglog.Entry, int64, error)

	// GetBatchCandidates retrieves the paginated candidate list for a batch
	GetBatchCandidates(ctx context.Context, batchID uuid.UUID, page, perPage int) ([]*candidate.RenewalCandidate, int64, error)

	// ReprocessBatch restarts a terminal batch from its stored archive:
	// undecided comparisons and all candidates are deleted, counters are
	// zeroed, and a fresh job is enqueued. Returns batch.ErrNotTerminal
	// when the batch is still uploaded or processing.
	ReprocessBatch(ctx context.Context, batchID uuid.UUID, correlationID string) error
}

// ReviewService defines the interface for candidate review operations
type ReviewService interface {
	// GetCandidate retrieves a candidate with its baseline snapshot
	// Returns ErrCandidateNotFound if the candidate doesn't exist
	GetCandidate(ctx context.Context, id uuid.UUID) (*candidate.RenewalCandidate, error)

	// GetComparisonByCandidate retrieves the comparison result linked to a
	// candidate. Returns nil if the candidate has no comparison yet.
	GetComparisonByCandidate(ctx context.Context, candidateID uuid.UUID) (*comparison.Result, error)

	// RecordDecision stores a human decision on a comparison result.
	// Returns ErrDecisionAlreadyRecorded when one is already present.
	RecordDecision(ctx context.Context, comparisonID uuid.UUID, decision string) error
}
