package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/al3-renewal-pipeline/internal/domain/batch"
	"github.com/al3-renewal-pipeline/internal/domain/candidate"
	"github.com/al3-renewal-pipeline/internal/domain/comparison"
	"github.com/al3-renewal-pipeline/internal/domain/outbox"
	"github.com/al3-renewal-pipeline/internal/domain/processinglog"
	"github.com/al3-renewal-pipeline/internal/domain/shared"
)

// TxExecutor runs a function inside one database transaction. Satisfied by
// persistence.PostgresDB.
type TxExecutor interface {
	ExecuteTx(ctx context.Context, fn func(tx pgx.Tx) error) error
}

// BatchServiceImpl implements the BatchService interface
type BatchServiceImpl struct {
	db             TxExecutor
	batchRepo      batch.Repository
	candidateRepo  candidate.Repository
	comparisonRepo comparison.Repository
	outboxRepo     outbox.Repository
	logRepo        processinglog.Repository
	logger         *slog.Logger
}

// NewBatchService creates a new batch service
func NewBatchService(
	logger *slog.Logger,
	db TxExecutor,
	batchRepo batch.Repository,
	candidateRepo candidate.Repository,
	comparisonRepo comparison.Repository,
	outboxRepo outbox.Repository,
	logRepo processinglog.Repository,
) BatchService {
	return &BatchServiceImpl{
		db:             db,
		batchRepo:      batchRepo,
		candidateRepo:  candidateRepo,
		comparisonRepo: comparisonRepo,
		outboxRepo:     outboxRepo,
		logRepo:        logRepo,
		logger:         logger,
	}
}

// UploadBatch stores the archive and enqueues a processing job atomically:
// either the batch row and its outbox message both exist, or neither does.
func (s *BatchServiceImpl) UploadBatch(ctx context.Context, tenantID uuid.UUID, fileName string, archive []byte, correlationID string) (*batch.Batch, error) {
	b, err := batch.NewBatch(tenantID, fileName, archive)
	if err != nil {
		return nil, err
	}

	job := &shared.BatchJobMessage{
		BatchID:       b.ID,
		TenantID:      tenantID,
		CorrelationID: correlationID,
		Timestamp:     time.Now(),
	}
	message, err := outbox.NewMessage(job)
	if err != nil {
		return nil, err
	}

	err = s.db.ExecuteTx(ctx, func(tx pgx.Tx) error {
		if err := s.batchRepo.WithTx(tx).Create(ctx, b); err != nil {
			return err
		}
		return s.outboxRepo.WithTx(tx).Create(ctx, message)
	})
	if err != nil {
		s.logger.Error("Failed to store batch upload",
			"tenant_id", tenantID.String(),
			"file_name", fileName,
			"error", err,
		)
		return nil, err
	}

	s.logger.Info("Batch uploaded and job enqueued",
		"batch_id", b.ID.String(),
		"tenant_id", tenantID.String(),
		"file_name", fileName,
		"file_size", b.FileSize,
		"outbox_id", message.ID,
	)
	return b, nil
}

// GetBatch retrieves batch status and counters by ID
func (s *BatchServiceImpl) GetBatch(ctx context.Context, id uuid.UUID) (*batch.Batch, error) {
	return s.batchRepo.GetByID(ctx, id)
}

// GetBatchLog retrieves the paginated processing log for a batch
func (s *BatchServiceImpl) GetBatchLog(ctx context.Context, batchID uuid.UUID, page, perPage int) ([]*processinglog.Entry, int64, error) {
	if _, err := s.batchRepo.GetByID(ctx, batchID); err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * perPage
	entries, err := s.logRepo.ListByBatch(ctx, batchID, perPage, offset)
	if err != nil {
		return nil, 0, err
	}

	total, err := s.logRepo.CountByBatch(ctx, batchID)
	if err != nil {
		return nil, 0, err
	}

	return entries, total, nil
}

// GetBatchCandidates retrieves the paginated candidate list for a batch
func (s *BatchServiceImpl) GetBatchCandidates(ctx context.Context, batchID uuid.UUID, page, perPage int) ([]*candidate.RenewalCandidate, int64, error) {
	if _, err := s.batchRepo.GetByID(ctx, batchID); err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * perPage
	candidates, err := s.candidateRepo.ListByBatch(ctx, batchID, perPage, offset)
	if err != nil {
		return nil, 0, err
	}

	total, err := s.candidateRepo.CountByBatch(ctx, batchID)
	if err != nil {
		return nil, 0, err
	}

	return candidates, total, nil
}

// ReprocessBatch restarts a terminal batch from its stored archive. Decided
// comparisons survive the purge; everything else derived from the previous
// run is deleted before the batch re-enters the uploaded state.
func (s *BatchServiceImpl) ReprocessBatch(ctx context.Context, batchID uuid.UUID, correlationID string) error {
	b, err := s.batchRepo.GetByID(ctx, batchID)
	if err != nil {
		return err
	}
	if !b.Status.Terminal() {
		return batch.ErrNotTerminal
	}

	job := &shared.BatchJobMessage{
		BatchID:       batchID,
		TenantID:      b.TenantID,
		Reprocess:     true,
		CorrelationID: correlationID,
		Timestamp:     time.Now(),
	}
	message, err := outbox.NewMessage(job)
	if err != nil {
		return err
	}

	var comparisonsDeleted, candidatesDeleted int64
	err = s.db.ExecuteTx(ctx, func(tx pgx.Tx) error {
		comparisonsDeleted, err = s.comparisonRepo.WithTx(tx).DeleteUndecidedByBatch(ctx, batchID)
		if err != nil {
			return err
		}
		candidatesDeleted, err = s.candidateRepo.WithTx(tx).DeleteByBatch(ctx, batchID)
		if err != nil {
			return err
		}
		if err := s.batchRepo.WithTx(tx).Reset(ctx, batchID); err != nil {
			return err
		}
		return s.outboxRepo.WithTx(tx).Create(ctx, message)
	})
	if err != nil {
		s.logger.Error("Failed to reprocess batch", "batch_id", batchID.String(), "error", err)
		return err
	}

	s.logger.Info("Batch reset for reprocessing",
		"batch_id", batchID.String(),
		"comparisons_deleted", comparisonsDeleted,
		"candidates_deleted", candidatesDeleted,
		"outbox_id", message.ID,
	)
	return nil
}
