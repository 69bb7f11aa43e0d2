package service

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/al3-renewal-pipeline/internal/al3"
	"github.com/al3-renewal-pipeline/internal/compare"
	"github.com/al3-renewal-pipeline/internal/domain/batch"
	"github.com/al3-renewal-pipeline/internal/domain/candidate"
	"github.com/al3-renewal-pipeline/internal/domain/comparison"
	"github.com/al3-renewal-pipeline/internal/domain/processinglog"
	"github.com/al3-renewal-pipeline/internal/domain/shared"
	"github.com/al3-renewal-pipeline/internal/snapshot"
	"github.com/al3-renewal-pipeline/internal/verifier"
)

// Orchestrator implements BatchProcessingService. It owns the full batch
// lifecycle: extract, parse, dedup, candidate creation with baseline
// capture, per-candidate fan-out, and the final roll-up. Candidate failures
// are isolated; only pre-candidate failures fail the batch.
type Orchestrator struct {
	batchRepo      batch.Repository
	candidateRepo  candidate.Repository
	comparisonRepo comparison.Repository
	logRepo        processinglog.Repository
	extractor      ArchiveExtractor
	baseline       BaselineCapturer
	verifier       PremiumVerifier // nil when verification is disabled
	thresholds     comparison.Thresholds
	pool           *CandidatePool
	logger         *slog.Logger
}

func NewOrchestrator(
	batchRepo batch.Repository,
	candidateRepo candidate.Repository,
	comparisonRepo comparison.Repository,
	logRepo processinglog.Repository,
	extractor ArchiveExtractor,
	baseline BaselineCapturer,
	premiumVerifier PremiumVerifier,
	thresholds comparison.Thresholds,
	pool *CandidatePool,
	logger *slog.Logger,
) *Orchestrator {
	return &Orchestrator{
		batchRepo:      batchRepo,
		candidateRepo:  candidateRepo,
		comparisonRepo: comparisonRepo,
		logRepo:        logRepo,
		extractor:      extractor,
		baseline:       baseline,
		verifier:       premiumVerifier,
		thresholds:     thresholds,
		pool:           pool,
		logger:         logger,
	}
}

// batchRun accumulates per-batch state across the pipeline stages. Counter
// updates from candidate workers go through the mutex.
type batchRun struct {
	batch    *batch.Batch
	job      *shared.BatchJobMessage
	mu       sync.Mutex
	counters batch.Counters
}

func (run *batchRun) addCompleted() {
	run.mu.Lock()
	run.counters.CandidatesCompleted++
	run.mu.Unlock()
}

func (run *batchRun) addFailed() {
	run.mu.Lock()
	run.counters.CandidatesFailed++
	run.mu.Unlock()
}

// ProcessBatch drives one batch job to a terminal status. Returning nil
// acknowledges the Kafka message; an error is returned only when the
// outcome could not be recorded and redelivery is the right move.
func (s *Orchestrator) ProcessBatch(ctx context.Context, job *shared.BatchJobMessage) error {
	logger := s.logger.With("batch_id", job.BatchID.String())
	if job.CorrelationID != "" {
		logger = logger.With("correlation_id", job.CorrelationID)
	}

	b, err := s.batchRepo.GetByID(ctx, job.BatchID)
	if err != nil {
		if _, ok := err.(batch.ErrBatchNotFound); ok {
			logger.Error("Batch job references unknown batch, dropping")
			return nil
		}
		return fmt.Errorf("failed to load batch %s: %w", job.BatchID.String(), err)
	}

	// Redelivered jobs for batches already picked up or finished are no-ops.
	if b.Status != shared.BatchStatusUploaded {
		logger.Info("Batch is not in uploaded state, skipping job", "status", string(b.Status))
		return nil
	}

	if err := s.batchRepo.UpdateStatus(ctx, b.ID, shared.BatchStatusProcessing, ""); err != nil {
		return fmt.Errorf("failed to mark batch %s processing: %w", b.ID.String(), err)
	}

	run := &batchRun{batch: b, job: job}
	s.appendLog(ctx, run, processinglog.LevelInfo, "batch_started", "batch processing started", "", "")

	transactions, fatalErr := s.extractAndParse(ctx, run, logger)
	if fatalErr != nil {
		return s.failBatch(ctx, run, logger, fatalErr)
	}

	renewals, others := al3.PartitionTransactions(transactions)
	unique, duplicatesRemoved := al3.DeduplicateRenewals(renewals)

	run.counters.TransactionsFound = len(transactions)
	run.counters.RenewalsFound = len(renewals)
	run.counters.DuplicatesRemoved = duplicatesRemoved
	logger.Info("Parsed batch archive",
		"files", run.counters.FilesFound,
		"transactions", len(transactions),
		"renewals", len(renewals),
		"non_renewals", len(others),
		"duplicates_removed", duplicatesRemoved,
	)

	candidates := s.createCandidates(ctx, run, logger, unique)

	var wg sync.WaitGroup
	for i := range candidates {
		item := candidates[i]
		s.pool.Submit(&wg, func() {
			s.processCandidate(ctx, run, logger, item.candidate, item.transaction)
		})
	}
	wg.Wait()

	if err := s.batchRepo.UpdateCounters(ctx, b.ID, run.counters); err != nil {
		logger.Error("Failed to persist batch counters", "error", err)
	}
	if err := s.batchRepo.UpdateStatus(ctx, b.ID, shared.BatchStatusCompleted, ""); err != nil {
		return fmt.Errorf("failed to mark batch %s completed: %w", b.ID.String(), err)
	}

	message := fmt.Sprintf("batch completed: %d candidates, %d completed, %d failed, %d skipped",
		run.counters.CandidatesCreated,
		run.counters.CandidatesCompleted,
		run.counters.CandidatesFailed,
		run.counters.CandidatesSkipped,
	)
	if run.counters.CandidatesCreated == 0 {
		message = "batch completed: no renewal transactions found in archive"
	}
	s.appendLog(ctx, run, processinglog.LevelInfo, "batch_completed", message, "", "")
	logger.Info("Batch processing completed", "counters", run.counters)

	return nil
}

// extractAndParse unpacks the stored archive and parses every data file.
// The returned error is batch-fatal; parse-level problems degrade to
// warnings on the processing log instead.
func (s *Orchestrator) extractAndParse(ctx context.Context, run *batchRun, logger *slog.Logger) ([]al3.Transaction, error) {
	payload, err := s.batchRepo.GetArchive(ctx, run.batch.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load archive: %w", err)
	}

	files, err := s.extractor.Extract(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to extract archive: %w", err)
	}
	run.counters.FilesFound = len(files)

	var transactions []al3.Transaction
	for _, file := range files {
		parsed := al3.Parse(file.Name, file.Content)
		s.appendLog(ctx, run, processinglog.LevelInfo, "file_parsed",
			fmt.Sprintf("parsed %d transactions", len(parsed)), file.Name, "")

		for _, tx := range parsed {
			for _, warning := range tx.Warnings {
				s.appendLog(ctx, run, processinglog.LevelWarning, "parse_warning",
					fmt.Sprintf("%s %s: %s (value %q)", warning.Group, warning.Field, warning.Message, warning.Value),
					warning.FileName, tx.PolicyNumber)
			}
		}
		transactions = append(transactions, parsed...)
	}

	return transactions, nil
}

// candidateWork pairs a persisted candidate with its source transaction for
// the fan-out stage.
type candidateWork struct {
	candidate   *candidate.RenewalCandidate
	transaction al3.Transaction
}

// createCandidates turns unique renewals into persisted candidates and
// captures each baseline synchronously, before any fan-out. The system of
// record is read as close to batch arrival as possible so concurrent policy
// sync jobs cannot shift the baseline mid-processing.
func (s *Orchestrator) createCandidates(ctx context.Context, run *batchRun, logger *slog.Logger, renewals []al3.Transaction) []candidateWork {
	var work []candidateWork

	for _, tx := range renewals {
		if tx.EffectiveDate == nil || tx.PolicyNumber == "" {
			run.counters.CandidatesSkipped++
			s.appendLog(ctx, run, processinglog.LevelWarning, "candidate_skipped",
				"renewal transaction missing policy number or effective date", tx.FileName, tx.PolicyNumber)
			continue
		}

		c, err := candidate.NewRenewalCandidate(run.batch.ID, run.batch.TenantID,
			string(tx.Type), tx.PolicyNumber, tx.CarrierCode, *tx.EffectiveDate)
		if err != nil {
			run.counters.CandidatesSkipped++
			s.appendLog(ctx, run, processinglog.LevelWarning, "candidate_skipped", err.Error(), tx.FileName, tx.PolicyNumber)
			continue
		}
		c.CarrierName = tx.CarrierName
		c.LineOfBusiness = tx.LineOfBusiness
		c.ExpirationDate = tx.ExpirationDate
		c.RawAL3 = tx.Raw

		inserted, err := s.candidateRepo.Insert(ctx, c)
		if err != nil {
			run.counters.CandidatesFailed++
			s.appendLog(ctx, run, processinglog.LevelError, "candidate_insert_failed", err.Error(), tx.FileName, tx.PolicyNumber)
			continue
		}
		if !inserted {
			run.counters.CandidatesSkipped++
			s.appendLog(ctx, run, processinglog.LevelInfo, "candidate_skipped",
				"equivalent candidate already exists for this batch", tx.FileName, tx.PolicyNumber)
			continue
		}
		run.counters.CandidatesCreated++

		baseline, customerRef, policyRef, err := s.baseline.Capture(ctx, c.TenantID, c.PolicyNumber, c.CarrierCode, c.EffectiveDate)
		if err != nil {
			c.MarkFailed(shared.FailureKindBaselineLookup, err.Error())
			if updErr := s.candidateRepo.UpdateStatus(ctx, c.ID, c.Status, c.ErrorDetail); updErr != nil {
				logger.Error("Failed to record baseline failure", "candidate_id", c.ID.String(), "error", updErr)
			}
			run.counters.CandidatesFailed++
			s.appendLog(ctx, run, processinglog.LevelError, "baseline_failed", err.Error(), tx.FileName, tx.PolicyNumber)
			continue
		}

		if err := s.candidateRepo.SetBaseline(ctx, c.ID, baseline, customerRef, policyRef); err != nil {
			c.MarkFailed(shared.FailureKindPersistence, err.Error())
			if updErr := s.candidateRepo.UpdateStatus(ctx, c.ID, c.Status, c.ErrorDetail); updErr != nil {
				logger.Error("Failed to record baseline persistence failure", "candidate_id", c.ID.String(), "error", updErr)
			}
			run.counters.CandidatesFailed++
			continue
		}
		c.Baseline = baseline
		c.CustomerRef = customerRef
		c.PolicyRef = policyRef

		work = append(work, candidateWork{candidate: c, transaction: tx})
	}

	return work
}

// processCandidate runs the compare stage for one candidate. Each failure
// lands on the candidate row; siblings and the batch are unaffected.
func (s *Orchestrator) processCandidate(ctx context.Context, run *batchRun, logger *slog.Logger, c *candidate.RenewalCandidate, tx al3.Transaction) {
	clogger := logger.With("candidate_id", c.ID.String(), "policy_number", c.PolicyNumber)

	c.MarkProcessing()
	if err := s.candidateRepo.UpdateStatus(ctx, c.ID, c.Status, ""); err != nil {
		clogger.Error("Failed to mark candidate processing", "error", err)
		s.failCandidate(ctx, run, clogger, c, shared.FailureKindPersistence, err)
		return
	}

	renewalSnapshot := snapshot.BuildRenewalSnapshot(tx)

	result := compare.CompareSnapshots(renewalSnapshot, c.Baseline, s.thresholds)
	result.ID = uuid.New()
	result.CandidateID = &c.ID
	result.BatchID = c.BatchID
	result.TenantID = c.TenantID
	result.CreatedAt = time.Now()

	if err := s.comparisonRepo.Create(ctx, &result); err != nil {
		s.failCandidate(ctx, run, clogger, c, shared.FailureKindComparison, err)
		return
	}
	if err := s.candidateRepo.LinkComparison(ctx, c.ID, result.ID); err != nil {
		s.failCandidate(ctx, run, clogger, c, shared.FailureKindPersistence, err)
		return
	}

	s.verifyPremium(ctx, run, clogger, c, renewalSnapshot)

	c.MarkCompleted(result.ID)
	if err := s.candidateRepo.UpdateStatus(ctx, c.ID, c.Status, ""); err != nil {
		clogger.Error("Failed to mark candidate completed", "error", err)
		s.failCandidate(ctx, run, clogger, c, shared.FailureKindPersistence, err)
		return
	}

	run.addCompleted()
	clogger.Info("Candidate processed",
		"material_change", result.MaterialChange,
		"no_baseline", result.NoBaseline,
	)
}

// verifyPremium is best-effort: outcomes land on the processing log and
// failures are swallowed after logging. Verification can never fail a
// candidate or a batch.
func (s *Orchestrator) verifyPremium(ctx context.Context, run *batchRun, logger *slog.Logger, c *candidate.RenewalCandidate, snap comparison.Snapshot) {
	if s.verifier == nil {
		return
	}
	if c.CustomerRef == nil {
		s.appendLog(ctx, run, processinglog.LevelInfo, "verification_skipped",
			"no customer reference resolved for candidate", "", c.PolicyNumber)
		return
	}

	verification, err := s.verifier.Verify(ctx, verifier.VerificationRequest{
		PolicyNumber:  c.PolicyNumber,
		CustomerID:    *c.CustomerRef,
		EffectiveDate: c.EffectiveDate,
		FeedPremium:   snap.Premium,
	})
	if err != nil {
		logger.Warn("Premium verification failed", "error", err)
		s.appendLog(ctx, run, processinglog.LevelWarning, "verification_error", err.Error(), "", c.PolicyNumber)
		return
	}
	if verification == nil {
		s.appendLog(ctx, run, processinglog.LevelInfo, "verification_unavailable",
			"rate-history source has no record for this term", "", c.PolicyNumber)
		return
	}

	s.appendLog(ctx, run, processinglog.LevelInfo, "verification_result",
		fmt.Sprintf("outcome %s, recorded %s, feed %s, delta %s",
			verification.Outcome, verification.RecordedPremium, verification.FeedPremium, verification.Delta),
		"", c.PolicyNumber)
}

func (s *Orchestrator) failCandidate(ctx context.Context, run *batchRun, logger *slog.Logger, c *candidate.RenewalCandidate, kind shared.FailureKind, cause error) {
	c.MarkFailed(kind, cause.Error())
	if err := s.candidateRepo.UpdateStatus(ctx, c.ID, c.Status, c.ErrorDetail); err != nil {
		logger.Error("Failed to record candidate failure", "error", err)
	}
	run.addFailed()
	s.appendLog(ctx, run, processinglog.LevelError, "candidate_failed", c.ErrorDetail, "", c.PolicyNumber)
	logger.Error("Candidate processing failed", "kind", string(kind), "error", cause)
}

// failBatch records a pre-candidate fatal failure. The outcome is recorded
// and the message acknowledged; retrying a malformed archive cannot succeed.
func (s *Orchestrator) failBatch(ctx context.Context, run *batchRun, logger *slog.Logger, cause error) error {
	logger.Error("Batch processing failed", "error", cause)

	if err := s.batchRepo.UpdateStatus(ctx, run.batch.ID, shared.BatchStatusFailed, cause.Error()); err != nil {
		return fmt.Errorf("failed to record batch failure: %w", err)
	}
	if err := s.batchRepo.UpdateCounters(ctx, run.batch.ID, run.counters); err != nil {
		logger.Error("Failed to persist batch counters", "error", err)
	}
	s.appendLog(ctx, run, processinglog.LevelError, "batch_failed", cause.Error(), "", "")
	return nil
}

// appendLog writes to the processing log, tolerating log-store failures
func (s *Orchestrator) appendLog(ctx context.Context, run *batchRun, level processinglog.Level, event, message, fileName, policyNumber string) {
	entry := processinglog.NewEntry(run.batch.ID, run.batch.TenantID, level, event, message)
	entry.FileName = fileName
	entry.PolicyNumber = policyNumber
	entry.CorrelationID = run.job.CorrelationID

	if err := s.logRepo.Append(ctx, entry); err != nil {
		s.logger.Error("Failed to append processing log entry",
			"batch_id", run.batch.ID.String(),
			"event", event,
			"error", err,
		)
	}
}
