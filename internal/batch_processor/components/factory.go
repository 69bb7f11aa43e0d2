package components

import (
	"log/slog"

	"github.com/al3-renewal-pipeline/internal/archive"
	"github.com/al3-renewal-pipeline/internal/batch_processor/service"
	"github.com/al3-renewal-pipeline/internal/compare"
	"github.com/al3-renewal-pipeline/internal/config"
	"github.com/al3-renewal-pipeline/internal/domain/batch"
	"github.com/al3-renewal-pipeline/internal/domain/candidate"
	"github.com/al3-renewal-pipeline/internal/domain/comparison"
	"github.com/al3-renewal-pipeline/internal/domain/policy"
	"github.com/al3-renewal-pipeline/internal/domain/processinglog"
	"github.com/al3-renewal-pipeline/internal/verifier"
)

// CreateBatchProcessingService assembles the orchestrator with all its
// dependencies. The returned pool is owned by the caller and must be shut
// down on exit.
func CreateBatchProcessingService(
	batchRepo batch.Repository,
	candidateRepo candidate.Repository,
	comparisonRepo comparison.Repository,
	logRepo processinglog.Repository,
	policyRepo policy.Repository,
	logger *slog.Logger,
	cfg *config.Config,
) (service.BatchProcessingService, *service.CandidatePool, error) {
	extractor := archive.NewExtractor(cfg.Pipeline.MaxArchiveBytes, cfg.Pipeline.MaxMemberBytes)
	baselineBuilder := NewBaselineBuilder(policyRepo, logger)

	var premiumVerifier service.PremiumVerifier
	if cfg.Verifier.Enabled {
		premiumVerifier = verifier.NewVerifier(&cfg.Verifier)
		logger.Info("Premium verification enabled", "base_url", cfg.Verifier.BaseURL)
	}

	pool, err := service.NewCandidatePool(
		service.CandidatePoolConfig{Size: cfg.WorkerPool.Size},
		logger.With("component", "candidate_pool"),
	)
	if err != nil {
		return nil, nil, err
	}

	orchestrator := service.NewOrchestrator(
		batchRepo,
		candidateRepo,
		comparisonRepo,
		logRepo,
		extractor,
		baselineBuilder,
		premiumVerifier,
		compare.ThresholdsFromConfig(&cfg.Pipeline),
		pool,
		logger,
	)

	logger.Info("Created batch processing service", "pool_size", cfg.WorkerPool.Size)
	return orchestrator, pool, nil
}
