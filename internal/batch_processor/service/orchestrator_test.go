package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/al3-renewal-pipeline/internal/archive"
	"github.com/al3-renewal-pipeline/internal/domain/batch"
	"github.com/al3-renewal-pipeline/internal/domain/candidate"
	"github.com/al3-renewal-pipeline/internal/domain/comparison"
	"github.com/al3-renewal-pipeline/internal/domain/processinglog"
	"github.com/al3-renewal-pipeline/internal/domain/shared"
	"github.com/al3-renewal-pipeline/internal/verifier"
)

// Mock implementations of the dependencies

type MockBatchRepository struct {
	mock.Mock
}

func (m *MockBatchRepository) Create(ctx context.Context, b *batch.Batch) error {
	args := m.Called(ctx, b)
	return args.Error(0)
}

func (m *MockBatchRepository) GetByID(ctx context.Context, id uuid.UUID) (*batch.Batch, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*batch.Batch), args.Error(1)
}

func (m *MockBatchRepository) GetArchive(ctx context.Context, id uuid.UUID) ([]byte, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

func (m *MockBatchRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status shared.BatchStatus, errorDetail string) error {
	args := m.Called(ctx, id, status, errorDetail)
	return args.Error(0)
}

func (m *MockBatchRepository) UpdateCounters(ctx context.Context, id uuid.UUID, counters batch.Counters) error {
	args := m.Called(ctx, id, counters)
	return args.Error(0)
}

func (m *MockBatchRepository) Reset(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockBatchRepository) ListByTenant(ctx context.Context, tenantID uuid.UUID, limit, offset int) ([]*batch.Batch, error) {
	args := m.Called(ctx, tenantID, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*batch.Batch), args.Error(1)
}

func (m *MockBatchRepository) CountByTenant(ctx context.Context, tenantID uuid.UUID) (int64, error) {
	args := m.Called(ctx, tenantID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockBatchRepository) WithTx(tx pgx.Tx) batch.Repository {
	return m
}

type MockCandidateRepository struct {
	mock.Mock
}

func (m *MockCandidateRepository) Insert(ctx context.Context, c *candidate.RenewalCandidate) (bool, error) {
	args := m.Called(ctx, c)
	return args.Bool(0), args.Error(1)
}

func (m *MockCandidateRepository) GetByID(ctx context.Context, id uuid.UUID) (*candidate.RenewalCandidate, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*candidate.RenewalCandidate), args.Error(1)
}

func (m *MockCandidateRepository) ListByBatch(ctx context.Context, batchID uuid.UUID, limit, offset int) ([]*candidate.RenewalCandidate, error) {
	args := m.Called(ctx, batchID, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*candidate.RenewalCandidate), args.Error(1)
}

func (m *MockCandidateRepository) CountByBatch(ctx context.Context, batchID uuid.UUID) (int64, error) {
	args := m.Called(ctx, batchID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockCandidateRepository) CountByBatchAndStatus(ctx context.Context, batchID uuid.UUID, status shared.CandidateStatus) (int64, error) {
	args := m.Called(ctx, batchID, status)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockCandidateRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status shared.CandidateStatus, errorDetail string) error {
	args := m.Called(ctx, id, status, errorDetail)
	return args.Error(0)
}

func (m *MockCandidateRepository) SetBaseline(ctx context.Context, id uuid.UUID, baseline *comparison.Snapshot, customerRef, policyRef *uuid.UUID) error {
	args := m.Called(ctx, id, baseline, customerRef, policyRef)
	return args.Error(0)
}

func (m *MockCandidateRepository) LinkComparison(ctx context.Context, id uuid.UUID, comparisonID uuid.UUID) error {
	args := m.Called(ctx, id, comparisonID)
	return args.Error(0)
}

func (m *MockCandidateRepository) DeleteByBatch(ctx context.Context, batchID uuid.UUID) (int64, error) {
	args := m.Called(ctx, batchID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockCandidateRepository) WithTx(tx pgx.Tx) candidate.Repository {
	return m
}

type MockComparisonRepository struct {
	mock.Mock
}

func (m *MockComparisonRepository) Create(ctx context.Context, result *comparison.Result) error {
	args := m.Called(ctx, result)
	return args.Error(0)
}

func (m *MockComparisonRepository) GetByID(ctx context.Context, id uuid.UUID) (*comparison.Result, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*comparison.Result), args.Error(1)
}

func (m *MockComparisonRepository) GetByCandidateID(ctx context.Context, candidateID uuid.UUID) (*comparison.Result, error) {
	args := m.Called(ctx, candidateID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*comparison.Result), args.Error(1)
}

func (m *MockComparisonRepository) RecordDecision(ctx context.Context, id uuid.UUID, decision string) error {
	args := m.Called(ctx, id, decision)
	return args.Error(0)
}

func (m *MockComparisonRepository) DeleteUndecidedByBatch(ctx context.Context, batchID uuid.UUID) (int64, error) {
	args := m.Called(ctx, batchID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockComparisonRepository) WithTx(tx pgx.Tx) comparison.Repository {
	return m
}

type MockProcessingLog struct {
	mock.Mock
}

func (m *MockProcessingLog) Append(ctx context.Context, entry *processinglog.Entry) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

func (m *MockProcessingLog) ListByBatch(ctx context.Context, batchID uuid.UUID, limit, offset int) ([]*processinglog.Entry, error) {
	args := m.Called(ctx, batchID, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*processinglog.Entry), args.Error(1)
}

func (m *MockProcessingLog) CountByBatch(ctx context.Context, batchID uuid.UUID) (int64, error) {
	args := m.Called(ctx, batchID)
	return args.Get(0).(int64), args.Error(1)
}

type MockExtractor struct {
	mock.Mock
}

func (m *MockExtractor) Extract(payload []byte) ([]archive.ExtractedFile, error) {
	args := m.Called(payload)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]archive.ExtractedFile), args.Error(1)
}

type MockBaselineCapturer struct {
	mock.Mock
}

func (m *MockBaselineCapturer) Capture(ctx context.Context, tenantID uuid.UUID, policyNumber, carrierCode string, renewalEffective time.Time) (*comparison.Snapshot, *uuid.UUID, *uuid.UUID, error) {
	args := m.Called(ctx, tenantID, policyNumber, carrierCode, renewalEffective)
	var snap *comparison.Snapshot
	if args.Get(0) != nil {
		snap = args.Get(0).(*comparison.Snapshot)
	}
	var customerRef, policyRef *uuid.UUID
	if args.Get(1) != nil {
		customerRef = args.Get(1).(*uuid.UUID)
	}
	if args.Get(2) != nil {
		policyRef = args.Get(2).(*uuid.UUID)
	}
	return snap, customerRef, policyRef, args.Error(3)
}

type MockPremiumVerifier struct {
	mock.Mock
}

func (m *MockPremiumVerifier) Verify(ctx context.Context, req verifier.VerificationRequest) (*verifier.Verification, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*verifier.Verification), args.Error(1)
}

// Test fixtures

func pad(s string, width int) string {
	if len(s) >= width {
		return s[:width]
	}
	return s + strings.Repeat(" ", width-len(s))
}

func renewalSegment(policy, premium string) string {
	trg := "2TRG" + pad("RWL", 3) + pad(policy, 25) + pad("HOME", 5) +
		"20260301" + "20270301" + pad("12345", 5) + pad("Acme Mutual", 30)
	bpi := "5BPI" + pad(premium, 12)
	return trg + "\n" + bpi + "\n"
}

type orchestratorFixture struct {
	batchRepo      *MockBatchRepository
	candidateRepo  *MockCandidateRepository
	comparisonRepo *MockComparisonRepository
	logRepo        *MockProcessingLog
	extractor      *MockExtractor
	baseline       *MockBaselineCapturer
	verifier       *MockPremiumVerifier
	service        *Orchestrator
	pool           *CandidatePool
}

func newOrchestratorFixture(t *testing.T, withVerifier bool) *orchestratorFixture {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	pool, err := NewCandidatePool(CandidatePoolConfig{Size: 4}, logger)
	require.NoError(t, err)
	t.Cleanup(pool.Shutdown)

	f := &orchestratorFixture{
		batchRepo:      new(MockBatchRepository),
		candidateRepo:  new(MockCandidateRepository),
		comparisonRepo: new(MockComparisonRepository),
		logRepo:        new(MockProcessingLog),
		extractor:      new(MockExtractor),
		baseline:       new(MockBaselineCapturer),
		pool:           pool,
	}

	var premiumVerifier PremiumVerifier
	if withVerifier {
		f.verifier = new(MockPremiumVerifier)
		premiumVerifier = f.verifier
	}

	thresholds := comparison.Thresholds{
		AbsoluteFloor: decimal.NewFromInt(25),
		PercentFloor:  decimal.NewFromInt(3),
	}
	f.service = NewOrchestrator(
		f.batchRepo, f.candidateRepo, f.comparisonRepo, f.logRepo,
		f.extractor, f.baseline, premiumVerifier, thresholds, pool, logger,
	)
	return f
}

func (f *orchestratorFixture) uploadedBatch() *batch.Batch {
	return &batch.Batch{
		ID:       uuid.New(),
		TenantID: uuid.New(),
		FileName: "renewals.zip",
		Status:   shared.BatchStatusUploaded,
	}
}

func baselineSnapshot(premium int64) *comparison.Snapshot {
	return &comparison.Snapshot{Premium: decimal.NewFromInt(premium)}
}

// Tests

func TestProcessBatch_SuccessfulRun(t *testing.T) {
	f := newOrchestratorFixture(t, false)
	b := f.uploadedBatch()
	job := &shared.BatchJobMessage{BatchID: b.ID, TenantID: b.TenantID, CorrelationID: "corr-1"}
	payload := []byte("zip-bytes")
	customerID := uuid.New()
	policyID := uuid.New()

	f.batchRepo.On("GetByID", mock.Anything, b.ID).Return(b, nil)
	f.batchRepo.On("UpdateStatus", mock.Anything, b.ID, shared.BatchStatusProcessing, "").Return(nil)
	f.batchRepo.On("GetArchive", mock.Anything, b.ID).Return(payload, nil)
	f.extractor.On("Extract", payload).Return([]archive.ExtractedFile{
		{Name: "feed.al3", Content: renewalSegment("POL-100", "1250.00")},
	}, nil)

	f.logRepo.On("Append", mock.Anything, mock.Anything).Return(nil)
	f.candidateRepo.On("Insert", mock.Anything, mock.MatchedBy(func(c *candidate.RenewalCandidate) bool {
		return c.PolicyNumber == "POL-100" && c.BatchID == b.ID && c.TenantID == b.TenantID
	})).Return(true, nil)
	f.baseline.On("Capture", mock.Anything, b.TenantID, "POL-100", "12345", mock.Anything).
		Return(baselineSnapshot(1000), &customerID, &policyID, nil)
	f.candidateRepo.On("SetBaseline", mock.Anything, mock.Anything, mock.Anything, &customerID, &policyID).Return(nil)
	f.candidateRepo.On("UpdateStatus", mock.Anything, mock.Anything, shared.CandidateStatusProcessing, "").Return(nil)
	f.comparisonRepo.On("Create", mock.Anything, mock.MatchedBy(func(r *comparison.Result) bool {
		return r.BatchID == b.ID && r.MaterialChange && !r.NoBaseline
	})).Return(nil)
	f.candidateRepo.On("LinkComparison", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	f.candidateRepo.On("UpdateStatus", mock.Anything, mock.Anything, shared.CandidateStatusCompleted, "").Return(nil)
	f.batchRepo.On("UpdateCounters", mock.Anything, b.ID, mock.MatchedBy(func(c batch.Counters) bool {
		return c.FilesFound == 1 && c.TransactionsFound == 1 && c.RenewalsFound == 1 &&
			c.CandidatesCreated == 1 && c.CandidatesCompleted == 1 && c.CandidatesFailed == 0
	})).Return(nil)
	f.batchRepo.On("UpdateStatus", mock.Anything, b.ID, shared.BatchStatusCompleted, "").Return(nil)

	err := f.service.ProcessBatch(context.Background(), job)

	assert.NoError(t, err)
	f.batchRepo.AssertExpectations(t)
	f.candidateRepo.AssertExpectations(t)
	f.comparisonRepo.AssertExpectations(t)
	f.baseline.AssertExpectations(t)
}

func TestProcessBatch_UnknownBatchIsAcked(t *testing.T) {
	f := newOrchestratorFixture(t, false)
	id := uuid.New()

	f.batchRepo.On("GetByID", mock.Anything, id).Return(nil, batch.ErrBatchNotFound{BatchID: id})

	err := f.service.ProcessBatch(context.Background(), &shared.BatchJobMessage{BatchID: id})

	assert.NoError(t, err)
	f.batchRepo.AssertNotCalled(t, "UpdateStatus", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestProcessBatch_LoadErrorIsRetried(t *testing.T) {
	f := newOrchestratorFixture(t, false)
	id := uuid.New()

	f.batchRepo.On("GetByID", mock.Anything, id).Return(nil, errors.New("connection refused"))

	err := f.service.ProcessBatch(context.Background(), &shared.BatchJobMessage{BatchID: id})

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "failed to load batch")
}

func TestProcessBatch_NonUploadedBatchIsSkipped(t *testing.T) {
	f := newOrchestratorFixture(t, false)
	b := f.uploadedBatch()
	b.Status = shared.BatchStatusCompleted

	f.batchRepo.On("GetByID", mock.Anything, b.ID).Return(b, nil)

	err := f.service.ProcessBatch(context.Background(), &shared.BatchJobMessage{BatchID: b.ID})

	assert.NoError(t, err)
	f.batchRepo.AssertNotCalled(t, "GetArchive", mock.Anything, mock.Anything)
}

func TestProcessBatch_MalformedArchiveFailsBatch(t *testing.T) {
	f := newOrchestratorFixture(t, false)
	b := f.uploadedBatch()
	payload := []byte("not-a-zip")

	f.batchRepo.On("GetByID", mock.Anything, b.ID).Return(b, nil)
	f.batchRepo.On("UpdateStatus", mock.Anything, b.ID, shared.BatchStatusProcessing, "").Return(nil)
	f.batchRepo.On("GetArchive", mock.Anything, b.ID).Return(payload, nil)
	f.extractor.On("Extract", payload).Return(nil, shared.ErrMalformedArchive)
	f.logRepo.On("Append", mock.Anything, mock.Anything).Return(nil)
	f.batchRepo.On("UpdateStatus", mock.Anything, b.ID, shared.BatchStatusFailed, mock.MatchedBy(func(detail string) bool {
		return strings.Contains(detail, "failed to extract archive")
	})).Return(nil)
	f.batchRepo.On("UpdateCounters", mock.Anything, b.ID, mock.Anything).Return(nil)

	err := f.service.ProcessBatch(context.Background(), &shared.BatchJobMessage{BatchID: b.ID})

	assert.NoError(t, err, "a recorded fatal outcome acknowledges the message")
	f.batchRepo.AssertExpectations(t)
	f.candidateRepo.AssertNotCalled(t, "Insert", mock.Anything, mock.Anything)
}

func TestProcessBatch_EmptyArchiveCompletes(t *testing.T) {
	f := newOrchestratorFixture(t, false)
	b := f.uploadedBatch()
	payload := []byte("zip-bytes")

	f.batchRepo.On("GetByID", mock.Anything, b.ID).Return(b, nil)
	f.batchRepo.On("UpdateStatus", mock.Anything, b.ID, shared.BatchStatusProcessing, "").Return(nil)
	f.batchRepo.On("GetArchive", mock.Anything, b.ID).Return(payload, nil)
	f.extractor.On("Extract", payload).Return([]archive.ExtractedFile{}, nil)
	f.logRepo.On("Append", mock.Anything, mock.Anything).Return(nil)
	f.batchRepo.On("UpdateCounters", mock.Anything, b.ID, mock.MatchedBy(func(c batch.Counters) bool {
		return c.CandidatesCreated == 0
	})).Return(nil)
	f.batchRepo.On("UpdateStatus", mock.Anything, b.ID, shared.BatchStatusCompleted, "").Return(nil)

	err := f.service.ProcessBatch(context.Background(), &shared.BatchJobMessage{BatchID: b.ID})

	assert.NoError(t, err)
	f.batchRepo.AssertExpectations(t)
}

func TestProcessBatch_BaselineFailureIsIsolated(t *testing.T) {
	f := newOrchestratorFixture(t, false)
	b := f.uploadedBatch()
	payload := []byte("zip-bytes")
	content := renewalSegment("POL-OK", "900.00") + renewalSegment("POL-BAD", "500.00")

	f.batchRepo.On("GetByID", mock.Anything, b.ID).Return(b, nil)
	f.batchRepo.On("UpdateStatus", mock.Anything, b.ID, shared.BatchStatusProcessing, "").Return(nil)
	f.batchRepo.On("GetArchive", mock.Anything, b.ID).Return(payload, nil)
	f.extractor.On("Extract", payload).Return([]archive.ExtractedFile{
		{Name: "feed.al3", Content: content},
	}, nil)
	f.logRepo.On("Append", mock.Anything, mock.Anything).Return(nil)

	f.candidateRepo.On("Insert", mock.Anything, mock.Anything).Return(true, nil)
	f.baseline.On("Capture", mock.Anything, b.TenantID, "POL-OK", "12345", mock.Anything).
		Return(baselineSnapshot(900), nil, nil, nil)
	f.baseline.On("Capture", mock.Anything, b.TenantID, "POL-BAD", "12345", mock.Anything).
		Return(nil, nil, nil, errors.New("policy store timeout"))

	f.candidateRepo.On("SetBaseline", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)
	f.candidateRepo.On("UpdateStatus", mock.Anything, mock.Anything, shared.CandidateStatusFailed, mock.MatchedBy(func(detail string) bool {
		return strings.Contains(detail, string(shared.FailureKindBaselineLookup))
	})).Return(nil)
	f.candidateRepo.On("UpdateStatus", mock.Anything, mock.Anything, shared.CandidateStatusProcessing, "").Return(nil)
	f.comparisonRepo.On("Create", mock.Anything, mock.Anything).Return(nil)
	f.candidateRepo.On("LinkComparison", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	f.candidateRepo.On("UpdateStatus", mock.Anything, mock.Anything, shared.CandidateStatusCompleted, "").Return(nil)

	f.batchRepo.On("UpdateCounters", mock.Anything, b.ID, mock.MatchedBy(func(c batch.Counters) bool {
		return c.CandidatesCreated == 2 && c.CandidatesCompleted == 1 && c.CandidatesFailed == 1
	})).Return(nil)
	f.batchRepo.On("UpdateStatus", mock.Anything, b.ID, shared.BatchStatusCompleted, "").Return(nil)

	err := f.service.ProcessBatch(context.Background(), &shared.BatchJobMessage{BatchID: b.ID})

	assert.NoError(t, err, "a batch with a failed candidate still completes")
	f.batchRepo.AssertExpectations(t)
	f.baseline.AssertExpectations(t)
}

func TestProcessBatch_DuplicateCandidateIsSkipped(t *testing.T) {
	f := newOrchestratorFixture(t, false)
	b := f.uploadedBatch()
	payload := []byte("zip-bytes")

	f.batchRepo.On("GetByID", mock.Anything, b.ID).Return(b, nil)
	f.batchRepo.On("UpdateStatus", mock.Anything, b.ID, shared.BatchStatusProcessing, "").Return(nil)
	f.batchRepo.On("GetArchive", mock.Anything, b.ID).Return(payload, nil)
	f.extractor.On("Extract", payload).Return([]archive.ExtractedFile{
		{Name: "feed.al3", Content: renewalSegment("POL-100", "1250.00")},
	}, nil)
	f.logRepo.On("Append", mock.Anything, mock.Anything).Return(nil)
	f.candidateRepo.On("Insert", mock.Anything, mock.Anything).Return(false, nil)
	f.batchRepo.On("UpdateCounters", mock.Anything, b.ID, mock.MatchedBy(func(c batch.Counters) bool {
		return c.CandidatesCreated == 0 && c.CandidatesSkipped == 1
	})).Return(nil)
	f.batchRepo.On("UpdateStatus", mock.Anything, b.ID, shared.BatchStatusCompleted, "").Return(nil)

	err := f.service.ProcessBatch(context.Background(), &shared.BatchJobMessage{BatchID: b.ID})

	assert.NoError(t, err)
	f.baseline.AssertNotCalled(t, "Capture", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestProcessBatch_ComparisonFailureFailsCandidate(t *testing.T) {
	f := newOrchestratorFixture(t, false)
	b := f.uploadedBatch()
	payload := []byte("zip-bytes")

	f.batchRepo.On("GetByID", mock.Anything, b.ID).Return(b, nil)
	f.batchRepo.On("UpdateStatus", mock.Anything, b.ID, shared.BatchStatusProcessing, "").Return(nil)
	f.batchRepo.On("GetArchive", mock.Anything, b.ID).Return(payload, nil)
	f.extractor.On("Extract", payload).Return([]archive.ExtractedFile{
		{Name: "feed.al3", Content: renewalSegment("POL-100", "1250.00")},
	}, nil)
	f.logRepo.On("Append", mock.Anything, mock.Anything).Return(nil)
	f.candidateRepo.On("Insert", mock.Anything, mock.Anything).Return(true, nil)
	f.baseline.On("Capture", mock.Anything, b.TenantID, "POL-100", "12345", mock.Anything).
		Return(baselineSnapshot(1000), nil, nil, nil)
	f.candidateRepo.On("SetBaseline", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)
	f.candidateRepo.On("UpdateStatus", mock.Anything, mock.Anything, shared.CandidateStatusProcessing, "").Return(nil)
	f.comparisonRepo.On("Create", mock.Anything, mock.Anything).Return(errors.New("insert failed"))
	f.candidateRepo.On("UpdateStatus", mock.Anything, mock.Anything, shared.CandidateStatusFailed, mock.MatchedBy(func(detail string) bool {
		return strings.Contains(detail, string(shared.FailureKindComparison))
	})).Return(nil)
	f.batchRepo.On("UpdateCounters", mock.Anything, b.ID, mock.MatchedBy(func(c batch.Counters) bool {
		return c.CandidatesFailed == 1 && c.CandidatesCompleted == 0
	})).Return(nil)
	f.batchRepo.On("UpdateStatus", mock.Anything, b.ID, shared.BatchStatusCompleted, "").Return(nil)

	err := f.service.ProcessBatch(context.Background(), &shared.BatchJobMessage{BatchID: b.ID})

	assert.NoError(t, err)
	f.candidateRepo.AssertNotCalled(t, "LinkComparison", mock.Anything, mock.Anything, mock.Anything)
}

func TestProcessBatch_VerifierErrorDoesNotFailCandidate(t *testing.T) {
	f := newOrchestratorFixture(t, true)
	b := f.uploadedBatch()
	payload := []byte("zip-bytes")
	customerID := uuid.New()
	policyID := uuid.New()

	f.batchRepo.On("GetByID", mock.Anything, b.ID).Return(b, nil)
	f.batchRepo.On("UpdateStatus", mock.Anything, b.ID, shared.BatchStatusProcessing, "").Return(nil)
	f.batchRepo.On("GetArchive", mock.Anything, b.ID).Return(payload, nil)
	f.extractor.On("Extract", payload).Return([]archive.ExtractedFile{
		{Name: "feed.al3", Content: renewalSegment("POL-100", "1250.00")},
	}, nil)
	f.logRepo.On("Append", mock.Anything, mock.Anything).Return(nil)
	f.candidateRepo.On("Insert", mock.Anything, mock.Anything).Return(true, nil)
	f.baseline.On("Capture", mock.Anything, b.TenantID, "POL-100", "12345", mock.Anything).
		Return(baselineSnapshot(1000), &customerID, &policyID, nil)
	f.candidateRepo.On("SetBaseline", mock.Anything, mock.Anything, mock.Anything, &customerID, &policyID).Return(nil)
	f.candidateRepo.On("UpdateStatus", mock.Anything, mock.Anything, shared.CandidateStatusProcessing, "").Return(nil)
	f.comparisonRepo.On("Create", mock.Anything, mock.Anything).Return(nil)
	f.candidateRepo.On("LinkComparison", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	f.verifier.On("Verify", mock.Anything, mock.MatchedBy(func(req verifier.VerificationRequest) bool {
		return req.PolicyNumber == "POL-100" && req.CustomerID == customerID
	})).Return(nil, errors.New("rate service unavailable"))
	f.candidateRepo.On("UpdateStatus", mock.Anything, mock.Anything, shared.CandidateStatusCompleted, "").Return(nil)
	f.batchRepo.On("UpdateCounters", mock.Anything, b.ID, mock.MatchedBy(func(c batch.Counters) bool {
		return c.CandidatesCompleted == 1 && c.CandidatesFailed == 0
	})).Return(nil)
	f.batchRepo.On("UpdateStatus", mock.Anything, b.ID, shared.BatchStatusCompleted, "").Return(nil)

	err := f.service.ProcessBatch(context.Background(), &shared.BatchJobMessage{BatchID: b.ID})

	assert.NoError(t, err)
	f.verifier.AssertExpectations(t)
}

func TestProcessBatch_DuplicateRenewalsCollapsed(t *testing.T) {
	f := newOrchestratorFixture(t, false)
	b := f.uploadedBatch()
	payload := []byte("zip-bytes")

	// Same policy, carrier, and term across two files: one candidate.
	f.batchRepo.On("GetByID", mock.Anything, b.ID).Return(b, nil)
	f.batchRepo.On("UpdateStatus", mock.Anything, b.ID, shared.BatchStatusProcessing, "").Return(nil)
	f.batchRepo.On("GetArchive", mock.Anything, b.ID).Return(payload, nil)
	f.extractor.On("Extract", payload).Return([]archive.ExtractedFile{
		{Name: "a.al3", Content: renewalSegment("POL-100", "1200.00")},
		{Name: "b.al3", Content: renewalSegment("POL-100", "1250.00")},
	}, nil)
	f.logRepo.On("Append", mock.Anything, mock.Anything).Return(nil)
	f.candidateRepo.On("Insert", mock.Anything, mock.Anything).Return(true, nil).Once()
	f.baseline.On("Capture", mock.Anything, b.TenantID, "POL-100", "12345", mock.Anything).
		Return(baselineSnapshot(1000), nil, nil, nil).Once()
	f.candidateRepo.On("SetBaseline", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)
	f.candidateRepo.On("UpdateStatus", mock.Anything, mock.Anything, shared.CandidateStatusProcessing, "").Return(nil)
	f.comparisonRepo.On("Create", mock.Anything, mock.MatchedBy(func(r *comparison.Result) bool {
		// Latest occurrence wins: the 1250.00 premium is compared.
		return r.PremiumNew.Equal(decimal.RequireFromString("1250.00"))
	})).Return(nil)
	f.candidateRepo.On("LinkComparison", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	f.candidateRepo.On("UpdateStatus", mock.Anything, mock.Anything, shared.CandidateStatusCompleted, "").Return(nil)
	f.batchRepo.On("UpdateCounters", mock.Anything, b.ID, mock.MatchedBy(func(c batch.Counters) bool {
		return c.TransactionsFound == 2 && c.RenewalsFound == 2 &&
			c.DuplicatesRemoved == 1 && c.CandidatesCreated == 1
	})).Return(nil)
	f.batchRepo.On("UpdateStatus", mock.Anything, b.ID, shared.BatchStatusCompleted, "").Return(nil)

	err := f.service.ProcessBatch(context.Background(), &shared.BatchJobMessage{BatchID: b.ID})

	assert.NoError(t, err)
	f.batchRepo.AssertExpectations(t)
	f.comparisonRepo.AssertExpectations(t)
}
