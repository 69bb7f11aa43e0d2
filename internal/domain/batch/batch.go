package batch

import (
	"errors"
	"time"

	"github.com/al3-renewal-pipeline/internal/domain/shared"
	"github.com/google/uuid"
)

// Common errors
var (
	ErrEmptyFileName = errors.New("file name cannot be empty")
	ErrEmptyArchive  = errors.New("archive content cannot be empty")
	ErrNotTerminal   = errors.New("batch is not in a terminal status")
)

// Counters holds the aggregate progress counters for one batch. All counts
// are reset to zero when the batch is reprocessed.
type Counters struct {
	FilesFound          int `json:"files_found"`
	TransactionsFound   int `json:"transactions_found"`
	RenewalsFound       int `json:"renewals_found"`
	DuplicatesRemoved   int `json:"duplicates_removed"`
	CandidatesCreated   int `json:"candidates_created"`
	CandidatesCompleted int `json:"candidates_completed"`
	CandidatesFailed    int `json:"candidates_failed"`
	CandidatesSkipped   int `json:"candidates_skipped"`
}

// Batch is the unit of upload: one ZIP archive of AL3 files belonging to one
// tenant. The raw archive is retained so reprocessing restarts from the
// original payload.
type Batch struct {
	ID          uuid.UUID          `json:"id"`
	TenantID    uuid.UUID          `json:"tenant_id"`
	FileName    string             `json:"file_name"`
	FileSize    int64              `json:"file_size"`
	Archive     []byte             `json:"-"`
	Status      shared.BatchStatus `json:"status"`
	Counters    Counters           `json:"counters"`
	ErrorDetail string             `json:"error_detail,omitempty"`
	CreatedAt   time.Time          `json:"created_at"`
	StartedAt   *time.Time         `json:"started_at,omitempty"`
	FinishedAt  *time.Time         `json:"finished_at,omitempty"`
}

// NewBatch creates an uploaded batch for the given tenant and archive
func NewBatch(tenantID uuid.UUID, fileName string, archive []byte) (*Batch, error) {
	if fileName == "" {
		return nil, ErrEmptyFileName
	}
	if len(archive) == 0 {
		return nil, ErrEmptyArchive
	}

	return &Batch{
		ID:        uuid.New(),
		TenantID:  tenantID,
		FileName:  fileName,
		FileSize:  int64(len(archive)),
		Archive:   archive,
		Status:    shared.BatchStatusUploaded,
		CreatedAt: time.Now(),
	}, nil
}

// MarkProcessing transitions the batch into the processing state
func (b *Batch) MarkProcessing() {
	now := time.Now()
	b.Status = shared.BatchStatusProcessing
	b.StartedAt = &now
	b.FinishedAt = nil
	b.ErrorDetail = ""
}

// MarkCompleted transitions the batch into its terminal completed state.
// Candidate-level failures do not prevent completion; they are recorded on
// the candidates and surfaced through the counters.
func (b *Batch) MarkCompleted() {
	now := time.Now()
	b.Status = shared.BatchStatusCompleted
	b.FinishedAt = &now
}

// MarkFailed records a batch-fatal failure, reserved for errors occurring
// before any candidate exists (extraction or queuing failure).
func (b *Batch) MarkFailed(detail string) {
	now := time.Now()
	b.Status = shared.BatchStatusFailed
	b.ErrorDetail = detail
	b.FinishedAt = &now
}

// ResetForReprocess returns the batch to the uploaded state with zeroed
// counters. Callers must separately delete candidates and undecided
// comparisons; the original archive is retained for the restart.
func (b *Batch) ResetForReprocess() error {
	if !b.Status.Terminal() {
		return ErrNotTerminal
	}
	b.Status = shared.BatchStatusUploaded
	b.Counters = Counters{}
	b.ErrorDetail = ""
	b.StartedAt = nil
	b.FinishedAt = nil
	return nil
}
