package shared

// BatchStatus defines batch processing states
type BatchStatus string

const (
	BatchStatusUploaded   BatchStatus = "UPLOADED"
	BatchStatusProcessing BatchStatus = "PROCESSING"
	BatchStatusCompleted  BatchStatus = "COMPLETED"
	BatchStatusFailed     BatchStatus = "FAILED"
)

// Terminal reports whether a batch status admits no further transitions
// other than an explicit reprocess.
func (s BatchStatus) Terminal() bool {
	return s == BatchStatusCompleted || s == BatchStatusFailed
}

// CandidateStatus defines renewal-candidate lifecycle states
type CandidateStatus string

const (
	CandidateStatusPending    CandidateStatus = "PENDING"
	CandidateStatusProcessing CandidateStatus = "PROCESSING"
	CandidateStatusCompleted  CandidateStatus = "COMPLETED"
	CandidateStatusFailed     CandidateStatus = "FAILED"
	CandidateStatusSkipped    CandidateStatus = "SKIPPED"
)

// Terminal reports whether a candidate has finished processing.
func (s CandidateStatus) Terminal() bool {
	return s == CandidateStatusCompleted || s == CandidateStatusFailed || s == CandidateStatusSkipped
}

// OutboxStatus defines job publishing states
type OutboxStatus string

const (
	OutboxStatusPending         OutboxStatus = "PENDING"
	OutboxStatusProcessed       OutboxStatus = "PROCESSED"
	OutboxStatusFailedToPublish OutboxStatus = "FAILED_TO_PUBLISH"
)

// FailureKind classifies candidate-level processing failures. Failures are
// isolated to the smallest unit possible: segment < transaction < candidate
// < batch, and only batch-fatal errors halt the whole pipeline.
type FailureKind string

const (
	FailureKindBaselineLookup FailureKind = "BASELINE_LOOKUP_FAILED"
	FailureKindSnapshotBuild  FailureKind = "SNAPSHOT_BUILD_FAILED"
	FailureKindComparison     FailureKind = "COMPARISON_FAILED"
	FailureKindPersistence    FailureKind = "PERSISTENCE_FAILED"
	FailureKindUnknown        FailureKind = "UNKNOWN_ERROR"
)
