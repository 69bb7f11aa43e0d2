package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/al3-renewal-pipeline/internal/archive"
	"github.com/al3-renewal-pipeline/internal/domain/comparison"
	"github.com/al3-renewal-pipeline/internal/domain/shared"
	"github.com/al3-renewal-pipeline/internal/verifier"
)

// BatchProcessingService drives one batch job from uploaded to a terminal
// status.
type BatchProcessingService interface {
	ProcessBatch(ctx context.Context, job *shared.BatchJobMessage) error
}

// ArchiveExtractor unpacks an uploaded ZIP payload into data files
type ArchiveExtractor interface {
	Extract(payload []byte) ([]archive.ExtractedFile, error)
}

// BaselineCapturer reconstructs the expiring-term snapshot from the system
// of record. A nil snapshot with a nil error means no prior term exists.
// The returned refs identify the matched customer and policy for
// traceability and later verification.
type BaselineCapturer interface {
	Capture(ctx context.Context, tenantID uuid.UUID, policyNumber, carrierCode string, renewalEffective time.Time) (*comparison.Snapshot, *uuid.UUID, *uuid.UUID, error)
}

// PremiumVerifier cross-checks a renewal premium against the external
// rate-history source. (nil, nil) means the source cannot speak to the term.
type PremiumVerifier interface {
	Verify(ctx context.Context, req verifier.VerificationRequest) (*verifier.Verification, error)
}
