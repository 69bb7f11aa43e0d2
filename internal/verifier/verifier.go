// Package verifier cross-checks a renewal's premium against an external
// rate-history service. Verification is advisory: an unreachable or
// unaware service never blocks a batch.
package verifier

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/al3-renewal-pipeline/internal/config"
)

// Outcome classifies a completed verification.
type Outcome string

const (
	OutcomeMatch    Outcome = "MATCH"
	OutcomeMismatch Outcome = "MISMATCH"
)

// VerificationRequest identifies the policy term to look up and the premium
// the AL3 feed reported for it.
type VerificationRequest struct {
	PolicyNumber  string
	CustomerID    uuid.UUID
	EffectiveDate time.Time
	FeedPremium   decimal.Decimal
}

// Verification is the answer for a term the rate-history service knows.
type Verification struct {
	Outcome         Outcome         `json:"outcome"`
	RecordedPremium decimal.Decimal `json:"recorded_premium"`
	FeedPremium     decimal.Decimal `json:"feed_premium"`
	Delta           decimal.Decimal `json:"delta"`
}

// rateChangeResponse is the service's wire format for one recorded rate
// change on a policy term.
type rateChangeResponse struct {
	PolicyNumber  string          `json:"policy_number"`
	EffectiveDate string          `json:"effective_date"`
	NewPremium    decimal.Decimal `json:"new_premium"`
}

// Verifier queries the rate-history HTTP API.
type Verifier struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

func NewVerifier(cfg *config.VerifierConfig) *Verifier {
	return &Verifier{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		client:  &http.Client{Timeout: cfg.Timeout},
	}
}

// Verify looks up the recorded premium for the given term. A 404 or an
// empty history means the service cannot speak to this term; both return
// (nil, nil) so the caller records the candidate as unverifiable rather
// than failed. Transport errors, auth failures, and 5xx responses are
// returned as errors for the caller to log and move past.
func (v *Verifier) Verify(ctx context.Context, req VerificationRequest) (*Verification, error) {
	query := url.Values{}
	query.Set("policy_number", req.PolicyNumber)
	query.Set("customer_id", req.CustomerID.String())
	query.Set("effective_date", req.EffectiveDate.Format("2006-01-02"))

	endpoint := v.baseURL + "/v1/rate-changes?" + query.Encode()
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build rate-history request: %w", err)
	}
	httpReq.Header.Set("Accept", "application/json")
	if v.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+v.apiKey)
	}

	resp, err := v.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("rate-history request failed: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, nil
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("rate-history service returned status %d", resp.StatusCode)
	}

	var changes []rateChangeResponse
	if err := json.NewDecoder(resp.Body).Decode(&changes); err != nil {
		return nil, fmt.Errorf("failed to decode rate-history response: %w", err)
	}
	if len(changes) == 0 {
		return nil, nil
	}

	// The history may cover more terms than the one requested, so match on
	// effective date rather than trusting list order. No entry for the
	// requested term means unverifiable, not a mismatch.
	term, ok := findTerm(changes, req.EffectiveDate)
	if !ok {
		return nil, nil
	}

	recorded := term.NewPremium
	result := &Verification{
		Outcome:         OutcomeMatch,
		RecordedPremium: recorded,
		FeedPremium:     req.FeedPremium,
		Delta:           req.FeedPremium.Sub(recorded),
	}
	if !result.Delta.IsZero() {
		result.Outcome = OutcomeMismatch
	}
	return result, nil
}

func findTerm(changes []rateChangeResponse, effective time.Time) (rateChangeResponse, bool) {
	wanted := effective.Format("2006-01-02")
	for _, change := range changes {
		if change.EffectiveDate == wanted {
			return change, true
		}
	}
	return rateChangeResponse{}, false
}
