package intake

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/casefront/engage/internal/domain"
)

// SimilarityMatch is one nearest-neighbour hit from the conflict list.
type SimilarityMatch struct {
	EntryID    string
	Name       string
	Kind       string
	Similarity float64
}

// SimilaritySearcher is the embedding-search port the detector runs on.
// Implemented by the chromem-backed conflict list store.
type SimilaritySearcher interface {
	Search(ctx context.Context, firmID uuid.UUID, fragment string, topK int) ([]SimilarityMatch, error)
}

// ConflictResult is the outcome of one conflict check.
type ConflictResult struct {
	Status     domain.ConflictStatus
	Confidence float64
	Matched    []SimilarityMatch
	CheckedAt  time.Time
}

// ConflictDetector decides whether known identity fragments match entries
// on the firm's conflict list. Names and organizations are typed
// inconsistently by users, so matching is by embedding similarity rather
// than exact string compare.
type ConflictDetector struct {
	searcher SimilaritySearcher

	// A top score >= detectThreshold yields conflict_detected; a score in
	// [pendingFloor, detectThreshold) yields pending; below is clear.
	detectThreshold float64
	pendingFloor    float64
	topK            int
}

const (
	defaultDetectThreshold = 0.75
	defaultPendingFloor    = 0.55
	defaultTopK            = 5
)

// NewConflictDetector creates a detector. Thresholds outside (0,1] and a
// non-positive topK fall back to the defaults.
func NewConflictDetector(searcher SimilaritySearcher, detectThreshold, pendingFloor float64, topK int) *ConflictDetector {
	if detectThreshold <= 0 || detectThreshold > 1 {
		detectThreshold = defaultDetectThreshold
	}
	if pendingFloor <= 0 || pendingFloor >= detectThreshold {
		pendingFloor = defaultPendingFloor
	}
	if topK < 1 {
		topK = defaultTopK
	}

	return &ConflictDetector{
		searcher:        searcher,
		detectThreshold: detectThreshold,
		pendingFloor:    pendingFloor,
		topK:            topK,
	}
}

// Check runs every identity fragment through the similarity search and
// aggregates to a single status. With no fragments the result is pending:
// nothing is known yet, so nothing can be cleared.
//
// Fail-safe: if the search backend is unavailable the result is pending,
// never clear. The caller logs the degraded condition and re-checks on the
// next identity update.
func (d *ConflictDetector) Check(ctx context.Context, firmID uuid.UUID, fragments []string) ConflictResult {
	now := time.Now()

	if len(fragments) == 0 {
		return ConflictResult{Status: domain.ConflictStatusPending, CheckedAt: now}
	}

	var (
		top      float64
		matched  []SimilarityMatch
		degraded bool
	)

	for _, frag := range fragments {
		matches, err := d.searcher.Search(ctx, firmID, frag, d.topK)
		if err != nil {
			log.Warn().Err(err).
				Str("firm_id", firmID.String()).
				Msg("intake.ConflictDetector.Check: similarity search unavailable, degrading to pending")
			degraded = true
			continue
		}

		for _, m := range matches {
			if m.Similarity >= d.pendingFloor {
				matched = append(matched, m)
			}
			if m.Similarity > top {
				top = m.Similarity
			}
		}
	}

	result := ConflictResult{Confidence: top, Matched: matched, CheckedAt: now}

	switch {
	case top >= d.detectThreshold:
		result.Status = domain.ConflictStatusDetected
	case degraded || top >= d.pendingFloor:
		result.Status = domain.ConflictStatusPending
	default:
		result.Status = domain.ConflictStatusClear
	}

	return result
}

// CheckIdentity is a convenience wrapper over Check for a full identity.
func (d *ConflictDetector) CheckIdentity(ctx context.Context, firmID uuid.UUID, identity *domain.ClientIdentity) (ConflictResult, error) {
	if identity == nil {
		return ConflictResult{}, fmt.Errorf("intake.ConflictDetector.CheckIdentity: nil identity")
	}
	return d.Check(ctx, firmID, identity.Fragments()), nil
}
