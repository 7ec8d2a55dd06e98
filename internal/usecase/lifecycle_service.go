package usecase

import (
	"context"
	"fmt"
	"log"

	"github.com/pricelens/backend/internal/domain"
)

// LifecycleService governs every status change on matches and recommendations.
// CONFIRMED/REJECTED and APPLIED/DISMISSED are terminal: normal actions on a
// terminal record fail with InvalidTransitionError, and only the explicit,
// audit-logged reset operations move a record out of a terminal state.
type LifecycleService struct {
	matches domain.MatchRepository
	recs    domain.RecommendationRepository
	catalog domain.PriceUpdater
}

// NewLifecycleService creates a new lifecycle service with dependencies
func NewLifecycleService(
	matches domain.MatchRepository,
	recs domain.RecommendationRepository,
	catalog domain.PriceUpdater,
) *LifecycleService {
	return &LifecycleService{
		matches: matches,
		recs:    recs,
		catalog: catalog,
	}
}

// ConfirmMatch marks a reviewed pairing as correct.
func (s *LifecycleService) ConfirmMatch(ctx context.Context, id string) (*domain.Match, error) {
	return s.transitionMatch(ctx, id, "confirm", domain.MatchConfirmed,
		domain.MatchAutoMatched, domain.MatchPending)
}

// RejectMatch marks a reviewed pairing as wrong; its listing no longer
// contributes to pricing.
func (s *LifecycleService) RejectMatch(ctx context.Context, id string) (*domain.Match, error) {
	return s.transitionMatch(ctx, id, "reject", domain.MatchRejected,
		domain.MatchAutoMatched, domain.MatchPending)
}

// ResetMatch returns a terminal match to PENDING. This is a distinct,
// audited action, not a normal transition.
func (s *LifecycleService) ResetMatch(ctx context.Context, id string) (*domain.Match, error) {
	m, err := s.transitionMatch(ctx, id, "reset", domain.MatchPending,
		domain.MatchConfirmed, domain.MatchRejected)
	if err != nil {
		return nil, err
	}
	log.Printf("[LIFECYCLE] audit: match %s reset to PENDING", id)
	return m, nil
}

func (s *LifecycleService) transitionMatch(
	ctx context.Context,
	id, action string,
	to domain.MatchStatus,
	allowedFrom ...domain.MatchStatus,
) (*domain.Match, error) {
	m, err := s.matches.GetMatch(ctx, id)
	if err != nil {
		return nil, err
	}

	if !statusAllowed(m.Status, allowedFrom) {
		return nil, &domain.InvalidTransitionError{
			Entity: "match", ID: id, Action: action, From: string(m.Status),
		}
	}

	// The repository re-checks the status so a concurrent run cannot slip a
	// lost update past us.
	if err := s.matches.SetMatchStatus(ctx, id, to, allowedFrom...); err != nil {
		return nil, err
	}

	m.Status = to
	return m, nil
}

// ApplyRecommendation emits the price-update request to the catalog
// collaborator and, only once that succeeds, marks the recommendation
// APPLIED. A failed price update is surfaced to the caller and leaves the
// recommendation PENDING.
func (s *LifecycleService) ApplyRecommendation(ctx context.Context, id string) (*domain.ProductRecommendation, error) {
	r, err := s.recs.GetRecommendation(ctx, id)
	if err != nil {
		return nil, err
	}

	if r.IsTerminal() {
		return nil, &domain.InvalidTransitionError{
			Entity: "recommendation", ID: id, Action: "apply", From: string(r.Status),
		}
	}

	if err := s.catalog.UpdatePrice(ctx, r.ProductID, r.RecommendedPrice); err != nil {
		return nil, fmt.Errorf("apply price update for product %s: %w", r.ProductID, err)
	}

	if err := s.recs.SetRecommendationStatus(ctx, id, domain.RecommendationApplied, domain.RecommendationPending); err != nil {
		return nil, err
	}

	log.Printf("[LIFECYCLE] recommendation %s applied: product %s -> %.2f", id, r.ProductID, r.RecommendedPrice)
	r.Status = domain.RecommendationApplied
	return r, nil
}

// DismissRecommendation marks a recommendation as rejected by the merchant.
func (s *LifecycleService) DismissRecommendation(ctx context.Context, id string) (*domain.ProductRecommendation, error) {
	r, err := s.recs.GetRecommendation(ctx, id)
	if err != nil {
		return nil, err
	}

	if r.IsTerminal() {
		return nil, &domain.InvalidTransitionError{
			Entity: "recommendation", ID: id, Action: "dismiss", From: string(r.Status),
		}
	}

	if err := s.recs.SetRecommendationStatus(ctx, id, domain.RecommendationDismissed, domain.RecommendationPending); err != nil {
		return nil, err
	}

	r.Status = domain.RecommendationDismissed
	return r, nil
}

// ResetRecommendation returns a terminal recommendation to PENDING. Audited,
// like ResetMatch.
func (s *LifecycleService) ResetRecommendation(ctx context.Context, id string) (*domain.ProductRecommendation, error) {
	r, err := s.recs.GetRecommendation(ctx, id)
	if err != nil {
		return nil, err
	}

	if !r.IsTerminal() {
		return nil, &domain.InvalidTransitionError{
			Entity: "recommendation", ID: id, Action: "reset", From: string(r.Status),
		}
	}

	if err := s.recs.SetRecommendationStatus(ctx, id, domain.RecommendationPending,
		domain.RecommendationApplied, domain.RecommendationDismissed); err != nil {
		return nil, err
	}

	log.Printf("[LIFECYCLE] audit: recommendation %s reset to PENDING", id)
	r.Status = domain.RecommendationPending
	return r, nil
}

func statusAllowed(current domain.MatchStatus, allowed []domain.MatchStatus) bool {
	for _, s := range allowed {
		if current == s {
			return true
		}
	}
	return false
}
