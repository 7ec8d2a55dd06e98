package usecase

import (
	"context"
	"fmt"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/pricelens/backend/internal/domain"
)

// Matching thresholds. At or above the auto threshold a pairing is trusted
// without review; between the two it waits for a human; below the review
// threshold no match is recorded at all.
const (
	defaultAutoThreshold   = 0.85
	defaultReviewThreshold = 0.40
	defaultMatchWorkers    = 4
)

// MatchConfig holds configuration for the matching service
type MatchConfig struct {
	AutoThreshold      float64
	ReviewThreshold    float64
	Workers            int
	EnableDebugLogging bool
}

// MatcherService pairs catalog products with competitor listings by canonical
// title similarity.
type MatcherService struct {
	catalog  domain.CatalogRepository
	matches  domain.MatchRepository
	listings domain.ListingRepository

	autoThreshold      float64
	reviewThreshold    float64
	workers            int
	enableDebugLogging bool
}

// NewMatcherService creates a new matcher service with the given configuration
func NewMatcherService(
	catalog domain.CatalogRepository,
	matches domain.MatchRepository,
	listings domain.ListingRepository,
	config MatchConfig,
) *MatcherService {
	auto := config.AutoThreshold
	if auto <= 0 {
		auto = defaultAutoThreshold
	}
	review := config.ReviewThreshold
	if review <= 0 {
		review = defaultReviewThreshold
	}
	workers := config.Workers
	if workers <= 0 {
		workers = defaultMatchWorkers
	}

	return &MatcherService{
		catalog:            catalog,
		matches:            matches,
		listings:           listings,
		autoThreshold:      auto,
		reviewThreshold:    review,
		workers:            workers,
		enableDebugLogging: config.EnableDebugLogging,
	}
}

// MatchRunResult is the outcome of one matcher pass.
type MatchRunResult struct {
	Matches []domain.Match     `json:"matches"`
	Report  domain.MatchReport `json:"report"`
}

// RunForStore snapshots the current catalog and existing matches, matches the
// given listings feed against them, and persists the result. Terminal matches
// are left exactly as the reviewer set them. The caller is responsible for
// serializing runs per store.
func (s *MatcherService) RunForStore(ctx context.Context, storeID string, feed []domain.RawListing) (*MatchRunResult, error) {
	products, err := s.catalog.ListProducts(ctx)
	if err != nil {
		return nil, fmt.Errorf("load catalog: %w", err)
	}

	existing, err := s.matches.ListMatches(ctx, storeID)
	if err != nil {
		return nil, fmt.Errorf("load matches: %w", err)
	}

	result, err := s.Match(ctx, storeID, products, feed, existing)
	if err != nil {
		return nil, err
	}

	if err := s.listings.SaveListings(ctx, storeID, feed); err != nil {
		return nil, fmt.Errorf("save listings: %w", err)
	}
	if err := s.matches.UpsertMatches(ctx, result.Matches); err != nil {
		return nil, fmt.Errorf("save matches: %w", err)
	}

	return result, nil
}

// ListForStore returns the store's persisted matches.
func (s *MatcherService) ListForStore(ctx context.Context, storeID string) ([]domain.Match, error) {
	return s.matches.ListMatches(ctx, storeID)
}

// Match computes matches for a listings feed against a catalog snapshot.
// Deterministic given identical inputs and existing terminal matches: ties go
// to the lowest product ID and the output is sorted by product ID then
// listing ref, regardless of worker scheduling.
//
// Existing CONFIRMED/REJECTED matches are never touched. An existing
// AUTO_MATCHED/PENDING match gets its confidence refreshed but keeps its
// status and identity.
func (s *MatcherService) Match(
	ctx context.Context,
	storeID string,
	products []domain.Product,
	feed []domain.RawListing,
	existing []domain.Match,
) (*MatchRunResult, error) {
	result := &MatchRunResult{Report: domain.MatchReport{Listings: len(feed)}}
	if len(feed) == 0 {
		return result, nil
	}

	canon := make([]string, len(products))
	for i, p := range products {
		canon[i] = Normalize(p.Name)
	}

	existingByRef := make(map[domain.ListingRef]*domain.Match, len(existing))
	for i := range existing {
		existingByRef[existing[i].Listing] = &existing[i]
	}

	now := time.Now().UTC()

	// Fan out per listing; slots[i] keeps results in feed order so the
	// outcome does not depend on scheduling.
	slots := make([]*domain.Match, len(feed))
	preserved := make([]bool, len(feed))

	var (
		wg     sync.WaitGroup
		mu     sync.Mutex
		runErr error
	)
	jobs := make(chan int)

	for w := 0; w < s.workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				if err := ctx.Err(); err != nil {
					mu.Lock()
					if runErr == nil {
						runErr = err
					}
					mu.Unlock()
					continue
				}
				slots[i], preserved[i] = s.matchListing(storeID, feed[i], products, canon, existingByRef, now)
			}
		}()
	}
	for i := range feed {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	if runErr != nil {
		return nil, runErr
	}

	for i, m := range slots {
		if preserved[i] {
			result.Report.TerminalPreserved++
			continue
		}
		if m == nil {
			result.Report.Unmatched++
			continue
		}
		if m.CreatedAt.Equal(now) {
			result.Report.Created++
		} else {
			result.Report.Updated++
		}
		result.Matches = append(result.Matches, *m)
	}

	sort.Slice(result.Matches, func(i, j int) bool {
		a, b := result.Matches[i], result.Matches[j]
		if a.ProductID != b.ProductID {
			return a.ProductID < b.ProductID
		}
		return a.Listing.CompetitorID < b.Listing.CompetitorID
	})

	return result, nil
}

// matchListing picks the best product for one listing. The second return is
// true when an existing terminal match makes the listing off-limits.
func (s *MatcherService) matchListing(
	storeID string,
	listing domain.RawListing,
	products []domain.Product,
	canon []string,
	existingByRef map[domain.ListingRef]*domain.Match,
	now time.Time,
) (*domain.Match, bool) {
	ref := domain.ListingRef{StoreID: storeID, CompetitorID: listing.URL}

	prior := existingByRef[ref]
	if prior != nil && prior.IsTerminal() {
		return nil, true
	}

	listingCanon := Normalize(listing.Name)

	bestIdx := -1
	bestSim := 0.0
	for i := range products {
		sim := similarity(canon[i], listingCanon)
		if sim > bestSim || (sim == bestSim && sim > 0 && bestIdx >= 0 && products[i].ID < products[bestIdx].ID) {
			bestIdx = i
			bestSim = sim
		}
	}

	if s.enableDebugLogging && bestIdx >= 0 {
		log.Printf("[MATCH] listing %q -> product %q (similarity %.3f)", listing.Name, products[bestIdx].Name, bestSim)
	}

	if bestIdx < 0 || bestSim < s.reviewThreshold {
		return nil, false
	}

	if prior != nil {
		updated := *prior
		updated.ProductID = products[bestIdx].ID
		updated.Confidence = bestSim
		updated.UpdatedAt = now
		return &updated, false
	}

	status := domain.MatchPending
	if bestSim >= s.autoThreshold {
		status = domain.MatchAutoMatched
	}
	return &domain.Match{
		ID:         uuid.NewString(),
		ProductID:  products[bestIdx].ID,
		Listing:    ref,
		Confidence: bestSim,
		Status:     status,
		CreatedAt:  now,
		UpdatedAt:  now,
	}, false
}

// similarity scores two canonical titles in [0,1]. Identical canonical forms
// score exactly 1.0; otherwise it is token-set Jaccard overlap. Empty titles
// carry no signal and score 0 against everything.
func similarity(a, b string) float64 {
	if a == "" || b == "" {
		return 0
	}
	if a == b {
		return 1
	}

	ta := tokenSet(a)
	tb := tokenSet(b)

	intersection := 0
	for tok := range ta {
		if tb[tok] {
			intersection++
		}
	}
	union := len(ta) + len(tb) - intersection
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}
