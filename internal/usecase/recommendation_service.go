package usecase

import (
	"context"
	"fmt"
	"log"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/pricelens/backend/internal/domain"
)

const (
	defaultMinMarginFraction = 0.15
	defaultPricingWorkers    = 4
)

// PricingConfig holds configuration for the recommendation engine
type PricingConfig struct {
	// MinMarginFraction is the minimum margin the recommended price must
	// preserve over cost, even when competitors undercut it.
	MinMarginFraction  float64
	Workers            int
	EnableDebugLogging bool
}

// RecommendationService aggregates matched competitor prices per product into
// priced recommendations with direction and explanation.
type RecommendationService struct {
	catalog  domain.CatalogRepository
	matches  domain.MatchRepository
	listings domain.ListingRepository
	recs     domain.RecommendationRepository

	minMarginFraction  float64
	workers            int
	enableDebugLogging bool
}

// NewRecommendationService creates a new recommendation service with dependencies
func NewRecommendationService(
	catalog domain.CatalogRepository,
	matches domain.MatchRepository,
	listings domain.ListingRepository,
	recs domain.RecommendationRepository,
	config PricingConfig,
) *RecommendationService {
	minMargin := config.MinMarginFraction
	if minMargin <= 0 || minMargin >= 1 {
		minMargin = defaultMinMarginFraction
	}
	workers := config.Workers
	if workers <= 0 {
		workers = defaultPricingWorkers
	}

	return &RecommendationService{
		catalog:            catalog,
		matches:            matches,
		listings:           listings,
		recs:               recs,
		minMarginFraction:  minMargin,
		workers:            workers,
		enableDebugLogging: config.EnableDebugLogging,
	}
}

// AggregationResult is the outcome of one recommendation run.
type AggregationResult struct {
	Recommendations []domain.ProductRecommendation `json:"recommendations"`
	Report          domain.AggregationReport       `json:"report"`
}

// RunForStore snapshots the catalog, current matches, and the latest listings
// feed, computes recommendations, and persists them. Previous recommendations
// supply last-seen competitor prices for slot deltas before being replaced.
func (s *RecommendationService) RunForStore(ctx context.Context, storeID string) (*AggregationResult, error) {
	products, err := s.catalog.ListProducts(ctx)
	if err != nil {
		return nil, fmt.Errorf("load catalog: %w", err)
	}
	matches, err := s.matches.ListMatches(ctx, storeID)
	if err != nil {
		return nil, fmt.Errorf("load matches: %w", err)
	}
	feed, err := s.listings.ListListings(ctx, storeID)
	if err != nil {
		return nil, fmt.Errorf("load listings: %w", err)
	}
	previous, err := s.recs.ListRecommendations(ctx, storeID)
	if err != nil {
		return nil, fmt.Errorf("load previous recommendations: %w", err)
	}

	result, err := s.Compute(ctx, storeID, products, matches, feed, lastSlotPrices(previous))
	if err != nil {
		return nil, err
	}

	if err := s.recs.SaveRecommendations(ctx, storeID, result.Recommendations); err != nil {
		return nil, fmt.Errorf("save recommendations: %w", err)
	}
	return result, nil
}

// ListForStore returns the store's persisted recommendations.
func (s *RecommendationService) ListForStore(ctx context.Context, storeID string) ([]domain.ProductRecommendation, error) {
	return s.recs.ListRecommendations(ctx, storeID)
}

// Compute builds at most one recommendation per product, from the product's
// usable competitor prices (AUTO_MATCHED or CONFIRMED matches only). Products
// with no usable price are omitted, not failed; a pathological product
// degrades to "no recommendation" without aborting the run. Output is sorted
// by product ID so the ordering is deterministic regardless of worker
// scheduling.
func (s *RecommendationService) Compute(
	ctx context.Context,
	storeID string,
	products []domain.Product,
	matches []domain.Match,
	feed []domain.RawListing,
	prevPrices map[string]map[string]float64,
) (*AggregationResult, error) {
	result := &AggregationResult{Report: domain.AggregationReport{Products: len(products)}}
	if len(products) == 0 {
		return result, nil
	}

	listingByID := make(map[string]domain.RawListing, len(feed))
	for _, l := range feed {
		listingByID[l.URL] = l
	}

	// Usable matches per product in stable match-creation order, so slot
	// labels stay put between runs.
	usable := make(map[string][]domain.Match)
	for _, m := range matches {
		if m.Status != domain.MatchAutoMatched && m.Status != domain.MatchConfirmed {
			continue
		}
		usable[m.ProductID] = append(usable[m.ProductID], m)
	}
	for id := range usable {
		ms := usable[id]
		sort.Slice(ms, func(i, j int) bool {
			if !ms[i].CreatedAt.Equal(ms[j].CreatedAt) {
				return ms[i].CreatedAt.Before(ms[j].CreatedAt)
			}
			return ms[i].ID < ms[j].ID
		})
	}

	now := time.Now().UTC()

	type outcome struct {
		rec             *domain.ProductRecommendation
		currencySkipped int
		invalid         bool
	}
	outcomes := make([]outcome, len(products))

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
				p := products[i]
				rec, skipped, invalid := s.recommend(storeID, p, usable[p.ID], listingByID, prevPrices[p.ID], now)
				outcomes[i] = outcome{rec: rec, currencySkipped: skipped, invalid: invalid}
			}
		}()
	}
	for i := range products {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	if runErr != nil {
		return nil, runErr
	}

	for _, o := range outcomes {
		result.Report.CurrencySkipped += o.currencySkipped
		switch {
		case o.invalid:
			result.Report.InvalidProducts++
		case o.rec == nil:
			result.Report.NoCompetitors++
		default:
			result.Recommendations = append(result.Recommendations, *o.rec)
		}
	}
	result.Report.Emitted = len(result.Recommendations)

	sort.Slice(result.Recommendations, func(i, j int) bool {
		return result.Recommendations[i].ProductID < result.Recommendations[j].ProductID
	})

	return result, nil
}

// recommend prices one product against its usable competitor listings.
// Returns a nil recommendation when no usable price exists.
func (s *RecommendationService) recommend(
	storeID string,
	product domain.Product,
	matches []domain.Match,
	listingByID map[string]domain.RawListing,
	prevPrices map[string]float64,
	now time.Time,
) (rec *domain.ProductRecommendation, currencySkipped int, invalid bool) {
	if product.CurrentPrice <= 0 {
		return nil, 0, true
	}

	var (
		slots []domain.CompetitorSlot
		sum   float64
	)
	for _, m := range matches {
		listing, ok := listingByID[m.Listing.CompetitorID]
		if !ok {
			continue
		}
		if listing.Price <= 0 {
			continue
		}
		// Mixed currencies are never averaged; FX normalization is out of
		// scope, so a listing in another currency just doesn't count.
		if product.Currency != "" && listing.Currency != "" && product.Currency != listing.Currency {
			currencySkipped++
			continue
		}

		price := listing.Price
		slot := domain.CompetitorSlot{
			Label:    fmt.Sprintf("Competitor %d", len(slots)+1),
			Name:     listing.Name,
			URL:      listing.URL,
			NewPrice: &price,
			Source:   listing.SourceLabel(),
		}
		if old, ok := prevPrices[listing.URL]; ok && old > 0 {
			oldPrice := old
			change := round2((price - old) / old * 100)
			slot.OldPrice = &oldPrice
			slot.ChangePercent = &change
		}
		slots = append(slots, slot)
		sum += price
	}

	if len(slots) == 0 {
		return nil, currencySkipped, false
	}

	avg := sum / float64(len(slots))
	floor := product.Cost / (1 - s.minMarginFraction)
	recommended := round2(math.Max(avg, floor))
	floored := recommended > round2(avg)

	changePercent := round2((recommended - product.CurrentPrice) / product.CurrentPrice * 100)
	direction := domain.DirectionFor(changePercent)

	if s.enableDebugLogging {
		log.Printf("[PRICING] product %s: avg=%.2f floor=%.2f recommended=%.2f (%s)",
			product.ID, avg, floor, recommended, direction)
	}

	return &domain.ProductRecommendation{
		ID:               uuid.NewString(),
		StoreID:          storeID,
		ProductID:        product.ID,
		ProductName:      product.Name,
		ProductSKU:       product.SKU,
		ProductPrice:     product.CurrentPrice,
		RecommendedPrice: recommended,
		ChangePercent:    changePercent,
		Direction:        direction,
		CompetitorAvg:    round2(avg),
		CompetitorCount:  len(slots),
		Explanation:      buildExplanation(direction, len(slots), avg, product.CurrentPrice, floored),
		Competitors:      slots,
		Status:           domain.RecommendationPending,
		CreatedAt:        now,
	}, currencySkipped, false
}

// buildExplanation renders the templated explanation from direction, the
// competitor spread against the current price, and whether the margin floor
// overrode the raw average.
func buildExplanation(direction domain.Direction, count int, avg, currentPrice float64, floored bool) string {
	spread := round2((avg - currentPrice) / currentPrice * 100)

	var msg string
	switch {
	case floored && spread < 0 && direction != domain.DirectionDown:
		// Competitors are cheaper but the floor forbids following them down.
		msg = fmt.Sprintf("%d competitor price(s) average %.1f%% lower, but the minimum margin floor overrides the average", count, -spread)
	case direction == domain.DirectionDown:
		msg = fmt.Sprintf("%d competitor price(s) average %.1f%% lower; recommended price adjusted down", count, -spread)
		if floored {
			msg += " while preserving the minimum margin"
		}
	case direction == domain.DirectionUp:
		msg = fmt.Sprintf("%d competitor price(s) average %.1f%% higher; recommended price adjusted up", count, spread)
	default:
		msg = fmt.Sprintf("%d competitor price(s) are in line with the current price; no change recommended", count)
	}

	return msg + "."
}

// lastSlotPrices extracts the most recent per-competitor prices from prior
// recommendations, keyed by product then listing URL, for slot delta display.
func lastSlotPrices(previous []domain.ProductRecommendation) map[string]map[string]float64 {
	latest := make(map[string]domain.ProductRecommendation)
	for _, r := range previous {
		cur, ok := latest[r.ProductID]
		if !ok || r.CreatedAt.After(cur.CreatedAt) {
			latest[r.ProductID] = r
		}
	}

	prices := make(map[string]map[string]float64, len(latest))
	for productID, r := range latest {
		byURL := make(map[string]float64, len(r.Competitors))
		for _, slot := range r.Competitors {
			if slot.URL != "" && slot.NewPrice != nil {
				byURL[slot.URL] = *slot.NewPrice
			}
		}
		if len(byURL) > 0 {
			prices[productID] = byURL
		}
	}
	return prices
}

// round2 rounds to two decimal places, the precision prices are stored at.
func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
