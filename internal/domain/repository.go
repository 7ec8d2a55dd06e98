package domain

import "context"

// CatalogRepository is the persistence collaborator for catalog products.
// The engine reads the catalog and writes prices only through UpdatePrice.
type CatalogRepository interface {
	ListProducts(ctx context.Context) ([]Product, error)
	GetProduct(ctx context.Context, id string) (*Product, error)
	SaveProducts(ctx context.Context, products []Product) error
	PriceUpdater
}

// PriceUpdater is the slice of the catalog collaborator the apply action
// needs: one price-update request per applied recommendation. The implementor
// is responsible for keeping the derived margin consistent.
type PriceUpdater interface {
	UpdatePrice(ctx context.Context, productID string, newPrice float64) error
}

// ListingRepository persists the latest scraped listings per store so
// aggregation runs can price against the most recent feed snapshot.
type ListingRepository interface {
	SaveListings(ctx context.Context, storeID string, listings []RawListing) error
	ListListings(ctx context.Context, storeID string) ([]RawListing, error)
}

// MatchRepository persists matches. SetMatchStatus must apply the transition
// atomically per record: the update succeeds only while the current status is
// one of allowedFrom, otherwise it returns ErrInvalidTransition.
type MatchRepository interface {
	ListMatches(ctx context.Context, storeID string) ([]Match, error)
	GetMatch(ctx context.Context, id string) (*Match, error)
	UpsertMatches(ctx context.Context, matches []Match) error
	SetMatchStatus(ctx context.Context, id string, to MatchStatus, allowedFrom ...MatchStatus) error
}

// RecommendationRepository persists recommendations. SaveRecommendations
// replaces the store's PENDING recommendations with the new run's output;
// terminal records are kept as history. SetRecommendationStatus follows the
// same conditional-update contract as SetMatchStatus.
type RecommendationRepository interface {
	ListRecommendations(ctx context.Context, storeID string) ([]ProductRecommendation, error)
	GetRecommendation(ctx context.Context, id string) (*ProductRecommendation, error)
	SaveRecommendations(ctx context.Context, storeID string, recs []ProductRecommendation) error
	SetRecommendationStatus(ctx context.Context, id string, to RecommendationStatus, allowedFrom ...RecommendationStatus) error
}
