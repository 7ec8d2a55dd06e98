package usecase

import (
	"context"
	"sync"

	"github.com/pricelens/backend/internal/domain"
)

// In-memory repository fakes for service tests.

type fakeCatalog struct {
	mu           sync.Mutex
	products     []domain.Product
	priceUpdates map[string]float64
	updateErr    error
}

func (f *fakeCatalog) ListProducts(ctx context.Context) ([]domain.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]domain.Product(nil), f.products...), nil
}

func (f *fakeCatalog) GetProduct(ctx context.Context, id string) (*domain.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.products {
		if f.products[i].ID == id {
			p := f.products[i]
			return &p, nil
		}
	}
	return nil, domain.ErrProductNotFound
}

func (f *fakeCatalog) SaveProducts(ctx context.Context, products []domain.Product) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.products = append([]domain.Product(nil), products...)
	return nil
}

func (f *fakeCatalog) UpdatePrice(ctx context.Context, productID string, newPrice float64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.updateErr != nil {
		return f.updateErr
	}
	if f.priceUpdates == nil {
		f.priceUpdates = make(map[string]float64)
	}
	f.priceUpdates[productID] = newPrice
	return nil
}

type fakeMatchRepo struct {
	mu      sync.Mutex
	matches map[string]domain.Match
}

func newFakeMatchRepo(matches ...domain.Match) *fakeMatchRepo {
	repo := &fakeMatchRepo{matches: make(map[string]domain.Match)}
	for _, m := range matches {
		repo.matches[m.ID] = m
	}
	return repo
}

func (f *fakeMatchRepo) ListMatches(ctx context.Context, storeID string) ([]domain.Match, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.Match
	for _, m := range f.matches {
		if m.Listing.StoreID == storeID {
			out = append(out, m)
		}
	}
	return out, nil
}

func (f *fakeMatchRepo) GetMatch(ctx context.Context, id string) (*domain.Match, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, ok := f.matches[id]
	if !ok {
		return nil, domain.ErrMatchNotFound
	}
	return &m, nil
}

func (f *fakeMatchRepo) UpsertMatches(ctx context.Context, matches []domain.Match) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, m := range matches {
		f.matches[m.ID] = m
	}
	return nil
}

func (f *fakeMatchRepo) SetMatchStatus(ctx context.Context, id string, to domain.MatchStatus, allowedFrom ...domain.MatchStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, ok := f.matches[id]
	if !ok {
		return domain.ErrMatchNotFound
	}
	for _, from := range allowedFrom {
		if m.Status == from {
			m.Status = to
			f.matches[id] = m
			return nil
		}
	}
	return domain.ErrInvalidTransition
}

type fakeRecRepo struct {
	mu   sync.Mutex
	recs map[string]domain.ProductRecommendation
}

func newFakeRecRepo(recs ...domain.ProductRecommendation) *fakeRecRepo {
	repo := &fakeRecRepo{recs: make(map[string]domain.ProductRecommendation)}
	for _, r := range recs {
		repo.recs[r.ID] = r
	}
	return repo
}

func (f *fakeRecRepo) ListRecommendations(ctx context.Context, storeID string) ([]domain.ProductRecommendation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.ProductRecommendation
	for _, r := range f.recs {
		if r.StoreID == storeID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeRecRepo) GetRecommendation(ctx context.Context, id string) (*domain.ProductRecommendation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.recs[id]
	if !ok {
		return nil, domain.ErrRecommendationNotFound
	}
	return &r, nil
}

func (f *fakeRecRepo) SaveRecommendations(ctx context.Context, storeID string, recs []domain.ProductRecommendation) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for id, r := range f.recs {
		if r.StoreID == storeID && r.Status == domain.RecommendationPending {
			delete(f.recs, id)
		}
	}
	for _, r := range recs {
		f.recs[r.ID] = r
	}
	return nil
}

func (f *fakeRecRepo) SetRecommendationStatus(ctx context.Context, id string, to domain.RecommendationStatus, allowedFrom ...domain.RecommendationStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.recs[id]
	if !ok {
		return domain.ErrRecommendationNotFound
	}
	for _, from := range allowedFrom {
		if r.Status == from {
			r.Status = to
			f.recs[id] = r
			return nil
		}
	}
	return domain.ErrInvalidTransition
}

type fakeListingRepo struct {
	mu      sync.Mutex
	byStore map[string][]domain.RawListing
}

func (f *fakeListingRepo) SaveListings(ctx context.Context, storeID string, listings []domain.RawListing) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.byStore == nil {
		f.byStore = make(map[string][]domain.RawListing)
	}
	f.byStore[storeID] = append([]domain.RawListing(nil), listings...)
	return nil
}

func (f *fakeListingRepo) ListListings(ctx context.Context, storeID string) ([]domain.RawListing, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]domain.RawListing(nil), f.byStore[storeID]...), nil
}
