package domain

import "encoding/json"

// Product represents one item in the merchant's catalog. Products enter the
// system through CSV import or an external catalog sync; the engine only ever
// reads them and, on an applied recommendation, proposes a new current price.
type Product struct {
	ID            string  `json:"id"`
	Name          string  `json:"name"`
	SKU           string  `json:"sku"`
	CurrentPrice  float64 `json:"currentPrice"`
	Currency      string  `json:"currency,omitempty"`
	Cost          float64 `json:"cost"`
	MarginPercent float64 `json:"marginPercent"`
	Inventory     *int    `json:"inventory,omitempty"`
}

// RecomputeMargin refreshes the derived margin after any price or cost
// mutation. Margin is (price - cost) / price expressed as a percentage.
func (p *Product) RecomputeMargin() {
	if p.CurrentPrice <= 0 {
		p.MarginPercent = 0
		return
	}
	p.MarginPercent = (p.CurrentPrice - p.Cost) / p.CurrentPrice * 100
}

// RawListing is a single competitor offer handed over by the scraper.
// It is immutable input; Raw is opaque passthrough the engine never inspects.
type RawListing struct {
	URL      string          `json:"url"`
	Name     string          `json:"name"`
	Price    float64         `json:"price"`
	Currency string          `json:"currency,omitempty"`
	Source   string          `json:"source,omitempty"` // "Store" or "URL", defaults to "Store"
	Raw      json.RawMessage `json:"raw,omitempty"`
}

// SourceLabel returns the slot source for this listing.
func (l RawListing) SourceLabel() string {
	if l.Source == "URL" {
		return "URL"
	}
	return "Store"
}
