package domain

import (
	"math"
	"time"
)

// RecommendationStatus is the lifecycle state of a price recommendation.
type RecommendationStatus string

const (
	RecommendationPending   RecommendationStatus = "PENDING"
	RecommendationApplied   RecommendationStatus = "APPLIED"
	RecommendationDismissed RecommendationStatus = "DISMISSED"
)

// Direction is the sign of the recommended price change.
type Direction string

const (
	DirectionUp   Direction = "UP"
	DirectionDown Direction = "DOWN"
	DirectionSame Direction = "SAME"
)

// directionDeadBand is the |changePercent| below which a change counts as SAME.
const directionDeadBand = 0.01

// DirectionFor maps a change percentage to UP/DOWN/SAME with a dead-band.
func DirectionFor(changePercent float64) Direction {
	if math.Abs(changePercent) < directionDeadBand {
		return DirectionSame
	}
	if changePercent > 0 {
		return DirectionUp
	}
	return DirectionDown
}

// CompetitorSlot is one aggregated competitor price entry attached to a
// recommendation for display. Slots are derived, never persisted on their own,
// and recomputed on every aggregation pass.
type CompetitorSlot struct {
	Label         string   `json:"label"`
	Name          string   `json:"name,omitempty"`
	URL           string   `json:"url,omitempty"`
	OldPrice      *float64 `json:"oldPrice,omitempty"`
	NewPrice      *float64 `json:"newPrice,omitempty"`
	ChangePercent *float64 `json:"changePercent,omitempty"`
	Source        string   `json:"source"`
}

// ProductRecommendation is a priced recommendation for a single product,
// produced by one aggregation run over its usable competitor prices.
type ProductRecommendation struct {
	ID               string               `json:"id"`
	StoreID          string               `json:"storeId"`
	ProductID        string               `json:"productId"`
	ProductName      string               `json:"productName"`
	ProductSKU       string               `json:"productSku,omitempty"`
	ProductPrice     float64              `json:"productPrice"`
	RecommendedPrice float64              `json:"recommendedPrice"`
	ChangePercent    float64              `json:"changePercent"`
	Direction        Direction            `json:"direction"`
	CompetitorAvg    float64              `json:"competitorAvg"`
	CompetitorCount  int                  `json:"competitorCount"`
	Explanation      string               `json:"explanation"`
	Competitors      []CompetitorSlot     `json:"competitors"`
	Status           RecommendationStatus `json:"status"`
	CreatedAt        time.Time            `json:"createdAt"`
}

// IsTerminal reports whether the recommendation has been acted on.
func (r *ProductRecommendation) IsTerminal() bool {
	return r.Status == RecommendationApplied || r.Status == RecommendationDismissed
}
