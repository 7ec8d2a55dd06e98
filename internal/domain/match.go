package domain

import "time"

// MatchStatus is the review state of a catalog/competitor pairing.
type MatchStatus string

const (
	MatchAutoMatched MatchStatus = "AUTO_MATCHED"
	MatchPending     MatchStatus = "PENDING"
	MatchConfirmed   MatchStatus = "CONFIRMED"
	MatchRejected    MatchStatus = "REJECTED"
)

// ListingRef identifies a competitor listing within a store feed.
type ListingRef struct {
	StoreID      string `json:"storeId"`
	CompetitorID string `json:"competitorProductId"`
}

// Match pairs a catalog product with a competitor listing. Confidence is the
// similarity score in [0,1] computed by the matcher, not a probability.
// CONFIRMED and REJECTED are terminal by human intent: a fresh matcher pass
// must never overwrite them.
type Match struct {
	ID         string      `json:"id"`
	ProductID  string      `json:"productId"`
	Listing    ListingRef  `json:"listingRef"`
	Confidence float64     `json:"confidence"`
	Status     MatchStatus `json:"status"`
	CreatedAt  time.Time   `json:"createdAt"`
	UpdatedAt  time.Time   `json:"updatedAt"`
}

// IsTerminal reports whether the match has been reviewed by a human.
func (m *Match) IsTerminal() bool {
	return m.Status == MatchConfirmed || m.Status == MatchRejected
}
