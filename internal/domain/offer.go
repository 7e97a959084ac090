package domain

import "time"

// Offer is a single affiliate product offer as seen by the ranking engine.
// Numeric fields that the source did not provide stay at zero.
type Offer struct {
	ID              string    `json:"id" db:"id"`
	Name            string    `json:"name" db:"name"`
	Niche           Niche     `json:"niche" db:"niche"`
	Shop            string    `json:"shop,omitempty" db:"shop"`
	ListPrice       float64   `json:"list_price" db:"list_price"`
	PromoPrice      float64   `json:"promo_price,omitempty" db:"promo_price"`
	DiscountPercent float64   `json:"discount_percent,omitempty" db:"discount_percent"`
	CommissionRate  float64   `json:"commission_rate" db:"commission_rate"`
	CommissionValue float64   `json:"commission_value,omitempty" db:"commission_value"`
	Rating          float64   `json:"rating" db:"rating"`
	Sales           int64     `json:"sales" db:"sales"`
	Reviews         int64     `json:"reviews" db:"reviews"`
	Link            string    `json:"link,omitempty" db:"link"`
	ImageURL        string    `json:"image_url,omitempty" db:"image_url"`
	Active          bool      `json:"active" db:"active"`
	CollectedAt     time.Time `json:"collected_at,omitempty" db:"collected_at"`
}

// EffectivePrice returns the promotional price when one is set, otherwise
// the list price.
func (o Offer) EffectivePrice() float64 {
	if o.PromoPrice > 0 {
		return o.PromoPrice
	}
	return o.ListPrice
}

// ScoredOffer pairs an offer with its ranking score and explanation.
type ScoredOffer struct {
	Offer
	Score       float64 `json:"score"`
	Explanation string  `json:"explanation"`
}

// ScoreCommit is the persisted result of scoring one offer.
type ScoreCommit struct {
	OfferID     string    `json:"offer_id" db:"offer_id"`
	Score       float64   `json:"score" db:"score"`
	Explanation string    `json:"explanation" db:"explanation"`
	ScoredAt    time.Time `json:"scored_at" db:"scored_at"`
}

// Commit returns the persistence view of a scored offer.
func (s ScoredOffer) Commit(at time.Time) ScoreCommit {
	return ScoreCommit{
		OfferID:     s.ID,
		Score:       s.Score,
		Explanation: s.Explanation,
		ScoredAt:    at,
	}
}

// PriceBand groups offers by effective price for diversified selection.
type PriceBand string

const (
	BandBudget  PriceBand = "up_to_50"
	BandLow     PriceBand = "50_to_100"
	BandMid     PriceBand = "100_to_200"
	BandPremium PriceBand = "over_200"
)

// PriceBands lists the bands in allocation order.
var PriceBands = []PriceBand{BandBudget, BandLow, BandMid, BandPremium}

// BandFor returns the band that holds the given effective price.
func BandFor(price float64) PriceBand {
	switch {
	case price <= 50:
		return BandBudget
	case price <= 100:
		return BandLow
	case price <= 200:
		return BandMid
	default:
		return BandPremium
	}
}
