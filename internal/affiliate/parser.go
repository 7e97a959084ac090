package affiliate

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/ignite/affiliate-ops/internal/attribution"
	"github.com/ignite/affiliate-ops/internal/domain"
	"github.com/ignite/affiliate-ops/internal/subid"
)

// Network price fields are integers scaled by this factor.
const priceScale = 100000

// Sentinel errors for offer parsing.
var (
	ErrInvalidOffer  = errors.New("invalid offer")
	ErrOfferRejected = errors.New("offer rejected")
)

var titleCaser = cases.Title(language.BrazilianPortuguese)

// ParseOffer converts a raw network offer into a domain offer for the niche.
// The list price is price_max and the promotional price price_min.
func ParseOffer(raw RawOffer, niche domain.Niche, collectedAt time.Time) (domain.Offer, error) {
	if raw.ItemID == 0 || raw.ShopID == 0 {
		return domain.Offer{}, fmt.Errorf("missing item_id or shop_id: %w", ErrInvalidOffer)
	}

	list := float64(raw.PriceMax) / priceScale
	promo := float64(raw.PriceMin) / priceScale
	if promo >= list {
		promo = 0
	}

	o := domain.Offer{
		ID:             fmt.Sprintf("%d_%d", raw.ShopID, raw.ItemID),
		Name:           NormalizeName(raw.ProductName),
		Niche:          niche,
		Shop:           raw.ShopName,
		ListPrice:      list,
		PromoPrice:     promo,
		CommissionRate: float64(raw.CommissionRate) / 100,
		Rating:         raw.ItemRating.RatingStar,
		Sales:          raw.ItemSold,
		Link:           raw.ProductLink,
		ImageURL:       raw.Image,
		Active:         true,
		CollectedAt:    collectedAt,
	}
	if len(raw.ItemRating.RatingCount) > 0 {
		o.Reviews = raw.ItemRating.RatingCount[0]
	}
	o.DiscountPercent = DiscountPercent(o.ListPrice, o.PromoPrice)
	o.CommissionValue = round2(o.EffectivePrice() * o.CommissionRate / 100)
	return o, nil
}

// NormalizeName trims and title-cases a product name. Empty names get a
// placeholder.
func NormalizeName(name string) string {
	name = strings.Join(strings.Fields(name), " ")
	if name == "" {
		return "Unnamed product"
	}
	return titleCaser.String(name)
}

// DiscountPercent derives the discount of a promotional price.
func DiscountPercent(list, promo float64) float64 {
	if list <= 0 || promo <= 0 || promo >= list {
		return 0
	}
	return round2((list - promo) / list * 100)
}

// Thresholds are the minimums an offer must meet to be promoted.
type Thresholds struct {
	MinPrice      float64
	MinCommission float64
	MinRating     float64
	MinReviews    int64
	RequireImage  bool
}

// DefaultThresholds returns the standard catalog minimums.
func DefaultThresholds() Thresholds {
	return Thresholds{
		MinPrice:      10,
		MinCommission: 2,
		MinRating:     3.5,
		MinReviews:    10,
		RequireImage:  true,
	}
}

// Validate checks an offer against the thresholds. The returned error
// wraps ErrOfferRejected and names the first failed rule.
func Validate(o domain.Offer, t Thresholds) error {
	switch {
	case o.EffectivePrice() < t.MinPrice:
		return fmt.Errorf("price %.2f below %.2f: %w", o.EffectivePrice(), t.MinPrice, ErrOfferRejected)
	case o.CommissionRate < t.MinCommission:
		return fmt.Errorf("commission %.2f%% below %.2f%%: %w", o.CommissionRate, t.MinCommission, ErrOfferRejected)
	case o.Rating < t.MinRating:
		return fmt.Errorf("rating %.1f below %.1f: %w", o.Rating, t.MinRating, ErrOfferRejected)
	case o.Reviews < t.MinReviews:
		return fmt.Errorf("%d reviews below %d: %w", o.Reviews, t.MinReviews, ErrOfferRejected)
	case t.RequireImage && o.ImageURL == "":
		return fmt.Errorf("no image: %w", ErrOfferRejected)
	}
	return nil
}

// Potential estimates how an offer may perform.
type Potential struct {
	EstimatedConversionRate float64 `json:"estimated_conversion_rate"`
	MonthlyRevenue          float64 `json:"monthly_revenue_potential"`
}

// Estimate projects conversion rate and monthly commission for an offer.
// Sales are capped at 100 per month.
func Estimate(o domain.Offer) Potential {
	var p Potential
	if o.Sales > 0 && o.Rating > 0 {
		p.EstimatedConversionRate = math.Min(o.Rating/5*float64(o.Sales)/1000, 1)
	}
	p.MonthlyRevenue = o.CommissionValue * float64(min(o.Sales, 100))
	return p
}

// ToEvent converts a report row into a conversion event.
func ToEvent(row ConversionRow) domain.ConversionEvent {
	ids := subid.SubIDs{row.SubID1, row.SubID2, row.SubID3, row.SubID4, row.SubID5}
	e := attribution.Attribute(ids, row.OrderAmount, time.Unix(row.PurchaseTime, 0).UTC())
	e.ID = row.ConversionID
	e.OrderID = row.OrderID
	e.Commission = row.Commission
	return e
}

func round2(v float64) float64 {
	if math.IsInf(v, 0) || math.IsNaN(v) {
		return 0
	}
	f, _ := decimal.NewFromFloat(v).Round(2).Float64()
	return f
}
