package ranking

import (
	"fmt"
	"math"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/ignite/affiliate-ops/internal/domain"
)

// Weights applied to each sub-score. They sum to 1.
const (
	WeightCommission = 0.35
	WeightPrice      = 0.25
	WeightRating     = 0.20
	WeightSales      = 0.15
	WeightDiscount   = 0.05
)

// Price sweet spot, in currency units.
const (
	sweetSpotMin = 50.0
	sweetSpotMax = 200.0
)

// Breakdown holds the unweighted sub-scores of an offer, each on a 0-100 scale.
type Breakdown struct {
	Commission float64 `json:"commission"`
	Price      float64 `json:"price"`
	Rating     float64 `json:"rating"`
	Sales      float64 `json:"sales"`
	Discount   float64 `json:"discount"`
}

// Total combines the sub-scores with the fixed weights.
func (b Breakdown) Total() float64 {
	return b.Commission*WeightCommission +
		b.Price*WeightPrice +
		b.Rating*WeightRating +
		b.Sales*WeightSales +
		b.Discount*WeightDiscount
}

// Scorer computes a bounded score for an offer.
type Scorer struct{}

// NewScorer returns a scorer with the standard weights.
func NewScorer() *Scorer {
	return &Scorer{}
}

// Breakdown returns the five sub-scores for an offer.
func (s *Scorer) Breakdown(o domain.Offer) Breakdown {
	return Breakdown{
		Commission: commissionScore(o.CommissionRate),
		Price:      priceScore(o.EffectivePrice()),
		Rating:     math.Min(math.Max(o.Rating/5*100, 0), 100),
		Sales:      math.Min(float64(o.Sales)/1000*100, 100),
		Discount:   math.Min(o.DiscountPercent*2, 100),
	}
}

// Score returns the weighted score of an offer rounded to 2 decimals.
func (s *Scorer) Score(o domain.Offer) float64 {
	return round2(s.Breakdown(o).Total())
}

// Explain describes the score with rule-based tags.
// Example: "Score 64.0/100: highly rated"
func (s *Scorer) Explain(o domain.Offer) string {
	b := s.Breakdown(o)
	return fmt.Sprintf("Score %.1f/100: %s", round2(b.Total()), strings.Join(tags(b), ", "))
}

// ScoreOffer returns a scored copy of the offer.
func (s *Scorer) ScoreOffer(o domain.Offer) domain.ScoredOffer {
	b := s.Breakdown(o)
	score := round2(b.Total())
	return domain.ScoredOffer{
		Offer:       o,
		Score:       score,
		Explanation: fmt.Sprintf("Score %.1f/100: %s", score, strings.Join(tags(b), ", ")),
	}
}

// Comparison is the result of comparing two offers by score.
type Comparison struct {
	Winner     string  `json:"winner"`
	ScoreA     float64 `json:"score_a"`
	ScoreB     float64 `json:"score_b"`
	Difference float64 `json:"difference"`
}

// Compare scores both offers and reports which one ranks higher.
// Ties go to a.
func (s *Scorer) Compare(a, b domain.Offer) Comparison {
	sa, sb := s.Score(a), s.Score(b)
	winner := a.ID
	if sb > sa {
		winner = b.ID
	}
	return Comparison{
		Winner:     winner,
		ScoreA:     sa,
		ScoreB:     sb,
		Difference: round2(math.Abs(sa - sb)),
	}
}

func commissionScore(rate float64) float64 {
	return math.Min(rate*5, 100)
}

func priceScore(p float64) float64 {
	switch {
	case p >= sweetSpotMin && p <= sweetSpotMax:
		return 100
	case p < sweetSpotMin:
		return p / sweetSpotMin * 100
	default:
		return math.Max(100-(p-sweetSpotMax)/10, 0)
	}
}

// tags keeps positive tags first, then negative ones.
func tags(b Breakdown) []string {
	var out []string
	if b.Commission >= 80 {
		out = append(out, "excellent commission")
	}
	if b.Rating >= 90 {
		out = append(out, "highly rated")
	}
	if b.Sales >= 70 {
		out = append(out, "high sales")
	}
	if b.Discount >= 60 {
		out = append(out, "good discount")
	}
	if b.Commission < 40 {
		out = append(out, "low commission")
	}
	if b.Rating < 60 {
		out = append(out, "mediocre rating")
	}
	if len(out) == 0 {
		out = append(out, "balanced")
	}
	return out
}

func round2(v float64) float64 {
	if math.IsInf(v, 0) || math.IsNaN(v) {
		return 0
	}
	f, _ := decimal.NewFromFloat(v).Round(2).Float64()
	return f
}
