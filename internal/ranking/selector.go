package ranking

import (
	"fmt"
	"sort"

	"github.com/ignite/affiliate-ops/internal/domain"
)

// Filters narrows the candidate offers before scoring. Nil fields are not
// applied. Price bounds compare against the effective price.
type Filters struct {
	PriceMin      *float64 `json:"price_min,omitempty"`
	PriceMax      *float64 `json:"price_max,omitempty"`
	RatingMin     *float64 `json:"rating_min,omitempty"`
	CommissionMin *float64 `json:"commission_min,omitempty"`
}

// Allows reports whether the offer passes every active filter.
func (f Filters) Allows(o domain.Offer) bool {
	price := o.EffectivePrice()
	if f.PriceMax != nil && price > *f.PriceMax {
		return false
	}
	if f.PriceMin != nil && price < *f.PriceMin {
		return false
	}
	if f.RatingMin != nil && o.Rating < *f.RatingMin {
		return false
	}
	if f.CommissionMin != nil && o.CommissionRate < *f.CommissionMin {
		return false
	}
	return true
}

// Selector ranks offers with a Scorer and picks the best of them.
type Selector struct {
	scorer *Scorer
}

// NewSelector creates a selector backed by the given scorer. A nil scorer
// uses the standard one.
func NewSelector(scorer *Scorer) *Selector {
	if scorer == nil {
		scorer = NewScorer()
	}
	return &Selector{scorer: scorer}
}

// Scorer returns the scorer used for ranking.
func (s *Selector) Scorer() *Scorer { return s.scorer }

// Rank scores every offer that passes the filters and sorts them by score,
// highest first. Offers with equal scores keep their input order.
func (s *Selector) Rank(offers []domain.Offer, filters Filters) []domain.ScoredOffer {
	scored := make([]domain.ScoredOffer, 0, len(offers))
	for _, o := range offers {
		if !filters.Allows(o) {
			continue
		}
		scored = append(scored, s.scorer.ScoreOffer(o))
	}
	sortByScore(scored)
	return scored
}

// SelectTopN returns at most n offers ranked by score.
func (s *Selector) SelectTopN(offers []domain.Offer, n int, filters Filters) ([]domain.ScoredOffer, error) {
	if n < 0 {
		return nil, fmt.Errorf("select top %d: %w", n, ErrNegativeCount)
	}
	ranked := s.Rank(offers, filters)
	if len(ranked) > n {
		ranked = ranked[:n]
	}
	return ranked, nil
}

// DiversifySelection spreads n slots across the four price bands. Each band
// gets n/4 slots and the remainder goes one each to the cheapest bands.
// A band with fewer offers than slots leaves its spare slots unused, so the
// result can hold fewer than n offers.
func (s *Selector) DiversifySelection(offers []domain.Offer, n int) ([]domain.ScoredOffer, error) {
	if n < 0 {
		return nil, fmt.Errorf("diversify %d: %w", n, ErrNegativeCount)
	}
	groups := GroupByPriceBand(offers)
	slots := BandSlots(n)

	var picked []domain.ScoredOffer
	for _, band := range domain.PriceBands {
		top, err := s.SelectTopN(groups[band], slots[band], Filters{})
		if err != nil {
			return nil, err
		}
		picked = append(picked, top...)
	}
	sortByScore(picked)
	if len(picked) > n {
		picked = picked[:n]
	}
	return picked, nil
}

// BandSlots returns how many offers each price band may contribute to a
// diversified selection of n.
func BandSlots(n int) map[domain.PriceBand]int {
	per := n / len(domain.PriceBands)
	extra := n % len(domain.PriceBands)
	slots := make(map[domain.PriceBand]int, len(domain.PriceBands))
	for i, band := range domain.PriceBands {
		slots[band] = per
		if i < extra {
			slots[band]++
		}
	}
	return slots
}

// GroupByPriceBand buckets offers by effective price. Input order is kept
// inside each band.
func GroupByPriceBand(offers []domain.Offer) map[domain.PriceBand][]domain.Offer {
	groups := make(map[domain.PriceBand][]domain.Offer, len(domain.PriceBands))
	for _, o := range offers {
		band := domain.BandFor(o.EffectivePrice())
		groups[band] = append(groups[band], o)
	}
	return groups
}

func sortByScore(scored []domain.ScoredOffer) {
	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})
}
