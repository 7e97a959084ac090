package api

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/ignite/affiliate-ops/internal/affiliate"
	"github.com/ignite/affiliate-ops/internal/domain"
	"github.com/ignite/affiliate-ops/internal/pkg/httputil"
	"github.com/ignite/affiliate-ops/internal/ranking"
	"github.com/ignite/affiliate-ops/internal/service/catalog"
)

type rankRequest struct {
	Offers  []domain.Offer  `json:"offers"`
	N       *int            `json:"n"`
	Filters ranking.Filters `json:"filters"`
}

type rankResponse struct {
	Offers []domain.ScoredOffer `json:"offers"`
	Count  int                  `json:"count"`
}

func (h *Handlers) size(n *int) int {
	if n == nil {
		return h.topN
	}
	return *n
}

func respondRanked(w http.ResponseWriter, offers []domain.ScoredOffer) {
	if offers == nil {
		offers = []domain.ScoredOffer{}
	}
	httputil.OK(w, rankResponse{Offers: offers, Count: len(offers)})
}

// RankTop scores the posted offers and returns the best n.
//
//	POST /api/ranking/top
func (h *Handlers) RankTop(w http.ResponseWriter, r *http.Request) {
	var req rankRequest
	if !httputil.Decode(w, r, &req) {
		return
	}
	top, err := h.selector.SelectTopN(req.Offers, h.size(req.N), req.Filters)
	if err != nil {
		httputil.FromError(w, err, errorMap)
		return
	}
	respondRanked(w, top)
}

// RankDiversify spreads the selection across price bands.
//
//	POST /api/ranking/diversify
func (h *Handlers) RankDiversify(w http.ResponseWriter, r *http.Request) {
	var req rankRequest
	if !httputil.Decode(w, r, &req) {
		return
	}
	picked, err := h.selector.DiversifySelection(req.Offers, h.size(req.N))
	if err != nil {
		httputil.FromError(w, err, errorMap)
		return
	}
	respondRanked(w, picked)
}

type compareRequest struct {
	A   *domain.Offer `json:"a"`
	B   *domain.Offer `json:"b"`
	AID string        `json:"a_id"`
	BID string        `json:"b_id"`
}

// RankCompare compares two posted offers, or two stored ones by id.
//
//	POST /api/ranking/compare
func (h *Handlers) RankCompare(w http.ResponseWriter, r *http.Request) {
	var req compareRequest
	if !httputil.Decode(w, r, &req) {
		return
	}
	if req.A != nil && req.B != nil {
		httputil.OK(w, h.selector.Scorer().Compare(*req.A, *req.B))
		return
	}
	if req.AID == "" || req.BID == "" {
		httputil.BadRequest(w, "provide offers a and b, or a_id and b_id")
		return
	}
	if h.catalog == nil {
		unavailable(w, "catalog")
		return
	}
	cmp, err := h.catalog.Compare(r.Context(), req.AID, req.BID)
	if err != nil {
		httputil.FromError(w, err, errorMap)
		return
	}
	httputil.OK(w, cmp)
}

// NicheTop ranks the stored offers of a niche.
//
//	GET /api/niches/{niche}/top?n=10&diversify=true&commit=true
func (h *Handlers) NicheTop(w http.ResponseWriter, r *http.Request) {
	if h.catalog == nil {
		unavailable(w, "catalog")
		return
	}
	n, ok := httputil.QueryInt(w, r, "n", h.topN)
	if !ok {
		return
	}
	q := r.URL.Query()
	diversify, _ := strconv.ParseBool(q.Get("diversify"))
	commit, _ := strconv.ParseBool(q.Get("commit"))

	var filters ranking.Filters
	for key, dst := range map[string]**float64{
		"price_min":      &filters.PriceMin,
		"price_max":      &filters.PriceMax,
		"rating_min":     &filters.RatingMin,
		"commission_min": &filters.CommissionMin,
	} {
		v := q.Get(key)
		if v == "" {
			continue
		}
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			httputil.BadRequest(w, "invalid "+key+": "+v)
			return
		}
		*dst = &f
	}

	top, err := h.catalog.Rank(r.Context(), catalog.RankRequest{
		Niche:     domain.Niche(chi.URLParam(r, "niche")),
		N:         n,
		Filters:   filters,
		Diversify: diversify,
		Commit:    commit,
	})
	if err != nil {
		httputil.FromError(w, err, errorMap)
		return
	}
	respondRanked(w, top)
}

type offerDetail struct {
	domain.ScoredOffer
	Band      domain.PriceBand    `json:"price_band"`
	Breakdown ranking.Breakdown   `json:"breakdown"`
	Potential affiliate.Potential `json:"potential"`
}

// GetOffer returns a stored offer with its score breakdown and projection.
//
//	GET /api/offers/{id}
func (h *Handlers) GetOffer(w http.ResponseWriter, r *http.Request) {
	if h.catalog == nil {
		unavailable(w, "catalog")
		return
	}
	id := chi.URLParam(r, "id")
	o, err := h.catalog.Get(r.Context(), id)
	if err != nil {
		httputil.FromError(w, err, errorMap)
		return
	}
	scorer := h.selector.Scorer()
	httputil.OK(w, offerDetail{
		ScoredOffer: scorer.ScoreOffer(*o),
		Band:        domain.BandFor(o.EffectivePrice()),
		Breakdown:   scorer.Breakdown(*o),
		Potential:   affiliate.Estimate(*o),
	})
}

// ListNiches returns the niche catalog.
//
//	GET /api/niches
func (h *Handlers) ListNiches(w http.ResponseWriter, r *http.Request) {
	out := make([]domain.NicheInfo, 0, len(domain.Niches()))
	for _, n := range domain.Niches() {
		if info, ok := domain.LookupNiche(n); ok {
			out = append(out, info)
		}
	}
	httputil.OK(w, out)
}

// ListChannels returns the channels in posting priority order.
//
//	GET /api/channels
func (h *Handlers) ListChannels(w http.ResponseWriter, r *http.Request) {
	httputil.OK(w, domain.ChannelsByPriority())
}
