package api

import (
	"net/http"
	"time"

	"github.com/ignite/affiliate-ops/internal/domain"
	"github.com/ignite/affiliate-ops/internal/pkg/httputil"
	"github.com/ignite/affiliate-ops/internal/subid"
)

type buildRequest struct {
	Channel   domain.Channel  `json:"channel"`
	Niche     domain.Niche    `json:"niche"`
	Format    domain.Format   `json:"format"`
	Campaign  domain.Campaign `json:"campaign"`
	Date      string          `json:"date"`
	Strict    bool            `json:"strict"`
	OfferID   string          `json:"offer_id"`
	TargetURL string          `json:"target_url"`
}

type buildResponse struct {
	SubIDs       subid.SubIDs `json:"sub_ids"`
	CompositeID  string       `json:"composite_id"`
	AffiliateURL string       `json:"affiliate_url,omitempty"`
	TrackedURL   string       `json:"tracked_url,omitempty"`
}

// BuildSubIDs encodes a tuple. With strict set every dimension must be
// known. A target URL also yields the affiliate and tracked links.
//
//	POST /api/subid/build
func (h *Handlers) BuildSubIDs(w http.ResponseWriter, r *http.Request) {
	var req buildRequest
	if !httputil.Decode(w, r, &req) {
		return
	}

	var date time.Time
	if req.Date != "" {
		d, err := subid.ParseDate(req.Date)
		if err != nil {
			httputil.BadRequest(w, err.Error())
			return
		}
		date = d
	}

	ids := h.codec.Build(req.Channel, req.Niche, req.Format, req.Campaign, date)
	if req.Strict {
		if err := subid.Validate(h.codec.Parse(ids.Slice())); err != nil {
			httputil.FromError(w, err, errorMap)
			return
		}
	}

	resp := buildResponse{SubIDs: ids, CompositeID: subid.CompositeID(ids)}
	if req.TargetURL != "" && h.links != nil {
		aff, err := h.links.AffiliateURL(req.TargetURL, ids)
		if err != nil {
			httputil.InternalError(w, err)
			return
		}
		resp.AffiliateURL = aff
		resp.TrackedURL = h.links.TrackedURL(req.OfferID, req.TargetURL, ids)
	}
	httputil.OK(w, resp)
}

type parseRequest struct {
	SubIDs []string `json:"sub_ids"`
}

type parseResponse struct {
	Identity *domain.Identity `json:"identity"`
	Valid    bool             `json:"valid"`
	Problem  string           `json:"problem,omitempty"`
}

// ParseSubIDs decodes a tuple. A tuple of the wrong length yields a null
// identity rather than an error.
//
//	POST /api/subid/parse
func (h *Handlers) ParseSubIDs(w http.ResponseWriter, r *http.Request) {
	var req parseRequest
	if !httputil.Decode(w, r, &req) {
		return
	}
	id := h.codec.Parse(req.SubIDs)
	resp := parseResponse{Identity: id}
	if err := subid.Validate(id); err != nil {
		resp.Problem = err.Error()
	} else {
		resp.Valid = true
	}
	httputil.OK(w, resp)
}
