package api

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/ignite/affiliate-ops/internal/attribution"
	"github.com/ignite/affiliate-ops/internal/pkg/httputil"
	"github.com/ignite/affiliate-ops/internal/service/reporting"
)

const dayLayout = "2006-01-02"

// period reads from/to (YYYY-MM-DD, to exclusive) or days counting back
// from now. The default is the last 7 days.
func (h *Handlers) period(w http.ResponseWriter, r *http.Request) (reporting.Period, bool) {
	q := r.URL.Query()
	if q.Get("from") != "" || q.Get("to") != "" {
		from, err := time.Parse(dayLayout, q.Get("from"))
		if err != nil {
			httputil.BadRequest(w, "invalid from: "+q.Get("from"))
			return reporting.Period{}, false
		}
		to, err := time.Parse(dayLayout, q.Get("to"))
		if err != nil {
			httputil.BadRequest(w, "invalid to: "+q.Get("to"))
			return reporting.Period{}, false
		}
		return reporting.Period{From: from, To: to}, true
	}
	days, ok := httputil.QueryInt(w, r, "days", 7)
	if !ok {
		return reporting.Period{}, false
	}
	if days <= 0 || days > reporting.MaxPeriodDays {
		httputil.BadRequest(w, fmt.Sprintf("days must be between 1 and %d", reporting.MaxPeriodDays))
		return reporting.Period{}, false
	}
	return reporting.Last(h.now().UTC(), time.Duration(days)*24*time.Hour), true
}

func costs(w http.ResponseWriter, r *http.Request, prefix string) (reporting.Costs, bool) {
	var c reporting.Costs
	q := r.URL.Query()
	if v := q.Get(prefix + "impressions"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			httputil.BadRequest(w, "invalid "+prefix+"impressions: "+v)
			return c, false
		}
		c.Impressions = n
	}
	if v := q.Get(prefix + "cost"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			httputil.BadRequest(w, "invalid "+prefix+"cost: "+v)
			return c, false
		}
		c.Cost = f
	}
	return c, true
}

// ReportByDimension reports stored clicks and conversions per dimension value.
//
//	GET /api/reports/{dimension}?days=7&limit=20
func (h *Handlers) ReportByDimension(w http.ResponseWriter, r *http.Request) {
	if h.reports == nil {
		unavailable(w, "reporting")
		return
	}
	d, err := attribution.ParseDimension(chi.URLParam(r, "dimension"))
	if err != nil {
		httputil.FromError(w, err, errorMap)
		return
	}
	p, ok := h.period(w, r)
	if !ok {
		return
	}
	limit, ok := httputil.QueryInt(w, r, "limit", 0)
	if !ok {
		return
	}
	rep, err := h.reports.ByDimension(r.Context(), d, p, limit)
	if err != nil {
		httputil.FromError(w, err, errorMap)
		return
	}
	httputil.OK(w, rep)
}

// ReportSummary rolls the period into one metrics snapshot.
//
//	GET /api/reports/summary?days=7&impressions=1000&cost=50
func (h *Handlers) ReportSummary(w http.ResponseWriter, r *http.Request) {
	if h.reports == nil {
		unavailable(w, "reporting")
		return
	}
	p, ok := h.period(w, r)
	if !ok {
		return
	}
	c, ok := costs(w, r, "")
	if !ok {
		return
	}
	snap, err := h.reports.Summary(r.Context(), p, c)
	if err != nil {
		httputil.FromError(w, err, errorMap)
		return
	}
	httputil.OK(w, map[string]interface{}{"period": p, "summary": snap})
}

// ReportCompare compares the period with the one right before it.
//
//	GET /api/reports/compare?days=7&cost=50&prev_cost=40
func (h *Handlers) ReportCompare(w http.ResponseWriter, r *http.Request) {
	if h.reports == nil {
		unavailable(w, "reporting")
		return
	}
	p, ok := h.period(w, r)
	if !ok {
		return
	}
	cur, ok := costs(w, r, "")
	if !ok {
		return
	}
	prev, ok := costs(w, r, "prev_")
	if !ok {
		return
	}
	cmp, err := h.reports.Compare(r.Context(), p, p.Previous(), cur, prev)
	if err != nil {
		httputil.FromError(w, err, errorMap)
		return
	}
	httputil.OK(w, cmp)
}

// ArchiveReport stores the dimension report of the period.
//
//	POST /api/reports/{dimension}/archive?days=1
func (h *Handlers) ArchiveReport(w http.ResponseWriter, r *http.Request) {
	if h.reports == nil || h.archive == nil {
		unavailable(w, "report archive")
		return
	}
	d, err := attribution.ParseDimension(chi.URLParam(r, "dimension"))
	if err != nil {
		httputil.FromError(w, err, errorMap)
		return
	}
	p, ok := h.period(w, r)
	if !ok {
		return
	}
	ref, err := h.reports.Archive(r.Context(), d, p)
	if err != nil {
		httputil.FromError(w, err, errorMap)
		return
	}
	httputil.Created(w, ref)
}

// ListArchive lists archived reports of a dimension, newest first.
//
//	GET /api/archive/{dimension}?limit=20
func (h *Handlers) ListArchive(w http.ResponseWriter, r *http.Request) {
	if h.archive == nil {
		unavailable(w, "report archive")
		return
	}
	limit, ok := httputil.QueryInt(w, r, "limit", 20)
	if !ok {
		return
	}
	refs, err := h.archive.ListReports(r.Context(), chi.URLParam(r, "dimension"), limit)
	if err != nil {
		httputil.FromError(w, err, errorMap)
		return
	}
	httputil.OK(w, map[string]interface{}{"reports": refs, "count": len(refs)})
}
