package api

import (
	"net/http"

	"github.com/ignite/affiliate-ops/internal/attribution"
	"github.com/ignite/affiliate-ops/internal/domain"
	"github.com/ignite/affiliate-ops/internal/metrics"
	"github.com/ignite/affiliate-ops/internal/pkg/httputil"
)

type attributionRequest struct {
	Dimension attribution.Dimension    `json:"dimension"`
	Records   []domain.ConversionEvent `json:"records"`
	Limit     *int                     `json:"limit"`
}

// AttributionAggregate groups posted conversions by a dimension.
//
//	POST /api/attribution/aggregate
func (h *Handlers) AttributionAggregate(w http.ResponseWriter, r *http.Request) {
	var req attributionRequest
	if !httputil.Decode(w, r, &req) {
		return
	}
	agg, err := attribution.AggregateBy(req.Dimension, req.Records)
	if err != nil {
		httputil.FromError(w, err, errorMap)
		return
	}
	httputil.OK(w, map[string]interface{}{
		"dimension": req.Dimension,
		"buckets":   agg,
	})
}

// AttributionTop ranks dimension values by revenue. limit defaults to 5.
//
//	POST /api/attribution/top
func (h *Handlers) AttributionTop(w http.ResponseWriter, r *http.Request) {
	var req attributionRequest
	if !httputil.Decode(w, r, &req) {
		return
	}
	limit := 5
	if req.Limit != nil {
		limit = *req.Limit
	}
	top, err := attribution.TopPerformers(req.Records, req.Dimension, limit)
	if err != nil {
		httputil.FromError(w, err, errorMap)
		return
	}
	httputil.OK(w, map[string]interface{}{
		"dimension":  req.Dimension,
		"performers": top,
	})
}

// MetricsSummary derives every ratio from posted counters.
//
//	POST /api/metrics/summary
func (h *Handlers) MetricsSummary(w http.ResponseWriter, r *http.Request) {
	var in metrics.Counters
	if !httputil.Decode(w, r, &in) {
		return
	}
	httputil.OK(w, h.calc.Summary(in))
}

type metricsCompareRequest struct {
	Current  map[string]float64 `json:"current"`
	Previous map[string]float64 `json:"previous"`
}

// MetricsCompare reports the change of every current metric against the
// previous period. Metrics missing from previous count as zero.
//
//	POST /api/metrics/compare
func (h *Handlers) MetricsCompare(w http.ResponseWriter, r *http.Request) {
	var req metricsCompareRequest
	if !httputil.Decode(w, r, &req) {
		return
	}
	httputil.OK(w, h.calc.ComparePeriods(req.Current, req.Previous))
}
