package api

import (
	"net/http"
	"time"

	"github.com/ignite/affiliate-ops/internal/attribution"
	"github.com/ignite/affiliate-ops/internal/links"
	"github.com/ignite/affiliate-ops/internal/metrics"
	"github.com/ignite/affiliate-ops/internal/pkg/httputil"
	"github.com/ignite/affiliate-ops/internal/ranking"
	"github.com/ignite/affiliate-ops/internal/service/catalog"
	"github.com/ignite/affiliate-ops/internal/service/reporting"
	"github.com/ignite/affiliate-ops/internal/storage"
	"github.com/ignite/affiliate-ops/internal/subid"
)

// errorMap maps service sentinels to HTTP statuses.
var errorMap = httputil.ErrorMap{
	ranking.ErrNegativeCount:        http.StatusBadRequest,
	attribution.ErrUnknownDimension: http.StatusBadRequest,
	attribution.ErrNegativeLimit:    http.StatusBadRequest,
	subid.ErrUnknownToken:           http.StatusBadRequest,
	reporting.ErrInvalidPeriod:      http.StatusBadRequest,
	catalog.ErrOfferNotFound:        http.StatusNotFound,
	catalog.ErrUnknownNiche:         http.StatusNotFound,
	storage.ErrReportNotFound:       http.StatusNotFound,
}

// Handlers contains the HTTP handlers. The stateless engine endpoints work
// on request payloads; catalog, reports and archive are optional and their
// endpoints answer 503 when unset.
type Handlers struct {
	selector *ranking.Selector
	codec    *subid.Codec
	calc     *metrics.Calculator
	links    *links.Builder
	catalog  *catalog.Service
	reports  *reporting.Service
	archive  *storage.Storage
	topN     int
	now      func() time.Time
}

// Option configures Handlers.
type Option func(*Handlers)

func WithCatalog(c *catalog.Service) Option   { return func(h *Handlers) { h.catalog = c } }
func WithReports(r *reporting.Service) Option { return func(h *Handlers) { h.reports = r } }
func WithArchive(s *storage.Storage) Option   { return func(h *Handlers) { h.archive = s } }
func WithLinks(b *links.Builder) Option       { return func(h *Handlers) { h.links = b } }
func WithClock(now func() time.Time) Option   { return func(h *Handlers) { h.now = now } }
func WithSelector(s *ranking.Selector) Option { return func(h *Handlers) { h.selector = s } }
func WithCodec(c *subid.Codec) Option         { return func(h *Handlers) { h.codec = c } }
func WithDefaultTopN(n int) Option            { return func(h *Handlers) { h.topN = n } }

// NewHandlers creates the handler set.
func NewHandlers(opts ...Option) *Handlers {
	h := &Handlers{
		selector: ranking.NewSelector(nil),
		codec:    subid.NewCodec(),
		calc:     metrics.NewCalculator(),
		topN:     10,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func unavailable(w http.ResponseWriter, what string) {
	httputil.Error(w, http.StatusServiceUnavailable, what+" not configured")
}
