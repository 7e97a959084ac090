package worker

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/ignite/affiliate-ops/internal/domain"
	"github.com/ignite/affiliate-ops/internal/pkg/logger"
	"github.com/ignite/affiliate-ops/internal/service/catalog"
)

// DefaultRefreshInterval is how often every niche is collected and re-ranked.
const DefaultRefreshInterval = time.Hour

// Catalog is the part of the catalog service the refresher drives.
type Catalog interface {
	Collect(ctx context.Context, niche domain.Niche, src catalog.OfferSource) (catalog.CollectResult, error)
	Rank(ctx context.Context, req catalog.RankRequest) ([]domain.ScoredOffer, error)
}

// RankRefresher collects fresh offers for each niche, then ranks the niche
// with score commit so the stored scores and the live stream stay current.
type RankRefresher struct {
	catalog   Catalog
	source    catalog.OfferSource
	niches    []domain.Niche
	interval  time.Duration
	diversify bool

	// Stats
	runs   int64
	ranked int64
	errors int64
}

// NewRankRefresher builds a refresher over every catalog niche. A nil source
// skips collection and only re-ranks stored offers.
func NewRankRefresher(c Catalog, src catalog.OfferSource, interval time.Duration, diversify bool) *RankRefresher {
	if interval <= 0 {
		interval = DefaultRefreshInterval
	}
	return &RankRefresher{
		catalog:   c,
		source:    src,
		niches:    domain.Niches(),
		interval:  interval,
		diversify: diversify,
	}
}

// Start runs a pass immediately and then on every tick. It blocks until ctx
// is cancelled.
func (rr *RankRefresher) Start(ctx context.Context) {
	logger.Info("worker: rank refresher started", "interval", rr.interval.String(), "niches", len(rr.niches))

	rr.RunOnce(ctx)

	ticker := time.NewTicker(rr.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			logger.Info("worker: rank refresher stopping")
			return
		case <-ticker.C:
			rr.RunOnce(ctx)
		}
	}
}

// RefreshResult is the outcome of one niche in a pass.
type RefreshResult struct {
	Niche   domain.Niche          `json:"niche"`
	Collect catalog.CollectResult `json:"collect"`
	Ranked  int                   `json:"ranked"`
	Err     error                 `json:"-"`
}

// RunOnce refreshes every niche in turn. A failing niche is logged and does
// not stop the others.
func (rr *RankRefresher) RunOnce(ctx context.Context) []RefreshResult {
	atomic.AddInt64(&rr.runs, 1)
	out := make([]RefreshResult, 0, len(rr.niches))
	for _, niche := range rr.niches {
		if ctx.Err() != nil {
			break
		}
		res := rr.refresh(ctx, niche)
		if res.Err != nil {
			atomic.AddInt64(&rr.errors, 1)
			logger.Error("worker: niche refresh failed", "niche", string(niche), "error", res.Err)
		} else {
			atomic.AddInt64(&rr.ranked, int64(res.Ranked))
		}
		out = append(out, res)
	}
	return out
}

func (rr *RankRefresher) refresh(ctx context.Context, niche domain.Niche) RefreshResult {
	res := RefreshResult{Niche: niche}
	if rr.source != nil {
		collected, err := rr.catalog.Collect(ctx, niche, rr.source)
		res.Collect = collected
		if err != nil {
			res.Err = err
			return res
		}
	}

	top, err := rr.catalog.Rank(ctx, catalog.RankRequest{
		Niche:     niche,
		Diversify: rr.diversify,
		Commit:    true,
	})
	if err != nil {
		res.Err = err
		return res
	}
	res.Ranked = len(top)
	logger.Info("worker: niche refreshed",
		"niche", string(niche),
		"fetched", res.Collect.Fetched,
		"stored", res.Collect.Stored,
		"top", res.Ranked)
	return res
}

// Stats returns run, ranked offer and error counts since start.
func (rr *RankRefresher) Stats() (runs, ranked, errors int64) {
	return atomic.LoadInt64(&rr.runs), atomic.LoadInt64(&rr.ranked), atomic.LoadInt64(&rr.errors)
}
