package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignite/affiliate-ops/internal/affiliate"
	"github.com/ignite/affiliate-ops/internal/attribution"
	"github.com/ignite/affiliate-ops/internal/domain"
	"github.com/ignite/affiliate-ops/internal/service/catalog"
	"github.com/ignite/affiliate-ops/internal/service/reporting"
	"github.com/ignite/affiliate-ops/internal/storage"
)

type fakeCatalog struct {
	mu        sync.Mutex
	collected []domain.Niche
	ranked    []catalog.RankRequest
	failOn    domain.Niche
}

func (f *fakeCatalog) Collect(_ context.Context, niche domain.Niche, _ catalog.OfferSource) (catalog.CollectResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.collected = append(f.collected, niche)
	if niche == f.failOn {
		return catalog.CollectResult{Niche: niche}, errors.New("source down")
	}
	return catalog.CollectResult{Niche: niche, Fetched: 3, Accepted: 2, Stored: 2}, nil
}

func (f *fakeCatalog) Rank(_ context.Context, req catalog.RankRequest) ([]domain.ScoredOffer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ranked = append(f.ranked, req)
	return make([]domain.ScoredOffer, 2), nil
}

type noSource struct{}

func (noSource) Offers(context.Context, domain.Niche) ([]domain.Offer, error) { return nil, nil }

func TestRankRefresher_RunOnce(t *testing.T) {
	fc := &fakeCatalog{failOn: domain.NichePet}
	rr := NewRankRefresher(fc, noSource{}, 0, true)

	results := rr.RunOnce(context.Background())
	require.Len(t, results, len(domain.Niches()))
	assert.Equal(t, DefaultRefreshInterval, rr.interval)

	// the failing niche is collected but never ranked
	assert.Len(t, fc.collected, len(domain.Niches()))
	assert.Len(t, fc.ranked, len(domain.Niches())-1)
	for _, req := range fc.ranked {
		assert.True(t, req.Commit)
		assert.True(t, req.Diversify)
		assert.NotEqual(t, domain.NichePet, req.Niche)
	}

	runs, ranked, errs := rr.Stats()
	assert.Equal(t, int64(1), runs)
	assert.Equal(t, int64(2*(len(domain.Niches())-1)), ranked)
	assert.Equal(t, int64(1), errs)
}

func TestRankRefresher_NoSourceOnlyRanks(t *testing.T) {
	fc := &fakeCatalog{}
	rr := NewRankRefresher(fc, nil, time.Minute, false)

	results := rr.RunOnce(context.Background())
	assert.Empty(t, fc.collected)
	assert.Len(t, fc.ranked, len(domain.Niches()))
	for _, res := range results {
		assert.NoError(t, res.Err)
		assert.Equal(t, 2, res.Ranked)
	}
}

func TestRankRefresher_StopsOnCancel(t *testing.T) {
	fc := &fakeCatalog{}
	rr := NewRankRefresher(fc, nil, time.Hour, false)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.Empty(t, rr.RunOnce(ctx))

	done := make(chan struct{})
	go func() {
		rr.Start(ctx)
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Start did not return after cancel")
	}
}

type fakeFetcher struct {
	rows     []affiliate.ConversionRow
	err      error
	from, to time.Time
}

func (f *fakeFetcher) GetConversions(_ context.Context, from, to time.Time) ([]affiliate.ConversionRow, error) {
	f.from, f.to = from, to
	return f.rows, f.err
}

type memConversions struct {
	saved []domain.ConversionEvent
	err   error
}

func (m *memConversions) InsertConversion(_ context.Context, c *domain.ConversionEvent) error {
	if m.err != nil {
		return m.err
	}
	m.saved = append(m.saved, *c)
	return nil
}

func TestConversionSync_SyncOnce(t *testing.T) {
	now := time.Date(2026, 2, 1, 6, 0, 0, 0, time.UTC)
	fetcher := &fakeFetcher{rows: []affiliate.ConversionRow{
		{ConversionID: "c1", OrderID: "o1", OrderAmount: 120, Commission: 9.6, PurchaseTime: now.Add(-time.Hour).Unix(),
			SubID1: "tiktok", SubID2: "tech", SubID3: "video30s", SubID4: "oferta_dia", SubID5: "20260131"},
		{OrderID: "o2", OrderAmount: 50},
	}}
	store := &memConversions{}
	cs := NewConversionSync(fetcher, store)
	cs.now = func() time.Time { return now }

	n, err := cs.SyncOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, now.Add(-DefaultSyncWindow), fetcher.from)
	assert.Equal(t, now, fetcher.to)

	require.Len(t, store.saved, 1)
	got := store.saved[0]
	assert.Equal(t, "c1", got.ID)
	assert.Equal(t, "tiktok", got.Channel)
	assert.Equal(t, 120.0, got.Revenue)
	assert.Equal(t, 9.6, got.Commission)
}

func TestConversionSync_Errors(t *testing.T) {
	cs := NewConversionSync(&fakeFetcher{err: errors.New("503")}, &memConversions{})
	_, err := cs.SyncOnce(context.Background())
	assert.ErrorContains(t, err, "fetch conversions")

	cs = NewConversionSync(
		&fakeFetcher{rows: []affiliate.ConversionRow{{ConversionID: "c1"}}},
		&memConversions{err: errors.New("db down")},
	)
	n, err := cs.SyncOnce(context.Background())
	assert.Equal(t, 0, n)
	assert.ErrorContains(t, err, "store conversion c1")
}

type fakeArchive struct {
	periods []reporting.Period
	dims    []attribution.Dimension
	failOn  attribution.Dimension
}

func (f *fakeArchive) Archive(_ context.Context, d attribution.Dimension, p reporting.Period) (storage.ReportRef, error) {
	if d == f.failOn {
		return storage.ReportRef{}, errors.New("bucket gone")
	}
	f.dims = append(f.dims, d)
	f.periods = append(f.periods, p)
	return storage.ReportRef{Kind: string(d)}, nil
}

func TestReportArchiver_ArchiveDay(t *testing.T) {
	fa := &fakeArchive{}
	ra := NewReportArchiver(fa)
	ra.now = func() time.Time { return time.Date(2026, 2, 1, 6, 30, 0, 0, time.UTC) }

	refs, err := ra.ArchiveDay(context.Background())
	require.NoError(t, err)
	assert.Len(t, refs, len(attribution.Dimensions))
	assert.Equal(t, attribution.Dimensions, fa.dims)
	for _, p := range fa.periods {
		assert.Equal(t, time.Date(2026, 1, 31, 0, 0, 0, 0, time.UTC), p.From)
		assert.Equal(t, time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC), p.To)
	}
}

func TestReportArchiver_OncePerDay(t *testing.T) {
	fa := &fakeArchive{}
	ra := NewReportArchiver(fa)
	now := time.Date(2026, 2, 1, 6, 30, 0, 0, time.UTC)
	ra.now = func() time.Time { return now }

	ra.archiveIfDue(context.Background())
	ra.archiveIfDue(context.Background())
	assert.Len(t, fa.dims, len(attribution.Dimensions))

	now = now.Add(24 * time.Hour)
	ra.archiveIfDue(context.Background())
	assert.Len(t, fa.dims, 2*len(attribution.Dimensions))
}

func TestReportArchiver_RetriesAfterFailure(t *testing.T) {
	fa := &fakeArchive{failOn: attribution.ByFormat}
	ra := NewReportArchiver(fa)
	ra.now = func() time.Time { return time.Date(2026, 2, 1, 6, 30, 0, 0, time.UTC) }

	ra.archiveIfDue(context.Background())
	assert.Empty(t, ra.lastDay)

	fa.failOn = ""
	ra.archiveIfDue(context.Background())
	assert.Equal(t, "20260201", ra.lastDay)
}
