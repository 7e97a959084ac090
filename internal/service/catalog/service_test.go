package catalog_test

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignite/affiliate-ops/internal/affiliate"
	"github.com/ignite/affiliate-ops/internal/domain"
	"github.com/ignite/affiliate-ops/internal/pkg/distlock"
	"github.com/ignite/affiliate-ops/internal/ranking"
	"github.com/ignite/affiliate-ops/internal/service/catalog"
)

// memRepo is an in-memory offer repository for unit testing.
type memRepo struct {
	mu      sync.Mutex
	offers  map[string]domain.Offer
	commits []domain.ScoreCommit
}

func newMemRepo(offers ...domain.Offer) *memRepo {
	m := &memRepo{offers: make(map[string]domain.Offer)}
	for _, o := range offers {
		m.offers[o.ID] = o
	}
	return m
}

func (m *memRepo) Get(_ context.Context, id string) (*domain.Offer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.offers[id]
	if !ok {
		return nil, catalog.ErrOfferNotFound
	}
	return &o, nil
}

func (m *memRepo) ListActive(_ context.Context, f catalog.ListFilter) ([]domain.Offer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Offer
	for _, o := range m.offers {
		if !o.Active || (f.Niche != "" && o.Niche != f.Niche) {
			continue
		}
		out = append(out, o)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

func (m *memRepo) Upsert(_ context.Context, offers []domain.Offer) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, o := range offers {
		m.offers[o.ID] = o
	}
	return len(offers), nil
}

func (m *memRepo) CommitScores(_ context.Context, commits []domain.ScoreCommit) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.commits = append(m.commits, commits...)
	return nil
}

type stubSource struct {
	offers []domain.Offer
	err    error
}

func (s stubSource) Offers(context.Context, domain.Niche) ([]domain.Offer, error) {
	return s.offers, s.err
}

type stubLock struct {
	free     bool
	released bool
}

func (l *stubLock) Acquire(context.Context) (bool, error) { return l.free, nil }
func (l *stubLock) Release(context.Context) error         { l.released = true; return nil }

func offer(id string, niche domain.Niche, price, commission, rating float64, sales int64) domain.Offer {
	return domain.Offer{
		ID:             id,
		Name:           id,
		Niche:          niche,
		ListPrice:      price,
		CommissionRate: commission,
		Rating:         rating,
		Sales:          sales,
		Reviews:        50,
		ImageURL:       "https://cdn.example.com/" + id + ".jpg",
		Active:         true,
	}
}

func TestCollect(t *testing.T) {
	repo := newMemRepo()
	svc := catalog.NewService(repo)

	good := offer("a", domain.NichePet, 40, 8, 4.5, 300)
	cheap := offer("b", domain.NichePet, 5, 8, 4.5, 300)
	noImage := offer("c", domain.NichePet, 40, 8, 4.5, 300)
	noImage.ImageURL = ""

	res, err := svc.Collect(context.Background(), domain.NichePet, stubSource{offers: []domain.Offer{good, cheap, noImage}})
	require.NoError(t, err)
	assert.Equal(t, catalog.CollectResult{Niche: domain.NichePet, Fetched: 3, Accepted: 1, Rejected: 2, Stored: 1}, res)

	stored, err := svc.Get(context.Background(), "a")
	require.NoError(t, err)
	assert.Equal(t, good, *stored)
}

func TestCollect_CustomThresholds(t *testing.T) {
	repo := newMemRepo()
	svc := catalog.NewService(repo, catalog.WithThresholds(affiliate.Thresholds{}))

	res, err := svc.Collect(context.Background(), domain.NicheTech, stubSource{offers: []domain.Offer{offer("x", domain.NicheTech, 1, 0, 0, 0)}})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Stored)
}

func TestCollect_SourceErrors(t *testing.T) {
	svc := catalog.NewService(newMemRepo())
	boom := errors.New("feed down")

	_, err := svc.Collect(context.Background(), domain.NichePet, stubSource{err: boom})
	assert.ErrorIs(t, err, boom)

	res, err := svc.Collect(context.Background(), domain.NichePet, stubSource{
		offers: []domain.Offer{offer("a", domain.NichePet, 40, 8, 4.5, 300)},
		err:    boom,
	})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Stored)
}

func TestCollect_UnknownNiche(t *testing.T) {
	svc := catalog.NewService(newMemRepo())
	_, err := svc.Collect(context.Background(), domain.Niche("games"), stubSource{})
	assert.ErrorIs(t, err, catalog.ErrUnknownNiche)
}

func catalogOffers() []domain.Offer {
	return []domain.Offer{
		offer("budget", domain.NicheHome, 20, 12, 4.8, 900),
		offer("low", domain.NicheHome, 60, 6, 4.2, 300),
		offer("mid", domain.NicheHome, 150, 9, 4.6, 700),
		offer("premium", domain.NicheHome, 400, 5, 4.0, 80),
		offer("budget2", domain.NicheHome, 25, 3, 3.9, 20),
		offer("pet", domain.NichePet, 50, 15, 5, 1000),
	}
}

func TestRank_TopN(t *testing.T) {
	svc := catalog.NewService(newMemRepo(catalogOffers()...))

	got, err := svc.Rank(context.Background(), catalog.RankRequest{Niche: domain.NicheHome, N: 2})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "mid", got[0].ID)
	assert.Equal(t, "budget", got[1].ID)
	assert.GreaterOrEqual(t, got[0].Score, got[1].Score)
	for _, so := range got {
		assert.Equal(t, domain.NicheHome, so.Niche)
	}
}

func TestRank_DefaultN(t *testing.T) {
	svc := catalog.NewService(newMemRepo(catalogOffers()...), catalog.WithDefaultTopN(3))

	got, err := svc.Rank(context.Background(), catalog.RankRequest{})
	require.NoError(t, err)
	assert.Len(t, got, 3)
}

func TestRank_Filters(t *testing.T) {
	svc := catalog.NewService(newMemRepo(catalogOffers()...))
	max := 100.0

	got, err := svc.Rank(context.Background(), catalog.RankRequest{
		Niche:   domain.NicheHome,
		N:       10,
		Filters: ranking.Filters{PriceMax: &max},
	})
	require.NoError(t, err)
	assert.Len(t, got, 3)
	for _, so := range got {
		assert.LessOrEqual(t, so.EffectivePrice(), max)
	}
}

func TestRank_Diversify(t *testing.T) {
	svc := catalog.NewService(newMemRepo(catalogOffers()...))

	got, err := svc.Rank(context.Background(), catalog.RankRequest{Niche: domain.NicheHome, N: 4, Diversify: true})
	require.NoError(t, err)
	require.Len(t, got, 4)

	bands := map[domain.PriceBand]bool{}
	for _, so := range got {
		bands[domain.BandFor(so.EffectivePrice())] = true
	}
	assert.Len(t, bands, 4)
}

func TestRank_NegativeN(t *testing.T) {
	svc := catalog.NewService(newMemRepo(catalogOffers()...))
	_, err := svc.Rank(context.Background(), catalog.RankRequest{N: -1})
	assert.ErrorIs(t, err, ranking.ErrNegativeCount)
}

func TestRank_CommitUnderLock(t *testing.T) {
	repo := newMemRepo(catalogOffers()...)
	lock := &stubLock{free: true}
	var keys []string
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	svc := catalog.NewService(repo,
		catalog.WithLocks(func(key string) distlock.DistLock {
			keys = append(keys, key)
			return lock
		}),
		catalog.WithClock(func() time.Time { return at }),
	)

	_, err := svc.Rank(context.Background(), catalog.RankRequest{Niche: domain.NicheHome, N: 1, Commit: true})
	require.NoError(t, err)

	assert.Equal(t, []string{"scores:casa"}, keys)
	assert.True(t, lock.released)
	require.Len(t, repo.commits, 5)
	for _, c := range repo.commits {
		assert.Equal(t, at, c.ScoredAt)
		assert.NotEmpty(t, c.Explanation)
	}
}

func TestRank_CommitSkippedWhenLockBusy(t *testing.T) {
	repo := newMemRepo(catalogOffers()...)
	svc := catalog.NewService(repo, catalog.WithLocks(func(string) distlock.DistLock {
		return &stubLock{free: false}
	}))

	got, err := svc.Rank(context.Background(), catalog.RankRequest{N: 2, Commit: true})
	require.NoError(t, err)
	assert.Len(t, got, 2)
	assert.Empty(t, repo.commits)
}

func TestRank_UnknownNiche(t *testing.T) {
	svc := catalog.NewService(newMemRepo())
	_, err := svc.Rank(context.Background(), catalog.RankRequest{Niche: domain.Niche("games")})
	assert.ErrorIs(t, err, catalog.ErrUnknownNiche)
}

func TestCompare(t *testing.T) {
	svc := catalog.NewService(newMemRepo(catalogOffers()...))

	cmp, err := svc.Compare(context.Background(), "budget2", "budget")
	require.NoError(t, err)
	assert.Equal(t, "budget", cmp.Winner)
	assert.Greater(t, cmp.ScoreB, cmp.ScoreA)

	_, err = svc.Compare(context.Background(), "budget", "missing")
	assert.ErrorIs(t, err, catalog.ErrOfferNotFound)
}
