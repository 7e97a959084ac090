package catalog

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ignite/affiliate-ops/internal/affiliate"
	"github.com/ignite/affiliate-ops/internal/domain"
	"github.com/ignite/affiliate-ops/internal/pkg/distlock"
	"github.com/ignite/affiliate-ops/internal/pkg/logger"
	"github.com/ignite/affiliate-ops/internal/ranking"
)

const defaultTopN = 10

// Service implements offer collection and niche ranking.
// All public methods are safe for concurrent use if the underlying
// repository is concurrency-safe.
type Service struct {
	repo       OfferRepository
	selector   *ranking.Selector
	locks      distlock.Factory
	thresholds affiliate.Thresholds
	topN       int
	now        func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithSelector replaces the default selector.
func WithSelector(sel *ranking.Selector) Option {
	return func(s *Service) { s.selector = sel }
}

// WithLocks guards score commits with locks from f. Without it scores are
// committed unguarded.
func WithLocks(f distlock.Factory) Option {
	return func(s *Service) { s.locks = f }
}

// WithThresholds sets the minimums collected offers must meet.
func WithThresholds(t affiliate.Thresholds) Option {
	return func(s *Service) { s.thresholds = t }
}

// WithDefaultTopN sets the selection size used when a request asks for 0.
func WithDefaultTopN(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.topN = n
		}
	}
}

// WithClock overrides the time source used for score commits.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService creates a catalog service backed by the given repository.
func NewService(repo OfferRepository, opts ...Option) *Service {
	s := &Service{
		repo:       repo,
		selector:   ranking.NewSelector(nil),
		thresholds: affiliate.DefaultThresholds(),
		topN:       defaultTopN,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Selector returns the selector used for ranking.
func (s *Service) Selector() *ranking.Selector { return s.selector }

// Get returns a single offer.
func (s *Service) Get(ctx context.Context, id string) (*domain.Offer, error) {
	return s.repo.Get(ctx, id)
}

// List returns active offers matching the filter.
func (s *Service) List(ctx context.Context, f ListFilter) ([]domain.Offer, error) {
	if f.Niche != "" && !f.Niche.Valid() {
		return nil, fmt.Errorf("%q: %w", f.Niche, ErrUnknownNiche)
	}
	return s.repo.ListActive(ctx, f)
}

// CollectResult summarizes one collection run.
type CollectResult struct {
	Niche    domain.Niche `json:"niche"`
	Fetched  int          `json:"fetched"`
	Accepted int          `json:"accepted"`
	Rejected int          `json:"rejected"`
	Stored   int          `json:"stored"`
}

// Collect pulls offers for a niche from src, drops the ones below the
// thresholds and upserts the rest. A source that fails after yielding some
// offers is logged and the partial batch is still stored.
func (s *Service) Collect(ctx context.Context, niche domain.Niche, src OfferSource) (CollectResult, error) {
	res := CollectResult{Niche: niche}
	if !niche.Valid() {
		return res, fmt.Errorf("%q: %w", niche, ErrUnknownNiche)
	}

	offers, err := src.Offers(ctx, niche)
	if err != nil {
		if len(offers) == 0 {
			return res, fmt.Errorf("collect %s: %w", niche, err)
		}
		logger.Warn("catalog: source partially failed", "niche", string(niche), "error", err)
	}
	res.Fetched = len(offers)

	accepted := make([]domain.Offer, 0, len(offers))
	for _, o := range offers {
		if err := affiliate.Validate(o, s.thresholds); err != nil {
			logger.Debug("catalog: offer rejected", "offer_id", o.ID, "reason", err)
			res.Rejected++
			continue
		}
		accepted = append(accepted, o)
	}
	res.Accepted = len(accepted)
	if len(accepted) == 0 {
		return res, nil
	}

	stored, err := s.repo.Upsert(ctx, accepted)
	if err != nil {
		return res, fmt.Errorf("collect %s: %w", niche, err)
	}
	res.Stored = stored

	logger.Info("catalog: collected", "niche", string(niche),
		"fetched", res.Fetched, "accepted", res.Accepted, "rejected", res.Rejected, "stored", res.Stored)
	return res, nil
}

// RankRequest selects offers of one niche. An empty niche ranks the whole
// catalog. N of 0 uses the service default.
type RankRequest struct {
	Niche     domain.Niche
	N         int
	Filters   ranking.Filters
	Diversify bool
	Commit    bool
}

// Rank scores the active offers of the requested niche and returns the
// selection. With Commit set every scored offer is persisted first; if
// another ranker holds the niche lock the commit is skipped.
func (s *Service) Rank(ctx context.Context, req RankRequest) ([]domain.ScoredOffer, error) {
	offers, err := s.List(ctx, ListFilter{Niche: req.Niche})
	if err != nil {
		return nil, err
	}
	n := req.N
	if n == 0 {
		n = s.topN
	}

	if req.Commit {
		if err := s.commit(ctx, req.Niche, offers); err != nil {
			return nil, err
		}
	}

	if !req.Diversify {
		return s.selector.SelectTopN(offers, n, req.Filters)
	}
	allowed := make([]domain.Offer, 0, len(offers))
	for _, o := range offers {
		if req.Filters.Allows(o) {
			allowed = append(allowed, o)
		}
	}
	return s.selector.DiversifySelection(allowed, n)
}

func (s *Service) commit(ctx context.Context, niche domain.Niche, offers []domain.Offer) error {
	scored := s.selector.Rank(offers, ranking.Filters{})
	if len(scored) == 0 {
		return nil
	}
	at := s.now().UTC()
	commits := make([]domain.ScoreCommit, len(scored))
	for i, so := range scored {
		commits[i] = so.Commit(at)
	}

	write := func(ctx context.Context) error {
		if err := s.repo.CommitScores(ctx, commits); err != nil {
			return fmt.Errorf("commit scores: %w", err)
		}
		return nil
	}
	if s.locks == nil {
		return write(ctx)
	}

	key := "scores:" + string(niche)
	if niche == "" {
		key = "scores:all"
	}
	err := distlock.WithLock(ctx, s.locks(key), write)
	if errors.Is(err, distlock.ErrNotAcquired) {
		logger.Info("catalog: score commit skipped, lock busy", "key", key)
		return nil
	}
	return err
}

// Compare scores two stored offers against each other.
func (s *Service) Compare(ctx context.Context, idA, idB string) (ranking.Comparison, error) {
	a, err := s.repo.Get(ctx, idA)
	if err != nil {
		return ranking.Comparison{}, err
	}
	b, err := s.repo.Get(ctx, idB)
	if err != nil {
		return ranking.Comparison{}, err
	}
	return s.selector.Scorer().Compare(*a, *b), nil
}
