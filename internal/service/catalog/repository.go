package catalog

import (
	"context"

	"github.com/ignite/affiliate-ops/internal/domain"
)

// OfferRepository defines the data access contract for offers and their
// scores. Implementations must be safe for concurrent use.
type OfferRepository interface {
	// Get returns a single offer. Returns ErrOfferNotFound if it doesn't exist.
	Get(ctx context.Context, id string) (*domain.Offer, error)

	// ListActive returns active offers matching the filter, ordered by id.
	ListActive(ctx context.Context, filter ListFilter) ([]domain.Offer, error)

	// Upsert inserts or refreshes offers by id and returns how many rows changed.
	Upsert(ctx context.Context, offers []domain.Offer) (int, error)

	// CommitScores records the latest score of each offer.
	CommitScores(ctx context.Context, commits []domain.ScoreCommit) error
}

// ListFilter narrows an offer listing. An empty niche lists every niche and
// a non-positive limit lists everything.
type ListFilter struct {
	Niche domain.Niche
	Limit int
}

// OfferSource yields freshly collected offers for a niche.
type OfferSource interface {
	Offers(ctx context.Context, niche domain.Niche) ([]domain.Offer, error)
}
