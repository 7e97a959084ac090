package affiliate

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ignite/affiliate-ops/internal/domain"
	"github.com/ignite/affiliate-ops/internal/pkg/logger"
)

// APISource collects a niche's offers by searching each niche keyword.
type APISource struct {
	client *Client
	now    func() time.Time
}

// NewAPISource wraps a network client as an offer source.
func NewAPISource(client *Client) *APISource {
	return &APISource{client: client, now: time.Now}
}

// Offers returns the parsed, de-duplicated offers for the niche.
// Raw offers that fail to parse are skipped.
func (s *APISource) Offers(ctx context.Context, niche domain.Niche) ([]domain.Offer, error) {
	info, ok := domain.LookupNiche(niche)
	if !ok {
		return nil, fmt.Errorf("niche %q has no keywords", niche)
	}

	collected := s.now().UTC()
	seen := make(map[string]bool)
	var out []domain.Offer
	for _, kw := range info.Keywords {
		raws, err := s.client.GetOffers(ctx, OfferQuery{Keyword: kw})
		if err != nil {
			return nil, fmt.Errorf("keyword %q: %w", kw, err)
		}
		for _, raw := range raws {
			o, err := ParseOffer(raw, niche, collected)
			if err != nil {
				logger.Warn("affiliate: skipping raw offer", "item_id", raw.ItemID, "error", err)
				continue
			}
			if seen[o.ID] {
				continue
			}
			seen[o.ID] = true
			out = append(out, o)
		}
	}
	return out, nil
}

// FeedSet reads offers from the feeds configured for each niche.
type FeedSet struct {
	source *FeedSource
	urls   map[domain.Niche][]string
}

// NewFeedSet creates a source over per-niche feed URLs.
func NewFeedSet(source *FeedSource, urls map[string][]string) *FeedSet {
	m := make(map[domain.Niche][]string, len(urls))
	for k, v := range urls {
		m[domain.Niche(k)] = v
	}
	return &FeedSet{source: source, urls: m}
}

// Offers fetches every feed of the niche. A failing feed does not stop the
// others; the joined error is returned with whatever was collected.
func (f *FeedSet) Offers(ctx context.Context, niche domain.Niche) ([]domain.Offer, error) {
	var (
		out  []domain.Offer
		errs []error
	)
	for _, url := range f.urls[niche] {
		offers, err := f.source.Fetch(ctx, url, niche)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		out = append(out, offers...)
	}
	return out, errors.Join(errs...)
}
