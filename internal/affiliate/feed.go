package affiliate

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"
	ext "github.com/mmcdole/gofeed/extensions"

	"github.com/ignite/affiliate-ops/internal/domain"
	"github.com/ignite/affiliate-ops/internal/pkg/logger"
)

// googleNS is the prefix product feeds use for price and id fields.
const googleNS = "g"

// FeedSource reads offers from product RSS feeds (g:price, g:sale_price).
// Feeds carry no commission, so every item gets the configured rate.
type FeedSource struct {
	parser         *gofeed.Parser
	commissionRate float64
	now            func() time.Time
}

// NewFeedSource creates a feed source that assigns commissionRate percent
// to every item.
func NewFeedSource(commissionRate float64) *FeedSource {
	return &FeedSource{
		parser:         gofeed.NewParser(),
		commissionRate: commissionRate,
		now:            time.Now,
	}
}

// Fetch downloads and parses the feed at url.
func (s *FeedSource) Fetch(ctx context.Context, url string, niche domain.Niche) ([]domain.Offer, error) {
	feed, err := s.parser.ParseURLWithContext(url, ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch feed %s: %w", url, err)
	}
	return s.offers(feed, niche), nil
}

// Parse reads a feed document already in memory.
func (s *FeedSource) Parse(body string, niche domain.Niche) ([]domain.Offer, error) {
	feed, err := s.parser.ParseString(body)
	if err != nil {
		return nil, fmt.Errorf("parse feed: %w", err)
	}
	return s.offers(feed, niche), nil
}

func (s *FeedSource) offers(feed *gofeed.Feed, niche domain.Niche) []domain.Offer {
	collected := s.now().UTC()
	out := make([]domain.Offer, 0, len(feed.Items))
	for _, item := range feed.Items {
		o, ok := s.parseFeedItem(item, niche, collected)
		if !ok {
			logger.Debug("affiliate: skipping feed item", "title", item.Title, "link", item.Link)
			continue
		}
		out = append(out, o)
	}
	logger.Info("affiliate: feed parsed", "feed", feed.Title, "items", len(feed.Items), "offers", len(out))
	return out
}

func (s *FeedSource) parseFeedItem(item *gofeed.Item, niche domain.Niche, collected time.Time) (domain.Offer, bool) {
	id := googleField(item, "id")
	if id == "" {
		id = item.GUID
	}
	list, ok := parsePrice(googleField(item, "price"))
	if id == "" || !ok {
		return domain.Offer{}, false
	}

	o := domain.Offer{
		ID:             id,
		Name:           NormalizeName(firstNonEmpty(googleField(item, "title"), item.Title)),
		Niche:          niche,
		Shop:           googleField(item, "brand"),
		ListPrice:      list,
		CommissionRate: s.commissionRate,
		Link:           firstNonEmpty(googleField(item, "link"), item.Link),
		ImageURL:       googleField(item, "image_link"),
		Active:         true,
		CollectedAt:    collected,
	}
	if sale, ok := parsePrice(googleField(item, "sale_price")); ok && sale < list {
		o.PromoPrice = sale
	}
	if o.ImageURL == "" && item.Image != nil {
		o.ImageURL = item.Image.URL
	}
	o.DiscountPercent = DiscountPercent(o.ListPrice, o.PromoPrice)
	o.CommissionValue = round2(o.EffectivePrice() * o.CommissionRate / 100)
	return o, true
}

func googleField(item *gofeed.Item, name string) string {
	ns, ok := item.Extensions[googleNS]
	if !ok {
		return ""
	}
	return extValue(ns[name])
}

func extValue(values []ext.Extension) string {
	if len(values) == 0 {
		return ""
	}
	return strings.TrimSpace(values[0].Value)
}

// parsePrice reads "129.90 BRL", "129,90" or "129.90".
func parsePrice(s string) (float64, bool) {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return 0, false
	}
	v, err := strconv.ParseFloat(strings.ReplaceAll(fields[0], ",", "."), 64)
	if err != nil || v <= 0 {
		return 0, false
	}
	return v, true
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
