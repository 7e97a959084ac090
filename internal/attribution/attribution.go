// Package attribution turns reported conversions into per-dimension revenue
// totals.
package attribution

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/ignite/affiliate-ops/internal/domain"
	"github.com/ignite/affiliate-ops/internal/subid"
)

// UnknownBucket collects records whose dimension value is empty.
const UnknownBucket = "unknown"

// Sentinel errors for attribution.
var (
	ErrUnknownDimension = errors.New("unknown attribution dimension")
	ErrNegativeLimit    = errors.New("limit must not be negative")
)

// Dimension is a sub-id slot conversions can be grouped by.
type Dimension string

const (
	ByChannel  Dimension = "channel"
	ByNiche    Dimension = "niche"
	ByFormat   Dimension = "format"
	ByCampaign Dimension = "campaign"
)

// Dimensions lists every supported dimension.
var Dimensions = []Dimension{ByChannel, ByNiche, ByFormat, ByCampaign}

// ParseDimension validates a dimension name from a request.
func ParseDimension(s string) (Dimension, error) {
	switch d := Dimension(s); d {
	case ByChannel, ByNiche, ByFormat, ByCampaign:
		return d, nil
	}
	return "", fmt.Errorf("%q: %w", s, ErrUnknownDimension)
}

// Attribute reshapes a sub-id tuple and a reported amount into a conversion
// record.
func Attribute(ids subid.SubIDs, revenue float64, at time.Time) domain.ConversionEvent {
	return domain.ConversionEvent{
		Channel:    ids[0],
		Niche:      ids[1],
		Format:     ids[2],
		Campaign:   ids[3],
		DateToken:  ids[4],
		Revenue:    revenue,
		ReceivedAt: at,
	}
}

func valueOf(e domain.ConversionEvent, d Dimension) string {
	switch d {
	case ByChannel:
		return e.Channel
	case ByNiche:
		return e.Niche
	case ByFormat:
		return e.Format
	case ByCampaign:
		return e.Campaign
	}
	return ""
}

// BucketOf returns the aggregation key of a record for a dimension.
func BucketOf(e domain.ConversionEvent, d Dimension) string {
	if key := valueOf(e, d); key != "" {
		return key
	}
	return UnknownBucket
}

// AggregateBy groups records by a dimension and sums count and revenue.
// Records with an empty value land in UnknownBucket so totals reconcile.
func AggregateBy(d Dimension, records []domain.ConversionEvent) (map[string]domain.DimensionAggregate, error) {
	if _, err := ParseDimension(string(d)); err != nil {
		return nil, err
	}
	out := make(map[string]domain.DimensionAggregate)
	for _, r := range records {
		key := BucketOf(r, d)
		agg := out[key]
		agg.Count++
		agg.TotalRevenue += r.Revenue
		out[key] = agg
	}
	return out, nil
}

// Performer is one ranked bucket.
type Performer struct {
	Key string `json:"key"`
	domain.DimensionAggregate
}

// TopPerformers ranks dimension values by total revenue. Equal revenue is
// broken by count, then by key.
func TopPerformers(records []domain.ConversionEvent, d Dimension, limit int) ([]Performer, error) {
	if limit < 0 {
		return nil, fmt.Errorf("top performers %d: %w", limit, ErrNegativeLimit)
	}
	agg, err := AggregateBy(d, records)
	if err != nil {
		return nil, err
	}
	return Rank(agg, limit), nil
}

// Rank orders an aggregate mapping the same way TopPerformers does.
func Rank(agg map[string]domain.DimensionAggregate, limit int) []Performer {
	out := make([]Performer, 0, len(agg))
	for k, v := range agg {
		out = append(out, Performer{Key: k, DimensionAggregate: v})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].TotalRevenue != out[j].TotalRevenue {
			return out[i].TotalRevenue > out[j].TotalRevenue
		}
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Key < out[j].Key
	})
	if limit >= 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}
