package tracking

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ignite/affiliate-ops/internal/attribution"
	"github.com/ignite/affiliate-ops/internal/domain"
	"github.com/ignite/affiliate-ops/internal/subid"
)

const counterTTL = 90 * 24 * time.Hour

// ClickCounter keeps per-day click totals in Redis.
//
//	clicks:{yyyymmdd}:total        counter
//	clicks:{yyyymmdd}:{dimension}  hash of dimension value -> clicks
type ClickCounter struct {
	rdb *redis.Client
}

func NewClickCounter(rdb *redis.Client) *ClickCounter {
	return &ClickCounter{rdb: rdb}
}

func totalKey(day string) string { return "clicks:" + day + ":total" }

func dimensionKey(day string, d attribution.Dimension) string {
	return "clicks:" + day + ":" + string(d)
}

// Record counts one click for the tuple on the day of at.
func (c *ClickCounter) Record(ctx context.Context, ids subid.SubIDs, at time.Time) error {
	day := at.UTC().Format(domain.DateLayout)
	e := attribution.Attribute(ids, 0, at)

	pipe := c.rdb.TxPipeline()
	pipe.Incr(ctx, totalKey(day))
	pipe.Expire(ctx, totalKey(day), counterTTL)
	for _, d := range attribution.Dimensions {
		key := dimensionKey(day, d)
		pipe.HIncrBy(ctx, key, attribution.BucketOf(e, d), 1)
		pipe.Expire(ctx, key, counterTTL)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("record click: %w", err)
	}
	return nil
}

// Total returns the clicks counted on the days from..to covers. Both ends
// are truncated to whole UTC days and to is exclusive.
func (c *ClickCounter) Total(ctx context.Context, from, to time.Time) (int64, error) {
	var total int64
	for _, day := range days(from, to) {
		n, err := c.rdb.Get(ctx, totalKey(day)).Int64()
		if err == redis.Nil {
			continue
		}
		if err != nil {
			return 0, fmt.Errorf("click total %s: %w", day, err)
		}
		total += n
	}
	return total, nil
}

// Clicks returns per-value click totals for a dimension over the same day
// range as Total.
func (c *ClickCounter) Clicks(ctx context.Context, d attribution.Dimension, from, to time.Time) (map[string]int64, error) {
	if _, err := attribution.ParseDimension(string(d)); err != nil {
		return nil, err
	}
	out := make(map[string]int64)
	for _, day := range days(from, to) {
		vals, err := c.rdb.HGetAll(ctx, dimensionKey(day, d)).Result()
		if err != nil {
			return nil, fmt.Errorf("clicks %s/%s: %w", d, day, err)
		}
		for k, v := range vals {
			n, err := strconv.ParseInt(v, 10, 64)
			if err != nil {
				continue
			}
			out[k] += n
		}
	}
	return out, nil
}

func days(from, to time.Time) []string {
	start := from.UTC().Truncate(24 * time.Hour)
	end := to.UTC()
	var out []string
	for d := start; d.Before(end); d = d.Add(24 * time.Hour) {
		out = append(out, d.Format(domain.DateLayout))
	}
	return out
}
