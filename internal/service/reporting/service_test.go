package reporting_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignite/affiliate-ops/internal/attribution"
	"github.com/ignite/affiliate-ops/internal/domain"
	"github.com/ignite/affiliate-ops/internal/service/reporting"
	"github.com/ignite/affiliate-ops/internal/storage"
)

var day = time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)

type memConversions struct {
	events []domain.ConversionEvent
	err    error
}

func (m *memConversions) ListConversions(_ context.Context, from, to time.Time) ([]domain.ConversionEvent, error) {
	if m.err != nil {
		return nil, m.err
	}
	var out []domain.ConversionEvent
	for _, e := range m.events {
		if !e.ReceivedAt.Before(from) && e.ReceivedAt.Before(to) {
			out = append(out, e)
		}
	}
	return out, nil
}

type memClicks struct {
	total int64
	by    map[attribution.Dimension]map[string]int64
}

func (m *memClicks) Total(context.Context, time.Time, time.Time) (int64, error) {
	return m.total, nil
}

func (m *memClicks) Clicks(_ context.Context, d attribution.Dimension, _, _ time.Time) (map[string]int64, error) {
	return m.by[d], nil
}

type memArchive struct {
	saved map[string]interface{}
}

func (m *memArchive) SaveReport(_ context.Context, kind, name string, data interface{}) (storage.ReportRef, error) {
	key := "reports/" + kind + "/" + name + ".json"
	m.saved[key] = data
	return storage.ReportRef{Key: key, Kind: kind, Name: name}, nil
}

func conv(channel string, revenue float64, at time.Time) domain.ConversionEvent {
	return domain.ConversionEvent{Channel: channel, Revenue: revenue, ReceivedAt: at}
}

func fixtures() (*memConversions, *memClicks) {
	convs := &memConversions{events: []domain.ConversionEvent{
		conv("tiktok", 100, day.Add(time.Hour)),
		conv("tiktok", 50, day.Add(2*time.Hour)),
		conv("reels", 80, day.Add(3*time.Hour)),
		conv("", 20, day.Add(4*time.Hour)),
		conv("tiktok", 999, day.Add(-time.Hour)),
	}}
	clicks := &memClicks{
		total: 100,
		by: map[attribution.Dimension]map[string]int64{
			attribution.ByChannel: {"tiktok": 50, "reels": 40, "grupo": 10},
		},
	}
	return convs, clicks
}

func TestByDimension(t *testing.T) {
	convs, clicks := fixtures()
	svc := reporting.NewService(convs, clicks, nil)

	rep, err := svc.ByDimension(context.Background(), attribution.ByChannel, reporting.Period{From: day, To: day.Add(24 * time.Hour)}, 0)
	require.NoError(t, err)
	require.Len(t, rep.Rows, 4)

	assert.Equal(t, reporting.Row{Key: "tiktok", Clicks: 50, Conversions: 2, Revenue: 150, ConversionRate: 4, EPC: 3}, rep.Rows[0])
	assert.Equal(t, reporting.Row{Key: "reels", Clicks: 40, Conversions: 1, Revenue: 80, ConversionRate: 2.5, EPC: 2}, rep.Rows[1])
	assert.Equal(t, reporting.Row{Key: attribution.UnknownBucket, Conversions: 1, Revenue: 20}, rep.Rows[2])
	assert.Equal(t, reporting.Row{Key: "grupo", Clicks: 10}, rep.Rows[3])
}

func TestByDimension_LimitAndWithoutClicks(t *testing.T) {
	convs, _ := fixtures()
	svc := reporting.NewService(convs, nil, nil)

	rep, err := svc.ByDimension(context.Background(), attribution.ByChannel, reporting.Period{From: day, To: day.Add(24 * time.Hour)}, 1)
	require.NoError(t, err)
	require.Len(t, rep.Rows, 1)
	assert.Equal(t, "tiktok", rep.Rows[0].Key)
	assert.Zero(t, rep.Rows[0].Clicks)
}

func TestByDimension_Errors(t *testing.T) {
	convs, clicks := fixtures()
	svc := reporting.NewService(convs, clicks, nil)
	ctx := context.Background()
	p := reporting.Period{From: day, To: day.Add(time.Hour)}

	_, err := svc.ByDimension(ctx, attribution.Dimension("shop"), p, 0)
	assert.ErrorIs(t, err, attribution.ErrUnknownDimension)

	_, err = svc.ByDimension(ctx, attribution.ByNiche, p, -1)
	assert.ErrorIs(t, err, attribution.ErrNegativeLimit)

	_, err = svc.ByDimension(ctx, attribution.ByNiche, reporting.Period{From: day, To: day}, 0)
	assert.ErrorIs(t, err, reporting.ErrInvalidPeriod)

	huge := reporting.Period{From: time.Date(1, 1, 1, 0, 0, 0, 0, time.UTC), To: time.Date(9999, 12, 31, 0, 0, 0, 0, time.UTC)}
	_, err = svc.ByDimension(ctx, attribution.ByNiche, huge, 0)
	assert.ErrorIs(t, err, reporting.ErrInvalidPeriod)
	_, err = svc.Summary(ctx, huge, reporting.Costs{})
	assert.ErrorIs(t, err, reporting.ErrInvalidPeriod)
	_, err = svc.Compare(ctx, huge, huge.Previous(), reporting.Costs{}, reporting.Costs{})
	assert.ErrorIs(t, err, reporting.ErrInvalidPeriod)

	year := reporting.Period{From: day.AddDate(-1, 0, 0), To: day}
	_, err = svc.ByDimension(ctx, attribution.ByNiche, year, 0)
	assert.NoError(t, err)

	boom := errors.New("db down")
	failing := reporting.NewService(&memConversions{err: boom}, clicks, nil)
	_, err = failing.ByDimension(ctx, attribution.ByNiche, p, 0)
	assert.ErrorIs(t, err, boom)
}

func TestSummary(t *testing.T) {
	convs, clicks := fixtures()
	svc := reporting.NewService(convs, clicks, nil)

	snap, err := svc.Summary(context.Background(), reporting.Period{From: day, To: day.Add(24 * time.Hour)}, reporting.Costs{Impressions: 2000, Cost: 100})
	require.NoError(t, err)
	assert.Equal(t, int64(100), snap.Clicks)
	assert.Equal(t, int64(4), snap.Conversions)
	assert.Equal(t, 250.0, snap.Revenue)
	assert.Equal(t, 5.0, snap.CTR)
	assert.Equal(t, 4.0, snap.ConversionRate)
	assert.Equal(t, 62.5, snap.AOV)
	assert.Equal(t, 2.5, snap.EPC)
	assert.Equal(t, 150.0, snap.ROI)
	assert.Equal(t, 150.0, snap.Profit)
}

func TestCompare(t *testing.T) {
	convs, clicks := fixtures()
	svc := reporting.NewService(convs, clicks, nil)

	cur := reporting.Period{From: day, To: day.Add(24 * time.Hour)}
	cmp, err := svc.Compare(context.Background(), cur, cur.Previous(), reporting.Costs{}, reporting.Costs{})
	require.NoError(t, err)

	assert.Equal(t, 250.0, cmp.Current.Revenue)
	assert.Equal(t, 999.0, cmp.Previous.Revenue)
	rev := cmp.Variations["revenue"]
	assert.Equal(t, -74.97, rev.VariationPercent)
	assert.Equal(t, 0.0, cmp.Variations["clicks"].VariationPercent)
}

func TestPeriodHelpers(t *testing.T) {
	p := reporting.Last(day, 7*24*time.Hour)
	assert.Equal(t, day.Add(-7*24*time.Hour), p.From)
	prev := p.Previous()
	assert.Equal(t, p.From, prev.To)
	assert.Equal(t, p.To.Sub(p.From), prev.To.Sub(prev.From))
}

func TestArchive(t *testing.T) {
	convs, clicks := fixtures()
	arch := &memArchive{saved: map[string]interface{}{}}
	svc := reporting.NewService(convs, clicks, arch)

	ref, err := svc.Archive(context.Background(), attribution.ByChannel, reporting.Period{From: day, To: day.Add(24 * time.Hour)})
	require.NoError(t, err)
	assert.Equal(t, "20260201-20260202", ref.Name)
	rep, ok := arch.saved[ref.Key].(*reporting.Report)
	require.True(t, ok)
	assert.Len(t, rep.Rows, 4)

	_, err = reporting.NewService(convs, clicks, nil).Archive(context.Background(), attribution.ByChannel, reporting.Period{From: day, To: day.Add(time.Hour)})
	assert.Error(t, err)
}
