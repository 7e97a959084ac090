package reporting

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/ignite/affiliate-ops/internal/attribution"
	"github.com/ignite/affiliate-ops/internal/domain"
	"github.com/ignite/affiliate-ops/internal/metrics"
	"github.com/ignite/affiliate-ops/internal/pkg/logger"
	"github.com/ignite/affiliate-ops/internal/storage"
)

// ErrInvalidPeriod is returned when a window ends before it starts or is
// longer than MaxPeriodDays.
var ErrInvalidPeriod = errors.New("invalid period")

// MaxPeriodDays bounds a reporting window. Click counters are read one
// day key at a time.
const MaxPeriodDays = 366

const maxPeriod = MaxPeriodDays * 24 * time.Hour

// Period is a reporting window, [From, To).
type Period struct {
	From time.Time `json:"from"`
	To   time.Time `json:"to"`
}

func (p Period) validate() error {
	switch {
	case !p.To.After(p.From):
		return fmt.Errorf("%s..%s: end must be after start: %w",
			p.From.Format(time.RFC3339), p.To.Format(time.RFC3339), ErrInvalidPeriod)
	case p.To.Sub(p.From) > maxPeriod:
		return fmt.Errorf("%s..%s: longer than %d days: %w",
			p.From.Format(time.RFC3339), p.To.Format(time.RFC3339), MaxPeriodDays, ErrInvalidPeriod)
	}
	return nil
}

// Last returns the window of the given length ending at now.
func Last(now time.Time, d time.Duration) Period {
	return Period{From: now.Add(-d), To: now}
}

// Previous returns the window of equal length right before p.
func (p Period) Previous() Period {
	return Period{From: p.From.Add(-p.To.Sub(p.From)), To: p.From}
}

// Row is one dimension value in a report.
type Row struct {
	Key            string  `json:"key"`
	Clicks         int64   `json:"clicks"`
	Conversions    int     `json:"conversions"`
	Revenue        float64 `json:"revenue"`
	ConversionRate float64 `json:"conversion_rate"`
	EPC            float64 `json:"epc"`
}

// Report breaks a period down by one dimension.
type Report struct {
	Dimension attribution.Dimension `json:"dimension"`
	Period    Period                `json:"period"`
	Rows      []Row                 `json:"rows"`
}

// Costs are the inputs a summary needs that the system does not track.
type Costs struct {
	Impressions int64   `json:"impressions"`
	Cost        float64 `json:"cost"`
}

// Service builds reports. clicks and archive are optional.
type Service struct {
	conversions ConversionRepository
	clicks      ClickSource
	archive     Archive
	calc        *metrics.Calculator
}

// NewService creates a reporting service.
func NewService(conversions ConversionRepository, clicks ClickSource, archive Archive) *Service {
	return &Service{
		conversions: conversions,
		clicks:      clicks,
		archive:     archive,
		calc:        metrics.NewCalculator(),
	}
}

// ByDimension reports clicks, conversions and revenue per dimension value.
// Rows are ordered like attribution.TopPerformers; values with clicks but
// no conversions follow, by clicks.
func (s *Service) ByDimension(ctx context.Context, d attribution.Dimension, p Period, limit int) (*Report, error) {
	if _, err := attribution.ParseDimension(string(d)); err != nil {
		return nil, err
	}
	if limit < 0 {
		return nil, fmt.Errorf("report limit %d: %w", limit, attribution.ErrNegativeLimit)
	}
	if err := p.validate(); err != nil {
		return nil, err
	}

	var (
		records []domain.ConversionEvent
		clicks  map[string]int64
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		records, err = s.conversions.ListConversions(gctx, p.From, p.To)
		return err
	})
	if s.clicks != nil {
		g.Go(func() error {
			var err error
			clicks, err = s.clicks.Clicks(gctx, d, p.From, p.To)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("load %s report: %w", d, err)
	}

	agg, err := attribution.AggregateBy(d, records)
	if err != nil {
		return nil, err
	}

	rows := make([]Row, 0, len(agg)+len(clicks))
	for _, perf := range attribution.Rank(agg, -1) {
		rows = append(rows, s.row(perf.Key, clicks[perf.Key], perf.Count, perf.TotalRevenue))
	}
	var clickOnly []Row
	for key, n := range clicks {
		if _, ok := agg[key]; !ok {
			clickOnly = append(clickOnly, s.row(key, n, 0, 0))
		}
	}
	sort.Slice(clickOnly, func(i, j int) bool {
		if clickOnly[i].Clicks != clickOnly[j].Clicks {
			return clickOnly[i].Clicks > clickOnly[j].Clicks
		}
		return clickOnly[i].Key < clickOnly[j].Key
	})
	rows = append(rows, clickOnly...)
	if limit > 0 && len(rows) > limit {
		rows = rows[:limit]
	}

	return &Report{Dimension: d, Period: p, Rows: rows}, nil
}

func (s *Service) row(key string, clicks int64, conversions int, revenue float64) Row {
	return Row{
		Key:            key,
		Clicks:         clicks,
		Conversions:    conversions,
		Revenue:        metrics.Round2(revenue),
		ConversionRate: s.calc.ConversionRate(int64(conversions), clicks),
		EPC:            s.calc.EPC(revenue, clicks),
	}
}

// Summary rolls a period into a metrics snapshot.
func (s *Service) Summary(ctx context.Context, p Period, costs Costs) (metrics.Snapshot, error) {
	if err := p.validate(); err != nil {
		return metrics.Snapshot{}, err
	}

	var (
		records []domain.ConversionEvent
		clicks  int64
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		records, err = s.conversions.ListConversions(gctx, p.From, p.To)
		return err
	})
	if s.clicks != nil {
		g.Go(func() error {
			var err error
			clicks, err = s.clicks.Total(gctx, p.From, p.To)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return metrics.Snapshot{}, fmt.Errorf("load summary: %w", err)
	}

	in := metrics.Counters{
		Impressions: costs.Impressions,
		Clicks:      clicks,
		Conversions: int64(len(records)),
		Cost:        costs.Cost,
	}
	for _, r := range records {
		in.Revenue += r.Revenue
	}
	in.Revenue = metrics.Round2(in.Revenue)
	return s.calc.Summary(in), nil
}

// Comparison holds two summaries and their per-metric variation.
type Comparison struct {
	Current    metrics.Snapshot             `json:"current"`
	Previous   metrics.Snapshot             `json:"previous"`
	Variations map[string]metrics.Variation `json:"variations"`
}

// Compare summarizes both periods and reports the change of every metric.
func (s *Service) Compare(ctx context.Context, current, previous Period, curCosts, prevCosts Costs) (*Comparison, error) {
	cur, err := s.Summary(ctx, current, curCosts)
	if err != nil {
		return nil, err
	}
	prev, err := s.Summary(ctx, previous, prevCosts)
	if err != nil {
		return nil, err
	}
	return &Comparison{
		Current:    cur,
		Previous:   prev,
		Variations: s.calc.ComparePeriods(cur.Values(), prev.Values()),
	}, nil
}

// Archive builds the dimension report for p and stores it.
func (s *Service) Archive(ctx context.Context, d attribution.Dimension, p Period) (storage.ReportRef, error) {
	if s.archive == nil {
		return storage.ReportRef{}, errors.New("no report archive configured")
	}
	report, err := s.ByDimension(ctx, d, p, 0)
	if err != nil {
		return storage.ReportRef{}, err
	}
	name := p.From.UTC().Format(domain.DateLayout) + "-" + p.To.UTC().Format(domain.DateLayout)
	ref, err := s.archive.SaveReport(ctx, string(d), name, report)
	if err != nil {
		return storage.ReportRef{}, fmt.Errorf("archive %s report: %w", d, err)
	}
	logger.Info("reporting: archived", "dimension", string(d), "key", ref.Key, "rows", len(report.Rows))
	return ref, nil
}
