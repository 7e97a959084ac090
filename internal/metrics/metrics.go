// Package metrics derives funnel ratios (CTR, conversion rate, AOV, EPC, ROI)
// from raw counters. A zero denominator yields 0, never an error.
package metrics

import (
	"math"

	"github.com/shopspring/decimal"
)

// Counters are the raw totals for one period or bucket.
type Counters struct {
	Impressions int64   `json:"impressions"`
	Clicks      int64   `json:"clicks"`
	Conversions int64   `json:"conversions"`
	Revenue     float64 `json:"revenue"`
	Cost        float64 `json:"cost"`
}

// Snapshot is the derived view of a set of counters.
type Snapshot struct {
	Counters
	CTR            float64 `json:"ctr"`
	ConversionRate float64 `json:"conversion_rate"`
	AOV            float64 `json:"aov"`
	EPC            float64 `json:"epc"`
	ROI            float64 `json:"roi"`
	Profit         float64 `json:"profit"`
}

// Values flattens the snapshot for period comparison.
func (s Snapshot) Values() map[string]float64 {
	return map[string]float64{
		"impressions":     float64(s.Impressions),
		"clicks":          float64(s.Clicks),
		"conversions":     float64(s.Conversions),
		"revenue":         s.Revenue,
		"cost":            s.Cost,
		"profit":          s.Profit,
		"ctr":             s.CTR,
		"conversion_rate": s.ConversionRate,
		"aov":             s.AOV,
		"epc":             s.EPC,
		"roi":             s.ROI,
	}
}

// Variation compares one value across two periods.
type Variation struct {
	Current          float64 `json:"current"`
	Previous         float64 `json:"previous"`
	VariationPercent float64 `json:"variation_percent"`
}

// Calculator computes marketing ratios.
type Calculator struct{}

// NewCalculator returns a calculator.
func NewCalculator() *Calculator {
	return &Calculator{}
}

// CTR is clicks per hundred impressions.
func (c *Calculator) CTR(clicks, impressions int64) float64 {
	if impressions == 0 {
		return 0
	}
	return Round2(float64(clicks) / float64(impressions) * 100)
}

// ConversionRate is conversions per hundred clicks.
func (c *Calculator) ConversionRate(conversions, clicks int64) float64 {
	if clicks == 0 {
		return 0
	}
	return Round2(float64(conversions) / float64(clicks) * 100)
}

// AOV is the average order value.
func (c *Calculator) AOV(revenue float64, orders int64) float64 {
	if orders == 0 {
		return 0
	}
	return Round2(revenue / float64(orders))
}

// EPC is earnings per click.
func (c *Calculator) EPC(earnings float64, clicks int64) float64 {
	if clicks == 0 {
		return 0
	}
	return Round2(earnings / float64(clicks))
}

// ROI is the return on cost, in percent.
func (c *Calculator) ROI(revenue, cost float64) float64 {
	if cost == 0 {
		return 0
	}
	return Round2((revenue - cost) / cost * 100)
}

// Summary derives every ratio from the counters. Conversions count as
// orders and revenue as earnings. Profit is not rounded.
func (c *Calculator) Summary(in Counters) Snapshot {
	return Snapshot{
		Counters:       in,
		CTR:            c.CTR(in.Clicks, in.Impressions),
		ConversionRate: c.ConversionRate(in.Conversions, in.Clicks),
		AOV:            c.AOV(in.Revenue, in.Conversions),
		EPC:            c.EPC(in.Revenue, in.Clicks),
		ROI:            c.ROI(in.Revenue, in.Cost),
		Profit:         in.Revenue - in.Cost,
	}
}

// ComparePeriods reports the change of every key in current against
// previous. A key missing from previous compares against 0.
func (c *Calculator) ComparePeriods(current, previous map[string]float64) map[string]Variation {
	out := make(map[string]Variation, len(current))
	for k, cur := range current {
		prev := previous[k]
		v := Variation{Current: cur, Previous: prev}
		if prev != 0 {
			v.VariationPercent = Round2((cur - prev) / prev * 100)
		}
		out[k] = v
	}
	return out
}

// Round2 rounds half away from zero to 2 decimal places.
// Non-finite values, which overflowing ratios can produce, round to 0.
func Round2(v float64) float64 {
	if math.IsInf(v, 0) || math.IsNaN(v) {
		return 0
	}
	f, _ := decimal.NewFromFloat(v).Round(2).Float64()
	return f
}
