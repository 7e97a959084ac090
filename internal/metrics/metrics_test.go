package metrics

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRatios(t *testing.T) {
	c := NewCalculator()

	assert.Equal(t, 2.5, c.CTR(25, 1000))
	assert.Equal(t, 33.33, c.ConversionRate(1, 3))
	assert.Equal(t, 66.67, c.ConversionRate(2, 3))
	assert.Equal(t, 41.67, c.AOV(125, 3))
	assert.Equal(t, 0.33, c.EPC(1, 3))
	assert.Equal(t, 150.0, c.ROI(250, 100))
	assert.Equal(t, -50.0, c.ROI(50, 100))
}

func TestRatios_ZeroDenominators(t *testing.T) {
	c := NewCalculator()

	assert.Equal(t, 0.0, c.CTR(5, 0))
	assert.Equal(t, 0.0, c.ConversionRate(3, 0))
	assert.Equal(t, 0.0, c.AOV(99, 0))
	assert.Equal(t, 0.0, c.EPC(99, 0))
	assert.Equal(t, 0.0, c.ROI(100, 0))
}

func TestSummary(t *testing.T) {
	c := NewCalculator()
	s := c.Summary(Counters{
		Impressions: 20000,
		Clicks:      600,
		Conversions: 18,
		Revenue:     540.3,
		Cost:        200.1,
	})

	assert.Equal(t, 3.0, s.CTR)
	assert.Equal(t, 3.0, s.ConversionRate)
	assert.Equal(t, 30.02, s.AOV)
	assert.Equal(t, 0.9, s.EPC)
	assert.Equal(t, 170.01, s.ROI)
	assert.Equal(t, 540.3-200.1, s.Profit)
	assert.Equal(t, int64(600), s.Clicks)
}

func TestSummary_Empty(t *testing.T) {
	s := NewCalculator().Summary(Counters{})
	assert.Equal(t, Snapshot{}, s)
}

func TestComparePeriods(t *testing.T) {
	c := NewCalculator()
	got := c.ComparePeriods(
		map[string]float64{"revenue": 150, "clicks": 90, "new_key": 7, "flat": 0},
		map[string]float64{"revenue": 100, "clicks": 120, "flat": 0, "dropped": 5},
	)

	assert.Equal(t, Variation{Current: 150, Previous: 100, VariationPercent: 50}, got["revenue"])
	assert.Equal(t, Variation{Current: 90, Previous: 120, VariationPercent: -25}, got["clicks"])
	assert.Equal(t, Variation{Current: 7, Previous: 0, VariationPercent: 0}, got["new_key"])
	assert.Equal(t, Variation{}, got["flat"])
	assert.NotContains(t, got, "dropped")
	assert.Len(t, got, 4)
}

func TestSnapshotValues(t *testing.T) {
	c := NewCalculator()
	cur := c.Summary(Counters{Clicks: 200, Conversions: 10, Revenue: 300})
	prev := c.Summary(Counters{Clicks: 100, Conversions: 10, Revenue: 200})

	diff := c.ComparePeriods(cur.Values(), prev.Values())
	assert.Equal(t, 100.0, diff["clicks"].VariationPercent)
	assert.Equal(t, 50.0, diff["revenue"].VariationPercent)
	assert.Equal(t, -50.0, diff["conversion_rate"].VariationPercent)
}

func TestRound2(t *testing.T) {
	assert.Equal(t, 1.01, Round2(1.005))
	assert.Equal(t, -1.01, Round2(-1.005))
	assert.Equal(t, 2.0, Round2(1.999))
}

func TestRound2_NonFinite(t *testing.T) {
	assert.Equal(t, 0.0, Round2(math.Inf(1)))
	assert.Equal(t, 0.0, Round2(math.Inf(-1)))
	assert.Equal(t, 0.0, Round2(math.NaN()))
}

func TestRatios_Overflow(t *testing.T) {
	c := NewCalculator()
	assert.NotPanics(t, func() {
		assert.Equal(t, 0.0, c.ROI(1e308, 1e-300))
	})

	diff := c.ComparePeriods(map[string]float64{"revenue": 1e308}, map[string]float64{"revenue": 1e-300})
	assert.Equal(t, 0.0, diff["revenue"].VariationPercent)
}
