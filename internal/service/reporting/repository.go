package reporting

import (
	"context"
	"time"

	"github.com/ignite/affiliate-ops/internal/attribution"
	"github.com/ignite/affiliate-ops/internal/domain"
	"github.com/ignite/affiliate-ops/internal/storage"
)

// ConversionRepository lists stored conversions.
type ConversionRepository interface {
	// ListConversions returns conversions received in [from, to).
	ListConversions(ctx context.Context, from, to time.Time) ([]domain.ConversionEvent, error)
}

// ClickSource reads click totals.
type ClickSource interface {
	Total(ctx context.Context, from, to time.Time) (int64, error)
	Clicks(ctx context.Context, d attribution.Dimension, from, to time.Time) (map[string]int64, error)
}

// Archive persists generated reports.
type Archive interface {
	SaveReport(ctx context.Context, kind, name string, data interface{}) (storage.ReportRef, error)
}
