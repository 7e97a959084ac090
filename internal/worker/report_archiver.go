package worker

import (
	"context"
	"time"

	"github.com/ignite/affiliate-ops/internal/attribution"
	"github.com/ignite/affiliate-ops/internal/pkg/logger"
	"github.com/ignite/affiliate-ops/internal/service/reporting"
	"github.com/ignite/affiliate-ops/internal/storage"
)

// ReportArchive is the part of the reporting service the archiver drives.
type ReportArchive interface {
	Archive(ctx context.Context, d attribution.Dimension, p reporting.Period) (storage.ReportRef, error)
}

// ReportArchiver stores yesterday's report of every dimension once a day.
type ReportArchiver struct {
	reports ReportArchive
	now     func() time.Time
	lastDay string
}

func NewReportArchiver(reports ReportArchive) *ReportArchiver {
	return &ReportArchiver{reports: reports, now: time.Now}
}

// Start checks hourly and archives once per UTC day.
func (ra *ReportArchiver) Start(ctx context.Context) {
	logger.Info("worker: report archiver started")

	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()
	for {
		ra.archiveIfDue(ctx)
		select {
		case <-ctx.Done():
			logger.Info("worker: report archiver stopping")
			return
		case <-ticker.C:
		}
	}
}

func (ra *ReportArchiver) archiveIfDue(ctx context.Context) {
	day := ra.now().UTC().Format("20060102")
	if day == ra.lastDay {
		return
	}
	if _, err := ra.ArchiveDay(ctx); err != nil {
		logger.Error("worker: report archive failed", "error", err)
		return
	}
	ra.lastDay = day
}

// ArchiveDay archives the previous full UTC day for every dimension. It
// stops at the first failure.
func (ra *ReportArchiver) ArchiveDay(ctx context.Context) ([]storage.ReportRef, error) {
	today := ra.now().UTC().Truncate(24 * time.Hour)
	p := reporting.Period{From: today.AddDate(0, 0, -1), To: today}

	refs := make([]storage.ReportRef, 0, len(attribution.Dimensions))
	for _, d := range attribution.Dimensions {
		ref, err := ra.reports.Archive(ctx, d, p)
		if err != nil {
			return refs, err
		}
		refs = append(refs, ref)
	}
	return refs, nil
}
