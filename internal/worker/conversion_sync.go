package worker

import (
	"context"
	"fmt"
	"time"

	"github.com/ignite/affiliate-ops/internal/affiliate"
	"github.com/ignite/affiliate-ops/internal/domain"
	"github.com/ignite/affiliate-ops/internal/pkg/logger"
)

const (
	// DefaultSyncInterval is how often the conversion report is pulled.
	DefaultSyncInterval = 30 * time.Minute

	// DefaultSyncWindow is how far back each pull reaches. Overlapping
	// windows are fine since inserts are idempotent by conversion id.
	DefaultSyncWindow = 48 * time.Hour
)

// ConversionFetcher pages through the network conversion report.
type ConversionFetcher interface {
	GetConversions(ctx context.Context, from, to time.Time) ([]affiliate.ConversionRow, error)
}

// ConversionStore persists conversions.
type ConversionStore interface {
	InsertConversion(ctx context.Context, c *domain.ConversionEvent) error
}

// ConversionSync backfills conversions the postback endpoint missed.
type ConversionSync struct {
	fetcher  ConversionFetcher
	store    ConversionStore
	interval time.Duration
	window   time.Duration
	now      func() time.Time
}

func NewConversionSync(fetcher ConversionFetcher, store ConversionStore) *ConversionSync {
	return &ConversionSync{
		fetcher:  fetcher,
		store:    store,
		interval: DefaultSyncInterval,
		window:   DefaultSyncWindow,
		now:      time.Now,
	}
}

// Start syncs on every tick until ctx is cancelled.
func (cs *ConversionSync) Start(ctx context.Context) {
	logger.Info("worker: conversion sync started", "interval", cs.interval.String(), "window", cs.window.String())

	ticker := time.NewTicker(cs.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			logger.Info("worker: conversion sync stopping")
			return
		case <-ticker.C:
			if n, err := cs.SyncOnce(ctx); err != nil {
				logger.Error("worker: conversion sync failed", "stored", n, "error", err)
			}
		}
	}
}

// SyncOnce pulls the report for the trailing window and stores every row.
// Rows without a conversion id are skipped.
func (cs *ConversionSync) SyncOnce(ctx context.Context) (int, error) {
	to := cs.now().UTC()
	rows, err := cs.fetcher.GetConversions(ctx, to.Add(-cs.window), to)
	if err != nil {
		return 0, fmt.Errorf("fetch conversions: %w", err)
	}

	stored := 0
	for _, row := range rows {
		if row.ConversionID == "" {
			logger.Warn("worker: conversion without id", "order_id", row.OrderID)
			continue
		}
		e := affiliate.ToEvent(row)
		if err := cs.store.InsertConversion(ctx, &e); err != nil {
			return stored, fmt.Errorf("store conversion %s: %w", row.ConversionID, err)
		}
		stored++
	}
	logger.Info("worker: conversions synced", "rows", len(rows), "stored", stored)
	return stored, nil
}
