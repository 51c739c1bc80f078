// Package refresh periodically re-fetches stale stored queries so their
// weather data does not drift too far from reality.
package refresh

import (
	"context"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron"

	"github.com/n43ms/PMAccelerator-Assessment-Weather-App/internal/store"
)

// QueryRefresher re-fetches all data for one stored query.
// *query.Orchestrator satisfies it.
type QueryRefresher interface {
	Refresh(ctx context.Context, id string) (*store.StoredQuery, error)
}

const runTimeout = 2 * time.Minute

// Scheduler re-fetches records whose data is older than maxAge, once per
// interval. Individual failures are logged and skipped; a record that
// cannot be refreshed keeps its last good data.
type Scheduler struct {
	scheduler *gocron.Scheduler
	store     store.Store
	queries   QueryRefresher
	interval  time.Duration
	maxAge    time.Duration
	logger    *slog.Logger
}

// NewScheduler creates a refresh scheduler. It does nothing until Start.
func NewScheduler(s store.Store, qr QueryRefresher, interval, maxAge time.Duration, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		scheduler: gocron.NewScheduler(time.UTC),
		store:     s,
		queries:   qr,
		interval:  interval,
		maxAge:    maxAge,
		logger:    logger,
	}
}

// Start schedules the periodic job and starts the underlying scheduler.
func (s *Scheduler) Start() error {
	if _, err := s.scheduler.Every(s.interval).Do(s.RunOnce); err != nil {
		return err
	}
	s.scheduler.StartAsync()
	s.logger.Info("refresh scheduler started", "interval", s.interval, "max_age", s.maxAge)
	return nil
}

// Stop stops the scheduler and cancels any future jobs.
func (s *Scheduler) Stop() {
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
}

// RunOnce refreshes every record whose last update is older than maxAge.
func (s *Scheduler) RunOnce() {
	ctx, cancel := context.WithTimeout(context.Background(), runTimeout)
	defer cancel()

	records, err := s.store.List(ctx)
	if err != nil {
		s.logger.Error("refresh sweep failed to list queries", "error", err)
		return
	}

	cutoff := time.Now().UTC().Add(-s.maxAge)
	refreshed, failed := 0, 0
	for _, rec := range records {
		if rec.UpdatedAt.After(cutoff) {
			continue
		}
		if _, err := s.queries.Refresh(ctx, rec.ID); err != nil {
			s.logger.Warn("refresh failed, keeping stale record", "id", rec.ID, "error", err)
			failed++
			continue
		}
		refreshed++
	}

	if refreshed > 0 || failed > 0 {
		s.logger.Info("refresh sweep complete", "refreshed", refreshed, "failed", failed, "total", len(records))
	}
}
