package analytics

import (
	"context"
	"log/slog"
	"sync/atomic"

	"github.com/robfig/cron/v3"

	"github.com/fieldline/automation/pkg/models"
)

// DefaultSchedule recomputes the global snapshot every five minutes.
const DefaultSchedule = "*/5 * * * *"

// Refresher keeps a periodically recomputed global analytics snapshot so the
// dashboard read path never touches the ledger directly.
type Refresher struct {
	aggregator *Aggregator
	schedule   string
	cron       *cron.Cron
	logger     *slog.Logger
	snapshot   atomic.Pointer[models.AutomationAnalytics]
}

func NewRefresher(aggregator *Aggregator, schedule string, logger *slog.Logger) *Refresher {
	if schedule == "" {
		schedule = DefaultSchedule
	}

	return &Refresher{
		aggregator: aggregator,
		schedule:   schedule,
		cron:       cron.New(),
		logger:     logger.With("module", "analytics_refresher"),
	}
}

// Start computes an initial snapshot and schedules periodic recomputation.
func (r *Refresher) Start(ctx context.Context) error {
	r.Refresh(ctx)

	_, err := r.cron.AddFunc(r.schedule, func() {
		r.Refresh(ctx)
	})
	if err != nil {
		return err
	}

	r.cron.Start()

	r.logger.InfoContext(ctx, "Analytics refresher started", "schedule", r.schedule)

	return nil
}

// Stop halts the schedule. A refresh already in flight finishes.
func (r *Refresher) Stop() {
	<-r.cron.Stop().Done()
}

// Refresh recomputes the global snapshot over the default range.
func (r *Refresher) Refresh(ctx context.Context) {
	analytics, err := r.aggregator.Compute(ctx, Query{})
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to refresh analytics snapshot", "error", err)

		return
	}

	r.snapshot.Store(analytics)
}

// Snapshot returns the latest computed aggregate, or nil before the first
// refresh completes.
func (r *Refresher) Snapshot() *models.AutomationAnalytics {
	return r.snapshot.Load()
}
