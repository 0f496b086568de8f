// Package analytics derives read-only aggregates from the execution ledger.
// Aggregation is a pure read: it never blocks or interferes with live
// scheduling.
package analytics

import (
	"context"
	"log/slog"
	"time"

	"github.com/fieldline/automation/pkg/models"
	"github.com/fieldline/automation/pkg/persistence"
)

const defaultRangeDays = 30

// Query narrows the aggregate to one workflow and/or a date range. A zero
// range means the last 30 days.
type Query struct {
	WorkflowID string
	From       time.Time
	To         time.Time
}

type Aggregator struct {
	executions persistence.ExecutionRepository
	logger     *slog.Logger
	now        func() time.Time
}

func NewAggregator(executions persistence.ExecutionRepository, logger *slog.Logger) *Aggregator {
	return &Aggregator{
		executions: executions,
		logger:     logger.With("module", "analytics_aggregator"),
		now:        time.Now,
	}
}

// Compute folds the matching ledger records into one analytics snapshot.
func (a *Aggregator) Compute(ctx context.Context, query Query) (*models.AutomationAnalytics, error) {
	from, to := a.resolveRange(query)

	executions, err := a.executions.List(ctx, persistence.ExecutionQuery{
		WorkflowID: query.WorkflowID,
		From:       from,
		To:         to,
	})
	if err != nil {
		return nil, err
	}

	analytics := &models.AutomationAnalytics{
		ByActionType: make(map[string]models.ActionTypeStats),
	}

	daily := newDailyBuckets(from, to)

	var completedDurations float64

	var completedCount int

	for _, execution := range executions {
		analytics.TotalExecutions++

		day := execution.StartedAt.UTC().Format(time.DateOnly)

		if bucket, ok := daily[day]; ok {
			bucket.Executions++
		}

		switch execution.Status {
		case models.ExecutionStatusCompleted:
			analytics.SuccessfulExecutions++

			if bucket, ok := daily[day]; ok {
				bucket.Successful++
			}
		case models.ExecutionStatusFailed:
			analytics.FailedExecutions++

			if bucket, ok := daily[day]; ok {
				bucket.Failed++
			}
		case models.ExecutionStatusRunning, models.ExecutionStatusPaused:
		}

		if execution.CompletedAt != nil {
			completedDurations += execution.DurationMinutes()
			completedCount++
		}

		a.foldActionResults(analytics, execution)
	}

	if completedCount > 0 {
		analytics.AvgDurationMinutes = completedDurations / float64(completedCount)
	}

	analytics.Daily = flattenDaily(from, to, daily)

	return analytics, nil
}

// foldActionResults accumulates per-action-type counters. Skipped and pending
// actions were never invoked and stay out of the success rate.
func (a *Aggregator) foldActionResults(analytics *models.AutomationAnalytics, execution *models.Execution) {
	for _, result := range execution.Results {
		if result.Status != models.ActionResultCompleted && result.Status != models.ActionResultFailed {
			continue
		}

		key := string(result.ActionType)
		stats := analytics.ByActionType[key]
		stats.Total++

		if result.Status == models.ActionResultCompleted {
			stats.Completed++
		} else {
			stats.Failed++
		}

		stats.SuccessRate = float64(stats.Completed) / float64(stats.Total)

		// Running average over invoked actions.
		duration := float64(result.DurationMS) / float64(time.Minute.Milliseconds())
		stats.AvgDurationMinutes += (duration - stats.AvgDurationMinutes) / float64(stats.Total)

		analytics.ByActionType[key] = stats
	}
}

func (a *Aggregator) resolveRange(query Query) (time.Time, time.Time) {
	from, to := query.From, query.To

	if to.IsZero() {
		to = a.now()
	}

	if from.IsZero() {
		from = to.AddDate(0, 0, -defaultRangeDays)
	}

	return from, to
}

func newDailyBuckets(from, to time.Time) map[string]*models.DailyStats {
	buckets := make(map[string]*models.DailyStats)

	for day := from.UTC().Truncate(24 * time.Hour); !day.After(to.UTC()); day = day.AddDate(0, 0, 1) {
		key := day.Format(time.DateOnly)
		buckets[key] = &models.DailyStats{Date: key}
	}

	return buckets
}

func flattenDaily(from, to time.Time, buckets map[string]*models.DailyStats) []models.DailyStats {
	out := make([]models.DailyStats, 0, len(buckets))

	for day := from.UTC().Truncate(24 * time.Hour); !day.After(to.UTC()); day = day.AddDate(0, 0, 1) {
		if bucket, ok := buckets[day.Format(time.DateOnly)]; ok {
			out = append(out, *bucket)
		}
	}

	return out
}
