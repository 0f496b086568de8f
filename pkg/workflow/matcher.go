package workflow

import (
	"context"
	"log/slog"

	"github.com/fieldline/automation/pkg/events"
	"github.com/fieldline/automation/pkg/filters"
	"github.com/fieldline/automation/pkg/models"
)

// TriggerMatcher decides which active workflows an incoming CRM event
// satisfies. Matching is exact equality on trigger discriminators followed by
// the filter fold; it is idempotent, so re-delivering the same event against
// an unchanged store yields the same matched set.
type TriggerMatcher struct {
	store     *Store
	evaluator filters.Evaluator
	logger    *slog.Logger
}

func NewTriggerMatcher(store *Store, logger *slog.Logger) *TriggerMatcher {
	return &TriggerMatcher{
		store:  store,
		logger: logger.With("module", "trigger_matcher"),
	}
}

// Match returns every active workflow whose trigger and filters the event
// satisfies. Each match produces an independent execution downstream.
func (tm *TriggerMatcher) Match(ctx context.Context, event events.DomainEvent) ([]*models.Workflow, error) {
	if err := event.Validate(); err != nil {
		// Malformed events do not match; they are logged for diagnostics and
		// never raised (MatchError semantics).
		tm.logger.WarnContext(ctx, "Discarding malformed domain event", "error", err)

		return nil, nil
	}

	candidates, err := tm.store.ActiveForTrigger(ctx, event.Type, event.Pipeline)
	if err != nil {
		return nil, err
	}

	matched := make([]*models.Workflow, 0)

	for _, workflow := range candidates {
		if !tm.matchTrigger(event, workflow.Trigger) {
			continue
		}

		if !tm.evaluator.Evaluate(workflow.Filters, event.Snapshot) {
			tm.logger.DebugContext(ctx, "Filters evaluated false",
				"workflow_id", workflow.ID,
				"event_id", event.ID)

			continue
		}

		matched = append(matched, workflow)

		tm.logger.DebugContext(ctx, "Workflow matched event",
			"workflow_id", workflow.ID,
			"workflow_name", workflow.Name,
			"event_id", event.ID)
	}

	tm.logger.InfoContext(ctx, "Completed trigger matching",
		"event_id", event.ID,
		"event_type", event.Type,
		"matches_found", len(matched))

	return matched, nil
}

// matchTrigger compares the event against the trigger's discriminating
// fields. Empty trigger fields act as wildcards; non-empty ones must equal
// the event's exactly.
func (tm *TriggerMatcher) matchTrigger(event events.DomainEvent, trigger *models.Trigger) bool {
	if trigger.Type != event.Type {
		return false
	}

	if trigger.Pipeline != "" && trigger.Pipeline != event.Pipeline {
		return false
	}

	switch trigger.Type {
	case models.TriggerTypeStageChange:
		if trigger.FromStage != "" && trigger.FromStage != event.FromStage {
			return false
		}

		if trigger.ToStage != "" && trigger.ToStage != event.ToStage {
			return false
		}
	case models.TriggerTypeStatusChange:
		if trigger.Status != "" && trigger.Status != event.Status {
			return false
		}
	}

	for _, label := range trigger.Labels {
		if !containsLabel(event.Labels, label) {
			return false
		}
	}

	return true
}

func containsLabel(labels []string, label string) bool {
	for _, l := range labels {
		if l == label {
			return true
		}
	}

	return false
}
