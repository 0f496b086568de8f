// Package engine connects the inbound CRM event stream to trigger matching
// and execution dispatch.
package engine

import (
	"context"
	"log/slog"

	"github.com/fieldline/automation/pkg/eventbus"
	"github.com/fieldline/automation/pkg/events"
	"github.com/fieldline/automation/pkg/scheduler"
	"github.com/fieldline/automation/pkg/workflow"
)

// Engine consumes CRM transitions and dispatches one execution per matched
// workflow. Errors in one event's handling never affect another event.
type Engine struct {
	matcher   *workflow.TriggerMatcher
	scheduler *scheduler.Scheduler
	bus       eventbus.DomainEventBus
	logger    *slog.Logger
}

func NewEngine(matcher *workflow.TriggerMatcher, sched *scheduler.Scheduler, bus eventbus.DomainEventBus, logger *slog.Logger) *Engine {
	return &Engine{
		matcher:   matcher,
		scheduler: sched,
		bus:       bus,
		logger:    logger.With("module", "engine"),
	}
}

// Start registers the event handler and begins consuming the CRM topic.
func (e *Engine) Start(ctx context.Context) error {
	if err := e.bus.HandleDomainEvents(e.HandleEvent); err != nil {
		return err
	}

	if err := e.bus.SubscribeToDomainEvents(ctx); err != nil {
		return err
	}

	e.logger.InfoContext(ctx, "Engine started")

	return nil
}

// HandleEvent runs one CRM transition through matching and dispatch.
func (e *Engine) HandleEvent(ctx context.Context, event *events.DomainEvent) error {
	matched, err := e.matcher.Match(ctx, *event)
	if err != nil {
		e.logger.ErrorContext(ctx, "Trigger matching failed", "event_id", event.ID, "error", err)

		return err
	}

	for _, w := range matched {
		execution, err := e.scheduler.Dispatch(ctx, w, *event)
		if err != nil {
			// One workflow's dispatch failure never blocks the others.
			e.logger.ErrorContext(ctx, "Failed to dispatch execution",
				"workflow_id", w.ID,
				"event_id", event.ID,
				"error", err)

			continue
		}

		e.logger.InfoContext(ctx, "Dispatched execution",
			"workflow_id", w.ID,
			"execution_id", execution.ID,
			"event_id", event.ID)
	}

	return nil
}

// Stop waits for in-flight executions and closes the bus.
func (e *Engine) Stop(ctx context.Context) error {
	e.scheduler.Wait()

	if err := e.bus.Close(); err != nil {
		e.logger.ErrorContext(ctx, "Error closing domain event bus", "error", err)

		return err
	}

	e.logger.InfoContext(ctx, "Engine stopped")

	return nil
}
