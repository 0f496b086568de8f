// Package scheduler runs matched workflows as independent executions. Each
// execution is one goroutine that walks the action list strictly in order,
// suspending on the runtime timer for inter-action delays, so concurrent
// executions are not bounded by threads.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/fieldline/automation/pkg/eventbus"
	"github.com/fieldline/automation/pkg/events"
	"github.com/fieldline/automation/pkg/executors"
	"github.com/fieldline/automation/pkg/ledger"
	"github.com/fieldline/automation/pkg/models"
	"github.com/fieldline/automation/pkg/otelhelper"
)

const (
	defaultActionTimeout = 2 * time.Minute
	retryBackoff         = 5 * time.Second
)

// WorkflowSource is the slice of the workflow store the scheduler needs:
// status re-reads at action boundaries and execution counter updates.
type WorkflowSource interface {
	GetByID(ctx context.Context, id string) (*models.Workflow, error)
	RecordExecution(ctx context.Context, id string, at time.Time) error
}

// ExecutorRegistry builds a ready-to-run executor for one action.
type ExecutorRegistry interface {
	Create(actionType models.ActionType, config map[string]any) (executors.Action, error)
}

type Scheduler struct {
	workflows     WorkflowSource
	ledger        *ledger.Ledger
	registry      ExecutorRegistry
	publisher     eventbus.EventPublisher
	clock         Clock
	tracer        trace.Tracer
	logger        *slog.Logger
	actionTimeout time.Duration

	wg sync.WaitGroup
}

type Option func(*Scheduler)

// WithClock replaces the wall clock, used by tests to drive delays.
func WithClock(clock Clock) Option {
	return func(s *Scheduler) {
		s.clock = clock
	}
}

// WithActionTimeout bounds a single executor invocation. A timed-out
// invocation is a transient failure.
func WithActionTimeout(timeout time.Duration) Option {
	return func(s *Scheduler) {
		s.actionTimeout = timeout
	}
}

func WithTracer(tracer trace.Tracer) Option {
	return func(s *Scheduler) {
		s.tracer = tracer
	}
}

func NewScheduler(
	workflows WorkflowSource,
	executionLedger *ledger.Ledger,
	registry ExecutorRegistry,
	publisher eventbus.EventPublisher,
	logger *slog.Logger,
	opts ...Option,
) *Scheduler {
	s := &Scheduler{
		workflows:     workflows,
		ledger:        executionLedger,
		registry:      registry,
		publisher:     publisher,
		clock:         NewRealClock(),
		tracer:        noop.NewTracerProvider().Tracer("scheduler"),
		logger:        logger.With("module", "action_scheduler"),
		actionTimeout: defaultActionTimeout,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Dispatch creates the execution record and starts its run loop. It returns
// as soon as the execution exists; the actions proceed on their own
// goroutine. Re-delivering the same event creates a new execution, it never
// mutates an existing one.
func (s *Scheduler) Dispatch(ctx context.Context, workflow *models.Workflow, event events.DomainEvent) (*models.Execution, error) {
	execution, err := s.ledger.CreateExecution(ctx, workflow, event)
	if err != nil {
		return nil, err
	}

	if err := s.workflows.RecordExecution(ctx, workflow.ID, execution.StartedAt); err != nil {
		s.logger.ErrorContext(ctx, "Failed to record execution on workflow",
			"workflow_id", workflow.ID, "error", err)
	}

	started := events.ExecutionStarted{
		BaseEvent:   events.NewBaseEvent(events.ExecutionStartedEvent, workflow.ID),
		ExecutionID: execution.ID,
		EventID:     event.ID,
	}
	s.publish(ctx, execution.ID, started)

	s.wg.Add(1)

	go func() {
		defer s.wg.Done()
		s.run(ctx, workflow, execution, event)
	}()

	return execution, nil
}

// Resume re-enters a paused execution at its next pending action. Only an
// explicit operator call reaches here; paused executions never resume on
// their own.
func (s *Scheduler) Resume(ctx context.Context, executionID string) (*models.Execution, error) {
	if err := s.ledger.ResumeExecution(ctx, executionID); err != nil {
		return nil, err
	}

	execution, err := s.ledger.GetExecution(ctx, executionID)
	if err != nil {
		return nil, err
	}

	workflow, err := s.workflows.GetByID(ctx, execution.WorkflowID)
	if err != nil {
		return nil, err
	}

	resumed := events.ExecutionResumed{
		BaseEvent:   events.NewBaseEvent(events.ExecutionResumedEvent, workflow.ID),
		ExecutionID: execution.ID,
	}
	s.publish(ctx, execution.ID, resumed)

	event := eventFromTriggerData(workflow, execution)

	s.wg.Add(1)

	go func() {
		defer s.wg.Done()
		s.run(ctx, workflow, execution, event)
	}()

	return execution, nil
}

// Wait blocks until every in-flight execution goroutine has finished. Used
// during shutdown.
func (s *Scheduler) Wait() {
	s.wg.Wait()
}

// eventFromTriggerData rebuilds the triggering event from the execution's
// stored snapshot so resumed actions see the same field values the original
// run did.
func eventFromTriggerData(workflow *models.Workflow, execution *models.Execution) events.DomainEvent {
	event := events.DomainEvent{
		Type:     workflow.Trigger.Type,
		Snapshot: execution.TriggerData,
	}

	if id, ok := execution.TriggerData["event_id"].(string); ok {
		event.ID = id
	}

	if v, ok := execution.TriggerData["pipeline"].(string); ok {
		event.Pipeline = v
	}

	if v, ok := execution.TriggerData["from_stage"].(string); ok {
		event.FromStage = v
	}

	if v, ok := execution.TriggerData["to_stage"].(string); ok {
		event.ToStage = v
	}

	if v, ok := execution.TriggerData["status"].(string); ok {
		event.Status = v
	}

	return event
}

func (s *Scheduler) run(ctx context.Context, workflow *models.Workflow, execution *models.Execution, event events.DomainEvent) {
	ctx, span := otelhelper.StartSpan(ctx, s.tracer, "scheduler.run",
		attribute.String(otelhelper.WorkflowIDKey, workflow.ID),
		attribute.String(otelhelper.ExecutionIDKey, execution.ID),
		attribute.String(otelhelper.EventIDKey, event.ID),
	)
	defer span.End()

	logger := s.logger.With("workflow_id", workflow.ID, "execution_id", execution.ID)

	actions := make(map[string]*models.Action, len(workflow.Actions))
	for _, action := range workflow.Actions {
		actions[action.ID] = action
	}

	actionFailed := false

	for _, result := range execution.Results {
		if result.Status != models.ActionResultPending {
			continue
		}

		// A workflow paused after dispatch halts the execution at the
		// next action boundary; actions already past are untouched.
		if s.workflowHalted(ctx, workflow.ID) {
			s.pause(ctx, workflow, execution, logger)

			return
		}

		action, ok := actions[result.ActionID]
		if !ok {
			logger.Warn("Action missing from workflow definition, skipping", "action_id", result.ActionID)

			if err := s.ledger.SkipAction(ctx, execution.ID, result.ActionID); err != nil {
				logger.Error("Failed to record skipped action", "error", err)
			}

			continue
		}

		// Inactive actions are skipped without invocation and without
		// waiting out their delay.
		if !action.IsActive {
			if err := s.ledger.SkipAction(ctx, execution.ID, action.ID); err != nil {
				logger.Error("Failed to record skipped action", "error", err)
			}

			continue
		}

		if action.DelayMinutes > 0 {
			if halted := s.waitDelay(ctx, action, logger); halted {
				s.pause(ctx, workflow, execution, logger)

				return
			}

			// The workflow may have been paused while the timer ran.
			if s.workflowHalted(ctx, workflow.ID) {
				s.pause(ctx, workflow, execution, logger)

				return
			}
		}

		if err := s.ledger.StartAction(ctx, execution.ID, action.ID); err != nil {
			logger.Error("Failed to mark action running", "action_id", action.ID, "error", err)
		}

		output, err := s.invoke(ctx, workflow, action, event, logger)
		if err != nil {
			if ferr := s.ledger.FailAction(ctx, execution.ID, action.ID, err.Error()); ferr != nil {
				logger.Error("Failed to record action failure", "action_id", action.ID, "error", ferr)
			}

			logger.ErrorContext(ctx, "Action failed",
				"action_id", action.ID,
				"action_type", action.Type,
				"error", err)

			if workflow.FailurePolicyOrDefault() == models.FailurePolicyAbort {
				s.abort(ctx, workflow, execution, action, err, logger)

				return
			}

			actionFailed = true

			continue
		}

		if err := s.ledger.CompleteAction(ctx, execution.ID, action.ID, output); err != nil {
			logger.Error("Failed to record action result", "action_id", action.ID, "error", err)
		}
	}

	if err := s.ledger.CompleteExecution(ctx, execution.ID); err != nil {
		logger.Error("Failed to complete execution", "error", err)

		return
	}

	completed := events.ExecutionCompleted{
		BaseEvent:   events.NewBaseEvent(events.ExecutionCompletedEvent, workflow.ID),
		ExecutionID: execution.ID,
		Duration:    s.clock.Now().Sub(execution.StartedAt),
	}
	s.publish(ctx, execution.ID, completed)

	logger.InfoContext(ctx, "Execution completed", "had_action_failures", actionFailed)
}

// invoke runs one executor with a per-invocation timeout, retrying transient
// failures up to the workflow's retry budget.
func (s *Scheduler) invoke(ctx context.Context, workflow *models.Workflow, action *models.Action, event events.DomainEvent, logger *slog.Logger) (any, error) {
	executor, err := s.registry.Create(action.Type, action.Config)
	if err != nil {
		return nil, executors.NewPermanent(err)
	}

	ctx, span := otelhelper.StartSpan(ctx, s.tracer, "scheduler.invoke",
		attribute.String(otelhelper.ActionIDKey, action.ID),
		attribute.String(otelhelper.ActionTypeKey, string(action.Type)),
	)
	defer span.End()

	var output any

	for attempt := 0; ; attempt++ {
		actionCtx, cancel := context.WithTimeout(ctx, s.actionTimeout)
		output, err = executor.Execute(actionCtx, event, logger)

		cancel()

		if err == nil {
			return output, nil
		}

		if errors.Is(err, context.DeadlineExceeded) {
			err = executors.NewTransient(err)
		}

		if !executors.IsTransient(err) || attempt >= workflow.RetryAttempts {
			otelhelper.SetError(span, err)

			return nil, err
		}

		logger.WarnContext(ctx, "Retrying transient action failure",
			"action_id", action.ID,
			"attempt", attempt+1,
			"error", err)

		select {
		case <-ctx.Done():
			return nil, executors.NewTransient(ctx.Err())
		case <-s.clock.After(retryBackoff):
		}
	}
}

// waitDelay suspends until the action's delay elapses. Returns true when the
// surrounding context was cancelled first.
func (s *Scheduler) waitDelay(ctx context.Context, action *models.Action, logger *slog.Logger) bool {
	delay := time.Duration(action.DelayMinutes) * time.Minute

	logger.InfoContext(ctx, "Delaying action",
		"action_id", action.ID,
		"delay_minutes", action.DelayMinutes)

	select {
	case <-ctx.Done():
		return true
	case <-s.clock.After(delay):
		return false
	}
}

// workflowHalted reports whether the owning workflow can no longer run. A
// store read failure keeps the execution going on its dispatch-time snapshot.
func (s *Scheduler) workflowHalted(ctx context.Context, workflowID string) bool {
	current, err := s.workflows.GetByID(ctx, workflowID)
	if err != nil {
		return false
	}

	return !current.IsActive()
}

func (s *Scheduler) pause(ctx context.Context, workflow *models.Workflow, execution *models.Execution, logger *slog.Logger) {
	if err := s.ledger.PauseExecution(ctx, execution.ID); err != nil {
		logger.Error("Failed to pause execution", "error", err)

		return
	}

	paused := events.ExecutionPaused{
		BaseEvent:   events.NewBaseEvent(events.ExecutionPausedEvent, workflow.ID),
		ExecutionID: execution.ID,
	}
	s.publish(ctx, execution.ID, paused)

	logger.InfoContext(ctx, "Execution paused")
}

func (s *Scheduler) abort(ctx context.Context, workflow *models.Workflow, execution *models.Execution, action *models.Action, cause error, logger *slog.Logger) {
	if err := s.ledger.SkipRemaining(ctx, execution.ID); err != nil {
		logger.Error("Failed to skip remaining actions", "error", err)
	}

	message := fmt.Sprintf("action '%s' failed: %v", action.Type, cause)

	if err := s.ledger.FailExecution(ctx, execution.ID, message); err != nil {
		logger.Error("Failed to fail execution", "error", err)
	}

	failed := events.ExecutionFailed{
		BaseEvent:   events.NewBaseEvent(events.ExecutionFailedEvent, workflow.ID),
		ExecutionID: execution.ID,
		Error:       message,
		Duration:    s.clock.Now().Sub(execution.StartedAt),
	}
	s.publish(ctx, execution.ID, failed)

	logger.ErrorContext(ctx, "Execution aborted", "action_id", action.ID, "error", cause)
}

func (s *Scheduler) publish(ctx context.Context, key string, event eventbus.Event) {
	if s.publisher == nil {
		return
	}

	if err := s.publisher.Publish(ctx, key, event); err != nil {
		s.logger.ErrorContext(ctx, "Failed to publish engine event",
			"event_type", event.GetType(), "error", err)
	}
}
