// Package ledger owns the lifecycle of execution records: creation, per-action
// progress, terminal transitions and the immutability guarantee once an
// execution completes or fails.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/fieldline/automation/pkg/events"
	"github.com/fieldline/automation/pkg/models"
	"github.com/fieldline/automation/pkg/persistence"
)

// Transition sentinels, surfaced by the API as conflicts.
var (
	ErrNotRunning = errors.New("execution is not running")
	ErrNotPaused  = errors.New("execution is not paused")
)

// Ledger persists and mutates execution state. Every mutation is a
// load-modify-save cycle under one mutex, so concurrent executions and
// analytics readers always observe whole records. Only the scheduler is
// expected to call the mutating methods.
type Ledger struct {
	executions persistence.ExecutionRepository
	logger     *slog.Logger
	now        func() time.Time

	mu sync.Mutex
}

func NewLedger(executions persistence.ExecutionRepository, logger *slog.Logger) *Ledger {
	return &Ledger{
		executions: executions,
		logger:     logger.With("module", "execution_ledger"),
		now:        time.Now,
	}
}

// CreateExecution snapshots the workflow's action list into a fresh running
// execution with one pending result per action. The snapshot is fixed here:
// later edits to the workflow do not touch this execution.
func (l *Ledger) CreateExecution(ctx context.Context, workflow *models.Workflow, event events.DomainEvent) (*models.Execution, error) {
	actions := workflow.ActionsInOrder()

	results := make([]*models.ActionExecutionResult, 0, len(actions))
	for _, action := range actions {
		results = append(results, &models.ActionExecutionResult{
			ActionID:   action.ID,
			ActionType: action.Type,
			Order:      action.Order,
			Status:     models.ActionResultPending,
		})
	}

	execution := &models.Execution{
		ID:          "exec-" + uuid.New().String()[:8],
		WorkflowID:  workflow.ID,
		TriggerData: triggerData(event),
		Status:      models.ExecutionStatusRunning,
		StartedAt:   l.now(),
		Results:     results,
	}

	if err := l.executions.Create(ctx, execution); err != nil {
		return nil, err
	}

	l.logger.InfoContext(ctx, "Created execution",
		"execution_id", execution.ID,
		"workflow_id", workflow.ID,
		"actions", len(results))

	return execution, nil
}

func triggerData(event events.DomainEvent) map[string]any {
	data := make(map[string]any, len(event.Snapshot)+6)
	for k, v := range event.Snapshot {
		data[k] = v
	}

	data["event_id"] = event.ID
	data["event_type"] = string(event.Type)

	if event.Pipeline != "" {
		data["pipeline"] = event.Pipeline
	}

	if event.FromStage != "" {
		data["from_stage"] = event.FromStage
	}

	if event.ToStage != "" {
		data["to_stage"] = event.ToStage
	}

	if event.Status != "" {
		data["status"] = event.Status
	}

	return data
}

// GetExecution returns one execution record.
func (l *Ledger) GetExecution(ctx context.Context, id string) (*models.Execution, error) {
	return l.executions.GetByID(ctx, id)
}

// List returns execution records matching the query.
func (l *Ledger) List(ctx context.Context, query persistence.ExecutionQuery) ([]*models.Execution, error) {
	return l.executions.List(ctx, query)
}

// StartAction marks the action's result running and stamps ExecutedAt.
func (l *Ledger) StartAction(ctx context.Context, executionID, actionID string) error {
	return l.mutateAction(ctx, executionID, actionID, func(r *models.ActionExecutionResult) {
		now := l.now()
		r.Status = models.ActionResultRunning
		r.ExecutedAt = &now
	})
}

// CompleteAction records a successful action invocation.
func (l *Ledger) CompleteAction(ctx context.Context, executionID, actionID string, result any) error {
	return l.mutateAction(ctx, executionID, actionID, func(r *models.ActionExecutionResult) {
		r.Status = models.ActionResultCompleted
		r.Result = result

		if r.ExecutedAt != nil {
			r.DurationMS = l.now().Sub(*r.ExecutedAt).Milliseconds()
		}
	})
}

// FailAction records a failed action invocation.
func (l *Ledger) FailAction(ctx context.Context, executionID, actionID, errorMessage string) error {
	return l.mutateAction(ctx, executionID, actionID, func(r *models.ActionExecutionResult) {
		r.Status = models.ActionResultFailed
		r.ErrorMessage = errorMessage

		if r.ExecutedAt != nil {
			r.DurationMS = l.now().Sub(*r.ExecutedAt).Milliseconds()
		}
	})
}

// SkipAction marks one action skipped without invocation.
func (l *Ledger) SkipAction(ctx context.Context, executionID, actionID string) error {
	return l.mutateAction(ctx, executionID, actionID, func(r *models.ActionExecutionResult) {
		r.Status = models.ActionResultSkipped
	})
}

// SkipRemaining marks every still-pending action skipped. Used by the abort
// failure policy.
func (l *Ledger) SkipRemaining(ctx context.Context, executionID string) error {
	return l.mutate(ctx, executionID, func(execution *models.Execution) error {
		for _, r := range execution.Results {
			if r.Status == models.ActionResultPending {
				r.Status = models.ActionResultSkipped
			}
		}

		return nil
	})
}

// CompleteExecution transitions the execution to its successful terminal
// state.
func (l *Ledger) CompleteExecution(ctx context.Context, executionID string) error {
	return l.mutate(ctx, executionID, func(execution *models.Execution) error {
		now := l.now()
		execution.Status = models.ExecutionStatusCompleted
		execution.CompletedAt = &now

		return nil
	})
}

// FailExecution transitions the execution to its failed terminal state.
func (l *Ledger) FailExecution(ctx context.Context, executionID, errorMessage string) error {
	return l.mutate(ctx, executionID, func(execution *models.Execution) error {
		now := l.now()
		execution.Status = models.ExecutionStatusFailed
		execution.CompletedAt = &now
		execution.ErrorMessage = errorMessage

		return nil
	})
}

// PauseExecution halts a running execution. Paused executions only resume
// through an explicit operator action.
func (l *Ledger) PauseExecution(ctx context.Context, executionID string) error {
	return l.mutate(ctx, executionID, func(execution *models.Execution) error {
		if execution.Status != models.ExecutionStatusRunning {
			return fmt.Errorf("%w: status %q", ErrNotRunning, execution.Status)
		}

		execution.Status = models.ExecutionStatusPaused

		// A result caught mid-flight goes back to pending so a resume
		// re-enters at this action.
		for _, r := range execution.Results {
			if r.Status == models.ActionResultRunning {
				r.Status = models.ActionResultPending
			}
		}

		return nil
	})
}

// ResumeExecution puts a paused execution back into running state.
func (l *Ledger) ResumeExecution(ctx context.Context, executionID string) error {
	return l.mutate(ctx, executionID, func(execution *models.Execution) error {
		if execution.Status != models.ExecutionStatusPaused {
			return fmt.Errorf("%w: status %q", ErrNotPaused, execution.Status)
		}

		execution.Status = models.ExecutionStatusRunning

		return nil
	})
}

func (l *Ledger) mutateAction(ctx context.Context, executionID, actionID string, apply func(*models.ActionExecutionResult)) error {
	return l.mutate(ctx, executionID, func(execution *models.Execution) error {
		result := execution.ResultForAction(actionID)
		if result == nil {
			return fmt.Errorf("action %s has no result entry in execution %s", actionID, executionID)
		}

		apply(result)

		return nil
	})
}

func (l *Ledger) mutate(ctx context.Context, executionID string, apply func(*models.Execution) error) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	execution, err := l.executions.GetByID(ctx, executionID)
	if err != nil {
		return err
	}

	if execution.Status.IsTerminal() {
		return persistence.NewExecutionError("Mutate", executionID, persistence.ErrExecutionImmutable)
	}

	if err := apply(execution); err != nil {
		return err
	}

	return l.executions.Save(ctx, execution)
}
