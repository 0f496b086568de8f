// Package testutil provides test data builders and utilities for testing.
package testutil

import (
	"github.com/google/uuid"

	"github.com/fieldline/automation/pkg/models"
)

// CreateTestWorkflow creates an active workflow with one trigger and one
// action, overridable per test.
func CreateTestWorkflow(overrides ...func(*models.Workflow)) *models.Workflow {
	workflow := &models.Workflow{
		ID:     uuid.New().String(),
		Name:   "Test Workflow",
		Status: models.WorkflowStatusActive,
		Trigger: &models.Trigger{
			Type:     models.TriggerTypeStageChange,
			Pipeline: "sales",
			ToStage:  "proposal_sent",
		},
		Actions: []*models.Action{
			CreateTestAction(),
		},
	}

	for _, override := range overrides {
		override(workflow)
	}

	return workflow
}

// CreateTestAction creates an active create_note action with default values.
func CreateTestAction(overrides ...func(*models.Action)) *models.Action {
	action := &models.Action{
		ID:       uuid.New().String(),
		Type:     models.ActionTypeCreateNote,
		Order:    0,
		IsActive: true,
		Config:   map[string]any{"note": "test note"},
	}

	for _, override := range overrides {
		override(action)
	}

	return action
}

// WithActions replaces the workflow's action list.
func WithActions(actions ...*models.Action) func(*models.Workflow) {
	return func(w *models.Workflow) {
		w.Actions = actions
	}
}

// WithTrigger replaces the workflow's trigger.
func WithTrigger(trigger *models.Trigger) func(*models.Workflow) {
	return func(w *models.Workflow) {
		w.Trigger = trigger
	}
}

// WithFilters sets the workflow's filter chain.
func WithFilters(filters ...*models.Filter) func(*models.Workflow) {
	return func(w *models.Workflow) {
		w.Filters = filters
	}
}

// WithStatus sets the workflow status.
func WithStatus(status models.WorkflowStatus) func(*models.Workflow) {
	return func(w *models.Workflow) {
		w.Status = status
	}
}

// WithFailurePolicy sets the workflow's failure policy.
func WithFailurePolicy(policy models.FailurePolicy) func(*models.Workflow) {
	return func(w *models.Workflow) {
		w.OnFailure = policy
	}
}

// WithRetryAttempts sets the transient retry budget.
func WithRetryAttempts(attempts int) func(*models.Workflow) {
	return func(w *models.Workflow) {
		w.RetryAttempts = attempts
	}
}

// WithActionType sets the action type and clears the config.
func WithActionType(actionType models.ActionType) func(*models.Action) {
	return func(a *models.Action) {
		a.Type = actionType
		a.Config = map[string]any{}
	}
}

// WithActionConfig sets the action configuration.
func WithActionConfig(config map[string]any) func(*models.Action) {
	return func(a *models.Action) {
		a.Config = config
	}
}

// WithOrder sets the action's position in the pipeline.
func WithOrder(order int) func(*models.Action) {
	return func(a *models.Action) {
		a.Order = order
	}
}

// WithDelay sets the action's delay in minutes.
func WithDelay(minutes int) func(*models.Action) {
	return func(a *models.Action) {
		a.DelayMinutes = minutes
	}
}

// WithInactive marks the action inactive so the scheduler skips it.
func WithInactive() func(*models.Action) {
	return func(a *models.Action) {
		a.IsActive = false
	}
}
