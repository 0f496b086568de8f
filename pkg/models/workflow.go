// Package models defines the core domain models for CRM automation workflows.
package models

import "time"

// WorkflowStatus represents the lifecycle state of a workflow.
type WorkflowStatus string

const (
	WorkflowStatusActive WorkflowStatus = "active" // Matches events, executable
	WorkflowStatusPaused WorkflowStatus = "paused" // Kept, but never matches new events
	WorkflowStatusDraft  WorkflowStatus = "draft"  // Editable, never matches events
)

// FailurePolicy decides what happens to the remaining actions when one fails
// with a permanent error.
type FailurePolicy string

const (
	FailurePolicyAbort    FailurePolicy = "abort"    // Remaining actions are skipped, execution fails
	FailurePolicyContinue FailurePolicy = "continue" // The failed action is recorded, the rest still run
)

// Workflow combines one trigger, an ordered filter chain and an ordered action
// list into a named automation definition.
type Workflow struct {
	ID              string         `json:"id"`
	Name            string         `json:"name"        validate:"required,min=3"`
	Description     string         `json:"description,omitempty"`
	Status          WorkflowStatus `json:"status"      validate:"required,oneof=active paused draft"`
	Trigger         *Trigger       `json:"trigger"     validate:"required"`
	Filters         []*Filter      `json:"filters,omitempty"`
	Actions         []*Action      `json:"actions"     validate:"required,min=1,dive,required"`
	OnFailure       FailurePolicy  `json:"on_failure,omitempty"    validate:"omitempty,oneof=abort continue"`
	RetryAttempts   int            `json:"retry_attempts,omitempty" validate:"gte=0,lte=5"`
	TotalExecutions int64          `json:"total_executions"`
	LastExecutedAt  *time.Time     `json:"last_executed_at,omitempty"`
	Owner           string         `json:"owner,omitempty"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
	DeletedAt       *time.Time     `json:"deleted_at,omitempty"` // Soft delete preserves audit history
}

// IsActive reports whether the workflow is eligible for trigger matching.
func (w *Workflow) IsActive() bool {
	return w.Status == WorkflowStatusActive && w.DeletedAt == nil
}

// FailurePolicyOrDefault returns the configured failure policy, defaulting to
// abort when unset.
func (w *Workflow) FailurePolicyOrDefault() FailurePolicy {
	if w.OnFailure == "" {
		return FailurePolicyAbort
	}

	return w.OnFailure
}

// ActionsInOrder returns the workflow actions sorted by ascending Order.
func (w *Workflow) ActionsInOrder() []*Action {
	sorted := make([]*Action, len(w.Actions))
	copy(sorted, w.Actions)

	for i := 1; i < len(sorted); i++ {
		for j := i; j > 0 && sorted[j-1].Order > sorted[j].Order; j-- {
			sorted[j-1], sorted[j] = sorted[j], sorted[j-1]
		}
	}

	return sorted
}
