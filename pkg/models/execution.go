package models

import "time"

// ExecutionStatus is the lifecycle state of one workflow run. Completed and
// failed are terminal; a terminal execution is immutable.
type ExecutionStatus string

const (
	ExecutionStatusRunning   ExecutionStatus = "running"
	ExecutionStatusCompleted ExecutionStatus = "completed"
	ExecutionStatusFailed    ExecutionStatus = "failed"
	ExecutionStatusPaused    ExecutionStatus = "paused"
)

// IsTerminal reports whether the status permits no further transitions.
func (s ExecutionStatus) IsTerminal() bool {
	return s == ExecutionStatusCompleted || s == ExecutionStatusFailed
}

// ActionResultStatus is the state of one action within one execution.
type ActionResultStatus string

const (
	ActionResultPending   ActionResultStatus = "pending"
	ActionResultRunning   ActionResultStatus = "running"
	ActionResultCompleted ActionResultStatus = "completed"
	ActionResultFailed    ActionResultStatus = "failed"
	ActionResultSkipped   ActionResultStatus = "skipped"
)

// ActionExecutionResult records the progress of one action within one
// execution. One is created per action, in pending state, the instant the
// execution is created, and advanced in place as the scheduler proceeds.
type ActionExecutionResult struct {
	ActionID     string             `json:"action_id"`
	ActionType   ActionType         `json:"action_type"`
	Order        int                `json:"order"`
	Status       ActionResultStatus `json:"status"`
	ExecutedAt   *time.Time         `json:"executed_at,omitempty"`
	DurationMS   int64              `json:"duration_ms,omitempty"`
	Result       any                `json:"result,omitempty"`
	ErrorMessage string             `json:"error_message,omitempty"`
}

// Execution is one run of a workflow's action pipeline in response to one
// matched event. The action result list is fixed at creation time: editing
// the workflow afterwards does not change an in-flight execution.
type Execution struct {
	ID           string                   `json:"id"`
	WorkflowID   string                   `json:"workflow_id"`
	TriggerData  map[string]any           `json:"trigger_data,omitempty"`
	Status       ExecutionStatus          `json:"status"`
	StartedAt    time.Time                `json:"started_at"`
	CompletedAt  *time.Time               `json:"completed_at,omitempty"`
	ErrorMessage string                   `json:"error_message,omitempty"`
	Results      []*ActionExecutionResult `json:"results"`
}

// ResultForAction returns the result entry for the given action ID.
func (e *Execution) ResultForAction(actionID string) *ActionExecutionResult {
	for _, r := range e.Results {
		if r.ActionID == actionID {
			return r
		}
	}

	return nil
}

// NextPendingIndex returns the index of the first result still pending, or -1
// when every action has reached a terminal result state. Used when resuming a
// paused execution.
func (e *Execution) NextPendingIndex() int {
	for i, r := range e.Results {
		if r.Status == ActionResultPending || r.Status == ActionResultRunning {
			return i
		}
	}

	return -1
}

// DurationMinutes returns completed-at minus started-at in minutes, or 0 when
// the execution has not finished.
func (e *Execution) DurationMinutes() float64 {
	if e.CompletedAt == nil {
		return 0
	}

	return e.CompletedAt.Sub(e.StartedAt).Minutes()
}
