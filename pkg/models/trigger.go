package models

// TriggerType identifies which kind of CRM transition a workflow listens for.
type TriggerType string

const (
	TriggerTypeStageChange  TriggerType = "stage_change"  // Record moved between pipeline stages
	TriggerTypeStatusChange TriggerType = "status_change" // Record status changed
)

// Trigger is the event-shape condition that makes a workflow eligible to run.
// The discriminating fields present must match the trigger type: a
// stage_change trigger uses Pipeline and FromStage/ToStage, a status_change
// trigger uses Status. Empty discriminators act as wildcards.
type Trigger struct {
	Type      TriggerType `json:"type" validate:"required,oneof=stage_change status_change"`
	Pipeline  string      `json:"pipeline,omitempty"`
	FromStage string      `json:"from_stage,omitempty"`
	ToStage   string      `json:"to_stage,omitempty"`
	Status    string      `json:"status,omitempty"`
	Labels    []string    `json:"labels,omitempty"`
}
