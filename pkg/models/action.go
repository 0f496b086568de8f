package models

// ActionType identifies one step kind in a workflow's effect pipeline. The set
// is closed: an unknown type is rejected when the workflow is saved, never at
// execution time.
type ActionType string

const (
	ActionTypeCreateTask         ActionType = "create_task"
	ActionTypeSendTextMessage    ActionType = "send_text_message"
	ActionTypeSendEmail          ActionType = "send_email"
	ActionTypeCreateNote         ActionType = "create_note"
	ActionTypeUpdateStage        ActionType = "update_stage"
	ActionTypeMovePipeline       ActionType = "move_pipeline"
	ActionTypeAssignUser         ActionType = "assign_user"
	ActionTypeCreateChannel      ActionType = "create_channel"
	ActionTypeSendChannelMessage ActionType = "send_channel_message"
	ActionTypeDelay              ActionType = "delay"
)

// Action is one step of a workflow's pipeline. Order is unique within a
// workflow and defines the execution sequence. DelayMinutes elapses before the
// action runs, counted from the completion of the previous action. Config is a
// tagged union keyed by Type; its shape is validated against the action
// type's schema when the workflow is saved.
type Action struct {
	ID           string         `json:"id"`
	Type         ActionType     `json:"type"  validate:"required"`
	Order        int            `json:"order" validate:"gte=0"`
	DelayMinutes int            `json:"delay" validate:"gte=0"`
	IsActive     bool           `json:"is_active"`
	Config       map[string]any `json:"config"`
}
