package web

import (
	"github.com/fieldline/automation/pkg/models"
)

// ActionRequest is one action in a create/update body. IsActive is a pointer
// so an omitted field means active, not silently disabled.
type ActionRequest struct {
	ID           string            `json:"id"`
	Type         models.ActionType `json:"type"  validate:"required"`
	Order        int               `json:"order" validate:"gte=0"`
	DelayMinutes int               `json:"delay" validate:"gte=0"`
	IsActive     *bool             `json:"is_active"`
	Config       map[string]any    `json:"config"`
}

func (r *ActionRequest) toModel() *models.Action {
	active := true
	if r.IsActive != nil {
		active = *r.IsActive
	}

	return &models.Action{
		ID:           r.ID,
		Type:         r.Type,
		Order:        r.Order,
		DelayMinutes: r.DelayMinutes,
		IsActive:     active,
		Config:       r.Config,
	}
}

func actionsFromRequest(requests []*ActionRequest) []*models.Action {
	actions := make([]*models.Action, 0, len(requests))
	for _, r := range requests {
		actions = append(actions, r.toModel())
	}

	return actions
}

// CreateWorkflowRequest is the JSON body for POST /workflows.
type CreateWorkflowRequest struct {
	Name          string                `json:"name"          validate:"required,min=3"`
	Description   string                `json:"description"`
	Status        models.WorkflowStatus `json:"status"        validate:"omitempty,oneof=active paused draft"`
	Trigger       *models.Trigger       `json:"trigger"       validate:"required"`
	Filters       []*models.Filter      `json:"filters"`
	Actions       []*ActionRequest      `json:"actions"       validate:"required,min=1,dive"`
	OnFailure     models.FailurePolicy  `json:"on_failure"    validate:"omitempty,oneof=abort continue"`
	RetryAttempts int                   `json:"retry_attempts" validate:"gte=0,lte=5"`
	Owner         string                `json:"owner"`
}

// UpdateWorkflowRequest is the JSON body for PATCH /workflows/:id. Nil fields
// keep their current value.
type UpdateWorkflowRequest struct {
	Name          *string               `json:"name"           validate:"omitempty,min=3"`
	Description   *string               `json:"description"`
	Trigger       *models.Trigger       `json:"trigger"`
	Filters       []*models.Filter      `json:"filters"`
	Actions       []*ActionRequest      `json:"actions"        validate:"omitempty,min=1,dive"`
	OnFailure     *models.FailurePolicy `json:"on_failure"     validate:"omitempty,oneof=abort continue"`
	RetryAttempts *int                  `json:"retry_attempts" validate:"omitempty,gte=0,lte=5"`
}

// SetStatusRequest is the JSON body for PUT /workflows/:id/status.
type SetStatusRequest struct {
	Status models.WorkflowStatus `json:"status" validate:"required,oneof=active paused draft"`
}
