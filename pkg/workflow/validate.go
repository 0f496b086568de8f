package workflow

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"

	"github.com/fieldline/automation/pkg/filters"
	"github.com/fieldline/automation/pkg/models"
)

// ErrValidation is the sentinel wrapped by every save-time validation failure.
var ErrValidation = errors.New("workflow validation failed")

// ConfigValidator validates an action's raw config document against the shape
// its type requires. Implemented by the executor registry, which owns the
// closed set of action types.
type ConfigValidator interface {
	ValidateConfig(actionType models.ActionType, config map[string]any) error
}

var knownOperators = map[models.FilterOperator]bool{
	models.OperatorEquals:         true,
	models.OperatorNotEquals:      true,
	models.OperatorContains:       true,
	models.OperatorNotContains:    true,
	models.OperatorGreaterThan:    true,
	models.OperatorLessThan:       true,
	models.OperatorGreaterOrEqual: true,
	models.OperatorLessOrEqual:    true,
	models.OperatorIsEmpty:        true,
	models.OperatorIsNotEmpty:     true,
	models.OperatorHasLabel:       true,
	models.OperatorNotHasLabel:    true,
}

// Validator runs the full save-time validation from the workflow shape down
// to per-action config documents. Nothing validated here can fail again at
// execution time.
type Validator struct {
	validate *validator.Validate
	configs  ConfigValidator
}

func NewValidator(configs ConfigValidator) *Validator {
	return &Validator{
		validate: validator.New(),
		configs:  configs,
	}
}

func (v *Validator) Validate(workflow *models.Workflow) error {
	if err := v.validate.Struct(workflow); err != nil {
		return fmt.Errorf("%w: %w", ErrValidation, err)
	}

	if err := v.validateTrigger(workflow.Trigger); err != nil {
		return fmt.Errorf("%w: %w", ErrValidation, err)
	}

	if err := v.validateFilters(workflow.Filters); err != nil {
		return fmt.Errorf("%w: %w", ErrValidation, err)
	}

	if err := v.validateActions(workflow.Actions); err != nil {
		return fmt.Errorf("%w: %w", ErrValidation, err)
	}

	return nil
}

// validateTrigger checks that the discriminating fields present match the
// trigger type.
func (v *Validator) validateTrigger(trigger *models.Trigger) error {
	switch trigger.Type {
	case models.TriggerTypeStageChange:
		if trigger.Status != "" {
			return errors.New("stage_change trigger must not carry a status discriminator")
		}

		if trigger.FromStage == "" && trigger.ToStage == "" {
			return errors.New("stage_change trigger requires from_stage or to_stage")
		}
	case models.TriggerTypeStatusChange:
		if trigger.FromStage != "" || trigger.ToStage != "" {
			return errors.New("status_change trigger must not carry stage discriminators")
		}

		if trigger.Status == "" {
			return errors.New("status_change trigger requires a status")
		}
	default:
		return fmt.Errorf("unknown trigger type %q", trigger.Type)
	}

	return nil
}

func (v *Validator) validateFilters(filterList []*models.Filter) error {
	for i, filter := range filterList {
		if !knownOperators[filter.Operator] {
			return fmt.Errorf("filter %d: unknown operator %q", i, filter.Operator)
		}

		// Numeric operators must carry a numeric comparison value; catching
		// this here keeps evaluation-time anomalies strictly "does not
		// match", never a crash.
		if models.NumericOperators[filter.Operator] {
			if _, ok := filters.ToNumber(filter.Value); !ok {
				return fmt.Errorf("filter %d: operator %q requires a numeric value, got %v", i, filter.Operator, filter.Value)
			}
		}

		if filter.LogicalOperator == "" && i < len(filterList)-1 {
			return fmt.Errorf("filter %d: logical operator required before filter %d", i, i+1)
		}
	}

	return nil
}

func (v *Validator) validateActions(actions []*models.Action) error {
	seenOrders := make(map[int]bool, len(actions))
	seenIDs := make(map[string]bool, len(actions))

	for i, action := range actions {
		if action.DelayMinutes < 0 {
			return fmt.Errorf("action %d: delay must be >= 0", i)
		}

		if seenOrders[action.Order] {
			return fmt.Errorf("action %d: duplicate order %d", i, action.Order)
		}

		seenOrders[action.Order] = true

		// Results track their action by ID; colliding IDs would make every
		// status update land on one result.
		if action.ID != "" {
			if seenIDs[action.ID] {
				return fmt.Errorf("action %d: duplicate id %q", i, action.ID)
			}

			seenIDs[action.ID] = true
		}

		if v.configs != nil {
			if err := v.configs.ValidateConfig(action.Type, action.Config); err != nil {
				return fmt.Errorf("action %d (%s): %w", i, action.Type, err)
			}
		}
	}

	return nil
}
