package workflow_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/fieldline/automation/pkg/models"
	"github.com/fieldline/automation/pkg/testutil"
	"github.com/fieldline/automation/pkg/workflow"
)

func TestValidateAcceptsWellFormedWorkflow(t *testing.T) {
	v := workflow.NewValidator(nil)

	assert.NoError(t, v.Validate(testutil.CreateTestWorkflow()))
}

func TestValidateRejectsShortName(t *testing.T) {
	v := workflow.NewValidator(nil)

	w := testutil.CreateTestWorkflow()
	w.Name = "ab"

	err := v.Validate(w)
	assert.ErrorIs(t, err, workflow.ErrValidation)
}

func TestValidateTriggerDiscriminators(t *testing.T) {
	v := workflow.NewValidator(nil)

	tests := []struct {
		name    string
		trigger *models.Trigger
		wantErr bool
	}{
		{
			name: "stage change with status discriminator",
			trigger: &models.Trigger{
				Type:    models.TriggerTypeStageChange,
				ToStage: "proposal_sent",
				Status:  "won",
			},
			wantErr: true,
		},
		{
			name:    "stage change without any stage",
			trigger: &models.Trigger{Type: models.TriggerTypeStageChange, Pipeline: "sales"},
			wantErr: true,
		},
		{
			name: "status change with stage discriminator",
			trigger: &models.Trigger{
				Type:    models.TriggerTypeStatusChange,
				Status:  "won",
				ToStage: "closed",
			},
			wantErr: true,
		},
		{
			name:    "status change without status",
			trigger: &models.Trigger{Type: models.TriggerTypeStatusChange},
			wantErr: true,
		},
		{
			name:    "unknown trigger type",
			trigger: &models.Trigger{Type: "record_viewed"},
			wantErr: true,
		},
		{
			name:    "status change with status",
			trigger: &models.Trigger{Type: models.TriggerTypeStatusChange, Status: "won"},
			wantErr: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Validate(testutil.CreateTestWorkflow(testutil.WithTrigger(tt.trigger)))

			if tt.wantErr {
				assert.ErrorIs(t, err, workflow.ErrValidation)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateRejectsUnknownFilterOperator(t *testing.T) {
	v := workflow.NewValidator(nil)

	w := testutil.CreateTestWorkflow(testutil.WithFilters(
		&models.Filter{Field: "value", Operator: "approximately", Value: 5000},
	))

	assert.ErrorIs(t, v.Validate(w), workflow.ErrValidation)
}

func TestValidateRejectsNonNumericValueForNumericOperator(t *testing.T) {
	v := workflow.NewValidator(nil)

	w := testutil.CreateTestWorkflow(testutil.WithFilters(
		&models.Filter{Field: "value", Operator: models.OperatorGreaterThan, Value: "lots"},
	))

	assert.ErrorIs(t, v.Validate(w), workflow.ErrValidation)
}

func TestValidateAcceptsNumericStringForNumericOperator(t *testing.T) {
	v := workflow.NewValidator(nil)

	w := testutil.CreateTestWorkflow(testutil.WithFilters(
		&models.Filter{Field: "value", Operator: models.OperatorGreaterThan, Value: "5000"},
	))

	assert.NoError(t, v.Validate(w))
}

func TestValidateRequiresLogicalOperatorBetweenFilters(t *testing.T) {
	v := workflow.NewValidator(nil)

	w := testutil.CreateTestWorkflow(testutil.WithFilters(
		&models.Filter{Field: "value", Operator: models.OperatorGreaterThan, Value: 5000},
		&models.Filter{Field: "status", Operator: models.OperatorEquals, Value: "open"},
	))

	assert.ErrorIs(t, v.Validate(w), workflow.ErrValidation)

	w.Filters[0].LogicalOperator = models.LogicalAnd

	assert.NoError(t, v.Validate(w))
}

func TestValidateRejectsDuplicateActionOrder(t *testing.T) {
	v := workflow.NewValidator(nil)

	w := testutil.CreateTestWorkflow(testutil.WithActions(
		testutil.CreateTestAction(testutil.WithOrder(1)),
		testutil.CreateTestAction(testutil.WithOrder(1)),
	))

	assert.ErrorIs(t, v.Validate(w), workflow.ErrValidation)
}

func TestValidateRejectsDuplicateActionIDs(t *testing.T) {
	v := workflow.NewValidator(nil)

	first := testutil.CreateTestAction(testutil.WithOrder(0))
	second := testutil.CreateTestAction(testutil.WithOrder(1))
	second.ID = first.ID

	w := testutil.CreateTestWorkflow(testutil.WithActions(first, second))

	assert.ErrorIs(t, v.Validate(w), workflow.ErrValidation)
}

func TestValidateRejectsNegativeDelay(t *testing.T) {
	v := workflow.NewValidator(nil)

	w := testutil.CreateTestWorkflow(testutil.WithActions(
		testutil.CreateTestAction(testutil.WithDelay(-10)),
	))

	assert.ErrorIs(t, v.Validate(w), workflow.ErrValidation)
}

func TestValidateRejectsRetryBudgetAboveLimit(t *testing.T) {
	v := workflow.NewValidator(nil)

	w := testutil.CreateTestWorkflow(testutil.WithRetryAttempts(6))

	assert.ErrorIs(t, v.Validate(w), workflow.ErrValidation)
}

type rejectingConfigs struct{}

func (rejectingConfigs) ValidateConfig(models.ActionType, map[string]any) error {
	return assert.AnError
}

func TestValidateRunsConfigValidatorPerAction(t *testing.T) {
	v := workflow.NewValidator(rejectingConfigs{})

	err := v.Validate(testutil.CreateTestWorkflow())
	assert.ErrorIs(t, err, workflow.ErrValidation)
	assert.ErrorIs(t, err, assert.AnError)
}
