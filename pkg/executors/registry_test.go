package executors_test

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fieldline/automation/pkg/executors"
	"github.com/fieldline/automation/pkg/models"
	"github.com/fieldline/automation/pkg/services/stub"
)

func newTestRegistry(t *testing.T) (*executors.Registry, *stub.Recorder, *stub.Directory) {
	t.Helper()

	recorder := stub.NewRecorder()
	directory := stub.NewDirectory(
		stub.DirectoryUser{ID: "u-1", Name: "Dana", Role: "salesperson", Phone: "+15550001", Email: "dana@example.com"},
	)

	registry := executors.NewDefaultRegistry(slog.Default(), stub.NewCollaborators(recorder, directory))

	return registry, recorder, directory
}

func TestDefaultRegistryCoversEveryActionType(t *testing.T) {
	registry, _, _ := newTestRegistry(t)

	assert.Len(t, registry.Types(), 10)
}

func TestCreateRejectsUnknownActionType(t *testing.T) {
	registry, _, _ := newTestRegistry(t)

	_, err := registry.Create("launch_rocket", nil)
	assert.Error(t, err)
}

func TestValidateConfigRejectsUnknownActionType(t *testing.T) {
	registry, _, _ := newTestRegistry(t)

	err := registry.ValidateConfig("launch_rocket", map[string]any{})
	assert.Error(t, err)
}

func TestValidateConfig(t *testing.T) {
	registry, _, _ := newTestRegistry(t)

	tests := []struct {
		name       string
		actionType models.ActionType
		config     map[string]any
		wantErr    bool
	}{
		{
			name:       "create task with required fields",
			actionType: models.ActionTypeCreateTask,
			config:     map[string]any{"task_name": "Follow up", "priority": "high"},
			wantErr:    false,
		},
		{
			name:       "create task missing task name",
			actionType: models.ActionTypeCreateTask,
			config:     map[string]any{"priority": "high"},
			wantErr:    true,
		},
		{
			name:       "create task with unknown field",
			actionType: models.ActionTypeCreateTask,
			config:     map[string]any{"task_name": "Follow up", "color": "red"},
			wantErr:    true,
		},
		{
			name:       "create task with invalid priority",
			actionType: models.ActionTypeCreateTask,
			config:     map[string]any{"task_name": "Follow up", "priority": "asap"},
			wantErr:    true,
		},
		{
			name:       "text message to customer",
			actionType: models.ActionTypeSendTextMessage,
			config:     map[string]any{"recipient_type": "customer", "text_message": "Your proposal is ready"},
			wantErr:    false,
		},
		{
			name:       "text message with invalid recipient type",
			actionType: models.ActionTypeSendTextMessage,
			config:     map[string]any{"recipient_type": "the_mayor", "text_message": "hello"},
			wantErr:    true,
		},
		{
			name:       "specific user without user id",
			actionType: models.ActionTypeSendTextMessage,
			config:     map[string]any{"recipient_type": "specific_user", "text_message": "hello"},
			wantErr:    true,
		},
		{
			name:       "note requires text",
			actionType: models.ActionTypeCreateNote,
			config:     map[string]any{},
			wantErr:    true,
		},
		{
			name:       "delay takes no config",
			actionType: models.ActionTypeDelay,
			config:     nil,
			wantErr:    false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := registry.ValidateConfig(tt.actionType, tt.config)

			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidatedConfigAlwaysCreates(t *testing.T) {
	registry, _, _ := newTestRegistry(t)

	config := map[string]any{"task_name": "Call the customer", "due_in_days": 3}

	require.NoError(t, registry.ValidateConfig(models.ActionTypeCreateTask, config))

	action, err := registry.Create(models.ActionTypeCreateTask, config)
	require.NoError(t, err)
	assert.NotNil(t, action)
}
