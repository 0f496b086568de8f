package executors_test

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fieldline/automation/pkg/events"
	"github.com/fieldline/automation/pkg/executors"
	"github.com/fieldline/automation/pkg/models"
	"github.com/fieldline/automation/pkg/services"
)

func proposalEvent(snapshot map[string]any) events.DomainEvent {
	event := events.NewDomainEvent(models.TriggerTypeStageChange, snapshot)
	event.Pipeline = "proposals"
	event.ToStage = "proposal_sent"

	return event
}

func TestCreateTaskExecutes(t *testing.T) {
	registry, recorder, _ := newTestRegistry(t)
	ctx := context.Background()

	action, err := registry.Create(models.ActionTypeCreateTask, map[string]any{
		"task_name":        "Follow up on proposal",
		"assigned_user_id": "u-1",
		"priority":         "high",
	})
	require.NoError(t, err)

	output, err := action.Execute(ctx, proposalEvent(map[string]any{"record_id": "rec-1"}), slog.Default())
	require.NoError(t, err)

	result, ok := output.(map[string]any)
	require.True(t, ok)
	assert.NotEmpty(t, result["task_id"])

	calls := recorder.CallsTo("tasks", "CreateTask")
	require.Len(t, calls, 1)
	assert.Equal(t, "Follow up on proposal", calls[0].Args["name"])
	assert.Equal(t, "u-1", calls[0].Args["assignee"])
}

func TestCreateTaskRejectsUnknownAssignee(t *testing.T) {
	registry, recorder, _ := newTestRegistry(t)
	ctx := context.Background()

	action, err := registry.Create(models.ActionTypeCreateTask, map[string]any{
		"task_name":        "Follow up",
		"assigned_user_id": "u-404",
	})
	require.NoError(t, err)

	_, err = action.Execute(ctx, proposalEvent(map[string]any{"record_id": "rec-1"}), slog.Default())
	require.Error(t, err)
	assert.False(t, executors.IsTransient(err))
	assert.Empty(t, recorder.CallsTo("tasks", "CreateTask"))
}

func TestRecordScopedActionsRequireRecordID(t *testing.T) {
	registry, _, _ := newTestRegistry(t)
	ctx := context.Background()

	action, err := registry.Create(models.ActionTypeCreateNote, map[string]any{"note": "checked in"})
	require.NoError(t, err)

	_, err = action.Execute(ctx, proposalEvent(map[string]any{}), slog.Default())
	require.Error(t, err)
	assert.False(t, executors.IsTransient(err))
	assert.ErrorIs(t, err, services.ErrNotFound)
}

func TestSendTextMessageResolvesCustomerFromSnapshot(t *testing.T) {
	registry, recorder, _ := newTestRegistry(t)
	ctx := context.Background()

	action, err := registry.Create(models.ActionTypeSendTextMessage, map[string]any{
		"recipient_type": "customer",
		"text_message":   "Your proposal is ready",
	})
	require.NoError(t, err)

	_, err = action.Execute(ctx, proposalEvent(map[string]any{
		"record_id":      "rec-1",
		"customer_name":  "Pat Jones",
		"customer_phone": "+15550002",
	}), slog.Default())
	require.NoError(t, err)

	calls := recorder.CallsTo("messaging", "SendText")
	require.Len(t, calls, 1)
	assert.Equal(t, "+15550002", calls[0].Args["to"])
}

func TestSendTextMessageFailsWhenCustomerHasNoContact(t *testing.T) {
	registry, _, _ := newTestRegistry(t)
	ctx := context.Background()

	action, err := registry.Create(models.ActionTypeSendTextMessage, map[string]any{
		"recipient_type": "customer",
		"text_message":   "hello",
	})
	require.NoError(t, err)

	_, err = action.Execute(ctx, proposalEvent(map[string]any{"record_id": "rec-1"}), slog.Default())
	require.Error(t, err)
	assert.False(t, executors.IsTransient(err))
}

func TestSendTextMessageResolvesSalespersonFromSnapshot(t *testing.T) {
	registry, recorder, _ := newTestRegistry(t)
	ctx := context.Background()

	action, err := registry.Create(models.ActionTypeSendTextMessage, map[string]any{
		"recipient_type": "salesperson",
		"text_message":   "New proposal went out",
	})
	require.NoError(t, err)

	_, err = action.Execute(ctx, proposalEvent(map[string]any{
		"record_id":      "rec-1",
		"salesperson_id": "u-1",
	}), slog.Default())
	require.NoError(t, err)

	calls := recorder.CallsTo("messaging", "SendText")
	require.Len(t, calls, 1)
	assert.Equal(t, "+15550001", calls[0].Args["to"])
}

func TestUnavailableCollaboratorIsTransient(t *testing.T) {
	registry, recorder, _ := newTestRegistry(t)
	ctx := context.Background()

	recorder.FailWith(services.ErrUnavailable)

	action, err := registry.Create(models.ActionTypeCreateNote, map[string]any{"note": "checked in"})
	require.NoError(t, err)

	_, err = action.Execute(ctx, proposalEvent(map[string]any{"record_id": "rec-1"}), slog.Default())
	require.Error(t, err)
	assert.True(t, executors.IsTransient(err))
}

func TestDelayActionIsANoOp(t *testing.T) {
	registry, recorder, _ := newTestRegistry(t)
	ctx := context.Background()

	action, err := registry.Create(models.ActionTypeDelay, nil)
	require.NoError(t, err)

	_, err = action.Execute(ctx, proposalEvent(nil), slog.Default())
	require.NoError(t, err)
	assert.Empty(t, recorder.Calls())
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		transient bool
	}{
		{"service unavailable", services.ErrUnavailable, true},
		{"deadline exceeded", context.DeadlineExceeded, true},
		{"invalid reference", services.ErrNotFound, false},
		{"arbitrary error", errors.New("boom"), false},
		{"pre-classified transient passes through", executors.NewTransient(errors.New("flaky")), true},
		{"pre-classified permanent passes through", executors.NewPermanent(services.ErrUnavailable), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.transient, executors.IsTransient(executors.Classify(tt.err)))
		})
	}
}
