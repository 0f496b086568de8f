package workflow_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fieldline/automation/pkg/models"
	"github.com/fieldline/automation/pkg/persistence"
	"github.com/fieldline/automation/pkg/persistence/memory"
	"github.com/fieldline/automation/pkg/testutil"
	"github.com/fieldline/automation/pkg/workflow"
)

func newStoreFixture(t *testing.T) (*workflow.Store, *memory.Persistence) {
	t.Helper()

	p := memory.NewPersistence()

	return workflow.NewStore(p, nil), p
}

func TestSaveAssignsDefaults(t *testing.T) {
	store, _ := newStoreFixture(t)
	ctx := context.Background()

	w := testutil.CreateTestWorkflow()
	w.ID = ""
	w.Status = ""

	saved, err := store.Save(ctx, w)
	require.NoError(t, err)

	assert.NotEmpty(t, saved.ID)
	assert.Equal(t, models.WorkflowStatusDraft, saved.Status)
	assert.False(t, saved.CreatedAt.IsZero())
	assert.False(t, saved.UpdatedAt.IsZero())
}

func TestSaveAssignsMissingActionIDs(t *testing.T) {
	store, _ := newStoreFixture(t)
	ctx := context.Background()

	w := testutil.CreateTestWorkflow(testutil.WithActions(
		&models.Action{Type: models.ActionTypeCreateNote, Order: 0, IsActive: true, Config: map[string]any{"note": "n"}},
		&models.Action{Type: models.ActionTypeCreateTask, Order: 1, IsActive: true, Config: map[string]any{"task_name": "t"}},
	))

	saved, err := store.Save(ctx, w)
	require.NoError(t, err)

	require.Len(t, saved.Actions, 2)
	assert.NotEmpty(t, saved.Actions[0].ID)
	assert.NotEmpty(t, saved.Actions[1].ID)
	assert.NotEqual(t, saved.Actions[0].ID, saved.Actions[1].ID)
}

func TestSaveRejectsInvalidWorkflowBeforePersisting(t *testing.T) {
	store, p := newStoreFixture(t)
	ctx := context.Background()

	w := testutil.CreateTestWorkflow(testutil.WithActions())

	_, err := store.Save(ctx, w)
	require.ErrorIs(t, err, workflow.ErrValidation)

	all, err := p.WorkflowRepository().All(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestSetStatusRejectsUnknownStatus(t *testing.T) {
	store, _ := newStoreFixture(t)
	ctx := context.Background()

	saved, err := store.Save(ctx, testutil.CreateTestWorkflow())
	require.NoError(t, err)

	_, err = store.SetStatus(ctx, saved.ID, "archived")
	assert.ErrorIs(t, err, workflow.ErrValidation)
}

func TestSetStatusOnlyAffectsFutureMatching(t *testing.T) {
	store, _ := newStoreFixture(t)
	ctx := context.Background()

	saved, err := store.Save(ctx, testutil.CreateTestWorkflow())
	require.NoError(t, err)

	active, err := store.ActiveForTrigger(ctx, models.TriggerTypeStageChange, "sales")
	require.NoError(t, err)
	require.Len(t, active, 1)

	_, err = store.SetStatus(ctx, saved.ID, models.WorkflowStatusPaused)
	require.NoError(t, err)

	active, err = store.ActiveForTrigger(ctx, models.TriggerTypeStageChange, "sales")
	require.NoError(t, err)
	assert.Empty(t, active)
}

func TestDeleteRemovesWorkflowWithoutHistory(t *testing.T) {
	store, _ := newStoreFixture(t)
	ctx := context.Background()

	saved, err := store.Save(ctx, testutil.CreateTestWorkflow())
	require.NoError(t, err)

	require.NoError(t, store.Delete(ctx, saved.ID))

	_, err = store.GetByID(ctx, saved.ID)
	assert.True(t, persistence.IsWorkflowNotFound(err))
}

func TestDeleteSoftDeletesWorkflowWithExecutions(t *testing.T) {
	store, p := newStoreFixture(t)
	ctx := context.Background()

	saved, err := store.Save(ctx, testutil.CreateTestWorkflow())
	require.NoError(t, err)

	require.NoError(t, p.ExecutionRepository().Create(ctx, &models.Execution{
		ID:         "exec-1",
		WorkflowID: saved.ID,
		Status:     models.ExecutionStatusCompleted,
		StartedAt:  time.Now(),
	}))

	require.NoError(t, store.Delete(ctx, saved.ID))

	kept, err := store.GetByID(ctx, saved.ID)
	require.NoError(t, err)
	assert.NotNil(t, kept.DeletedAt)
	assert.Equal(t, models.WorkflowStatusPaused, kept.Status)

	// Soft-deleted workflows never match new events.
	active, err := store.ActiveForTrigger(ctx, models.TriggerTypeStageChange, "sales")
	require.NoError(t, err)
	assert.Empty(t, active)
}

func TestRecordExecutionBumpsCounters(t *testing.T) {
	store, _ := newStoreFixture(t)
	ctx := context.Background()

	saved, err := store.Save(ctx, testutil.CreateTestWorkflow())
	require.NoError(t, err)

	at := time.Now()
	require.NoError(t, store.RecordExecution(ctx, saved.ID, at))
	require.NoError(t, store.RecordExecution(ctx, saved.ID, at.Add(time.Minute)))

	fetched, err := store.GetByID(ctx, saved.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), fetched.TotalExecutions)
	require.NotNil(t, fetched.LastExecutedAt)
	assert.WithinDuration(t, at.Add(time.Minute), *fetched.LastExecutedAt, time.Second)
}
