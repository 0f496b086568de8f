package workflow_test

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fieldline/automation/pkg/events"
	"github.com/fieldline/automation/pkg/models"
	"github.com/fieldline/automation/pkg/persistence/memory"
	"github.com/fieldline/automation/pkg/testutil"
	"github.com/fieldline/automation/pkg/workflow"
)

func newMatcherFixture(t *testing.T) (*workflow.Store, *workflow.TriggerMatcher) {
	t.Helper()

	store := workflow.NewStore(memory.NewPersistence(), nil)

	return store, workflow.NewTriggerMatcher(store, slog.Default())
}

func stageChangeEvent(pipeline, fromStage, toStage string, snapshot map[string]any) events.DomainEvent {
	event := events.NewDomainEvent(models.TriggerTypeStageChange, snapshot)
	event.Pipeline = pipeline
	event.FromStage = fromStage
	event.ToStage = toStage

	return event
}

func TestMatchReturnsWorkflowsForMatchingStageChange(t *testing.T) {
	store, matcher := newMatcherFixture(t)
	ctx := context.Background()

	saved, err := store.Save(ctx, testutil.CreateTestWorkflow())
	require.NoError(t, err)

	matched, err := matcher.Match(ctx, stageChangeEvent("sales", "qualified", "proposal_sent", nil))
	require.NoError(t, err)
	require.Len(t, matched, 1)
	assert.Equal(t, saved.ID, matched[0].ID)
}

func TestMatchEmptyTriggerFieldsActAsWildcards(t *testing.T) {
	store, matcher := newMatcherFixture(t)
	ctx := context.Background()

	_, err := store.Save(ctx, testutil.CreateTestWorkflow(
		testutil.WithTrigger(&models.Trigger{
			Type:    models.TriggerTypeStageChange,
			ToStage: "proposal_sent",
		}),
	))
	require.NoError(t, err)

	matched, err := matcher.Match(ctx, stageChangeEvent("jobs", "scheduled", "proposal_sent", nil))
	require.NoError(t, err)
	assert.Len(t, matched, 1)
}

func TestMatchExcludesOtherPipelines(t *testing.T) {
	store, matcher := newMatcherFixture(t)
	ctx := context.Background()

	_, err := store.Save(ctx, testutil.CreateTestWorkflow())
	require.NoError(t, err)

	matched, err := matcher.Match(ctx, stageChangeEvent("jobs", "qualified", "proposal_sent", nil))
	require.NoError(t, err)
	assert.Empty(t, matched)
}

func TestMatchExcludesMismatchedFromStage(t *testing.T) {
	store, matcher := newMatcherFixture(t)
	ctx := context.Background()

	_, err := store.Save(ctx, testutil.CreateTestWorkflow(
		testutil.WithTrigger(&models.Trigger{
			Type:      models.TriggerTypeStageChange,
			Pipeline:  "sales",
			FromStage: "negotiation",
			ToStage:   "proposal_sent",
		}),
	))
	require.NoError(t, err)

	matched, err := matcher.Match(ctx, stageChangeEvent("sales", "qualified", "proposal_sent", nil))
	require.NoError(t, err)
	assert.Empty(t, matched)
}

func TestMatchStatusChangeTrigger(t *testing.T) {
	store, matcher := newMatcherFixture(t)
	ctx := context.Background()

	_, err := store.Save(ctx, testutil.CreateTestWorkflow(
		testutil.WithTrigger(&models.Trigger{
			Type:   models.TriggerTypeStatusChange,
			Status: "won",
		}),
	))
	require.NoError(t, err)

	won := events.NewDomainEvent(models.TriggerTypeStatusChange, nil)
	won.Status = "won"

	matched, err := matcher.Match(ctx, won)
	require.NoError(t, err)
	assert.Len(t, matched, 1)

	lost := events.NewDomainEvent(models.TriggerTypeStatusChange, nil)
	lost.Status = "lost"

	matched, err = matcher.Match(ctx, lost)
	require.NoError(t, err)
	assert.Empty(t, matched)
}

func TestMatchRequiresEveryTriggerLabel(t *testing.T) {
	store, matcher := newMatcherFixture(t)
	ctx := context.Background()

	_, err := store.Save(ctx, testutil.CreateTestWorkflow(
		testutil.WithTrigger(&models.Trigger{
			Type:    models.TriggerTypeStageChange,
			ToStage: "proposal_sent",
			Labels:  []string{"vip", "commercial"},
		}),
	))
	require.NoError(t, err)

	event := stageChangeEvent("sales", "", "proposal_sent", nil)
	event.Labels = []string{"vip"}

	matched, err := matcher.Match(ctx, event)
	require.NoError(t, err)
	assert.Empty(t, matched)

	event.Labels = []string{"commercial", "vip", "west-region"}

	matched, err = matcher.Match(ctx, event)
	require.NoError(t, err)
	assert.Len(t, matched, 1)
}

func TestMatchExcludesInactiveWorkflows(t *testing.T) {
	store, matcher := newMatcherFixture(t)
	ctx := context.Background()

	_, err := store.Save(ctx, testutil.CreateTestWorkflow(
		testutil.WithStatus(models.WorkflowStatusPaused),
	))
	require.NoError(t, err)

	_, err = store.Save(ctx, testutil.CreateTestWorkflow(
		testutil.WithStatus(models.WorkflowStatusDraft),
	))
	require.NoError(t, err)

	matched, err := matcher.Match(ctx, stageChangeEvent("sales", "qualified", "proposal_sent", nil))
	require.NoError(t, err)
	assert.Empty(t, matched)
}

func TestMatchAppliesFilters(t *testing.T) {
	store, matcher := newMatcherFixture(t)
	ctx := context.Background()

	_, err := store.Save(ctx, testutil.CreateTestWorkflow(
		testutil.WithFilters(
			&models.Filter{Field: "value", Operator: models.OperatorGreaterThan, Value: 5000},
		),
	))
	require.NoError(t, err)

	matched, err := matcher.Match(ctx, stageChangeEvent("sales", "", "proposal_sent",
		map[string]any{"value": 7500}))
	require.NoError(t, err)
	assert.Len(t, matched, 1)

	matched, err = matcher.Match(ctx, stageChangeEvent("sales", "", "proposal_sent",
		map[string]any{"value": 3000}))
	require.NoError(t, err)
	assert.Empty(t, matched)
}

func TestMatchDiscardsMalformedEvents(t *testing.T) {
	store, matcher := newMatcherFixture(t)
	ctx := context.Background()

	_, err := store.Save(ctx, testutil.CreateTestWorkflow())
	require.NoError(t, err)

	matched, err := matcher.Match(ctx, events.DomainEvent{Pipeline: "sales"})
	require.NoError(t, err)
	assert.Empty(t, matched)
}

func TestMatchReturnsEveryMatchingWorkflow(t *testing.T) {
	store, matcher := newMatcherFixture(t)
	ctx := context.Background()

	for range 3 {
		_, err := store.Save(ctx, testutil.CreateTestWorkflow())
		require.NoError(t, err)
	}

	matched, err := matcher.Match(ctx, stageChangeEvent("sales", "qualified", "proposal_sent", nil))
	require.NoError(t, err)
	assert.Len(t, matched, 3)
}
