package engine

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fieldline/automation/pkg/channels/gochannel"
	"github.com/fieldline/automation/pkg/eventbus"
	"github.com/fieldline/automation/pkg/events"
	"github.com/fieldline/automation/pkg/executors"
	"github.com/fieldline/automation/pkg/ledger"
	"github.com/fieldline/automation/pkg/models"
	"github.com/fieldline/automation/pkg/persistence"
	"github.com/fieldline/automation/pkg/persistence/memory"
	"github.com/fieldline/automation/pkg/scheduler"
	"github.com/fieldline/automation/pkg/services/stub"
	"github.com/fieldline/automation/pkg/workflow"
)

type harness struct {
	engine    *Engine
	bus       eventbus.DomainEventBus
	store     *workflow.Store
	ledger    *ledger.Ledger
	scheduler *scheduler.Scheduler
	recorder  *stub.Recorder
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	logger := slog.Default()
	p := memory.NewPersistence()

	recorder := stub.NewRecorder()
	registry := executors.NewDefaultRegistry(logger, stub.NewCollaborators(recorder, stub.NewDirectory()))

	store := workflow.NewStore(p, registry)
	matcher := workflow.NewTriggerMatcher(store, logger)
	l := ledger.NewLedger(p.ExecutionRepository(), logger)
	sched := scheduler.NewScheduler(store, l, registry, nil, logger)

	pub, sub, err := gochannel.CreateTestChannel(watermill.NewSlogLogger(logger))
	require.NoError(t, err)

	bus := eventbus.NewWatermillDomainEventBus(pub, sub, logger)

	e := NewEngine(matcher, sched, bus, logger)

	return &harness{
		engine:    e,
		bus:       bus,
		store:     store,
		ledger:    l,
		scheduler: sched,
		recorder:  recorder,
	}
}

func proposalWorkflow(t *testing.T, h *harness) *models.Workflow {
	t.Helper()

	w, err := h.store.Save(context.Background(), &models.Workflow{
		Name:   "High value proposal follow-up",
		Status: models.WorkflowStatusActive,
		Trigger: &models.Trigger{
			Type:     models.TriggerTypeStageChange,
			Pipeline: "proposals",
			ToStage:  "proposal_sent",
		},
		Filters: []*models.Filter{
			{Field: "value", Operator: models.OperatorGreaterThan, Value: 5000},
		},
		Actions: []*models.Action{
			{
				ID:       "a-task",
				Type:     models.ActionTypeCreateTask,
				Order:    0,
				IsActive: true,
				Config:   map[string]any{"task_name": "Follow up on proposal"},
			},
			{
				ID:       "a-text",
				Type:     models.ActionTypeSendTextMessage,
				Order:    1,
				IsActive: true,
				Config:   map[string]any{"recipient_type": "customer", "text_message": "Thanks!"},
			},
		},
	})
	require.NoError(t, err)

	return w
}

func proposalEvent(value any) *events.DomainEvent {
	event := events.NewDomainEvent(models.TriggerTypeStageChange, map[string]any{
		"record_id":      "rec-1",
		"value":          value,
		"customer_name":  "Dana",
		"customer_phone": "+1555000",
	})
	event.Pipeline = "proposals"
	event.FromStage = "in_draft"
	event.ToStage = "proposal_sent"

	return &event
}

func (h *harness) executions(t *testing.T) []*models.Execution {
	t.Helper()

	executions, err := h.ledger.List(context.Background(), persistence.ExecutionQuery{})
	require.NoError(t, err)

	return executions
}

func TestEngineDispatchesMatchedEvent(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	require.NoError(t, h.engine.Start(ctx))

	w := proposalWorkflow(t, h)

	require.NoError(t, h.bus.PublishDomainEvent(ctx, proposalEvent(7000)))

	require.Eventually(t, func() bool {
		return len(h.executions(t)) == 1
	}, 2*time.Second, 10*time.Millisecond)

	h.scheduler.Wait()

	executions := h.executions(t)
	require.Len(t, executions, 1)

	execution := executions[0]
	assert.Equal(t, w.ID, execution.WorkflowID)
	assert.Equal(t, models.ExecutionStatusCompleted, execution.Status)
	require.Len(t, execution.Results, 2)
	assert.Equal(t, models.ActionResultCompleted, execution.Results[0].Status)
	assert.Equal(t, models.ActionResultCompleted, execution.Results[1].Status)

	assert.Len(t, h.recorder.CallsTo("tasks", "CreateTask"), 1)
	assert.Len(t, h.recorder.CallsTo("messaging", "SendText"), 1)
}

func TestEngineIgnoresFilteredOutEvent(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	require.NoError(t, h.engine.Start(ctx))

	proposalWorkflow(t, h)

	require.NoError(t, h.bus.PublishDomainEvent(ctx, proposalEvent(3000)))

	time.Sleep(100 * time.Millisecond)
	h.scheduler.Wait()

	assert.Empty(t, h.executions(t), "filter evaluated false, no execution is created")
}

func TestEngineIgnoresUnrelatedPipeline(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	require.NoError(t, h.engine.Start(ctx))

	proposalWorkflow(t, h)

	event := proposalEvent(9000)
	event.Pipeline = "jobs"

	require.NoError(t, h.bus.PublishDomainEvent(ctx, event))

	time.Sleep(100 * time.Millisecond)
	h.scheduler.Wait()

	assert.Empty(t, h.executions(t))
}
