package web_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fieldline/automation/pkg/analytics"
	"github.com/fieldline/automation/pkg/executors"
	"github.com/fieldline/automation/pkg/ledger"
	"github.com/fieldline/automation/pkg/models"
	"github.com/fieldline/automation/pkg/persistence/memory"
	"github.com/fieldline/automation/pkg/scheduler"
	"github.com/fieldline/automation/pkg/services/stub"
	"github.com/fieldline/automation/pkg/web"
	"github.com/fieldline/automation/pkg/workflow"
)

type testEnv struct {
	app    *fiber.App
	store  *workflow.Store
	ledger *ledger.Ledger
	memory *memory.Persistence
}

func setupTestApp(t *testing.T) *testEnv {
	t.Helper()

	logger := slog.Default()
	p := memory.NewPersistence()

	registry := executors.NewDefaultRegistry(logger, stub.NewCollaborators(stub.NewRecorder(), stub.NewDirectory()))
	store := workflow.NewStore(p, registry)
	l := ledger.NewLedger(p.ExecutionRepository(), logger)
	sched := scheduler.NewScheduler(store, l, registry, nil, logger)
	aggregator := analytics.NewAggregator(p.ExecutionRepository(), logger)

	handlers := web.NewAPIHandlers(store, l, sched, aggregator, registry, p)

	app := fiber.New()
	web.RegisterRoutes(app, handlers)

	return &testEnv{app: app, store: store, ledger: l, memory: p}
}

func validCreateRequest() web.CreateWorkflowRequest {
	return web.CreateWorkflowRequest{
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
		Actions: []*web.ActionRequest{
			{
				ID:     "a-1",
				Type:   models.ActionTypeCreateTask,
				Order:  0,
				Config: map[string]any{"task_name": "Follow up"},
			},
		},
	}
}

func doJSON(t *testing.T, app *fiber.App, method, path string, body any) (*http.Response, []byte) {
	t.Helper()

	var reader io.Reader

	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)

		reader = bytes.NewReader(payload)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := app.Test(req)
	require.NoError(t, err)

	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	return resp, data
}

func TestCreateWorkflow(t *testing.T) {
	env := setupTestApp(t)

	resp, body := doJSON(t, env.app, http.MethodPost, "/workflows/", validCreateRequest())
	assert.Equal(t, http.StatusCreated, resp.StatusCode)

	var created models.Workflow
	require.NoError(t, json.Unmarshal(body, &created))
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, models.WorkflowStatusActive, created.Status)
}

func TestCreateWorkflowDefaultsOmittedActionFields(t *testing.T) {
	env := setupTestApp(t)

	// Neither id nor is_active posted; both get server-side defaults.
	req := validCreateRequest()
	req.Actions = []*web.ActionRequest{
		{Type: models.ActionTypeCreateTask, Order: 0, Config: map[string]any{"task_name": "Follow up"}},
		{Type: models.ActionTypeCreateNote, Order: 1, Config: map[string]any{"note": "sent"}},
	}

	resp, body := doJSON(t, env.app, http.MethodPost, "/workflows/", req)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var created models.Workflow
	require.NoError(t, json.Unmarshal(body, &created))
	require.Len(t, created.Actions, 2)

	for _, action := range created.Actions {
		assert.NotEmpty(t, action.ID)
		assert.True(t, action.IsActive)
	}

	assert.NotEqual(t, created.Actions[0].ID, created.Actions[1].ID)
}

func TestCreateWorkflowRejectsInvalidTrigger(t *testing.T) {
	env := setupTestApp(t)

	req := validCreateRequest()
	req.Trigger = &models.Trigger{
		Type:   models.TriggerTypeStageChange,
		Status: "completed", // wrong discriminator for a stage_change trigger
	}

	resp, _ := doJSON(t, env.app, http.MethodPost, "/workflows/", req)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestCreateWorkflowRejectsUnknownActionType(t *testing.T) {
	env := setupTestApp(t)

	req := validCreateRequest()
	req.Actions = []*web.ActionRequest{
		{ID: "a-1", Type: "launch_rocket", Order: 0},
	}

	resp, _ := doJSON(t, env.app, http.MethodPost, "/workflows/", req)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestGetWorkflow(t *testing.T) {
	env := setupTestApp(t)

	_, body := doJSON(t, env.app, http.MethodPost, "/workflows/", validCreateRequest())

	var created models.Workflow
	require.NoError(t, json.Unmarshal(body, &created))

	resp, body := doJSON(t, env.app, http.MethodGet, "/workflows/"+created.ID, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var fetched models.Workflow
	require.NoError(t, json.Unmarshal(body, &fetched))
	assert.Equal(t, created.ID, fetched.ID)
}

func TestGetWorkflowNotFound(t *testing.T) {
	env := setupTestApp(t)

	resp, _ := doJSON(t, env.app, http.MethodGet, "/workflows/missing", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestSetWorkflowStatus(t *testing.T) {
	env := setupTestApp(t)

	_, body := doJSON(t, env.app, http.MethodPost, "/workflows/", validCreateRequest())

	var created models.Workflow
	require.NoError(t, json.Unmarshal(body, &created))

	resp, body := doJSON(t, env.app, http.MethodPut, "/workflows/"+created.ID+"/status",
		web.SetStatusRequest{Status: models.WorkflowStatusPaused})
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var updated models.Workflow
	require.NoError(t, json.Unmarshal(body, &updated))
	assert.Equal(t, models.WorkflowStatusPaused, updated.Status)

	resp, _ = doJSON(t, env.app, http.MethodPut, "/workflows/"+created.ID+"/status",
		web.SetStatusRequest{Status: "archived"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestDeleteWorkflowSoftDeletesWithHistory(t *testing.T) {
	env := setupTestApp(t)
	ctx := context.Background()

	_, body := doJSON(t, env.app, http.MethodPost, "/workflows/", validCreateRequest())

	var created models.Workflow
	require.NoError(t, json.Unmarshal(body, &created))

	// Seed one execution referencing the workflow.
	require.NoError(t, env.memory.ExecutionRepository().Create(ctx, &models.Execution{
		ID:         "exec-1",
		WorkflowID: created.ID,
		Status:     models.ExecutionStatusCompleted,
		StartedAt:  time.Now(),
	}))

	resp, _ := doJSON(t, env.app, http.MethodDelete, "/workflows/"+created.ID, nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	kept, err := env.store.GetByID(ctx, created.ID)
	require.NoError(t, err)
	assert.NotNil(t, kept.DeletedAt)
}

func TestGetExecutionDetail(t *testing.T) {
	env := setupTestApp(t)
	ctx := context.Background()

	executedAt := time.Now().Add(-time.Minute)
	require.NoError(t, env.memory.ExecutionRepository().Create(ctx, &models.Execution{
		ID:         "exec-1",
		WorkflowID: "wf-1",
		Status:     models.ExecutionStatusFailed,
		StartedAt:  executedAt,
		Results: []*models.ActionExecutionResult{
			{
				ActionID:     "a-1",
				ActionType:   models.ActionTypeCreateTask,
				Status:       models.ActionResultFailed,
				ExecutedAt:   &executedAt,
				ErrorMessage: "user does not exist",
			},
			{ActionID: "a-2", ActionType: models.ActionTypeSendEmail, Status: models.ActionResultSkipped},
		},
	}))

	resp, body := doJSON(t, env.app, http.MethodGet, "/executions/exec-1", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var execution models.Execution
	require.NoError(t, json.Unmarshal(body, &execution))
	require.Len(t, execution.Results, 2)
	assert.Equal(t, "user does not exist", execution.Results[0].ErrorMessage)
	assert.Equal(t, models.ActionResultSkipped, execution.Results[1].Status)
}

func TestResumeExecutionConflictsWhenNotPaused(t *testing.T) {
	env := setupTestApp(t)
	ctx := context.Background()

	require.NoError(t, env.memory.ExecutionRepository().Create(ctx, &models.Execution{
		ID:         "exec-1",
		WorkflowID: "wf-1",
		Status:     models.ExecutionStatusCompleted,
		StartedAt:  time.Now(),
	}))

	resp, _ := doJSON(t, env.app, http.MethodPost, "/executions/exec-1/resume", nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestGetAnalytics(t *testing.T) {
	env := setupTestApp(t)
	ctx := context.Background()

	started := time.Now().Add(-time.Hour)
	completed := started.Add(10 * time.Minute)

	require.NoError(t, env.memory.ExecutionRepository().Create(ctx, &models.Execution{
		ID:          "exec-1",
		WorkflowID:  "wf-1",
		Status:      models.ExecutionStatusCompleted,
		StartedAt:   started,
		CompletedAt: &completed,
	}))

	resp, body := doJSON(t, env.app, http.MethodGet, "/analytics", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var result models.AutomationAnalytics
	require.NoError(t, json.Unmarshal(body, &result))
	assert.Equal(t, 1, result.TotalExecutions)
	assert.Equal(t, 1, result.SuccessfulExecutions)
}

func TestGetActionTypes(t *testing.T) {
	env := setupTestApp(t)

	resp, body := doJSON(t, env.app, http.MethodGet, "/action-types", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var result struct {
		ActionTypes []models.ActionType `json:"action_types"`
	}
	require.NoError(t, json.Unmarshal(body, &result))
	assert.Len(t, result.ActionTypes, 10)
}

func TestHealthCheck(t *testing.T) {
	env := setupTestApp(t)

	resp, _ := doJSON(t, env.app, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
