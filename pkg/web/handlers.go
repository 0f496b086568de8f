// Package web provides the REST API for workflow management, execution
// inspection and analytics.
package web

import (
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"

	"github.com/fieldline/automation/pkg/analytics"
	"github.com/fieldline/automation/pkg/executors"
	"github.com/fieldline/automation/pkg/ledger"
	"github.com/fieldline/automation/pkg/models"
	"github.com/fieldline/automation/pkg/persistence"
	"github.com/fieldline/automation/pkg/scheduler"
	"github.com/fieldline/automation/pkg/workflow"
)

type APIHandlers struct {
	store       *workflow.Store
	ledger      *ledger.Ledger
	scheduler   *scheduler.Scheduler
	aggregator  *analytics.Aggregator
	registry    *executors.Registry
	persistence persistence.Persistence
	validator   *validator.Validate
}

func NewAPIHandlers(
	store *workflow.Store,
	executionLedger *ledger.Ledger,
	sched *scheduler.Scheduler,
	aggregator *analytics.Aggregator,
	registry *executors.Registry,
	p persistence.Persistence,
) *APIHandlers {
	return &APIHandlers{
		store:       store,
		ledger:      executionLedger,
		scheduler:   sched,
		aggregator:  aggregator,
		registry:    registry,
		persistence: p,
		validator:   validator.New(validator.WithRequiredStructEnabled()),
	}
}

func (h *APIHandlers) GetWorkflows(c fiber.Ctx) error {
	workflows, err := h.store.All(c.Context())
	if err != nil {
		return internalError(c, err)
	}

	if statusStr := c.Query("status"); statusStr != "" {
		status := models.WorkflowStatus(statusStr)
		filtered := make([]*models.Workflow, 0, len(workflows))

		for _, w := range workflows {
			if w.Status == status {
				filtered = append(filtered, w)
			}
		}

		workflows = filtered
	}

	return c.JSON(fiber.Map{
		"workflows":   workflows,
		"total_count": len(workflows),
	})
}

func (h *APIHandlers) GetWorkflow(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Workflow ID is required")
	}

	w, err := h.store.GetByID(c.Context(), id)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(w)
}

func (h *APIHandlers) CreateWorkflow(c fiber.Ctx) error {
	var req CreateWorkflowRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	w := &models.Workflow{
		Name:          req.Name,
		Description:   req.Description,
		Status:        req.Status,
		Trigger:       req.Trigger,
		Filters:       req.Filters,
		Actions:       actionsFromRequest(req.Actions),
		OnFailure:     req.OnFailure,
		RetryAttempts: req.RetryAttempts,
		Owner:         req.Owner,
	}

	created, err := h.store.Save(c.Context(), w)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(created)
}

func (h *APIHandlers) UpdateWorkflow(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Workflow ID is required")
	}

	var req UpdateWorkflowRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	existing, err := h.store.GetByID(c.Context(), id)
	if err != nil {
		return handleServiceError(c, err)
	}

	if req.Name != nil {
		existing.Name = *req.Name
	}

	if req.Description != nil {
		existing.Description = *req.Description
	}

	if req.Trigger != nil {
		existing.Trigger = req.Trigger
	}

	if req.Filters != nil {
		existing.Filters = req.Filters
	}

	if req.Actions != nil {
		existing.Actions = actionsFromRequest(req.Actions)
	}

	if req.OnFailure != nil {
		existing.OnFailure = *req.OnFailure
	}

	if req.RetryAttempts != nil {
		existing.RetryAttempts = *req.RetryAttempts
	}

	updated, err := h.store.Save(c.Context(), existing)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(updated)
}

func (h *APIHandlers) DeleteWorkflow(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Workflow ID is required")
	}

	if err := h.store.Delete(c.Context(), id); err != nil {
		return handleServiceError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

// SetWorkflowStatus activates, pauses or demotes a workflow. The change
// affects future trigger matching only.
func (h *APIHandlers) SetWorkflowStatus(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Workflow ID is required")
	}

	var req SetStatusRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	updated, err := h.store.SetStatus(c.Context(), id, req.Status)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(updated)
}

func (h *APIHandlers) GetExecutions(c fiber.Ctx) error {
	query := persistence.ExecutionQuery{
		WorkflowID: c.Query("workflow_id"),
	}

	if fromStr := c.Query("from"); fromStr != "" {
		from, err := time.Parse(time.RFC3339, fromStr)
		if err != nil {
			return badRequest(c, "Invalid 'from' timestamp: "+err.Error())
		}

		query.From = from
	}

	if toStr := c.Query("to"); toStr != "" {
		to, err := time.Parse(time.RFC3339, toStr)
		if err != nil {
			return badRequest(c, "Invalid 'to' timestamp: "+err.Error())
		}

		query.To = to
	}

	executions, err := h.ledger.List(c.Context(), query)
	if err != nil {
		return internalError(c, err)
	}

	return c.JSON(fiber.Map{
		"executions":  executions,
		"total_count": len(executions),
	})
}

func (h *APIHandlers) GetExecution(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Execution ID is required")
	}

	execution, err := h.ledger.GetExecution(c.Context(), id)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(execution)
}

// ResumeExecution re-enters a paused execution at its next pending action.
func (h *APIHandlers) ResumeExecution(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Execution ID is required")
	}

	execution, err := h.scheduler.Resume(c.Context(), id)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.Status(fiber.StatusAccepted).JSON(execution)
}

func (h *APIHandlers) GetAnalytics(c fiber.Ctx) error {
	query := analytics.Query{
		WorkflowID: c.Query("workflow_id"),
	}

	if fromStr := c.Query("from"); fromStr != "" {
		from, err := time.Parse(time.RFC3339, fromStr)
		if err != nil {
			return badRequest(c, "Invalid 'from' timestamp: "+err.Error())
		}

		query.From = from
	}

	if toStr := c.Query("to"); toStr != "" {
		to, err := time.Parse(time.RFC3339, toStr)
		if err != nil {
			return badRequest(c, "Invalid 'to' timestamp: "+err.Error())
		}

		query.To = to
	}

	result, err := h.aggregator.Compute(c.Context(), query)
	if err != nil {
		return internalError(c, err)
	}

	return c.JSON(result)
}

// GetActionTypes lists the closed set of registered action types.
func (h *APIHandlers) GetActionTypes(c fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"action_types": h.registry.Types(),
	})
}

func (h *APIHandlers) HealthCheck(c fiber.Ctx) error {
	status := "healthy"
	message := "Fieldline automation API is healthy"
	httpStatus := http.StatusOK

	if err := h.persistence.HealthCheck(c.Context()); err != nil {
		status = "unhealthy"
		message = err.Error()
		httpStatus = http.StatusInternalServerError
	}

	return c.Status(httpStatus).JSON(fiber.Map{
		"status":    status,
		"message":   message,
		"timestamp": time.Now().UTC(),
	})
}
