package executors

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/fieldline/automation/pkg/events"
	"github.com/fieldline/automation/pkg/models"
	"github.com/fieldline/automation/pkg/services"
)

// CreateTaskAction creates a follow-up task assigned to a CRM user.
type CreateTaskAction struct {
	TaskName       string
	AssignedUserID string
	DueInDays      int
	Priority       string

	tasks     services.TaskService
	directory services.Directory
}

type CreateTaskFactory struct {
	Tasks     services.TaskService
	Directory services.Directory
}

func (f *CreateTaskFactory) Type() models.ActionType {
	return models.ActionTypeCreateTask
}

func (f *CreateTaskFactory) Schema() string {
	return `{
		"type": "object",
		"title": "Create Task Configuration",
		"properties": {
			"task_name":        {"type": "string", "minLength": 1},
			"assigned_user_id": {"type": "string"},
			"due_in_days":      {"type": "integer", "minimum": 0},
			"priority":         {"type": "string", "enum": ["low", "normal", "high", "urgent"]}
		},
		"required": ["task_name"],
		"additionalProperties": false
	}`
}

func (f *CreateTaskFactory) Create(config map[string]any) (Action, error) {
	taskName, err := requireString(config, "task_name")
	if err != nil {
		return nil, err
	}

	return &CreateTaskAction{
		TaskName:       taskName,
		AssignedUserID: stringField(config, "assigned_user_id"),
		DueInDays:      intField(config, "due_in_days"),
		Priority:       stringField(config, "priority"),
		tasks:          f.Tasks,
		directory:      f.Directory,
	}, nil
}

func (a *CreateTaskAction) Execute(ctx context.Context, event events.DomainEvent, logger *slog.Logger) (any, error) {
	logger = logger.With("module", "create_task_action")

	record, err := recordID(event)
	if err != nil {
		return nil, err
	}

	// An assignee that does not exist is an invalid config reference.
	if a.AssignedUserID != "" {
		if _, err := a.directory.ResolveUser(ctx, a.AssignedUserID); err != nil {
			return nil, Classify(fmt.Errorf("assignee lookup failed: %w", err))
		}
	}

	req := services.TaskRequest{
		Name:           a.TaskName,
		AssignedUserID: a.AssignedUserID,
		Priority:       a.Priority,
		RecordID:       record,
	}

	if a.DueInDays > 0 {
		due := time.Now().AddDate(0, 0, a.DueInDays)
		req.DueDate = &due
	}

	taskID, err := a.tasks.CreateTask(ctx, req)
	if err != nil {
		return nil, Classify(err)
	}

	logger.InfoContext(ctx, "Created task", "task_id", taskID, "record_id", record)

	return map[string]any{"task_id": taskID}, nil
}
