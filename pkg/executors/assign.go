package executors

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/fieldline/automation/pkg/events"
	"github.com/fieldline/automation/pkg/models"
	"github.com/fieldline/automation/pkg/services"
)

// AssignUserAction assigns a user, or whoever currently holds a role, to the
// triggering record.
type AssignUserAction struct {
	UserID string
	Role   string
	AsRole string

	assignment services.AssignmentService
	directory  services.Directory
}

type AssignUserFactory struct {
	Assignment services.AssignmentService
	Directory  services.Directory
}

func (f *AssignUserFactory) Type() models.ActionType {
	return models.ActionTypeAssignUser
}

func (f *AssignUserFactory) Schema() string {
	return `{
		"type": "object",
		"title": "Assign User Configuration",
		"properties": {
			"user_id": {"type": "string"},
			"role":    {"type": "string"},
			"as_role": {"type": "string"}
		},
		"additionalProperties": false
	}`
}

func (f *AssignUserFactory) Create(config map[string]any) (Action, error) {
	userID := stringField(config, "user_id")
	role := stringField(config, "role")

	if userID == "" && role == "" {
		return nil, errors.New("one of 'user_id' or 'role' is required")
	}

	return &AssignUserAction{
		UserID:     userID,
		Role:       role,
		AsRole:     stringField(config, "as_role"),
		assignment: f.Assignment,
		directory:  f.Directory,
	}, nil
}

func (a *AssignUserAction) Execute(ctx context.Context, event events.DomainEvent, logger *slog.Logger) (any, error) {
	logger = logger.With("module", "assign_user_action")

	record, err := recordID(event)
	if err != nil {
		return nil, err
	}

	userID := a.UserID
	if userID == "" {
		contact, err := a.directory.ResolveRole(ctx, a.Role)
		if err != nil {
			return nil, Classify(fmt.Errorf("role lookup failed: %w", err))
		}

		userID = contact.ID
	} else {
		if _, err := a.directory.ResolveUser(ctx, userID); err != nil {
			return nil, Classify(fmt.Errorf("user lookup failed: %w", err))
		}
	}

	if err := a.assignment.AssignUser(ctx, record, userID, a.AsRole); err != nil {
		return nil, Classify(err)
	}

	logger.InfoContext(ctx, "Assigned user", "record_id", record, "user_id", userID)

	return map[string]any{"record_id": record, "user_id": userID}, nil
}
