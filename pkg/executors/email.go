package executors

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/fieldline/automation/pkg/events"
	"github.com/fieldline/automation/pkg/models"
	"github.com/fieldline/automation/pkg/services"
)

// SendEmailAction sends a templated email to a resolved recipient.
type SendEmailAction struct {
	RecipientType services.RecipientType
	UserID        string
	Subject       string
	Body          string

	email     services.EmailService
	directory services.Directory
}

type SendEmailFactory struct {
	Email     services.EmailService
	Directory services.Directory
}

func (f *SendEmailFactory) Type() models.ActionType {
	return models.ActionTypeSendEmail
}

func (f *SendEmailFactory) Schema() string {
	return `{
		"type": "object",
		"title": "Send Email Configuration",
		"properties": {
			"recipient_type": {"type": "string", "enum": ["salesperson", "project_manager", "customer", "specific_user"]},
			"user_id":        {"type": "string"},
			"subject":        {"type": "string", "minLength": 1},
			"body":           {"type": "string", "minLength": 1}
		},
		"required": ["recipient_type", "subject", "body"],
		"additionalProperties": false
	}`
}

func (f *SendEmailFactory) Create(config map[string]any) (Action, error) {
	recipientType, err := requireString(config, "recipient_type")
	if err != nil {
		return nil, err
	}

	subject, err := requireString(config, "subject")
	if err != nil {
		return nil, err
	}

	body, err := requireString(config, "body")
	if err != nil {
		return nil, err
	}

	userID := stringField(config, "user_id")
	if services.RecipientType(recipientType) == services.RecipientSpecificUser && userID == "" {
		return nil, fmt.Errorf("recipient_type 'specific_user' requires 'user_id'")
	}

	return &SendEmailAction{
		RecipientType: services.RecipientType(recipientType),
		UserID:        userID,
		Subject:       subject,
		Body:          body,
		email:         f.Email,
		directory:     f.Directory,
	}, nil
}

func (a *SendEmailAction) Execute(ctx context.Context, event events.DomainEvent, logger *slog.Logger) (any, error) {
	logger = logger.With("module", "send_email_action")

	recipient, err := a.directory.ResolveRecipient(ctx, a.RecipientType, a.UserID, event.Snapshot)
	if err != nil {
		return nil, Classify(fmt.Errorf("recipient lookup failed: %w", err))
	}

	emailID, err := a.email.SendEmail(ctx, recipient, a.Subject, a.Body)
	if err != nil {
		return nil, Classify(err)
	}

	logger.InfoContext(ctx, "Sent email", "email_id", emailID, "recipient", recipient.ID)

	return map[string]any{"email_id": emailID, "recipient": recipient.ID}, nil
}
