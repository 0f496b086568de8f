package executors

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/fieldline/automation/pkg/events"
	"github.com/fieldline/automation/pkg/models"
	"github.com/fieldline/automation/pkg/services"
)

// SendTextMessageAction sends an SMS-style text to a resolved recipient.
type SendTextMessageAction struct {
	RecipientType services.RecipientType
	UserID        string
	TextMessage   string

	messaging services.MessagingService
	directory services.Directory
}

type SendTextMessageFactory struct {
	Messaging services.MessagingService
	Directory services.Directory
}

func (f *SendTextMessageFactory) Type() models.ActionType {
	return models.ActionTypeSendTextMessage
}

func (f *SendTextMessageFactory) Schema() string {
	return `{
		"type": "object",
		"title": "Send Text Message Configuration",
		"properties": {
			"recipient_type": {"type": "string", "enum": ["salesperson", "project_manager", "customer", "specific_user"]},
			"user_id":        {"type": "string"},
			"text_message":   {"type": "string", "minLength": 1}
		},
		"required": ["recipient_type", "text_message"],
		"additionalProperties": false
	}`
}

func (f *SendTextMessageFactory) Create(config map[string]any) (Action, error) {
	recipientType, err := requireString(config, "recipient_type")
	if err != nil {
		return nil, err
	}

	message, err := requireString(config, "text_message")
	if err != nil {
		return nil, err
	}

	userID := stringField(config, "user_id")
	if services.RecipientType(recipientType) == services.RecipientSpecificUser && userID == "" {
		return nil, fmt.Errorf("recipient_type 'specific_user' requires 'user_id'")
	}

	return &SendTextMessageAction{
		RecipientType: services.RecipientType(recipientType),
		UserID:        userID,
		TextMessage:   message,
		messaging:     f.Messaging,
		directory:     f.Directory,
	}, nil
}

func (a *SendTextMessageAction) Execute(ctx context.Context, event events.DomainEvent, logger *slog.Logger) (any, error) {
	logger = logger.With("module", "send_text_message_action")

	recipient, err := a.directory.ResolveRecipient(ctx, a.RecipientType, a.UserID, event.Snapshot)
	if err != nil {
		return nil, Classify(fmt.Errorf("recipient lookup failed: %w", err))
	}

	messageID, err := a.messaging.SendText(ctx, recipient, a.TextMessage)
	if err != nil {
		return nil, Classify(err)
	}

	logger.InfoContext(ctx, "Sent text message",
		"message_id", messageID,
		"recipient_type", string(a.RecipientType))

	return map[string]any{"message_id": messageID, "recipient": recipient.ID}, nil
}
