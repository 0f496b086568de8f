package executors

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/fieldline/automation/pkg/events"
	"github.com/fieldline/automation/pkg/models"
	"github.com/fieldline/automation/pkg/services"
)

// CreateChannelAction creates a team-chat channel for the triggering record.
type CreateChannelAction struct {
	ChannelName string

	chat services.ChatService
}

type CreateChannelFactory struct {
	Chat services.ChatService
}

func (f *CreateChannelFactory) Type() models.ActionType {
	return models.ActionTypeCreateChannel
}

func (f *CreateChannelFactory) Schema() string {
	return `{
		"type": "object",
		"title": "Create Channel Configuration",
		"properties": {
			"channel_name": {"type": "string", "minLength": 1}
		},
		"required": ["channel_name"],
		"additionalProperties": false
	}`
}

func (f *CreateChannelFactory) Create(config map[string]any) (Action, error) {
	name, err := requireString(config, "channel_name")
	if err != nil {
		return nil, err
	}

	return &CreateChannelAction{ChannelName: name, chat: f.Chat}, nil
}

func (a *CreateChannelAction) Execute(ctx context.Context, event events.DomainEvent, logger *slog.Logger) (any, error) {
	logger = logger.With("module", "create_channel_action")

	channelID, err := a.chat.CreateChannel(ctx, a.ChannelName)
	if err != nil {
		return nil, Classify(err)
	}

	logger.InfoContext(ctx, "Created channel", "channel_id", channelID)

	return map[string]any{"channel_id": channelID}, nil
}

// SendChannelMessageAction posts into the team-chat channel located by the
// configured lookup key.
type SendChannelMessageAction struct {
	Message string
	FindBy  string

	chat services.ChatService
}

type SendChannelMessageFactory struct {
	Chat services.ChatService
}

func (f *SendChannelMessageFactory) Type() models.ActionType {
	return models.ActionTypeSendChannelMessage
}

func (f *SendChannelMessageFactory) Schema() string {
	return `{
		"type": "object",
		"title": "Send Channel Message Configuration",
		"properties": {
			"message": {"type": "string", "minLength": 1},
			"find_by": {"type": "string", "enum": ["proposal_id", "job_id", "customer_name"]}
		},
		"required": ["message", "find_by"],
		"additionalProperties": false
	}`
}

func (f *SendChannelMessageFactory) Create(config map[string]any) (Action, error) {
	message, err := requireString(config, "message")
	if err != nil {
		return nil, err
	}

	findBy, err := requireString(config, "find_by")
	if err != nil {
		return nil, err
	}

	return &SendChannelMessageAction{Message: message, FindBy: findBy, chat: f.Chat}, nil
}

func (a *SendChannelMessageAction) Execute(ctx context.Context, event events.DomainEvent, logger *slog.Logger) (any, error) {
	logger = logger.With("module", "send_channel_message_action")

	key, _ := event.Snapshot[a.FindBy].(string)
	if key == "" {
		return nil, NewPermanent(fmt.Errorf("event snapshot carries no %s: %w", a.FindBy, services.ErrNotFound))
	}

	ref := services.ChannelRef{}

	switch a.FindBy {
	case "proposal_id":
		ref.ProposalID = key
	case "job_id":
		ref.JobID = key
	case "customer_name":
		ref.CustomerName = key
	}

	channelID, err := a.chat.FindChannel(ctx, ref)
	if err != nil {
		return nil, Classify(err)
	}

	messageID, err := a.chat.SendMessage(ctx, channelID, a.Message)
	if err != nil {
		return nil, Classify(err)
	}

	logger.InfoContext(ctx, "Sent channel message",
		"channel_id", channelID,
		"message_id", messageID)

	return map[string]any{"channel_id": channelID, "message_id": messageID}, nil
}
