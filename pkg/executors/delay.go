package executors

import (
	"context"
	"log/slog"

	"github.com/fieldline/automation/pkg/events"
	"github.com/fieldline/automation/pkg/models"
)

// DelayAction is a no-op whose only effect is the elapsed time before the
// next action. The waiting itself happens in the scheduler, driven by the
// action's delay field; invoking the executor just records that the pause
// completed.
type DelayAction struct{}

type DelayFactory struct{}

func (f *DelayFactory) Type() models.ActionType {
	return models.ActionTypeDelay
}

func (f *DelayFactory) Schema() string {
	return `{
		"type": "object",
		"title": "Delay Configuration",
		"properties": {},
		"additionalProperties": false
	}`
}

func (f *DelayFactory) Create(_ map[string]any) (Action, error) {
	return &DelayAction{}, nil
}

func (a *DelayAction) Execute(_ context.Context, _ events.DomainEvent, _ *slog.Logger) (any, error) {
	return map[string]any{"delayed": true}, nil
}
