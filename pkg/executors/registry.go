// Package executors implements the closed capability set of workflow actions.
// Each executor is a self-contained adapter to exactly one collaborator
// service; the registry dispatches from action type to executor and owns the
// per-type config schemas used at workflow save time.
package executors

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"github.com/fieldline/automation/pkg/events"
	"github.com/fieldline/automation/pkg/models"
	"github.com/fieldline/automation/pkg/services"
)

// Action is one ready-to-run executor instance, created from a validated
// config document. Executors never touch the workflow store or the ledger.
type Action interface {
	Execute(ctx context.Context, event events.DomainEvent, logger *slog.Logger) (any, error)
}

// Factory builds executors of one action type and provides the JSON schema
// its config must satisfy.
type Factory interface {
	Type() models.ActionType
	Schema() string
	Create(config map[string]any) (Action, error)
}

// Registry is the closed mapping from action type to factory. An unknown type
// is a save-time validation error, never an execution-time one.
type Registry struct {
	logger    *slog.Logger
	factories map[models.ActionType]Factory
}

func NewRegistry(logger *slog.Logger) *Registry {
	return &Registry{
		logger:    logger,
		factories: make(map[models.ActionType]Factory),
	}
}

func (r *Registry) Register(factory Factory) {
	r.factories[factory.Type()] = factory
}

// Create builds an executor for the given action type and config.
func (r *Registry) Create(actionType models.ActionType, config map[string]any) (Action, error) {
	factory, ok := r.factories[actionType]
	if !ok {
		return nil, fmt.Errorf("action type '%s' not registered", actionType)
	}

	return factory.Create(config)
}

// ValidateConfig checks a raw config document against the action type's
// schema and then performs a full typed decode. Implements
// workflow.ConfigValidator.
func (r *Registry) ValidateConfig(actionType models.ActionType, config map[string]any) error {
	factory, ok := r.factories[actionType]
	if !ok {
		return fmt.Errorf("action type '%s' not registered", actionType)
	}

	if config == nil {
		config = map[string]any{}
	}

	result, err := gojsonschema.Validate(
		gojsonschema.NewStringLoader(factory.Schema()),
		gojsonschema.NewGoLoader(config),
	)
	if err != nil {
		return fmt.Errorf("config schema validation failed: %w", err)
	}

	if !result.Valid() {
		details := make([]string, 0, len(result.Errors()))
		for _, e := range result.Errors() {
			details = append(details, e.String())
		}

		return fmt.Errorf("invalid config: %s", strings.Join(details, "; "))
	}

	_, err = factory.Create(config)

	return err
}

// Types returns the registered action types.
func (r *Registry) Types() []models.ActionType {
	types := make([]models.ActionType, 0, len(r.factories))
	for t := range r.factories {
		types = append(types, t)
	}

	return types
}

// NewDefaultRegistry registers every built-in action executor against the
// given collaborator set.
func NewDefaultRegistry(logger *slog.Logger, collaborators services.Collaborators) *Registry {
	registry := NewRegistry(logger)

	registry.Register(&CreateTaskFactory{Tasks: collaborators.Tasks, Directory: collaborators.Directory})
	registry.Register(&SendTextMessageFactory{Messaging: collaborators.Messaging, Directory: collaborators.Directory})
	registry.Register(&SendEmailFactory{Email: collaborators.Email, Directory: collaborators.Directory})
	registry.Register(&CreateNoteFactory{Notes: collaborators.Notes})
	registry.Register(&UpdateStageFactory{Pipelines: collaborators.Pipelines})
	registry.Register(&MovePipelineFactory{Pipelines: collaborators.Pipelines})
	registry.Register(&AssignUserFactory{Assignment: collaborators.Assignment, Directory: collaborators.Directory})
	registry.Register(&CreateChannelFactory{Chat: collaborators.Chat})
	registry.Register(&SendChannelMessageFactory{Chat: collaborators.Chat})
	registry.Register(&DelayFactory{})

	return registry
}
