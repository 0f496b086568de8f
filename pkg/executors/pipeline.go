package executors

import (
	"context"
	"log/slog"

	"github.com/fieldline/automation/pkg/events"
	"github.com/fieldline/automation/pkg/models"
	"github.com/fieldline/automation/pkg/services"
)

// UpdateStageAction moves the triggering record to another stage of its
// pipeline.
type UpdateStageAction struct {
	Pipeline string
	Stage    string

	pipelines services.PipelineService
}

type UpdateStageFactory struct {
	Pipelines services.PipelineService
}

func (f *UpdateStageFactory) Type() models.ActionType {
	return models.ActionTypeUpdateStage
}

func (f *UpdateStageFactory) Schema() string {
	return `{
		"type": "object",
		"title": "Update Stage Configuration",
		"properties": {
			"pipeline": {"type": "string"},
			"stage":    {"type": "string", "minLength": 1}
		},
		"required": ["stage"],
		"additionalProperties": false
	}`
}

func (f *UpdateStageFactory) Create(config map[string]any) (Action, error) {
	stage, err := requireString(config, "stage")
	if err != nil {
		return nil, err
	}

	return &UpdateStageAction{
		Pipeline:  stringField(config, "pipeline"),
		Stage:     stage,
		pipelines: f.Pipelines,
	}, nil
}

func (a *UpdateStageAction) Execute(ctx context.Context, event events.DomainEvent, logger *slog.Logger) (any, error) {
	logger = logger.With("module", "update_stage_action")

	record, err := recordID(event)
	if err != nil {
		return nil, err
	}

	pipeline := a.Pipeline
	if pipeline == "" {
		pipeline = event.Pipeline
	}

	if err := a.pipelines.UpdateStage(ctx, record, pipeline, a.Stage); err != nil {
		return nil, Classify(err)
	}

	logger.InfoContext(ctx, "Updated stage", "record_id", record, "stage", a.Stage)

	return map[string]any{"record_id": record, "stage": a.Stage}, nil
}

// MovePipelineAction moves the triggering record into another pipeline.
type MovePipelineAction struct {
	ToPipeline string
	ToStage    string

	pipelines services.PipelineService
}

type MovePipelineFactory struct {
	Pipelines services.PipelineService
}

func (f *MovePipelineFactory) Type() models.ActionType {
	return models.ActionTypeMovePipeline
}

func (f *MovePipelineFactory) Schema() string {
	return `{
		"type": "object",
		"title": "Move Pipeline Configuration",
		"properties": {
			"to_pipeline": {"type": "string", "minLength": 1},
			"to_stage":    {"type": "string"}
		},
		"required": ["to_pipeline"],
		"additionalProperties": false
	}`
}

func (f *MovePipelineFactory) Create(config map[string]any) (Action, error) {
	toPipeline, err := requireString(config, "to_pipeline")
	if err != nil {
		return nil, err
	}

	return &MovePipelineAction{
		ToPipeline: toPipeline,
		ToStage:    stringField(config, "to_stage"),
		pipelines:  f.Pipelines,
	}, nil
}

func (a *MovePipelineAction) Execute(ctx context.Context, event events.DomainEvent, logger *slog.Logger) (any, error) {
	logger = logger.With("module", "move_pipeline_action")

	record, err := recordID(event)
	if err != nil {
		return nil, err
	}

	if err := a.pipelines.MovePipeline(ctx, record, a.ToPipeline, a.ToStage); err != nil {
		return nil, Classify(err)
	}

	logger.InfoContext(ctx, "Moved pipeline", "record_id", record, "to_pipeline", a.ToPipeline)

	return map[string]any{"record_id": record, "pipeline": a.ToPipeline}, nil
}
