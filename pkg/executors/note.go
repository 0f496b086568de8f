package executors

import (
	"context"
	"log/slog"

	"github.com/fieldline/automation/pkg/events"
	"github.com/fieldline/automation/pkg/models"
	"github.com/fieldline/automation/pkg/services"
)

// CreateNoteAction appends an internal note to the triggering record.
type CreateNoteAction struct {
	Note string

	notes services.NoteService
}

type CreateNoteFactory struct {
	Notes services.NoteService
}

func (f *CreateNoteFactory) Type() models.ActionType {
	return models.ActionTypeCreateNote
}

func (f *CreateNoteFactory) Schema() string {
	return `{
		"type": "object",
		"title": "Create Note Configuration",
		"properties": {
			"note": {"type": "string", "minLength": 1}
		},
		"required": ["note"],
		"additionalProperties": false
	}`
}

func (f *CreateNoteFactory) Create(config map[string]any) (Action, error) {
	note, err := requireString(config, "note")
	if err != nil {
		return nil, err
	}

	return &CreateNoteAction{Note: note, notes: f.Notes}, nil
}

func (a *CreateNoteAction) Execute(ctx context.Context, event events.DomainEvent, logger *slog.Logger) (any, error) {
	logger = logger.With("module", "create_note_action")

	record, err := recordID(event)
	if err != nil {
		return nil, err
	}

	noteID, err := a.notes.AppendNote(ctx, record, a.Note)
	if err != nil {
		return nil, Classify(err)
	}

	logger.InfoContext(ctx, "Appended note", "note_id", noteID, "record_id", record)

	return map[string]any{"note_id": noteID}, nil
}
