// Package events defines the inbound CRM domain event and the engine's
// lifecycle notifications.
package events

import (
	"errors"
	"time"

	"github.com/fieldline/automation/pkg/models"
	"github.com/google/uuid"
)

type EventType string

// Bus topics.
const (
	CRMEventsTopic = "fieldline.crm.events"      // Inbound pipeline/stage/status transitions
	EngineTopic    = "fieldline.engine.events"   // Engine lifecycle notifications
)

const EventMetadataKey = "key"
const EventTypeMetadataKey = "event_type"

const (
	ExecutionStartedEvent   EventType = "execution.started"
	ExecutionCompletedEvent EventType = "execution.completed"
	ExecutionFailedEvent    EventType = "execution.failed"
	ExecutionPausedEvent    EventType = "execution.paused"
	ExecutionResumedEvent   EventType = "execution.resumed"
)

// DomainEvent is one CRM transition delivered by the surrounding system, once
// per pipeline/stage/status change. Snapshot carries the record's field values
// at the moment of the transition and is what filters evaluate against.
type DomainEvent struct {
	ID         string             `json:"id"`
	Type       models.TriggerType `json:"type"`
	Pipeline   string             `json:"pipeline,omitempty"`
	FromStage  string             `json:"from_stage,omitempty"`
	ToStage    string             `json:"to_stage,omitempty"`
	Status     string             `json:"status,omitempty"`
	Labels     []string           `json:"labels,omitempty"`
	Snapshot   map[string]any     `json:"snapshot,omitempty"`
	OccurredAt time.Time          `json:"occurred_at"`
}

// NewDomainEvent builds a domain event with a fresh ID and timestamp.
func NewDomainEvent(triggerType models.TriggerType, snapshot map[string]any) DomainEvent {
	return DomainEvent{
		ID:         uuid.New().String(),
		Type:       triggerType,
		Snapshot:   snapshot,
		OccurredAt: time.Now(),
	}
}

// Validate checks the minimum shape the matcher needs.
func (e DomainEvent) Validate() error {
	if e.Type == "" {
		return errors.New("domain event type is required")
	}

	return nil
}

type BaseEvent struct {
	ID         string    `json:"id"`
	Type       EventType `json:"type"`
	Timestamp  time.Time `json:"timestamp"`
	WorkflowID string    `json:"workflow_id"`
}

func NewBaseEvent(eventType EventType, workflowID string) BaseEvent {
	return BaseEvent{
		ID:         uuid.New().String(),
		Type:       eventType,
		Timestamp:  time.Now(),
		WorkflowID: workflowID,
	}
}

type ExecutionStarted struct {
	BaseEvent

	ExecutionID string `json:"execution_id"`
	EventID     string `json:"event_id"`
}

func (e ExecutionStarted) GetType() EventType {
	return ExecutionStartedEvent
}

type ExecutionCompleted struct {
	BaseEvent

	ExecutionID string        `json:"execution_id"`
	Duration    time.Duration `json:"duration"`
}

func (e ExecutionCompleted) GetType() EventType {
	return ExecutionCompletedEvent
}

type ExecutionFailed struct {
	BaseEvent

	ExecutionID string        `json:"execution_id"`
	Error       string        `json:"error"`
	Duration    time.Duration `json:"duration"`
}

func (e ExecutionFailed) GetType() EventType {
	return ExecutionFailedEvent
}

type ExecutionPaused struct {
	BaseEvent

	ExecutionID string `json:"execution_id"`
}

func (e ExecutionPaused) GetType() EventType {
	return ExecutionPausedEvent
}

type ExecutionResumed struct {
	BaseEvent

	ExecutionID string `json:"execution_id"`
}

func (e ExecutionResumed) GetType() EventType {
	return ExecutionResumedEvent
}
