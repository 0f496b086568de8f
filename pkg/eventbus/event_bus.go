// Package eventbus provides event-driven communication between the engine,
// the API and the surrounding CRM.
package eventbus

import (
	"context"

	"github.com/fieldline/automation/pkg/events"
)

type Event interface {
	GetType() events.EventType
}

type EventPublisher interface {
	Publish(ctx context.Context, key string, event Event) error
}

type EventSubscriber interface {
	Handle(eventType events.EventType, handler EventHandler) error
	Subscribe(ctx context.Context) error
}

type EventHandler func(ctx context.Context, event interface{}) error

// EventBus carries engine lifecycle notifications (execution started,
// completed, failed, paused, resumed).
type EventBus interface {
	EventPublisher
	EventSubscriber
	Close() error
	GenerateID() string
}

// DomainEventHandler is called once per inbound CRM transition.
type DomainEventHandler func(ctx context.Context, event *events.DomainEvent) error

// DomainEventPublisher publishes CRM transitions onto the CRM events topic.
type DomainEventPublisher interface {
	PublishDomainEvent(ctx context.Context, event *events.DomainEvent) error
}

// DomainEventSubscriber consumes CRM transitions from the CRM events topic.
type DomainEventSubscriber interface {
	HandleDomainEvents(handler DomainEventHandler) error
	SubscribeToDomainEvents(ctx context.Context) error
}

// DomainEventBus combines publishing and subscribing for CRM transitions.
type DomainEventBus interface {
	DomainEventPublisher
	DomainEventSubscriber
	Close() error
}
