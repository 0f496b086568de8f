package cmd

import (
	"fmt"
	"log/slog"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/fieldline/automation/pkg/channels/gochannel"
	"github.com/fieldline/automation/pkg/channels/kafka"
	"github.com/fieldline/automation/pkg/eventbus"
)

// NewEventBus builds the engine lifecycle event bus for the given provider.
func NewEventBus(provider string, logger *slog.Logger) eventbus.EventBus {
	pub, sub := newChannel(provider, logger, "engine-events")

	return eventbus.NewWatermillEventBus(pub, sub)
}

// NewDomainEventBus builds the CRM transition bus for the given provider.
func NewDomainEventBus(provider string, logger *slog.Logger) eventbus.DomainEventBus {
	pub, sub := newChannel(provider, logger, "crm-events")

	return eventbus.NewWatermillDomainEventBus(pub, sub, logger)
}

func newChannel(provider string, logger *slog.Logger, serviceName string) (message.Publisher, message.Subscriber) {
	switch provider {
	case "kafka":
		kpub, ksub, err := kafka.CreateChannel(watermill.NewSlogLogger(logger), serviceName)
		if err != nil {
			panic(fmt.Errorf("failed to create Kafka pub/sub: %w", err))
		}

		return kpub, ksub
	case "gochannel", "":
		gpub, gsub, err := gochannel.CreateChannel(watermill.NewSlogLogger(logger))
		if err != nil {
			panic(fmt.Errorf("failed to create GoChannel pub/sub: %w", err))
		}

		return gpub, gsub
	default:
		panic("Unsupported event bus provider: " + provider)
	}
}
