package executors

import (
	"fmt"

	"github.com/fieldline/automation/pkg/events"
	"github.com/fieldline/automation/pkg/services"
)

// recordID extracts the CRM record identifier the event is about. A snapshot
// without one is an invalid reference for record-scoped actions.
func recordID(event events.DomainEvent) (string, error) {
	id, _ := event.Snapshot["record_id"].(string)
	if id == "" {
		return "", NewPermanent(fmt.Errorf("event snapshot carries no record_id: %w", services.ErrNotFound))
	}

	return id, nil
}

func stringField(config map[string]any, key string) string {
	value, _ := config[key].(string)

	return value
}

func intField(config map[string]any, key string) int {
	switch v := config[key].(type) {
	case int:
		return v
	case float64:
		return int(v)
	default:
		return 0
	}
}

func requireString(config map[string]any, key string) (string, error) {
	value := stringField(config, key)
	if value == "" {
		return "", fmt.Errorf("missing or invalid '%s' in configuration", key)
	}

	return value, nil
}
