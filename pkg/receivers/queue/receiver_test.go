package queue

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fieldline/automation/pkg/models"
)

func TestNewReceiver(t *testing.T) {
	receiver, err := NewReceiver(map[string]any{
		"queue": "crm-events",
		"connection": map[string]any{
			"addr": "localhost:6379",
			"db":   "2",
		},
	}, slog.Default())
	require.NoError(t, err)

	assert.Equal(t, "crm-events", receiver.Queue)
	assert.Equal(t, "localhost:6379", receiver.Connection["addr"])
	assert.Equal(t, "2", receiver.Connection["db"])
}

func TestNewReceiverRequiresQueue(t *testing.T) {
	_, err := NewReceiver(map[string]any{}, slog.Default())
	assert.Error(t, err)
}

func TestDecodeEvent(t *testing.T) {
	event, err := decodeEvent(`{
		"type": "stage_change",
		"pipeline": "sales",
		"from_stage": "in_draft",
		"to_stage": "proposal_sent",
		"snapshot": {"record_id": "rec-1", "value": 7000}
	}`)
	require.NoError(t, err)

	assert.Equal(t, models.TriggerTypeStageChange, event.Type)
	assert.Equal(t, "proposal_sent", event.ToStage)
	assert.NotEmpty(t, event.ID, "missing IDs are filled in")
	assert.False(t, event.OccurredAt.IsZero())
}

func TestDecodeEventRejectsMalformedPayloads(t *testing.T) {
	_, err := decodeEvent("not json")
	assert.Error(t, err)

	_, err = decodeEvent(`{"pipeline": "sales"}`)
	assert.Error(t, err, "events without a type never reach the matcher")
}
