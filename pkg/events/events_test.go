package events

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trigion/trigion/pkg/models"
)

func TestNewBaseEvent(t *testing.T) {
	event := NewBaseEvent(TriggerExecutedEvent, "flow-1")

	assert.NotEmpty(t, event.ID)
	assert.Equal(t, TriggerExecutedEvent, event.Type)
	assert.Equal(t, "flow-1", event.FlowID)
	assert.False(t, event.Timestamp.IsZero())
}

func TestEventTypes(t *testing.T) {
	registered := SubscriptionRegistered{
		BaseEvent:      NewBaseEvent(SubscriptionRegisteredEvent, "flow-1"),
		SubscriptionID: "flow-1:node-1",
		UserID:         "user-1",
		TriggerType:    models.TriggerTypeMessage,
	}
	assert.Equal(t, SubscriptionRegisteredEvent, registered.GetType())

	executed := TriggerExecuted{
		BaseEvent:      NewBaseEvent(TriggerExecutedEvent, "flow-1"),
		SubscriptionID: "flow-1:node-1",
		ExecutionID:    "exec-1",
	}
	assert.Equal(t, TriggerExecutedEvent, executed.GetType())

	failed := TriggerFailed{
		BaseEvent:      NewBaseEvent(TriggerFailedEvent, "flow-1"),
		SubscriptionID: "flow-1:node-1",
		Error:          "boom",
	}
	assert.Equal(t, TriggerFailedEvent, failed.GetType())
}

func TestTriggerExecuted_JSONRoundTrip(t *testing.T) {
	executed := TriggerExecuted{
		BaseEvent:      NewBaseEvent(TriggerExecutedEvent, "flow-1"),
		SubscriptionID: "flow-1:node-1",
		ExecutionID:    "exec-1",
		Input:          map[string]any{"message": "hi"},
	}

	payload, err := json.Marshal(executed)
	require.NoError(t, err)

	var decoded TriggerExecuted
	require.NoError(t, json.Unmarshal(payload, &decoded))
	assert.Equal(t, executed.SubscriptionID, decoded.SubscriptionID)
	assert.Equal(t, executed.Input, decoded.Input)
}
