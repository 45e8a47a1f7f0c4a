// Package events defines the observability events the trigger registry emits
// over the event bus.
package events

import (
	"time"

	"github.com/google/uuid"

	"github.com/trigion/trigion/pkg/models"
)

type EventType string

// Topic is the bus topic every registry event is published on.
const Topic = "trigion.events"

const EventMetadataKey = "key"
const EventTypeMetadataKey = "event_type"

const (
	// Subscription lifecycle events.
	SubscriptionRegisteredEvent   EventType = "subscription.registered"
	SubscriptionUnregisteredEvent EventType = "subscription.unregistered"

	// Trigger dispatch events.
	TriggerExecutedEvent EventType = "trigger.executed"
	TriggerFailedEvent   EventType = "trigger.failed"

	// Flow run hand-off to the external runner.
	FlowRunRequestedEvent EventType = "flow.run.requested"
)

type BaseEvent struct {
	ID        string         `json:"id"`
	Type      EventType      `json:"type"`
	Timestamp time.Time      `json:"timestamp"`
	FlowID    string         `json:"flow_id"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

func NewBaseEvent(eventType EventType, flowID string) BaseEvent {
	return BaseEvent{
		ID:        uuid.New().String(),
		Type:      eventType,
		Timestamp: time.Now().UTC(),
		FlowID:    flowID,
	}
}

// SubscriptionRegistered is emitted after a subscription lands in the
// registry's primary map and every index.
type SubscriptionRegistered struct {
	BaseEvent

	SubscriptionID string             `json:"subscription_id"`
	UserID         string             `json:"user_id"`
	TriggerType    models.TriggerType `json:"trigger_type"`
}

func (s SubscriptionRegistered) GetType() EventType {
	return SubscriptionRegisteredEvent
}

// SubscriptionUnregistered is emitted after a subscription is removed from
// all four registry locations.
type SubscriptionUnregistered struct {
	BaseEvent

	SubscriptionID string `json:"subscription_id"`
}

func (s SubscriptionUnregistered) GetType() EventType {
	return SubscriptionUnregisteredEvent
}

// TriggerExecuted is emitted when a matched trigger successfully started a
// flow run.
type TriggerExecuted struct {
	BaseEvent

	SubscriptionID string         `json:"subscription_id"`
	ExecutionID    string         `json:"execution_id"`
	Input          map[string]any `json:"input,omitempty"`
}

func (t TriggerExecuted) GetType() EventType {
	return TriggerExecutedEvent
}

// TriggerFailed is emitted when dispatch of a matched trigger failed.
type TriggerFailed struct {
	BaseEvent

	SubscriptionID string `json:"subscription_id"`
	Error          string `json:"error"`
}

func (t TriggerFailed) GetType() EventType {
	return TriggerFailedEvent
}

// FlowRunRequested asks the external flow runner to execute a flow. The
// registry publishes it through the bus-backed runner adapter.
type FlowRunRequested struct {
	BaseEvent

	ExecutionID string         `json:"execution_id"`
	StartNodeID string         `json:"start_node_id"`
	UserID      string         `json:"user_id"`
	Input       map[string]any `json:"input,omitempty"`
	Trigger     map[string]any `json:"trigger,omitempty"`
}

func (f FlowRunRequested) GetType() EventType {
	return FlowRunRequestedEvent
}
