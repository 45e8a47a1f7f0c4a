package models

import "time"

// Subscription binds one trigger node of one flow to its live matching state.
// Its identity is the composite key flowID:nodeID, so re-registering the same
// pair replaces the previous entry instead of duplicating it.
type Subscription struct {
	ID          string         `json:"id"`
	FlowID      string         `json:"flow_id"      validate:"required"`
	NodeID      string         `json:"node_id"      validate:"required"`
	UserID      string         `json:"user_id"      validate:"required"`
	TriggerType TriggerType    `json:"trigger_type" validate:"required"`
	Config      map[string]any `json:"config,omitempty"`
	Active      bool           `json:"active"`
	CreatedAt   time.Time      `json:"created_at"`

	// Job is the handle of the running scheduled job. Only schedule
	// subscriptions own one; the registry must cancel it before the
	// subscription is removed.
	Job ScheduledJob `json:"-"`
}

// ScheduledJob is the opaque, cancellable handle of a recurring scheduled job.
type ScheduledJob interface {
	Cancel()
}

// SubscriptionID builds the composite identity used as the sole map key for a
// subscription.
func SubscriptionID(flowID, nodeID string) string {
	return flowID + ":" + nodeID
}
