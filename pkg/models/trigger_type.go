package models

import "fmt"

// TriggerType identifies the family of occurrence a subscription reacts to.
type TriggerType string

const (
	TriggerTypeMessage  TriggerType = "message"
	TriggerTypeWebhook  TriggerType = "webhook"
	TriggerTypeSchedule TriggerType = "schedule"
	TriggerTypeEvent    TriggerType = "event"
	TriggerTypeManual   TriggerType = "manual"
)

// TriggerTypes lists every supported trigger type.
func TriggerTypes() []TriggerType {
	return []TriggerType{
		TriggerTypeMessage,
		TriggerTypeWebhook,
		TriggerTypeSchedule,
		TriggerTypeEvent,
		TriggerTypeManual,
	}
}

// ParseTriggerType converts a raw string into a TriggerType. Unknown values
// are rejected, never defaulted.
func ParseTriggerType(raw string) (TriggerType, error) {
	switch t := TriggerType(raw); t {
	case TriggerTypeMessage, TriggerTypeWebhook, TriggerTypeSchedule, TriggerTypeEvent, TriggerTypeManual:
		return t, nil
	}

	return "", fmt.Errorf("unknown trigger type %q", raw)
}

func (t TriggerType) String() string {
	return string(t)
}
