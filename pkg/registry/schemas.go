package registry

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/robfig/cron/v3"
	"github.com/xeipuuv/gojsonschema"

	"github.com/trigion/trigion/pkg/models"
)

// triggerSchemas holds the JSON schema for each trigger type's config.
// Message and manual configs are free-form beyond type checks; webhook,
// schedule and event require their routing key.
var triggerSchemas = map[models.TriggerType]map[string]any{
	models.TriggerTypeMessage: {
		"type": "object",
		"properties": map[string]any{
			"platform":       map[string]any{"type": "string"},
			"patternType":    map[string]any{"type": "string"},
			"contains":       map[string]any{"type": "string"},
			"startsWith":     map[string]any{"type": "string"},
			"endsWith":       map[string]any{"type": "string"},
			"exactMatch":     map[string]any{"type": "string"},
			"pattern":        map[string]any{"type": "string"},
			"caseSensitive":  map[string]any{"type": "boolean"},
			"sender":         map[string]any{"type": "string"},
			"allowedSenders": map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
			"blockedSender":  map[string]any{"type": "string"},
			"senderFilter":   map[string]any{"type": "string"},
			"hasAttachment":  map[string]any{"type": "boolean"},
			"attachmentType": map[string]any{"type": "string"},
			"isGroup":        map[string]any{"type": "boolean"},
			"fromGroups":     map[string]any{"type": "boolean"},
			"fromPrivate":    map[string]any{"type": "boolean"},
		},
	},
	models.TriggerTypeWebhook: {
		"type":     "object",
		"required": []any{"webhookId"},
		"properties": map[string]any{
			"webhookId": map[string]any{"type": "string", "minLength": 1},
		},
	},
	models.TriggerTypeSchedule: {
		"type":     "object",
		"required": []any{"cron"},
		"properties": map[string]any{
			"cron":     map[string]any{"type": "string", "minLength": 1},
			"timezone": map[string]any{"type": "string"},
		},
	},
	models.TriggerTypeEvent: {
		"type":     "object",
		"required": []any{"event"},
		"properties": map[string]any{
			"event": map[string]any{"type": "string", "minLength": 1},
		},
	},
	models.TriggerTypeManual: {
		"type": "object",
	},
}

// ValidateTriggerConfig checks a subscription config against its trigger
// type's schema, plus the checks a schema cannot express: the cron
// expression must parse and a message pattern must compile. Configuration
// errors surface here, at registration time, never at dispatch time.
func ValidateTriggerConfig(triggerType models.TriggerType, config map[string]any) error {
	schema, ok := triggerSchemas[triggerType]
	if !ok {
		return fmt.Errorf("no config schema for trigger type %s", triggerType)
	}

	if config == nil {
		config = map[string]any{}
	}

	result, err := gojsonschema.Validate(
		gojsonschema.NewGoLoader(schema),
		gojsonschema.NewGoLoader(config),
	)
	if err != nil {
		return fmt.Errorf("failed to validate %s trigger config: %w", triggerType, err)
	}

	if !result.Valid() {
		details := make([]string, 0, len(result.Errors()))
		for _, desc := range result.Errors() {
			details = append(details, desc.String())
		}

		return fmt.Errorf("invalid %s trigger config: %s", triggerType, strings.Join(details, "; "))
	}

	switch triggerType {
	case models.TriggerTypeSchedule:
		cronExpr, _ := config["cron"].(string)
		if _, err := cron.ParseStandard(cronExpr); err != nil {
			return fmt.Errorf("invalid cron expression %q: %w", cronExpr, err)
		}
	case models.TriggerTypeMessage:
		if pattern, ok := config["pattern"].(string); ok && pattern != "" {
			if _, err := regexp.Compile(pattern); err != nil {
				return fmt.Errorf("invalid message pattern %q: %w", pattern, err)
			}
		}
	}

	return nil
}
