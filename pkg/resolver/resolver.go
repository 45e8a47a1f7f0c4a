// Package resolver implements the {{path}} substitution language used to
// parameterize node configuration at execution time.
package resolver

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"regexp"
	"strconv"
	"strings"

	"github.com/trigion/trigion/pkg/models"
)

// templatePattern matches {{ followed by any run of characters except },
// closed by }}. No nesting. Whitespace around the path is trimmed before
// dispatch.
var templatePattern = regexp.MustCompile(`\{\{([^}]*)\}\}`)

// allowedEnv is the fixed allow-list of environment names templates may read.
// Any other name resolves to nothing, so process configuration cannot leak
// into generated content.
var allowedEnv = map[string]struct{}{
	"APP_NAME":   {},
	"APP_ENV":    {},
	"APP_URL":    {},
	"PUBLIC_URL": {},
	"HOSTNAME":   {},
	"LANG":       {},
	"TZ":         {},
}

// triggerShorthands project commonly used fields out of the trigger input.
// Each shorthand tries its candidate paths in order.
var triggerShorthands = map[string][]string{
	"phone":       {"message.senderId", "message.from"},
	"chatId":      {"conversation.id", "conversation.external_id"},
	"message":     {"message.content"},
	"senderName":  {"contact.display_name", "conversation.title"},
	"isGroup":     {"message.isGroup"},
	"messageType": {"message.contentType"},
	"mediaUrl":    {"message.cachedMediaUrl", "message.mediaUrl"},
}

// Resolver expands templates against an execution context. The zero value is
// usable and logs through the default logger.
type Resolver struct {
	logger *slog.Logger
}

func NewResolver(logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}

	return &Resolver{logger: logger.With("module", "resolver")}
}

func (r *Resolver) log() *slog.Logger {
	if r.logger != nil {
		return r.logger
	}

	return slog.Default()
}

// Resolve replaces every {{path}} occurrence in template independently.
// Resolution is fail-soft: an unresolved path is left as literal text and a
// warning is logged. Resolve never returns an error.
func (r *Resolver) Resolve(template string, ec *models.ExecutionContext) string {
	if template == "" || !strings.Contains(template, "{{") {
		return template
	}

	return templatePattern.ReplaceAllStringFunc(template, func(match string) string {
		path := strings.TrimSpace(match[2 : len(match)-2])
		if path == "" {
			return match
		}

		value, ok := r.resolvePath(path, ec)
		if !ok {
			r.log().Warn("Unresolved template path", "path", path)

			return match
		}

		return formatValue(value)
	})
}

// ResolveObject applies Resolve to every string leaf of a nested structure,
// preserving shape and non-string values unchanged.
func (r *Resolver) ResolveObject(value any, ec *models.ExecutionContext) any {
	switch v := value.(type) {
	case string:
		return r.Resolve(v, ec)
	case map[string]any:
		out := make(map[string]any, len(v))
		for key, item := range v {
			out[key] = r.ResolveObject(item, ec)
		}

		return out
	case []any:
		out := make([]any, len(v))
		for i, item := range v {
			out[i] = r.ResolveObject(item, ec)
		}

		return out
	default:
		return v
	}
}

// resolvePath dispatches one trimmed path. Built-in generator names win over
// every namespace and are the only case-insensitive part of the language,
// together with the env allow-list guard.
func (r *Resolver) resolvePath(path string, ec *models.ExecutionContext) (any, bool) {
	if value, ok := builtin(path); ok {
		return value, true
	}

	if ec == nil {
		return nil, false
	}

	segments := strings.Split(path, ".")

	switch segments[0] {
	case "item":
		if ec.Loop == nil {
			return nil, false
		}

		return lookupSegments(ec.Loop.Item, segments[1:])
	case "index":
		if ec.Loop == nil || len(segments) > 1 {
			return nil, false
		}

		return ec.Loop.Index, true
	case "previousOutput":
		return lookupSegments(previousOutput(ec), segments[1:])
	case "input", "inputs":
		return lookupSegments(ec.Input, segments[1:])
	case "node", "nodes", "results":
		return r.nodeValue(ec, segments)
	case "var", "variables":
		return lookupSegments(ec.Variables, segments[1:])
	case "env":
		if len(segments) != 2 {
			return nil, false
		}

		return envValue(ec, segments[1])
	case "time", "datetime":
		if len(segments) != 2 {
			return nil, false
		}

		return timeValue(segments[1])
	case "meta", "metadata":
		return lookupSegments(ec.Metadata, segments[1:])
	}

	if candidates, ok := triggerShorthands[path]; ok {
		for _, candidate := range candidates {
			if value, found := Lookup(ec.Input, candidate); found {
				return value, true
			}
		}

		return nil, false
	}

	// Default fallback: variables first, then input, on the full path.
	if value, ok := lookupSegments(ec.Variables, segments); ok {
		return value, true
	}

	return lookupSegments(ec.Input, segments)
}

// nodeValue resolves node/nodes/results paths: the second segment selects a
// node id, the remaining segments traverse that node's output.
func (r *Resolver) nodeValue(ec *models.ExecutionContext, segments []string) (any, bool) {
	if len(segments) == 1 {
		if len(ec.NodeOutputs) == 0 {
			return nil, false
		}

		return ec.NodeOutputs, true
	}

	output, ok := ec.NodeOutput(segments[1])
	if !ok {
		return nil, false
	}

	return lookupSegments(output, segments[2:])
}

// previousOutput auto-extracts the most recent node output's response field
// when present, matching what node authors usually mean by it.
func previousOutput(ec *models.ExecutionContext) any {
	output := ec.PreviousOutput()

	if m, ok := output.(map[string]any); ok {
		if response, exists := m["response"]; exists {
			return response
		}
	}

	return output
}

// envValue gates environment access through the allow-list, then reads from
// the context snapshot when one was provided, else from the process.
func envValue(ec *models.ExecutionContext, name string) (any, bool) {
	if _, allowed := allowedEnv[name]; !allowed {
		return nil, false
	}

	if ec.Env != nil {
		value, ok := ec.Env[name]

		return value, ok
	}

	if value := os.Getenv(name); value != "" {
		return value, true
	}

	return nil, false
}

func formatValue(value any) string {
	switch v := value.(type) {
	case string:
		return v
	case bool:
		return strconv.FormatBool(v)
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		encoded, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprintf("%v", v)
		}

		return string(encoded)
	}
}
