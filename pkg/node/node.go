// Package node defines the execution contract every pluggable node type
// implements, plus the base behavior shared by concrete executors.
package node

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/trigion/trigion/pkg/models"
	"github.com/trigion/trigion/pkg/resolver"
)

// ErrorCodeConfiguration marks failures caused by a bad node configuration.
const ErrorCodeConfiguration = "configuration_error"

// ErrorCodeExecution marks failures raised while a node was running.
const ErrorCodeExecution = "execution_error"

// Executor is one pluggable unit of flow logic. The runner calls Execute once
// per node visit, passing the growing execution context.
type Executor interface {
	Type() string
	Execute(ctx context.Context, node *models.FlowNode, ec *models.ExecutionContext) *models.ExecutionResult
}

// Validator is optionally implemented by executors that can lint their
// configuration. The runner calls it before the first execution of a node.
type Validator interface {
	Validate(node *models.FlowNode) []string
}

// Base supplies the result constructors and config accessors shared by
// concrete executors. Embed it and implement Type and Execute.
type Base struct{}

// Success builds the success envelope. Success always continues execution;
// nextNodes optionally selects explicit branch targets.
func (Base) Success(output map[string]any, nextNodes ...string) *models.ExecutionResult {
	return &models.ExecutionResult{
		Success:           true,
		Output:            output,
		NextNodes:         nextNodes,
		ContinueExecution: true,
	}
}

// Failure builds the failure envelope with an execution error code. Failures
// never continue execution.
func (b Base) Failure(message string) *models.ExecutionResult {
	return b.FailureWith(ErrorCodeExecution, message, false)
}

// Failuref is Failure with a format string.
func (b Base) Failuref(format string, args ...any) *models.ExecutionResult {
	return b.Failure(fmt.Sprintf(format, args...))
}

// FailureWith builds the failure envelope with an explicit code and
// recoverability hint.
func (Base) FailureWith(code, message string, recoverable bool) *models.ExecutionResult {
	return &models.ExecutionResult{
		Success: false,
		Error: &models.ExecutionError{
			Code:        code,
			Message:     message,
			Recoverable: recoverable,
		},
		ContinueExecution: false,
	}
}

// Skip builds the skip envelope: a success variant whose output carries
// skipped=true and the reason.
func (Base) Skip(reason string) *models.ExecutionResult {
	return &models.ExecutionResult{
		Success: true,
		Output: map[string]any{
			"skipped": true,
			"reason":  reason,
		},
		ContinueExecution: true,
	}
}

// Required returns the value of a mandatory configuration key. A missing or
// nil value is a configuration error.
func (Base) Required(config map[string]any, key string) (any, error) {
	value, ok := config[key]
	if !ok || value == nil {
		return nil, fmt.Errorf("missing required config key %q", key)
	}

	return value, nil
}

// RequiredString is Required narrowed to non-empty strings.
func (b Base) RequiredString(config map[string]any, key string) (string, error) {
	value, err := b.Required(config, key)
	if err != nil {
		return "", err
	}

	str, ok := value.(string)
	if !ok || str == "" {
		return "", fmt.Errorf("config key %q must be a non-empty string", key)
	}

	return str, nil
}

// Optional returns the value of a configuration key, or def when the key is
// absent or nil. It never fails.
func (Base) Optional(config map[string]any, key string, def any) any {
	value, ok := config[key]
	if !ok || value == nil {
		return def
	}

	return value
}

// OptionalString is Optional narrowed to strings.
func (b Base) OptionalString(config map[string]any, key, def string) string {
	if str, ok := b.Optional(config, key, def).(string); ok {
		return str
	}

	return def
}

// Lookup traverses obj along a dotted path with the same semantics the
// template resolver uses: it stops at non-objects and missing keys.
func (Base) Lookup(obj any, path string) (any, bool) {
	return resolver.Lookup(obj, path)
}

// ResolveTemplate expands {{path}} references in s against the execution
// context, so node authors get the resolver's dispatch without depending on
// it directly.
func (Base) ResolveTemplate(s string, ec *models.ExecutionContext) string {
	return baseResolver.Resolve(s, ec)
}

// ResolveConfig expands every string leaf of a node configuration value.
func (Base) ResolveConfig(value any, ec *models.ExecutionContext) any {
	return baseResolver.ResolveObject(value, ec)
}

var baseResolver = resolver.NewResolver(slog.Default())
