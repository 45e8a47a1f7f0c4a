// Package delay provides the pause node executor.
package delay

import (
	"context"
	"log/slog"
	"strconv"
	"time"

	"github.com/trigion/trigion/pkg/models"
	"github.com/trigion/trigion/pkg/node"
	"github.com/trigion/trigion/pkg/resolver"
)

const maxDelaySeconds = 300

type Node struct {
	node.Base

	logger *slog.Logger
}

func NewNode(logger *slog.Logger) *Node {
	return &Node{logger: logger.With("module", "node:delay")}
}

func (n *Node) Type() string {
	return "delay"
}

// Execute pauses the run for the configured number of seconds. Cancelling the
// context cuts the pause short and fails the node.
func (n *Node) Execute(ctx context.Context, flowNode *models.FlowNode, ec *models.ExecutionContext) *models.ExecutionResult {
	seconds, err := n.configuredSeconds(flowNode.Config, ec)
	if err != nil {
		return n.FailureWith(node.ErrorCodeConfiguration, err.Error(), false)
	}

	if seconds == 0 {
		return n.Skip("delay of zero seconds")
	}

	n.logger.Debug("Delaying execution", "node_id", flowNode.ID, "seconds", seconds)

	timer := time.NewTimer(time.Duration(seconds) * time.Second)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return n.Failure("delay cancelled: " + ctx.Err().Error())
	case <-timer.C:
	}

	return n.Success(map[string]any{"delayed_seconds": seconds})
}

// Validate lints the node configuration before the first execution.
func (n *Node) Validate(flowNode *models.FlowNode) []string {
	if raw, ok := flowNode.Config["seconds"].(string); ok && resolver.HasTemplates(raw) {
		// Resolved at run time, nothing to check statically.
		return nil
	}

	if _, err := n.configuredSeconds(flowNode.Config, nil); err != nil {
		return []string{err.Error()}
	}

	return nil
}

// configuredSeconds accepts both numeric and (possibly templated) string
// forms of the seconds parameter.
func (n *Node) configuredSeconds(config map[string]any, ec *models.ExecutionContext) (int, error) {
	var seconds int

	switch raw := n.Optional(config, "seconds", 0).(type) {
	case int:
		seconds = raw
	case float64:
		seconds = int(raw)
	case string:
		parsed, err := strconv.Atoi(n.ResolveTemplate(raw, ec))
		if err != nil {
			return 0, &invalidDelayError{raw: raw}
		}

		seconds = parsed
	default:
		return 0, &invalidDelayError{raw: "seconds"}
	}

	if seconds < 0 || seconds > maxDelaySeconds {
		return 0, &invalidDelayError{raw: strconv.Itoa(seconds)}
	}

	return seconds, nil
}

type invalidDelayError struct {
	raw string
}

func (e *invalidDelayError) Error() string {
	return "seconds must be an integer between 0 and " + strconv.Itoa(maxDelaySeconds) + ", got " + strconv.Quote(e.raw)
}
