// Package log provides the logging node executor.
package log

import (
	"context"
	"log/slog"

	"github.com/trigion/trigion/pkg/models"
	"github.com/trigion/trigion/pkg/node"
)

type Node struct {
	node.Base

	logger *slog.Logger
}

func NewNode(logger *slog.Logger) *Node {
	return &Node{logger: logger.With("module", "node:log")}
}

func (n *Node) Type() string {
	return "log"
}

// Execute resolves the configured message against the execution context and
// writes it at the configured level.
func (n *Node) Execute(_ context.Context, flowNode *models.FlowNode, ec *models.ExecutionContext) *models.ExecutionResult {
	message, err := n.RequiredString(flowNode.Config, "message")
	if err != nil {
		return n.FailureWith(node.ErrorCodeConfiguration, err.Error(), false)
	}

	level := n.OptionalString(flowNode.Config, "level", "info")
	resolved := n.ResolveTemplate(message, ec)

	logger := n.logger.With("node_id", flowNode.ID, "execution_id", ec.ID)

	switch level {
	case "debug":
		logger.Debug(resolved)
	case "warn":
		logger.Warn(resolved)
	case "error":
		logger.Error(resolved)
	default:
		logger.Info(resolved)
	}

	return n.Success(map[string]any{
		"logged":  true,
		"message": resolved,
		"level":   level,
	})
}

// Validate lints the node configuration before the first execution.
func (n *Node) Validate(flowNode *models.FlowNode) []string {
	var errs []string

	if _, err := n.RequiredString(flowNode.Config, "message"); err != nil {
		errs = append(errs, err.Error())
	}

	switch level := n.OptionalString(flowNode.Config, "level", "info"); level {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, "level must be one of debug, info, warn, error")
	}

	return errs
}
