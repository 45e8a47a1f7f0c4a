// Package setvariable provides the node executor that writes flow-scoped
// variables into the execution context.
package setvariable

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
	return &Node{logger: logger.With("module", "node:setvariable")}
}

func (n *Node) Type() string {
	return "setvariable"
}

// Execute resolves the configured value and stores it under the configured
// name, overwriting any previous value of that name.
func (n *Node) Execute(_ context.Context, flowNode *models.FlowNode, ec *models.ExecutionContext) *models.ExecutionResult {
	name, err := n.RequiredString(flowNode.Config, "name")
	if err != nil {
		return n.FailureWith(node.ErrorCodeConfiguration, err.Error(), false)
	}

	value, err := n.Required(flowNode.Config, "value")
	if err != nil {
		return n.FailureWith(node.ErrorCodeConfiguration, err.Error(), false)
	}

	resolved := n.ResolveConfig(value, ec)
	ec.SetVariable(name, resolved)

	n.logger.Debug("Variable set", "node_id", flowNode.ID, "name", name)

	return n.Success(map[string]any{
		"name":  name,
		"value": resolved,
	})
}

// Validate lints the node configuration before the first execution.
func (n *Node) Validate(flowNode *models.FlowNode) []string {
	var errs []string

	if _, err := n.RequiredString(flowNode.Config, "name"); err != nil {
		errs = append(errs, err.Error())
	}

	if _, err := n.Required(flowNode.Config, "value"); err != nil {
		errs = append(errs, err.Error())
	}

	return errs
}
