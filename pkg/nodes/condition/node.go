// Package condition provides the branching node executor. A condition node
// compares a resolved value against an expected one and steers the runner to
// the true or false branch through NextNodes.
package condition

import (
	"context"
	"log/slog"
	"strconv"
	"strings"

	"github.com/trigion/trigion/pkg/models"
	"github.com/trigion/trigion/pkg/node"
)

type Node struct {
	node.Base

	logger *slog.Logger
}

func NewNode(logger *slog.Logger) *Node {
	return &Node{logger: logger.With("module", "node:condition")}
}

func (n *Node) Type() string {
	return "condition"
}

// Execute evaluates the condition and returns a success result whose
// NextNodes carry the chosen branch.
func (n *Node) Execute(_ context.Context, flowNode *models.FlowNode, ec *models.ExecutionContext) *models.ExecutionResult {
	value, err := n.RequiredString(flowNode.Config, "value")
	if err != nil {
		return n.FailureWith(node.ErrorCodeConfiguration, err.Error(), false)
	}

	operator := n.OptionalString(flowNode.Config, "operator", "equals")
	compare := n.OptionalString(flowNode.Config, "compare", "")

	left := n.ResolveTemplate(value, ec)
	right := n.ResolveTemplate(compare, ec)

	matched, err := evaluate(left, operator, right)
	if err != nil {
		return n.FailureWith(node.ErrorCodeConfiguration, err.Error(), false)
	}

	branch := branchTargets(flowNode.Config, matched)

	n.logger.Debug("Condition evaluated",
		"node_id", flowNode.ID,
		"operator", operator,
		"result", matched)

	return n.Success(map[string]any{
		"result":   matched,
		"value":    left,
		"operator": operator,
		"compare":  right,
	}, branch...)
}

// Validate lints the node configuration before the first execution.
func (n *Node) Validate(flowNode *models.FlowNode) []string {
	var errs []string

	if _, err := n.RequiredString(flowNode.Config, "value"); err != nil {
		errs = append(errs, err.Error())
	}

	operator := n.OptionalString(flowNode.Config, "operator", "equals")
	if _, err := evaluate("", operator, ""); err != nil {
		errs = append(errs, err.Error())
	}

	return errs
}

func evaluate(left, operator, right string) (bool, error) {
	switch operator {
	case "equals":
		return left == right, nil
	case "notEquals":
		return left != right, nil
	case "contains":
		return strings.Contains(left, right), nil
	case "startsWith":
		return strings.HasPrefix(left, right), nil
	case "endsWith":
		return strings.HasSuffix(left, right), nil
	case "isEmpty":
		return strings.TrimSpace(left) == "", nil
	case "isNotEmpty":
		return strings.TrimSpace(left) != "", nil
	case "greaterThan", "lessThan":
		return compareNumeric(left, operator, right)
	default:
		return false, &unknownOperatorError{operator: operator}
	}
}

func compareNumeric(left, operator, right string) (bool, error) {
	leftNum, errLeft := strconv.ParseFloat(strings.TrimSpace(left), 64)
	rightNum, errRight := strconv.ParseFloat(strings.TrimSpace(right), 64)

	if errLeft != nil || errRight != nil {
		return false, nil
	}

	if operator == "greaterThan" {
		return leftNum > rightNum, nil
	}

	return leftNum < rightNum, nil
}

// branchTargets selects the explicit next nodes for the evaluated branch.
// Absent branch lists mean the runner follows the graph edges as usual.
func branchTargets(config map[string]any, matched bool) []string {
	key := "falseNodes"
	if matched {
		key = "trueNodes"
	}

	raw, ok := config[key].([]any)
	if !ok {
		return nil
	}

	targets := make([]string, 0, len(raw))

	for _, item := range raw {
		if id, ok := item.(string); ok {
			targets = append(targets, id)
		}
	}

	return targets
}

type unknownOperatorError struct {
	operator string
}

func (e *unknownOperatorError) Error() string {
	return "unknown condition operator " + strconv.Quote(e.operator)
}
