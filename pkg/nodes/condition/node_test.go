package condition

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trigion/trigion/pkg/models"
)

func execute(t *testing.T, config map[string]any, ec *models.ExecutionContext) *models.ExecutionResult {
	t.Helper()

	n := NewNode(slog.Default())

	return n.Execute(context.Background(), &models.FlowNode{ID: "cond-1", Type: "condition", Config: config}, ec)
}

func TestNode_Execute_TrueBranch(t *testing.T) {
	ec := models.NewExecutionContext("exec-1", "flow-1", map[string]any{"status": "paid"})

	result := execute(t, map[string]any{
		"value":      "{{input.status}}",
		"operator":   "equals",
		"compare":    "paid",
		"trueNodes":  []any{"send-receipt"},
		"falseNodes": []any{"send-reminder"},
	}, ec)

	require.True(t, result.Success)
	assert.Equal(t, true, result.Output["result"])
	assert.Equal(t, []string{"send-receipt"}, result.NextNodes)
}

func TestNode_Execute_FalseBranch(t *testing.T) {
	ec := models.NewExecutionContext("exec-1", "flow-1", map[string]any{"status": "pending"})

	result := execute(t, map[string]any{
		"value":      "{{input.status}}",
		"operator":   "equals",
		"compare":    "paid",
		"trueNodes":  []any{"send-receipt"},
		"falseNodes": []any{"send-reminder"},
	}, ec)

	require.True(t, result.Success)
	assert.Equal(t, false, result.Output["result"])
	assert.Equal(t, []string{"send-reminder"}, result.NextNodes)
}

func TestNode_Execute_NumericComparison(t *testing.T) {
	ec := models.NewExecutionContext("exec-1", "flow-1", map[string]any{"total": 120})

	result := execute(t, map[string]any{
		"value":    "{{input.total}}",
		"operator": "greaterThan",
		"compare":  "100",
	}, ec)

	require.True(t, result.Success)
	assert.Equal(t, true, result.Output["result"])
	assert.Empty(t, result.NextNodes)
}

func TestNode_Execute_Operators(t *testing.T) {
	tests := []struct {
		name     string
		value    string
		operator string
		compare  string
		want     bool
	}{
		{"contains", "hello world", "contains", "world", true},
		{"startsWith", "hello world", "startsWith", "hello", true},
		{"endsWith", "hello world", "endsWith", "planet", false},
		{"notEquals", "a", "notEquals", "b", true},
		{"isEmpty", "  ", "isEmpty", "", true},
		{"isNotEmpty", "x", "isNotEmpty", "", true},
		{"lessThan", "3", "lessThan", "10", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := execute(t, map[string]any{
				"value":    tt.value,
				"operator": tt.operator,
				"compare":  tt.compare,
			}, models.NewExecutionContext("exec-1", "flow-1", nil))

			require.True(t, result.Success)
			assert.Equal(t, tt.want, result.Output["result"])
		})
	}
}

func TestNode_Execute_UnknownOperator(t *testing.T) {
	result := execute(t, map[string]any{
		"value":    "x",
		"operator": "resembles",
	}, models.NewExecutionContext("exec-1", "flow-1", nil))

	require.False(t, result.Success)
	assert.Contains(t, result.Error.Message, "resembles")
}

func TestNode_Validate(t *testing.T) {
	n := NewNode(slog.Default())

	assert.Empty(t, n.Validate(&models.FlowNode{Config: map[string]any{"value": "{{input.x}}"}}))

	errs := n.Validate(&models.FlowNode{Config: map[string]any{"operator": "equals"}})
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0], "value")
}
