package setvariable

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trigion/trigion/pkg/models"
)

func TestNode_Execute_SetsVariable(t *testing.T) {
	n := NewNode(slog.Default())

	ec := models.NewExecutionContext("exec-1", "flow-1", map[string]any{"customer": "acme"})

	result := n.Execute(context.Background(), &models.FlowNode{
		ID:   "set-1",
		Type: "setvariable",
		Config: map[string]any{
			"name":  "greeting",
			"value": "hello {{input.customer}}",
		},
	}, ec)

	require.True(t, result.Success)
	assert.Equal(t, "hello acme", ec.Variables["greeting"])
	assert.Equal(t, "hello acme", result.Output["value"])
}

func TestNode_Execute_OverwritesByName(t *testing.T) {
	n := NewNode(slog.Default())

	ec := models.NewExecutionContext("exec-1", "flow-1", nil)
	ec.SetVariable("counter", "old")

	result := n.Execute(context.Background(), &models.FlowNode{
		ID:   "set-1",
		Type: "setvariable",
		Config: map[string]any{
			"name":  "counter",
			"value": "new",
		},
	}, ec)

	require.True(t, result.Success)
	assert.Equal(t, "new", ec.Variables["counter"])
}

func TestNode_Execute_StructuredValue(t *testing.T) {
	n := NewNode(slog.Default())

	ec := models.NewExecutionContext("exec-1", "flow-1", map[string]any{"id": "42"})

	result := n.Execute(context.Background(), &models.FlowNode{
		ID:   "set-1",
		Type: "setvariable",
		Config: map[string]any{
			"name": "order",
			"value": map[string]any{
				"id":     "{{input.id}}",
				"amount": 10,
			},
		},
	}, ec)

	require.True(t, result.Success)

	stored, ok := ec.Variables["order"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "42", stored["id"])
	assert.Equal(t, 10, stored["amount"])
}

func TestNode_Execute_MissingName(t *testing.T) {
	n := NewNode(slog.Default())

	result := n.Execute(context.Background(), &models.FlowNode{
		ID:     "set-1",
		Type:   "setvariable",
		Config: map[string]any{"value": "x"},
	}, models.NewExecutionContext("exec-1", "flow-1", nil))

	require.False(t, result.Success)
	assert.Contains(t, result.Error.Message, "name")
}
