// Package protocol defines the contracts between the trigger registry and its
// injected collaborators.
package protocol

import (
	"context"

	"github.com/trigion/trigion/pkg/models"
)

// RunInput is the payload handed to the flow runner when a trigger fires.
type RunInput struct {
	Input       map[string]any `json:"input"`
	Trigger     map[string]any `json:"trigger"`
	UserID      string         `json:"user_id"`
	StartNodeID string         `json:"start_node_id"`
}

// Runner walks a flow graph node by node. The registry only starts runs; how
// the graph is traversed is the runner's concern.
type Runner interface {
	// Execute starts a run of the flow from the given start node and returns
	// the execution id.
	Execute(ctx context.Context, flow *models.Flow, input RunInput) (string, error)
}
