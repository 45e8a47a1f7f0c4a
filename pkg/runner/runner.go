// Package runner provides the event-bus backed flow runner adapter. The
// actual graph walker lives in a separate worker; this adapter publishes a
// run request and hands back the execution id it minted.
package runner

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/trigion/trigion/pkg/eventbus"
	"github.com/trigion/trigion/pkg/events"
	"github.com/trigion/trigion/pkg/models"
	"github.com/trigion/trigion/pkg/protocol"
)

type BusRunner struct {
	bus    eventbus.EventBus
	logger *slog.Logger
}

func NewBusRunner(bus eventbus.EventBus, logger *slog.Logger) *BusRunner {
	return &BusRunner{
		bus:    bus,
		logger: logger.With("module", "runner"),
	}
}

var _ protocol.Runner = (*BusRunner)(nil)

// Execute publishes a flow run request keyed by flow id, so runs of the same
// flow stay ordered on partitioned transports.
func (r *BusRunner) Execute(ctx context.Context, flow *models.Flow, input protocol.RunInput) (string, error) {
	executionID := r.bus.GenerateID()

	event := events.FlowRunRequested{
		BaseEvent:   events.NewBaseEvent(events.FlowRunRequestedEvent, flow.ID),
		ExecutionID: executionID,
		StartNodeID: input.StartNodeID,
		UserID:      input.UserID,
		Input:       input.Input,
		Trigger:     input.Trigger,
	}

	if err := r.bus.Publish(ctx, flow.ID, event); err != nil {
		return "", fmt.Errorf("failed to request flow run for %s: %w", flow.ID, err)
	}

	r.logger.Info("Requested flow run",
		"flow_id", flow.ID,
		"execution_id", executionID,
		"start_node_id", input.StartNodeID)

	return executionID, nil
}
