package cmd

import (
	"log/slog"

	"github.com/trigion/trigion/pkg/node"
	"github.com/trigion/trigion/pkg/nodes/condition"
	"github.com/trigion/trigion/pkg/nodes/delay"
	"github.com/trigion/trigion/pkg/nodes/httprequest"
	lognode "github.com/trigion/trigion/pkg/nodes/log"
	"github.com/trigion/trigion/pkg/nodes/setvariable"
)

// NewNodeRegistry creates the node registry with every native executor
// registered.
func NewNodeRegistry(logger *slog.Logger) *node.Registry {
	reg := node.NewRegistry(logger)

	reg.Register(lognode.NewNode(logger))
	reg.Register(httprequest.NewNode(logger))
	reg.Register(condition.NewNode(logger))
	reg.Register(delay.NewNode(logger))
	reg.Register(setvariable.NewNode(logger))

	return reg
}
