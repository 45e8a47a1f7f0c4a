package node

import (
	"fmt"
	"log/slog"
)

// Registry maps node type names to their executors. The runner resolves each
// visited node's executor here.
type Registry struct {
	logger    *slog.Logger
	executors map[string]Executor
}

func NewRegistry(logger *slog.Logger) *Registry {
	return &Registry{
		logger:    logger.With("module", "node_registry"),
		executors: make(map[string]Executor),
	}
}

// Register adds an executor, replacing any previous executor of the same type.
func (r *Registry) Register(executor Executor) {
	r.executors[executor.Type()] = executor
	r.logger.Debug("Registered node executor", "type", executor.Type())
}

// Executor returns the executor for a node type.
func (r *Registry) Executor(nodeType string) (Executor, error) {
	executor, ok := r.executors[nodeType]
	if !ok {
		return nil, fmt.Errorf("node type %q not registered", nodeType)
	}

	return executor, nil
}

// Types lists every registered node type.
func (r *Registry) Types() []string {
	types := make([]string, 0, len(r.executors))
	for t := range r.executors {
		types = append(types, t)
	}

	return types
}
