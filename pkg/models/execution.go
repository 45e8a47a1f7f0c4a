package models

// LoopState carries the current element and position while an external loop
// construct is iterating.
type LoopState struct {
	Item  any `json:"item"`
	Index int `json:"index"`
}

// ExecutionContext is the read surface available to template expansion during
// one flow run. It is owned by exactly one execution and never shared across
// concurrent runs.
type ExecutionContext struct {
	ID          string            `json:"id"`
	FlowID      string            `json:"flow_id"`
	UserID      string            `json:"user_id,omitempty"`
	Input       map[string]any    `json:"input,omitempty"`
	NodeOutputs map[string]any    `json:"node_outputs,omitempty"`
	NodeOrder   []string          `json:"node_order,omitempty"`
	Variables   map[string]any    `json:"variables,omitempty"`
	Env         map[string]string `json:"env,omitempty"`
	Metadata    map[string]any    `json:"metadata,omitempty"`
	Loop        *LoopState        `json:"loop,omitempty"`
}

// NewExecutionContext creates a context for one run, seeded from the trigger
// input.
func NewExecutionContext(id, flowID string, input map[string]any) *ExecutionContext {
	if input == nil {
		input = make(map[string]any)
	}

	return &ExecutionContext{
		ID:          id,
		FlowID:      flowID,
		Input:       input,
		NodeOutputs: make(map[string]any),
		NodeOrder:   make([]string, 0),
		Variables:   make(map[string]any),
		Metadata:    make(map[string]any),
	}
}

// SetNodeOutput records a node's output, preserving first-seen insertion
// order so PreviousOutput tracks execution order.
func (ec *ExecutionContext) SetNodeOutput(nodeID string, output any) {
	if ec.NodeOutputs == nil {
		ec.NodeOutputs = make(map[string]any)
	}

	if _, seen := ec.NodeOutputs[nodeID]; !seen {
		ec.NodeOrder = append(ec.NodeOrder, nodeID)
	}

	ec.NodeOutputs[nodeID] = output
}

// NodeOutput returns the recorded output of a node.
func (ec *ExecutionContext) NodeOutput(nodeID string) (any, bool) {
	output, ok := ec.NodeOutputs[nodeID]

	return output, ok
}

// PreviousOutput returns the most recently produced node output, or nil when
// no node has completed yet.
func (ec *ExecutionContext) PreviousOutput() any {
	if len(ec.NodeOrder) == 0 {
		return nil
	}

	return ec.NodeOutputs[ec.NodeOrder[len(ec.NodeOrder)-1]]
}

// SetVariable sets a flow-scoped variable, overwriting by name.
func (ec *ExecutionContext) SetVariable(name string, value any) {
	if ec.Variables == nil {
		ec.Variables = make(map[string]any)
	}

	ec.Variables[name] = value
}

// ExecutionError describes a node failure inside the result envelope.
type ExecutionError struct {
	Code        string `json:"code"`
	Message     string `json:"message"`
	Recoverable bool   `json:"recoverable"`
}

// ExecutionResult is the uniform envelope every node executor returns.
//
// Invariants: Success=true implies ContinueExecution=true, Success=false
// implies ContinueExecution=false, and a skip is a success whose
// Output["skipped"] is true.
type ExecutionResult struct {
	Success           bool            `json:"success"`
	Output            map[string]any  `json:"output,omitempty"`
	Error             *ExecutionError `json:"error,omitempty"`
	NextNodes         []string        `json:"next_nodes,omitempty"`
	ContinueExecution bool            `json:"continue_execution"`
}

// Skipped reports whether the result is the skip variant.
func (r *ExecutionResult) Skipped() bool {
	if r.Output == nil {
		return false
	}

	skipped, _ := r.Output["skipped"].(bool)

	return skipped
}
