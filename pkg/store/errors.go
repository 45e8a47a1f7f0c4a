package store

import (
	"errors"
	"fmt"
)

// ErrFlowNotFound indicates no flow exists for the given identifier.
var ErrFlowNotFound = errors.New("flow not found")

// ErrInvalidFlow indicates a flow record failed validation on save.
var ErrInvalidFlow = errors.New("invalid flow")

// FlowError wraps flow-related storage errors with operation context.
type FlowError struct {
	Op     string
	FlowID string
	Err    error
}

func (e *FlowError) Error() string {
	return fmt.Sprintf("%s operation failed for flow %s: %v", e.Op, e.FlowID, e.Err)
}

func (e *FlowError) Unwrap() error {
	return e.Err
}

func (e *FlowError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// NewFlowError creates a flow error with operation context.
func NewFlowError(op, flowID string, err error) *FlowError {
	return &FlowError{Op: op, FlowID: flowID, Err: err}
}

// IsFlowNotFound checks whether an error means the flow does not exist.
func IsFlowNotFound(err error) bool {
	return errors.Is(err, ErrFlowNotFound)
}
