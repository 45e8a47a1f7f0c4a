// Package models defines the core domain models for flow trigger dispatch and
// node execution.
package models

import (
	"strings"
	"time"
)

// FlowStatus represents the lifecycle state of a flow.
type FlowStatus string

const (
	FlowStatusDraft    FlowStatus = "draft"    // Editable, never dispatched
	FlowStatusActive   FlowStatus = "active"   // Executable, subscriptions live
	FlowStatusInactive FlowStatus = "inactive" // Kept, not executable
)

// NodeCategory distinguishes trigger nodes from action nodes.
type NodeCategory string

const (
	NodeCategoryAction  NodeCategory = "action"
	NodeCategoryTrigger NodeCategory = "trigger"
)

// Trigger node type names carry their trigger family as a suffix.
const triggerNodeTypePrefix = "trigger:"

const (
	NodeTypeTriggerMessage  = triggerNodeTypePrefix + "message"
	NodeTypeTriggerWebhook  = triggerNodeTypePrefix + "webhook"
	NodeTypeTriggerSchedule = triggerNodeTypePrefix + "schedule"
	NodeTypeTriggerEvent    = triggerNodeTypePrefix + "event"
	NodeTypeTriggerManual   = triggerNodeTypePrefix + "manual"
)

// Flow is the persisted definition of a user-authored automation graph.
type Flow struct {
	ID          string         `json:"id"           validate:"required"`
	Name        string         `json:"name,omitempty"`
	Status      FlowStatus     `json:"status"       validate:"required"`
	UserID      string         `json:"user_id"`
	TriggerType TriggerType    `json:"trigger_type,omitempty"`
	Nodes       []*FlowNode    `json:"nodes"`
	Edges       []*FlowEdge    `json:"edges"`
	Variables   map[string]any `json:"variables,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

// IsActive reports whether the flow may be dispatched.
func (f *Flow) IsActive() bool {
	return f.Status == FlowStatusActive
}

// NodeByID returns the node with the given id, or nil.
func (f *Flow) NodeByID(id string) *FlowNode {
	for _, node := range f.Nodes {
		if node.ID == id {
			return node
		}
	}

	return nil
}

// TriggerNodes returns every enabled trigger node of the flow.
func (f *Flow) TriggerNodes() []*FlowNode {
	nodes := make([]*FlowNode, 0)

	for _, node := range f.Nodes {
		if node.IsTriggerNode() && node.Enabled {
			nodes = append(nodes, node)
		}
	}

	return nodes
}

// FlowNode is a node instance inside a flow graph.
type FlowNode struct {
	ID       string         `json:"id"   validate:"required"`
	Type     string         `json:"type" validate:"required"`
	Category NodeCategory   `json:"category,omitempty"`
	Name     string         `json:"name,omitempty"`
	Config   map[string]any `json:"config,omitempty"`
	Enabled  bool           `json:"enabled"`
}

func (n *FlowNode) IsTriggerNode() bool {
	return n.Category == NodeCategoryTrigger || strings.HasPrefix(n.Type, triggerNodeTypePrefix)
}

func (n *FlowNode) IsActionNode() bool {
	return !n.IsTriggerNode()
}

// TriggerTypeOf derives the trigger family from a trigger node's type name.
func (n *FlowNode) TriggerTypeOf() (TriggerType, error) {
	return ParseTriggerType(strings.TrimPrefix(n.Type, triggerNodeTypePrefix))
}

// FlowEdge connects two nodes of the graph.
type FlowEdge struct {
	ID     string `json:"id,omitempty"`
	Source string `json:"source" validate:"required"`
	Target string `json:"target" validate:"required"`
}
