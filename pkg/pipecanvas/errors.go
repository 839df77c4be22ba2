package pipecanvas

import (
	"errors"
	"fmt"
)

// Sentinel errors for graph mutations and connection validation.
var (
	// ErrUnknownNode indicates an operation referenced a node id that is
	// not present in the graph.
	ErrUnknownNode = errors.New("unknown node")

	// ErrDuplicateID indicates a caller-supplied node id collides with an
	// existing node.
	ErrDuplicateID = errors.New("duplicate node id")

	// ErrImmutableNode indicates an attempt to delete or structurally
	// mutate the reserved default start node.
	ErrImmutableNode = errors.New("immutable node")

	// ErrNotFound indicates the referenced edge does not exist.
	ErrNotFound = errors.New("edge not found")

	// ErrInvalidNodeData indicates a node payload violates its own
	// invariants (duplicate field names, bad connection mode, ...).
	ErrInvalidNodeData = errors.New("invalid node data")

	// ErrUnknownNodeKind indicates an unregistered node kind or sub-type.
	ErrUnknownNodeKind = errors.New("unknown node kind")
)

// Sentinel rejection reasons for connection validation.
var (
	// ErrNoOutputAvailable indicates the source node is an end node and
	// exposes no output side.
	ErrNoOutputAvailable = errors.New("no output available on source")

	// ErrNoInputAvailable indicates the target node is a start node and
	// exposes no input side.
	ErrNoInputAvailable = errors.New("no input available on target")

	// ErrInvalidHandle indicates a handle that does not name an existing
	// field on a field-level signature node (or a fixed if/else branch).
	ErrInvalidHandle = errors.New("invalid handle")

	// ErrAmbiguousConnection indicates a whole-node connection to a
	// field-level node exposing more than one field.
	ErrAmbiguousConnection = errors.New("ambiguous whole-node connection")

	// ErrSelfLoop indicates source and target are the same node.
	ErrSelfLoop = errors.New("self loop")

	// ErrDuplicateEdge indicates an identical edge already exists.
	ErrDuplicateEdge = errors.New("duplicate edge")
)

// Sentinel errors for compilation.
var (
	// ErrNoEndNode indicates the graph has no end node to produce output.
	ErrNoEndNode = errors.New("graph has no end node")

	// ErrNoStartNode indicates the graph has no default start node. Graphs
	// built through New always have one; this surfaces only for hand-built
	// or deserialized inputs.
	ErrNoStartNode = errors.New("graph has no start node")

	// ErrUnreachableEndNode indicates an end node with no path from the
	// start node.
	ErrUnreachableEndNode = errors.New("end node unreachable from start")

	// ErrDanglingHandle indicates an edge whose handle no longer names an
	// existing field (the field was edited away after connecting).
	ErrDanglingHandle = errors.New("dangling handle")

	// ErrBadCondition indicates an if/else node whose condition does not
	// parse.
	ErrBadCondition = errors.New("malformed condition")

	// ErrIncompleteNode indicates a node missing configuration that is
	// mandatory for execution (e.g. a retriever without an index name).
	ErrIncompleteNode = errors.New("incomplete node configuration")
)

// ConnectionError reports why a candidate edge was rejected.
// Reason is always one of the sentinel rejection reasons above, so callers
// can dispatch with errors.Is.
type ConnectionError struct {
	// Source and Target are the candidate endpoint node ids.
	Source string
	Target string
	// SourceHandle and TargetHandle are the candidate handles, if any.
	SourceHandle string
	TargetHandle string
	// Reason is the sentinel rejection reason.
	Reason error
	// Detail is a human-readable elaboration.
	Detail string
}

// Error implements the error interface.
func (e *ConnectionError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("connection %s -> %s rejected: %v: %s", e.Source, e.Target, e.Reason, e.Detail)
	}
	return fmt.Sprintf("connection %s -> %s rejected: %v", e.Source, e.Target, e.Reason)
}

// Unwrap returns the sentinel reason for errors.Is/As support.
func (e *ConnectionError) Unwrap() error {
	return e.Reason
}

// UnreachableEndNodeError identifies an end node that cannot be reached
// from the start node.
type UnreachableEndNodeError struct {
	// NodeID is the unreachable end node.
	NodeID string
}

// Error implements the error interface.
func (e *UnreachableEndNodeError) Error() string {
	return fmt.Sprintf("end node %s unreachable from start", e.NodeID)
}

// Unwrap returns ErrUnreachableEndNode for errors.Is support.
func (e *UnreachableEndNodeError) Unwrap() error {
	return ErrUnreachableEndNode
}

// DanglingHandleError identifies an edge whose handle no longer resolves to
// a field on its endpoint node.
type DanglingHandleError struct {
	// EdgeID is the offending edge.
	EdgeID string
	// Handle is the handle name that failed to resolve.
	Handle string
	// NodeID is the endpoint node the handle was resolved against.
	NodeID string
}

// Error implements the error interface.
func (e *DanglingHandleError) Error() string {
	return fmt.Sprintf("edge %s: handle %q does not resolve on node %s", e.EdgeID, e.Handle, e.NodeID)
}

// Unwrap returns ErrDanglingHandle for errors.Is support.
func (e *DanglingHandleError) Unwrap() error {
	return ErrDanglingHandle
}

// ConditionError identifies an if/else node whose condition failed to parse.
type ConditionError struct {
	// NodeID is the logic node carrying the condition.
	NodeID string
	// Condition is the raw condition text.
	Condition string
	// Err is the parse error.
	Err error
}

// Error implements the error interface.
func (e *ConditionError) Error() string {
	return fmt.Sprintf("node %s: %v: %v", e.NodeID, ErrBadCondition, e.Err)
}

// Unwrap returns ErrBadCondition for errors.Is support.
func (e *ConditionError) Unwrap() error {
	return ErrBadCondition
}

// IncompleteNodeError identifies a node missing execution-mandatory
// configuration.
type IncompleteNodeError struct {
	// NodeID is the misconfigured node.
	NodeID string
	// Missing names the absent setting.
	Missing string
}

// Error implements the error interface.
func (e *IncompleteNodeError) Error() string {
	return fmt.Sprintf("node %s: missing %s", e.NodeID, e.Missing)
}

// Unwrap returns ErrIncompleteNode for errors.Is support.
func (e *IncompleteNodeError) Unwrap() error {
	return ErrIncompleteNode
}
