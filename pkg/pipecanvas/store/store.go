// Package store persists saved workflows: the compiled nodes/edges wire
// shape plus workflow-level metadata. Two implementations are provided,
// an in-memory store for tests and a SQLite store for durable use.
package store

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/pipecanvas/pipecanvas/pkg/pipecanvas"
)

// Workflow is one saved workflow record. Nodes and Edges hold the IR wire
// shape verbatim.
type Workflow struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Nodes       json.RawMessage `json:"nodes"`
	Edges       json.RawMessage `json:"edges"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// FromIR builds an unsaved workflow record from a compiled IR.
func FromIR(name, description string, ir *pipecanvas.IR) (Workflow, error) {
	nodes, err := json.Marshal(ir.Nodes)
	if err != nil {
		return Workflow{}, err
	}
	edges, err := json.Marshal(ir.Edges)
	if err != nil {
		return Workflow{}, err
	}
	return Workflow{Name: name, Description: description, Nodes: nodes, Edges: edges}, nil
}

// IR reconstructs the stored intermediate representation.
func (w Workflow) IR() (*pipecanvas.IR, error) {
	var ir pipecanvas.IR
	if err := json.Unmarshal(w.Nodes, &ir.Nodes); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(w.Edges, &ir.Edges); err != nil {
		return nil, err
	}
	return &ir, nil
}

// Store persists workflows.
// Implementations must be safe for concurrent use.
type Store interface {
	// Create saves a new workflow, assigning its id and timestamps.
	Create(w Workflow) (Workflow, error)

	// Get retrieves a workflow by id.
	// Returns ErrNotFound if it doesn't exist.
	Get(id string) (Workflow, error)

	// List returns all workflows ordered by creation time.
	List() ([]Workflow, error)

	// Update replaces a workflow's name, description, nodes, and edges,
	// refreshing its updated_at timestamp.
	// Returns ErrNotFound if it doesn't exist.
	Update(w Workflow) (Workflow, error)

	// Delete removes a workflow.
	// Returns ErrNotFound if it doesn't exist.
	Delete(id string) error

	// Duplicate copies a workflow under a new name and id.
	// Returns ErrNotFound if the source doesn't exist.
	Duplicate(id, newName string) (Workflow, error)

	// Close releases any resources (connections, files).
	Close() error
}

// Sentinel errors for store operations.
var (
	// ErrNotFound indicates the workflow doesn't exist.
	ErrNotFound = errors.New("workflow not found")

	// ErrStoreClosed indicates the store has been closed.
	ErrStoreClosed = errors.New("workflow store closed")
)
