// Package event delivers graph mutation notifications to interested
// observers (typically the rendering layer), so observers can track the
// model without holding mutable aliases into it.
package event

import (
	"time"

	"github.com/google/uuid"
)

// Type classifies a mutation event.
type Type string

// Mutation event types.
const (
	NodeAdded   Type = "node.added"
	NodeUpdated Type = "node.updated"
	NodeRemoved Type = "node.removed"
	EdgeAdded   Type = "edge.added"
	EdgeRemoved Type = "edge.removed"
	GraphLoaded Type = "graph.loaded"
)

// Event describes one applied graph mutation. Events are emitted only
// after the mutation has been applied atomically; observers never see a
// graph mid-mutation.
type Event struct {
	// ID uniquely identifies the event.
	ID string
	// Type is the mutation type.
	Type Type
	// NodeID is set for node events and for edge events names the source.
	NodeID string
	// EdgeID is set for edge events.
	EdgeID string
	// Timestamp is when the mutation was applied.
	Timestamp time.Time
}

// New creates an event with a fresh id and the current time.
func New(t Type, nodeID, edgeID string) Event {
	return Event{
		ID:        uuid.NewString(),
		Type:      t,
		NodeID:    nodeID,
		EdgeID:    edgeID,
		Timestamp: time.Now(),
	}
}
