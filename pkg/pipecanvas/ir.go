package pipecanvas

import (
	"encoding/json"
	"fmt"

	"github.com/pipecanvas/pipecanvas/pkg/pipecanvas/event"
	"github.com/pipecanvas/pipecanvas/pkg/pipecanvas/observability"
)

// IR is the serialized, execution-ready form of a workflow graph: an
// ordered node list plus an edge list with every handle resolved to a
// concrete field name. It is the wire shape sent to the execution backend
// and persisted verbatim as a saved workflow's nodes/edges.
type IR struct {
	Nodes []IRNode `json:"nodes"`
	Edges []Edge   `json:"edges"`
}

// IRNode is one node of the IR. Position is an optional round-trip hint
// for reloading the IR into an editor; it is dropped by default and never
// affects execution semantics.
type IRNode struct {
	ID       string
	Type     NodeKind
	Position *Position
	Data     NodeData
}

// MarshalJSON encodes the node in the workflow wire shape.
func (n IRNode) MarshalJSON() ([]byte, error) {
	data, err := json.Marshal(n.Data)
	if err != nil {
		return nil, err
	}
	return json.Marshal(nodeJSON{
		ID:       n.ID,
		Type:     n.Type,
		Position: n.Position,
		Data:     data,
	})
}

// UnmarshalJSON decodes a node from the workflow wire shape, dispatching
// the data payload on the "type" tag.
func (n *IRNode) UnmarshalJSON(raw []byte) error {
	var nj nodeJSON
	if err := json.Unmarshal(raw, &nj); err != nil {
		return err
	}
	data, err := decodeNodeData(nj.Type, nj.Data)
	if err != nil {
		return fmt.Errorf("node %s: %w", nj.ID, err)
	}
	n.ID = nj.ID
	n.Type = nj.Type
	n.Position = nj.Position
	n.Data = data
	return nil
}

// ParseIR decodes an IR from its JSON wire form.
func ParseIR(data []byte) (*IR, error) {
	var ir IR
	if err := json.Unmarshal(data, &ir); err != nil {
		return nil, fmt.Errorf("parse IR: %w", err)
	}
	return &ir, nil
}

// JSON encodes the IR to its JSON wire form. Encoding is deterministic:
// node and edge order is preserved and parameter bags marshal with sorted
// keys.
func (ir *IR) JSON() ([]byte, error) {
	return json.Marshal(ir)
}

// LoadIR reconstructs an editable graph from a well-formed IR, preserving
// node and edge identities and insertion order so that compiling the
// loaded graph reproduces the IR.
//
// The IR must contain exactly one node flagged as start carrying a
// question field (the reserved default start node); otherwise LoadIR
// fails with ErrNoStartNode.
func LoadIR(ir *IR, opts ...Option) (*Graph, error) {
	cfg := graphConfig{
		spans:   observability.NoopSpanManager{},
		metrics: observability.NoopMetrics{},
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	g := &Graph{
		byID:     make(map[string]*Node),
		edgeByID: make(map[string]*Edge),
		bus:      cfg.bus,
		logger:   cfg.logger,
		spans:    cfg.spans,
		metrics:  cfg.metrics,
	}

	startID := ""
	for _, n := range ir.Nodes {
		if n.Data == nil {
			return nil, fmt.Errorf("node %s: %w", n.ID, ErrInvalidNodeData)
		}
		if n.Type != n.Data.Kind() {
			return nil, fmt.Errorf("node %s: %w: type tag %q does not match payload", n.ID, ErrInvalidNodeData, n.Type)
		}
		var pos Position
		if n.Position != nil {
			pos = *n.Position
		}
		if err := g.addNodeLocked(n.ID, n.Data, pos); err != nil {
			return nil, err
		}
		if sig, ok := n.Data.(*SignatureFieldData); ok && sig.IsStart {
			if _, hasQuestion := sig.Field("question"); hasQuestion {
				if startID != "" {
					return nil, fmt.Errorf("%w: more than one start node", ErrInvalidNodeData)
				}
				startID = n.ID
			}
		}
	}
	if startID == "" {
		return nil, ErrNoStartNode
	}
	g.startID = startID

	for _, e := range ir.Edges {
		if err := g.addEdgeWithID(e); err != nil {
			return nil, err
		}
	}

	g.published(event.GraphLoaded, startID, "")
	return g, nil
}
