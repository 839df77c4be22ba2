package pipecanvas

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/pipecanvas/pipecanvas/pkg/pipecanvas/event"
	"github.com/pipecanvas/pipecanvas/pkg/pipecanvas/observability"
)

// Graph is the authoritative in-memory model of one workflow.
//
// All mutations are applied atomically: a rejected operation leaves the
// graph exactly as it was. Accessors hand out deep copies, so no caller
// ever holds a mutable alias into the graph's own state.
//
// A Graph is owned by a single editing session. Mutations are synchronous
// and are expected to arrive from one logical thread of user edits; the
// internal lock exists so that read snapshots (compiles, saves) taken from
// other goroutines never observe a graph mid-mutation.
type Graph struct {
	mu       sync.RWMutex
	nodes    []*Node          // insertion order, the compiler's node order
	byID     map[string]*Node
	edges    []*Edge          // insertion order, the compiler's edge order
	edgeByID map[string]*Edge
	startID  string

	ids     idGenerator
	bus     *event.Bus
	logger  *slog.Logger
	spans   observability.SpanManager
	metrics observability.MetricsRecorder
}

// Connection is a candidate edge: two endpoint nodes plus optional handles.
type Connection struct {
	Source       string
	SourceHandle string
	Target       string
	TargetHandle string
}

// Option configures a Graph at construction time.
type Option func(*graphConfig)

type graphConfig struct {
	bus          *event.Bus
	logger       *slog.Logger
	spans        observability.SpanManager
	metrics      observability.MetricsRecorder
	historyField bool
}

// WithEventBus publishes mutation events on the given bus.
func WithEventBus(bus *event.Bus) Option {
	return func(c *graphConfig) {
		c.bus = bus
	}
}

// WithLogger enables structured mutation logging.
func WithLogger(logger *slog.Logger) Option {
	return func(c *graphConfig) {
		c.logger = logger
	}
}

// WithSpanManager traces compilations on the given span manager.
func WithSpanManager(spans observability.SpanManager) Option {
	return func(c *graphConfig) {
		c.spans = spans
	}
}

// WithMetrics records mutation and compile metrics on the given recorder.
func WithMetrics(metrics observability.MetricsRecorder) Option {
	return func(c *graphConfig) {
		c.metrics = metrics
	}
}

// WithHistoryField controls whether the default start node carries a
// conversation-history field in addition to the question field.
// Enabled by default.
func WithHistoryField(enabled bool) Option {
	return func(c *graphConfig) {
		c.historyField = enabled
	}
}

// New creates an empty workflow graph carrying the reserved default start
// node. The start node exposes a required question field (plus an optional
// history field, see WithHistoryField) in field-level connection mode; its
// field set and flags are immutable for the life of the graph.
func New(opts ...Option) *Graph {
	cfg := graphConfig{
		historyField: true,
		spans:        observability.NoopSpanManager{},
		metrics:      observability.NoopMetrics{},
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

	fields := []SignatureField{{
		Name:        "question",
		Type:        FieldString,
		Description: "The user's question",
		Required:    true,
	}}
	if cfg.historyField {
		fields = append(fields, SignatureField{
			Name:        "history",
			Type:        FieldDictList,
			Description: "Conversation history",
		})
	}

	start := &Node{
		ID: g.ids.NodeID(),
		Data: &SignatureFieldData{
			Label:          "Input",
			Fields:         fields,
			IsStart:        true,
			ConnectionMode: ConnectFieldLevel,
		},
	}
	g.insertNode(start)
	g.startID = start.ID
	return g
}

// StartNodeID returns the id of the reserved default start node.
func (g *Graph) StartNodeID() string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.startID
}

// Node returns a deep copy of the node with the given id.
func (g *Graph) Node(id string) (*Node, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	n, ok := g.byID[id]
	if !ok {
		return nil, false
	}
	return n.Clone(), true
}

// Nodes returns deep copies of all nodes in insertion order.
func (g *Graph) Nodes() []*Node {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make([]*Node, len(g.nodes))
	for i, n := range g.nodes {
		out[i] = n.Clone()
	}
	return out
}

// Edges returns copies of all edges in insertion order.
func (g *Graph) Edges() []Edge {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make([]Edge, len(g.edges))
	for i, e := range g.edges {
		out[i] = *e
	}
	return out
}

// AddNode inserts a new node with a generated id and returns the id.
func (g *Graph) AddNode(data NodeData, pos Position) (string, error) {
	g.mu.Lock()
	id := g.ids.NodeID()
	err := g.addNodeLocked(id, data, pos)
	g.mu.Unlock()
	if err != nil {
		g.mutationRejected("add_node", err)
		return "", err
	}
	g.mutationApplied("add_node", id, "")
	g.published(event.NodeAdded, id, "")
	return id, nil
}

// AddNodeWithID inserts a node under a caller-supplied id. Fails with
// ErrDuplicateID when the id is already taken. Used when reloading a
// serialized workflow, where node identity must be preserved.
func (g *Graph) AddNodeWithID(id string, data NodeData, pos Position) error {
	g.mu.Lock()
	err := g.addNodeLocked(id, data, pos)
	g.mu.Unlock()
	if err != nil {
		g.mutationRejected("add_node", err)
		return err
	}
	g.mutationApplied("add_node", id, "")
	g.published(event.NodeAdded, id, "")
	return nil
}

func (g *Graph) addNodeLocked(id string, data NodeData, pos Position) error {
	if id == "" {
		return fmt.Errorf("%w: node id cannot be empty", ErrInvalidNodeData)
	}
	if _, exists := g.byID[id]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateID, id)
	}
	if err := validateNodeData(data); err != nil {
		return err
	}
	g.insertNode(&Node{ID: id, Position: pos, Data: data.Clone()})
	return nil
}

func (g *Graph) insertNode(n *Node) {
	g.nodes = append(g.nodes, n)
	g.byID[n.ID] = n
}

// UpdateNodeData replaces the node's payload. The payload kind cannot
// change. For the reserved default start node the field set, flags,
// connection mode, and label are immutable; only field descriptions may
// differ from the current payload.
func (g *Graph) UpdateNodeData(id string, data NodeData) error {
	g.mu.Lock()
	err := g.updateNodeDataLocked(id, data)
	g.mu.Unlock()
	if err != nil {
		g.mutationRejected("update_node", err)
		return err
	}
	g.mutationApplied("update_node", id, "")
	g.published(event.NodeUpdated, id, "")
	return nil
}

func (g *Graph) updateNodeDataLocked(id string, data NodeData) error {
	n, ok := g.byID[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownNode, id)
	}
	if err := validateNodeData(data); err != nil {
		return err
	}
	if data.Kind() != n.Kind() {
		return fmt.Errorf("%w: cannot change node kind from %s to %s",
			ErrInvalidNodeData, n.Kind(), data.Kind())
	}
	if id == g.startID {
		if err := checkStartNodeEdit(n.Data.(*SignatureFieldData), data.(*SignatureFieldData)); err != nil {
			return err
		}
	}
	n.Data = data.Clone()
	return nil
}

// checkStartNodeEdit enforces the default start node's immutability:
// everything except field descriptions must be unchanged.
func checkStartNodeEdit(old, new *SignatureFieldData) error {
	if new.IsStart != old.IsStart || new.IsEnd != old.IsEnd ||
		new.ConnectionMode != old.ConnectionMode || new.Label != old.Label {
		return fmt.Errorf("%w: default start node flags are fixed", ErrImmutableNode)
	}
	if len(new.Fields) != len(old.Fields) {
		return fmt.Errorf("%w: default start node field set is fixed", ErrImmutableNode)
	}
	for i, f := range old.Fields {
		nf := new.Fields[i]
		if nf.Name != f.Name || nf.Type != f.Type || nf.Required != f.Required {
			return fmt.Errorf("%w: only field descriptions of the default start node may change", ErrImmutableNode)
		}
	}
	return nil
}

// UpdateNodePosition moves a node on the canvas. Position is presentation
// data, so this is allowed even for the default start node.
func (g *Graph) UpdateNodePosition(id string, pos Position) error {
	g.mu.Lock()
	n, ok := g.byID[id]
	if !ok {
		g.mu.Unlock()
		err := fmt.Errorf("%w: %s", ErrUnknownNode, id)
		g.mutationRejected("update_position", err)
		return err
	}
	n.Position = pos
	g.mu.Unlock()
	g.mutationApplied("update_position", id, "")
	g.published(event.NodeUpdated, id, "")
	return nil
}

// RemoveNode deletes a node and cascades deletion of all edges touching
// it. The reserved default start node cannot be removed.
func (g *Graph) RemoveNode(id string) error {
	g.mu.Lock()
	if id == g.startID {
		g.mu.Unlock()
		err := fmt.Errorf("%w: default start node cannot be removed", ErrImmutableNode)
		g.mutationRejected("remove_node", err)
		return err
	}
	if _, ok := g.byID[id]; !ok {
		g.mu.Unlock()
		err := fmt.Errorf("%w: %s", ErrUnknownNode, id)
		g.mutationRejected("remove_node", err)
		return err
	}

	delete(g.byID, id)
	for i, n := range g.nodes {
		if n.ID == id {
			g.nodes = append(g.nodes[:i], g.nodes[i+1:]...)
			break
		}
	}

	var removedEdges []string
	kept := g.edges[:0]
	for _, e := range g.edges {
		if e.Source == id || e.Target == id {
			delete(g.edgeByID, e.ID)
			removedEdges = append(removedEdges, e.ID)
			continue
		}
		kept = append(kept, e)
	}
	g.edges = kept
	g.mu.Unlock()

	g.mutationApplied("remove_node", id, "")
	g.published(event.NodeRemoved, id, "")
	for _, eid := range removedEdges {
		g.published(event.EdgeRemoved, id, eid)
	}
	return nil
}

// AddEdge validates the candidate connection and, if legal, inserts an
// edge with a fresh id. On rejection a *ConnectionError is returned and
// the graph is unchanged.
func (g *Graph) AddEdge(conn Connection) (string, error) {
	g.mu.Lock()
	if err := g.checkConnectionLocked(conn); err != nil {
		g.mu.Unlock()
		g.mutationRejected("add_edge", err)
		return "", err
	}
	e := &Edge{
		ID:           g.ids.EdgeID(),
		Source:       conn.Source,
		Target:       conn.Target,
		SourceHandle: conn.SourceHandle,
		TargetHandle: conn.TargetHandle,
	}
	g.edges = append(g.edges, e)
	g.edgeByID[e.ID] = e
	g.mu.Unlock()

	g.mutationApplied("add_edge", conn.Source, e.ID)
	g.published(event.EdgeAdded, conn.Source, e.ID)
	return e.ID, nil
}

// addEdgeWithID inserts a pre-identified edge, used when reloading a
// serialized workflow. Validation still applies.
func (g *Graph) addEdgeWithID(e Edge) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if e.ID == "" {
		return fmt.Errorf("%w: edge id cannot be empty", ErrInvalidNodeData)
	}
	if _, exists := g.edgeByID[e.ID]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateID, e.ID)
	}
	if err := g.checkConnectionLocked(Connection{
		Source:       e.Source,
		SourceHandle: e.SourceHandle,
		Target:       e.Target,
		TargetHandle: e.TargetHandle,
	}); err != nil {
		return err
	}
	cp := e
	g.edges = append(g.edges, &cp)
	g.edgeByID[e.ID] = &cp
	return nil
}

// RemoveEdge deletes the edge with the given id.
func (g *Graph) RemoveEdge(id string) error {
	g.mu.Lock()
	e, ok := g.edgeByID[id]
	if !ok {
		g.mu.Unlock()
		err := fmt.Errorf("%w: %s", ErrNotFound, id)
		g.mutationRejected("remove_edge", err)
		return err
	}
	delete(g.edgeByID, id)
	for i, cur := range g.edges {
		if cur.ID == id {
			g.edges = append(g.edges[:i], g.edges[i+1:]...)
			break
		}
	}
	g.mu.Unlock()

	g.mutationApplied("remove_edge", e.Source, id)
	g.published(event.EdgeRemoved, e.Source, id)
	return nil
}

func (g *Graph) published(t event.Type, nodeID, edgeID string) {
	if g.bus != nil {
		g.bus.Publish(event.New(t, nodeID, edgeID))
	}
}

func (g *Graph) mutationApplied(op, nodeID, edgeID string) {
	observability.LogMutation(g.logger, op, nodeID, edgeID)
	g.metrics.RecordMutation(context.Background(), op, false)
}

func (g *Graph) mutationRejected(op string, err error) {
	observability.LogMutationRejected(g.logger, op, err)
	g.metrics.RecordMutation(context.Background(), op, true)
}
