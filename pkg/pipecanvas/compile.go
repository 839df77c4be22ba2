package pipecanvas

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/pipecanvas/pipecanvas/pkg/pipecanvas/expr"
	"github.com/pipecanvas/pipecanvas/pkg/pipecanvas/observability"
	"github.com/pipecanvas/pipecanvas/pkg/pipecanvas/template"
)

// CompileOption configures a compilation.
type CompileOption func(*compileConfig)

type compileConfig struct {
	keepLayout bool
}

// WithLayout preserves node positions in the emitted IR as a round-trip
// hint for reloading into an editor. Positions never affect execution.
func WithLayout() CompileOption {
	return func(c *compileConfig) {
		c.keepLayout = true
	}
}

// Compile lowers the graph into its intermediate representation.
//
// Compilation is deterministic: nodes and edges are emitted in insertion
// order, so compiling the same graph twice yields byte-identical IR.
//
// Validation checks (all violations are reported, joined together):
//  1. Exactly one start node exists.
//  2. Every edge handle still resolves to a field on its endpoint
//     (fields edited after connecting can leave a handle dangling).
//  3. At least one end node exists, and every end node is reachable from
//     the start node.
//  4. Every if/else condition parses; retrievers carry their mandatory
//     index or space configuration.
//
// A failed compilation never emits an IR: an invalid graph must never
// reach the execution backend.
func (g *Graph) Compile(opts ...CompileOption) (*IR, error) {
	cfg := compileConfig{}
	for _, opt := range opts {
		opt(&cfg)
	}

	g.mu.RLock()
	defer g.mu.RUnlock()

	ctx, span := g.spans.StartCompileSpan(context.Background(), len(g.nodes), len(g.edges))
	done := observability.TimedOperation()
	observability.LogCompileStart(g.logger, len(g.nodes), len(g.edges))

	var errs []error

	if err := g.checkStartNodeLocked(); err != nil {
		errs = append(errs, err)
	}
	errs = append(errs, g.checkHandlesLocked()...)
	errs = append(errs, g.checkReachabilityLocked()...)
	errs = append(errs, g.checkNodeConfigsLocked()...)

	if len(errs) > 0 {
		err := errors.Join(errs...)
		g.metrics.RecordCompile(ctx, len(g.nodes), time.Duration(done()*float64(time.Millisecond)), err)
		g.spans.EndSpanWithError(span, err)
		observability.LogCompileError(g.logger, err)
		return nil, err
	}

	ir := &IR{
		Nodes: make([]IRNode, 0, len(g.nodes)),
		Edges: make([]Edge, 0, len(g.edges)),
	}
	for _, n := range g.nodes {
		irn := IRNode{ID: n.ID, Type: n.Kind(), Data: n.Data.Clone()}
		if cfg.keepLayout {
			pos := n.Position
			irn.Position = &pos
		}
		ir.Nodes = append(ir.Nodes, irn)
	}
	for _, e := range g.edges {
		ir.Edges = append(ir.Edges, *e)
	}

	durationMs := done()
	g.metrics.RecordCompile(ctx, len(ir.Nodes), time.Duration(durationMs*float64(time.Millisecond)), nil)
	g.spans.EndSpanWithError(span, nil)
	observability.LogCompileComplete(g.logger, len(ir.Nodes), len(ir.Edges), durationMs)
	return ir, nil
}

// checkStartNodeLocked verifies that the reserved start node exists and is
// the only node flagged as start.
func (g *Graph) checkStartNodeLocked() error {
	if _, ok := g.byID[g.startID]; g.startID == "" || !ok {
		return ErrNoStartNode
	}
	for _, n := range g.nodes {
		if n.ID == g.startID {
			continue
		}
		if sig, ok := n.Data.(*SignatureFieldData); ok && sig.IsStart {
			return fmt.Errorf("%w: node %s also flagged as start", ErrInvalidNodeData, n.ID)
		}
	}
	return nil
}

// checkHandlesLocked re-resolves every edge handle against the current
// field sets. Edge insertion validates handles, but fields can be edited
// away afterwards, leaving the handle dangling.
func (g *Graph) checkHandlesLocked() []error {
	var errs []error
	for _, e := range g.edges {
		for _, end := range []struct {
			nodeID string
			handle string
			source bool
		}{
			{e.Source, e.SourceHandle, true},
			{e.Target, e.TargetHandle, false},
		} {
			if end.handle == "" {
				continue
			}
			n, ok := g.byID[end.nodeID]
			if !ok {
				// Unreachable under normal mutation (removal cascades), but
				// guarded so a broken IR is never emitted.
				errs = append(errs, &DanglingHandleError{EdgeID: e.ID, Handle: end.handle, NodeID: end.nodeID})
				continue
			}
			if err := checkEndpointHandle(n, end.handle, end.source); err != nil {
				errs = append(errs, &DanglingHandleError{EdgeID: e.ID, Handle: end.handle, NodeID: end.nodeID})
			}
		}
	}
	return errs
}

// checkReachabilityLocked verifies that at least one end node exists and
// that every end node has a path from the start node.
func (g *Graph) checkReachabilityLocked() []error {
	var endNodes []string
	for _, n := range g.nodes {
		if sig, ok := n.Data.(*SignatureFieldData); ok && sig.IsEnd {
			endNodes = append(endNodes, n.ID)
		}
	}
	if len(endNodes) == 0 {
		return []error{ErrNoEndNode}
	}

	reachable := g.reachableFromLocked(g.startID)
	var errs []error
	for _, id := range endNodes {
		if !reachable[id] {
			errs = append(errs, &UnreachableEndNodeError{NodeID: id})
		}
	}
	return errs
}

// reachableFromLocked returns the set of node ids reachable from start by
// following edges forward (BFS).
func (g *Graph) reachableFromLocked(start string) map[string]bool {
	successors := make(map[string][]string, len(g.nodes))
	for _, e := range g.edges {
		successors[e.Source] = append(successors[e.Source], e.Target)
	}

	reachable := map[string]bool{start: true}
	queue := []string{start}
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		for _, next := range successors[current] {
			if !reachable[next] {
				reachable[next] = true
				queue = append(queue, next)
			}
		}
	}
	return reachable
}

// checkNodeConfigsLocked validates execution-mandatory node configuration:
// condition syntax on if/else nodes and index/space settings on
// retrievers. Module instructions referencing fields no signature node
// exposes are logged as warnings, not errors.
func (g *Graph) checkNodeConfigsLocked() []error {
	knownFields := make(map[string]struct{})
	for _, n := range g.nodes {
		if sig, ok := n.Data.(*SignatureFieldData); ok {
			for _, f := range sig.Fields {
				knownFields[f.Name] = struct{}{}
			}
		}
	}

	var errs []error
	for _, n := range g.nodes {
		switch d := n.Data.(type) {
		case *LogicData:
			if d.LogicType != LogicIfElse {
				continue
			}
			if d.Condition == "" {
				errs = append(errs, &IncompleteNodeError{NodeID: n.ID, Missing: "condition"})
				continue
			}
			if err := expr.Check(d.Condition); err != nil {
				errs = append(errs, &ConditionError{NodeID: n.ID, Condition: d.Condition, Err: err})
			}
		case *RetrieverData:
			switch d.RetrieverType {
			case RetrieverUnstructured:
				if d.IndexName == "" {
					errs = append(errs, &IncompleteNodeError{NodeID: n.ID, Missing: "indexName"})
				}
			case RetrieverStructured:
				if d.GenieSpaceID == "" {
					errs = append(errs, &IncompleteNodeError{NodeID: n.ID, Missing: "genieSpaceId"})
				}
			}
		case *ModuleData:
			if missing := template.Unresolved(d.Instruction, knownFields); len(missing) > 0 {
				observability.LogUnresolvedPlaceholders(g.logger, n.ID, missing)
			}
		}
	}
	return errs
}
