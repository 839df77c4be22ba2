package pipecanvas

// Connection validation: the single source of truth for whether an edge
// (source, sourceHandle) -> (target, targetHandle) may exist. The check is
// a pure decision over the current graph snapshot plus the candidate; it
// never mutates.
//
// Checks, in order:
//  1. Both endpoint nodes must exist.
//  2. A self loop is rejected.
//  3. An end node exposes no output side; a start node exposes no input
//     side.
//  4. A supplied handle must resolve: on signature nodes it must name a
//     field and the node must be in field-level mode; on an if/else logic
//     source it must be one of the fixed true/false branches. No other
//     node kind has handles.
//  5. A whole-node (handle-less) endpoint on a signature node is legal
//     only when unambiguous: whole-mode nodes always, field-level nodes
//     only when they expose exactly one field.
//  6. An identical edge tuple must not already exist.

// CheckConnection reports whether the candidate connection would be legal
// on the current graph. Returns nil for a legal connection, or a
// *ConnectionError whose Reason is one of the sentinel rejection reasons.
func (g *Graph) CheckConnection(conn Connection) error {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.checkConnectionLocked(conn)
}

func (g *Graph) checkConnectionLocked(conn Connection) error {
	reject := func(reason error, detail string) error {
		return &ConnectionError{
			Source:       conn.Source,
			Target:       conn.Target,
			SourceHandle: conn.SourceHandle,
			TargetHandle: conn.TargetHandle,
			Reason:       reason,
			Detail:       detail,
		}
	}

	src, ok := g.byID[conn.Source]
	if !ok {
		return reject(ErrUnknownNode, "source "+conn.Source)
	}
	tgt, ok := g.byID[conn.Target]
	if !ok {
		return reject(ErrUnknownNode, "target "+conn.Target)
	}

	if conn.Source == conn.Target {
		return reject(ErrSelfLoop, "")
	}

	// End nodes have no output side; start nodes have no input side.
	if sig, ok := src.Data.(*SignatureFieldData); ok && sig.IsEnd {
		return reject(ErrNoOutputAvailable, "source is an end node")
	}
	if sig, ok := tgt.Data.(*SignatureFieldData); ok && sig.IsStart {
		return reject(ErrNoInputAvailable, "target is a start node")
	}

	if err := checkEndpointHandle(src, conn.SourceHandle, true); err != nil {
		return reject(err, "source handle "+conn.SourceHandle)
	}
	if err := checkEndpointHandle(tgt, conn.TargetHandle, false); err != nil {
		return reject(err, "target handle "+conn.TargetHandle)
	}

	for _, e := range g.edges {
		if e.Source == conn.Source && e.Target == conn.Target &&
			e.SourceHandle == conn.SourceHandle && e.TargetHandle == conn.TargetHandle {
			return reject(ErrDuplicateEdge, "edge "+e.ID)
		}
	}
	return nil
}

// checkEndpointHandle validates one endpoint of a candidate connection.
// isSource selects which side of the node the connection attaches to.
// Returns a sentinel rejection reason or nil.
func checkEndpointHandle(n *Node, handle string, isSource bool) error {
	// If/else logic sources expose the two fixed branch handles regardless
	// of any connection mode.
	if logic, ok := n.Data.(*LogicData); ok && logic.LogicType == LogicIfElse && isSource {
		if handle == "" || handle == HandleTrue || handle == HandleFalse {
			return nil
		}
		return ErrInvalidHandle
	}

	sig, isSig := n.Data.(*SignatureFieldData)

	if handle != "" {
		// Only field-level signature nodes have named handles.
		if !isSig {
			return ErrInvalidHandle
		}
		if sig.ConnectionMode != ConnectFieldLevel {
			return ErrInvalidHandle
		}
		if _, ok := sig.Field(handle); !ok {
			return ErrInvalidHandle
		}
		return nil
	}

	// Whole-node endpoint. Non-signature nodes always expose a single
	// implicit side; a field-level signature node is unambiguous only when
	// it presents exactly one field.
	if isSig && sig.ConnectionMode == ConnectFieldLevel && len(sig.Fields) > 1 {
		return ErrAmbiguousConnection
	}
	return nil
}
