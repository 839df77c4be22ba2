package client

import "sync/atomic"

// Session tracks which graph an in-flight execution belongs to, so
// late-arriving responses for a graph that has since been replaced or
// reloaded can be discarded by the consumer.
//
// Take a Ticket before submitting; when the editing session swaps in a
// different graph, call Invalidate. A response whose ticket is stale must
// be dropped, never applied against the new graph.
type Session struct {
	generation atomic.Int64
}

// Ticket identifies the graph generation an execution was submitted under.
type Ticket struct {
	session    *Session
	generation int64
}

// Ticket captures the current graph generation.
func (s *Session) Ticket() Ticket {
	return Ticket{session: s, generation: s.generation.Load()}
}

// Invalidate marks all outstanding tickets stale. Call whenever the graph
// is replaced or reloaded.
func (s *Session) Invalidate() {
	s.generation.Add(1)
}

// Stale reports whether the graph has been replaced since the ticket was
// taken.
func (t Ticket) Stale() bool {
	return t.session.generation.Load() != t.generation
}
