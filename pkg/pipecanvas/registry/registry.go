// Package registry maps node kinds and sub-types to their default
// payloads, used to instantiate new nodes from the editor palette.
//
// The registry is a pure lookup: it never mutates shared state, and every
// DefaultPayload call returns a fresh payload the caller owns.
package registry

import (
	"fmt"
	"sync"

	"github.com/pipecanvas/pipecanvas/pkg/pipecanvas"
)

// entry describes one (kind, subtype) palette item.
type entry struct {
	subtype string
	payload pipecanvas.NodeData
}

// Registry resolves default node payloads by kind and sub-type.
// It is safe for concurrent use.
type Registry struct {
	mu      sync.RWMutex
	entries map[pipecanvas.NodeKind][]entry // ordered per kind
}

// New creates a registry pre-populated with the built-in node kinds.
func New() *Registry {
	r := &Registry{entries: make(map[pipecanvas.NodeKind][]entry)}
	r.registerBuiltins()
	return r
}

// register appends a (kind, subtype) default. Later registrations with the
// same subtype win on lookup order; builtins never collide.
func (r *Registry) register(kind pipecanvas.NodeKind, subtype string, payload pipecanvas.NodeData) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[kind] = append(r.entries[kind], entry{subtype: subtype, payload: payload})
}

// DefaultPayload returns a fresh default payload for the given kind and
// sub-type. Fails with pipecanvas.ErrUnknownNodeKind for unregistered
// kinds or sub-types.
func (r *Registry) DefaultPayload(kind pipecanvas.NodeKind, subtype string) (pipecanvas.NodeData, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	entries, ok := r.entries[kind]
	if !ok {
		return nil, fmt.Errorf("%w: %q", pipecanvas.ErrUnknownNodeKind, kind)
	}
	for _, e := range entries {
		if e.subtype == subtype {
			return e.payload.Clone(), nil
		}
	}
	return nil, fmt.Errorf("%w: %s has no sub-type %q", pipecanvas.ErrUnknownNodeKind, kind, subtype)
}

// LegalSubtypes returns the registered sub-types for a kind, in
// registration order. Fails with pipecanvas.ErrUnknownNodeKind for
// unregistered kinds.
func (r *Registry) LegalSubtypes(kind pipecanvas.NodeKind) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	entries, ok := r.entries[kind]
	if !ok {
		return nil, fmt.Errorf("%w: %q", pipecanvas.ErrUnknownNodeKind, kind)
	}
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.subtype
	}
	return out, nil
}

// Kinds returns the registered node kinds in a fixed palette order.
func (r *Registry) Kinds() []pipecanvas.NodeKind {
	return []pipecanvas.NodeKind{
		pipecanvas.KindSignatureField,
		pipecanvas.KindModule,
		pipecanvas.KindLogic,
		pipecanvas.KindRetriever,
	}
}

var (
	std     *Registry
	stdOnce sync.Once
)

// Default returns the shared registry with the built-in node kinds.
func Default() *Registry {
	stdOnce.Do(func() {
		std = New()
	})
	return std
}

// DefaultPayload resolves against the shared registry.
func DefaultPayload(kind pipecanvas.NodeKind, subtype string) (pipecanvas.NodeData, error) {
	return Default().DefaultPayload(kind, subtype)
}

// LegalSubtypes resolves against the shared registry.
func LegalSubtypes(kind pipecanvas.NodeKind) ([]string, error) {
	return Default().LegalSubtypes(kind)
}
