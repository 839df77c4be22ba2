package store

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore is an in-memory workflow store for testing.
// Data is lost when the process exits.
type MemoryStore struct {
	mu        sync.RWMutex
	workflows map[string]Workflow
	closed    bool
}

// NewMemoryStore creates a new in-memory workflow store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{workflows: make(map[string]Workflow)}
}

// Create implements Store.
func (m *MemoryStore) Create(w Workflow) (Workflow, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return Workflow{}, ErrStoreClosed
	}

	now := time.Now().UTC()
	w.ID = uuid.NewString()
	w.CreatedAt = now
	w.UpdatedAt = now
	m.workflows[w.ID] = cloneWorkflow(w)
	return w, nil
}

// Get implements Store.
func (m *MemoryStore) Get(id string) (Workflow, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return Workflow{}, ErrStoreClosed
	}

	w, ok := m.workflows[id]
	if !ok {
		return Workflow{}, ErrNotFound
	}
	return cloneWorkflow(w), nil
}

// List implements Store.
func (m *MemoryStore) List() ([]Workflow, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, ErrStoreClosed
	}

	out := make([]Workflow, 0, len(m.workflows))
	for _, w := range m.workflows {
		out = append(out, cloneWorkflow(w))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

// Update implements Store.
func (m *MemoryStore) Update(w Workflow) (Workflow, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return Workflow{}, ErrStoreClosed
	}

	existing, ok := m.workflows[w.ID]
	if !ok {
		return Workflow{}, ErrNotFound
	}

	existing.Name = w.Name
	existing.Description = w.Description
	existing.Nodes = append([]byte(nil), w.Nodes...)
	existing.Edges = append([]byte(nil), w.Edges...)
	existing.UpdatedAt = time.Now().UTC()
	m.workflows[w.ID] = existing
	return cloneWorkflow(existing), nil
}

// Delete implements Store.
func (m *MemoryStore) Delete(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrStoreClosed
	}

	if _, ok := m.workflows[id]; !ok {
		return ErrNotFound
	}
	delete(m.workflows, id)
	return nil
}

// Duplicate implements Store.
func (m *MemoryStore) Duplicate(id, newName string) (Workflow, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return Workflow{}, ErrStoreClosed
	}

	src, ok := m.workflows[id]
	if !ok {
		return Workflow{}, ErrNotFound
	}

	now := time.Now().UTC()
	cp := cloneWorkflow(src)
	cp.ID = uuid.NewString()
	cp.Name = newName
	cp.CreatedAt = now
	cp.UpdatedAt = now
	m.workflows[cp.ID] = cloneWorkflow(cp)
	return cp, nil
}

// Close implements Store.
func (m *MemoryStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.closed = true
	m.workflows = nil
	return nil
}

// Len returns the number of stored workflows. Useful for testing.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.workflows)
}

// cloneWorkflow copies the record so callers never share byte slices with
// the store.
func cloneWorkflow(w Workflow) Workflow {
	w.Nodes = append([]byte(nil), w.Nodes...)
	w.Edges = append([]byte(nil), w.Edges...)
	return w
}
