package store

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pipecanvas/pipecanvas/pkg/pipecanvas"
)

// sampleWorkflow builds an unsaved record from a real compiled graph.
func sampleWorkflow(t *testing.T, name string) Workflow {
	t.Helper()
	g := pipecanvas.New(pipecanvas.WithHistoryField(false))
	endID, err := g.AddNode(&pipecanvas.SignatureFieldData{
		Fields:         []pipecanvas.SignatureField{{Name: "answer", Type: pipecanvas.FieldString, Required: true}},
		IsEnd:          true,
		ConnectionMode: pipecanvas.ConnectWhole,
	}, pipecanvas.Position{})
	require.NoError(t, err)
	_, err = g.AddEdge(pipecanvas.Connection{Source: g.StartNodeID(), Target: endID})
	require.NoError(t, err)

	ir, err := g.Compile()
	require.NoError(t, err)

	w, err := FromIR(name, "a test workflow", ir)
	require.NoError(t, err)
	return w
}

// runStoreSuite exercises the Store contract against an implementation.
func runStoreSuite(t *testing.T, open func(t *testing.T) Store) {
	t.Run("create assigns identity", func(t *testing.T) {
		s := open(t)
		defer s.Close()

		created, err := s.Create(sampleWorkflow(t, "support bot"))
		require.NoError(t, err)
		assert.NotEmpty(t, created.ID)
		assert.Equal(t, "support bot", created.Name)
		assert.False(t, created.CreatedAt.IsZero())
		assert.Equal(t, created.CreatedAt, created.UpdatedAt)
	})

	t.Run("get round trips", func(t *testing.T) {
		s := open(t)
		defer s.Close()

		created, err := s.Create(sampleWorkflow(t, "support bot"))
		require.NoError(t, err)

		got, err := s.Get(created.ID)
		require.NoError(t, err)
		assert.Equal(t, created.Name, got.Name)
		assert.JSONEq(t, string(created.Nodes), string(got.Nodes))
		assert.JSONEq(t, string(created.Edges), string(got.Edges))

		// And the stored bytes decode back to a loadable IR.
		ir, err := got.IR()
		require.NoError(t, err)
		_, err = pipecanvas.LoadIR(ir)
		assert.NoError(t, err)
	})

	t.Run("get missing", func(t *testing.T) {
		s := open(t)
		defer s.Close()

		_, err := s.Get("no-such-id")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("list orders by creation", func(t *testing.T) {
		s := open(t)
		defer s.Close()

		first, err := s.Create(sampleWorkflow(t, "first"))
		require.NoError(t, err)
		time.Sleep(2 * time.Millisecond)
		second, err := s.Create(sampleWorkflow(t, "second"))
		require.NoError(t, err)

		list, err := s.List()
		require.NoError(t, err)
		require.Len(t, list, 2)
		assert.Equal(t, first.ID, list[0].ID)
		assert.Equal(t, second.ID, list[1].ID)
	})

	t.Run("update", func(t *testing.T) {
		s := open(t)
		defer s.Close()

		created, err := s.Create(sampleWorkflow(t, "draft"))
		require.NoError(t, err)

		created.Name = "published"
		created.Description = "now live"
		updated, err := s.Update(created)
		require.NoError(t, err)
		assert.Equal(t, "published", updated.Name)
		assert.False(t, updated.UpdatedAt.Before(created.CreatedAt))

		got, err := s.Get(created.ID)
		require.NoError(t, err)
		assert.Equal(t, "published", got.Name)
		assert.Equal(t, "now live", got.Description)

		missing := sampleWorkflow(t, "ghost")
		missing.ID = "no-such-id"
		_, err = s.Update(missing)
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("delete", func(t *testing.T) {
		s := open(t)
		defer s.Close()

		created, err := s.Create(sampleWorkflow(t, "doomed"))
		require.NoError(t, err)

		require.NoError(t, s.Delete(created.ID))
		_, err = s.Get(created.ID)
		assert.ErrorIs(t, err, ErrNotFound)

		assert.ErrorIs(t, s.Delete(created.ID), ErrNotFound)
	})

	t.Run("duplicate", func(t *testing.T) {
		s := open(t)
		defer s.Close()

		created, err := s.Create(sampleWorkflow(t, "original"))
		require.NoError(t, err)

		dup, err := s.Duplicate(created.ID, "original (copy)")
		require.NoError(t, err)
		assert.NotEqual(t, created.ID, dup.ID)
		assert.Equal(t, "original (copy)", dup.Name)
		assert.JSONEq(t, string(created.Nodes), string(dup.Nodes))

		list, err := s.List()
		require.NoError(t, err)
		assert.Len(t, list, 2)

		_, err = s.Duplicate("no-such-id", "copy")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("closed store refuses everything", func(t *testing.T) {
		s := open(t)
		require.NoError(t, s.Close())

		_, err := s.Create(sampleWorkflow(t, "late"))
		assert.ErrorIs(t, err, ErrStoreClosed)
		_, err = s.Get("any")
		assert.ErrorIs(t, err, ErrStoreClosed)
		_, err = s.List()
		assert.ErrorIs(t, err, ErrStoreClosed)
		assert.ErrorIs(t, s.Delete("any"), ErrStoreClosed)
	})
}

func TestMemoryStore(t *testing.T) {
	runStoreSuite(t, func(t *testing.T) Store {
		return NewMemoryStore()
	})
}

func TestSQLiteStore(t *testing.T) {
	runStoreSuite(t, func(t *testing.T) Store {
		s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "workflows.db"))
		require.NoError(t, err)
		return s
	})
}

// TestMemoryStore_Isolation tests that callers never share byte slices
// with the store.
func TestMemoryStore_Isolation(t *testing.T) {
	s := NewMemoryStore()
	defer s.Close()

	created, err := s.Create(sampleWorkflow(t, "shared"))
	require.NoError(t, err)

	got, err := s.Get(created.ID)
	require.NoError(t, err)
	got.Nodes[0] = 'X'

	again, err := s.Get(created.ID)
	require.NoError(t, err)
	assert.NotEqual(t, byte('X'), again.Nodes[0])
	assert.Equal(t, 1, s.Len())
}

// TestSQLiteStore_Reopen tests durability across store instances.
func TestSQLiteStore_Reopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "workflows.db")

	s, err := NewSQLiteStore(path)
	require.NoError(t, err)
	created, err := s.Create(sampleWorkflow(t, "durable"))
	require.NoError(t, err)
	require.NoError(t, s.Close())

	reopened, err := NewSQLiteStore(path)
	require.NoError(t, err)
	defer reopened.Close()

	got, err := reopened.Get(created.ID)
	require.NoError(t, err)
	assert.Equal(t, "durable", got.Name)
	assert.WithinDuration(t, created.CreatedAt, got.CreatedAt, time.Millisecond)
}

// TestFromIR tests record construction from a compiled IR.
func TestFromIR(t *testing.T) {
	w := sampleWorkflow(t, "named")
	assert.Equal(t, "named", w.Name)
	assert.Empty(t, w.ID)
	assert.NotEmpty(t, w.Nodes)
	assert.NotEmpty(t, w.Edges)

	ir, err := w.IR()
	require.NoError(t, err)
	assert.Len(t, ir.Nodes, 2)
	assert.Len(t, ir.Edges, 1)
}
