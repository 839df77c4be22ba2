package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pipecanvas/pipecanvas/pkg/pipecanvas/store"
)

// TestCreateWorkflow tests the persistence create call.
func TestCreateWorkflow(t *testing.T) {
	var gotPath string
	var gotBody createWorkflowRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		require.Equal(t, http.MethodPost, r.Method)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		json.NewEncoder(w).Encode(store.Workflow{
			ID:        "wf-123",
			Name:      gotBody.Name,
			CreatedAt: time.Now().UTC(),
		})
	}))
	defer server.Close()

	c := newTestClient(server.URL)
	w, err := c.CreateWorkflow(context.Background(), "support bot", compiledIR(t))
	require.NoError(t, err)

	assert.Equal(t, "/workflows/", gotPath)
	assert.Equal(t, "support bot", gotBody.Name)
	assert.Len(t, gotBody.Nodes, 2)
	assert.Len(t, gotBody.Edges, 1)
	assert.Equal(t, "wf-123", w.ID)

	_, err = c.CreateWorkflow(context.Background(), "no ir", nil)
	assert.True(t, IsCollaboratorError(err))
}

// TestListWorkflows tests the persistence list call.
func TestListWorkflows(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodGet, r.Method)
		require.Equal(t, "/workflows/", r.URL.Path)
		json.NewEncoder(w).Encode([]store.Workflow{
			{ID: "wf-1", Name: "first"},
			{ID: "wf-2", Name: "second"},
		})
	}))
	defer server.Close()

	c := newTestClient(server.URL)
	workflows, err := c.ListWorkflows(context.Background())
	require.NoError(t, err)
	require.Len(t, workflows, 2)
	assert.Equal(t, "first", workflows[0].Name)
}

// TestDeleteWorkflow tests the persistence delete call.
func TestDeleteWorkflow(t *testing.T) {
	var gotPath, gotMethod string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotMethod = r.Method
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	c := newTestClient(server.URL)
	require.NoError(t, c.DeleteWorkflow(context.Background(), "wf-1"))
	assert.Equal(t, "/workflows/wf-1", gotPath)
	assert.Equal(t, http.MethodDelete, gotMethod)
}

// TestDeleteWorkflow_NotFound tests error mapping on delete.
func TestDeleteWorkflow_NotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "no such workflow", http.StatusNotFound)
	}))
	defer server.Close()

	c := newTestClient(server.URL)
	err := c.DeleteWorkflow(context.Background(), "wf-missing")
	require.Error(t, err)

	var ce *CollaboratorError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, http.StatusNotFound, ce.StatusCode)
}

// TestDuplicateWorkflow tests the persistence duplicate call.
func TestDuplicateWorkflow(t *testing.T) {
	var gotPath string
	var gotBody duplicateWorkflowRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		json.NewEncoder(w).Encode(store.Workflow{ID: "wf-copy", Name: gotBody.NewName})
	}))
	defer server.Close()

	c := newTestClient(server.URL)
	w, err := c.DuplicateWorkflow(context.Background(), "wf-1", "clone")
	require.NoError(t, err)

	assert.Equal(t, "/workflows/wf-1/duplicate", gotPath)
	assert.Equal(t, "clone", gotBody.NewName)
	assert.Equal(t, "wf-copy", w.ID)
}
