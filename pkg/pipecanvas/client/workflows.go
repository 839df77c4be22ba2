package client

import (
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/pipecanvas/pipecanvas/pkg/pipecanvas"
	"github.com/pipecanvas/pipecanvas/pkg/pipecanvas/store"
)

// createWorkflowRequest is the persistence service's create payload.
type createWorkflowRequest struct {
	Name  string              `json:"name"`
	Nodes []pipecanvas.IRNode `json:"nodes"`
	Edges []pipecanvas.Edge   `json:"edges"`
}

// duplicateWorkflowRequest is the persistence service's duplicate payload.
type duplicateWorkflowRequest struct {
	NewName string `json:"new_name"`
}

// CreateWorkflow saves a compiled workflow under the given name and
// returns the created record.
func (c *Client) CreateWorkflow(ctx context.Context, name string, ir *pipecanvas.IR) (store.Workflow, error) {
	if ir == nil {
		return store.Workflow{}, &CollaboratorError{Op: "create_workflow", Message: "workflow IR is required"}
	}
	var w store.Workflow
	err := c.postJSON(ctx, "create_workflow", c.workflowsURL+"/workflows/", createWorkflowRequest{
		Name:  name,
		Nodes: ir.Nodes,
		Edges: ir.Edges,
	}, &w)
	return w, err
}

// ListWorkflows returns all saved workflow records.
func (c *Client) ListWorkflows(ctx context.Context) ([]store.Workflow, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.workflowsURL+"/workflows/", nil)
	if err != nil {
		return nil, &CollaboratorError{Op: "list_workflows", Message: "create request", Err: err}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, &CollaboratorError{Op: "list_workflows", Message: "request failed", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, &CollaboratorError{Op: "list_workflows", StatusCode: resp.StatusCode, Message: string(detail)}
	}

	var workflows []store.Workflow
	if err := json.NewDecoder(resp.Body).Decode(&workflows); err != nil {
		return nil, &CollaboratorError{Op: "list_workflows", Message: "decode response", Err: err}
	}
	return workflows, nil
}

// DeleteWorkflow removes a saved workflow.
func (c *Client) DeleteWorkflow(ctx context.Context, id string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, c.workflowsURL+"/workflows/"+id, nil)
	if err != nil {
		return &CollaboratorError{Op: "delete_workflow", Message: "create request", Err: err}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return &CollaboratorError{Op: "delete_workflow", Message: "request failed", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &CollaboratorError{Op: "delete_workflow", StatusCode: resp.StatusCode, Message: string(detail)}
	}
	return nil
}

// DuplicateWorkflow copies a saved workflow under a new name and returns
// the created record.
func (c *Client) DuplicateWorkflow(ctx context.Context, id, newName string) (store.Workflow, error) {
	var w store.Workflow
	err := c.postJSON(ctx, "duplicate_workflow", c.workflowsURL+"/workflows/"+id+"/duplicate",
		duplicateWorkflowRequest{NewName: newName}, &w)
	return w, err
}
