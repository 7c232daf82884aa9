package n8n

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strconv"

	"n8n-workflows/pkg/models"
)

// ErrNoDefinition is returned when create or update is called without a
// workflow document.
var ErrNoDefinition = errors.New("workflow definition is required")

// ListOptions filters and pages a workflow listing.
type ListOptions struct {
	ActiveOnly bool
	// Limit is the page size; zero leaves it to the server.
	Limit  int
	Cursor string
}

func (o ListOptions) query() url.Values {
	q := url.Values{}
	if o.ActiveOnly {
		q.Set("active", "true")
	}
	if o.Limit > 0 {
		q.Set("limit", strconv.Itoa(o.Limit))
	}
	if o.Cursor != "" {
		q.Set("cursor", o.Cursor)
	}
	return q
}

// Create uploads a new workflow. The definition is sent as is; the server
// assigns the ID.
func (c *Client) Create(ctx context.Context, definition *models.Document) (*models.Workflow, error) {
	if definition == nil {
		return nil, ErrNoDefinition
	}

	var wf models.Workflow
	err := c.doJSON(ctx, request{
		operation: "create",
		method:    http.MethodPost,
		path:      workflowsPath,
		body:      definition,
		auth:      true,
	}, &wf)
	if err != nil {
		return nil, err
	}

	c.logger.Info("Created workflow", "name", wf.Name, "id", wf.ID)
	return &wf, nil
}

// Update replaces the workflow id with definition.
func (c *Client) Update(ctx context.Context, id string, definition *models.Document) (*models.Workflow, error) {
	if definition == nil {
		return nil, ErrNoDefinition
	}

	var wf models.Workflow
	err := c.doJSON(ctx, request{
		operation: "update",
		method:    http.MethodPut,
		path:      workflowPath(id),
		body:      definition,
		auth:      true,
	}, &wf)
	if err != nil {
		return nil, notFound(id, err)
	}

	c.logger.Info("Updated workflow", "name", wf.Name, "id", id)
	return &wf, nil
}

// Get fetches the current state of a workflow.
func (c *Client) Get(ctx context.Context, id string) (*models.Workflow, error) {
	var wf models.Workflow
	err := c.doJSON(ctx, request{
		operation: "get",
		method:    http.MethodGet,
		path:      workflowPath(id),
		auth:      true,
	}, &wf)
	if err != nil {
		return nil, notFound(id, err)
	}

	c.logger.Info("Retrieved workflow", "name", wf.Name, "id", id)
	return &wf, nil
}

// List returns the workflows of the first page, in server order.
func (c *Client) List(ctx context.Context, opts ListOptions) ([]models.Workflow, error) {
	page, err := c.ListPage(ctx, opts)
	if err != nil {
		return nil, err
	}
	return page.Data, nil
}

// ListPage returns one page of workflows together with the cursor of the
// next page, if any.
func (c *Client) ListPage(ctx context.Context, opts ListOptions) (*models.WorkflowPage, error) {
	var page models.WorkflowPage
	err := c.doJSON(ctx, request{
		operation: "list",
		method:    http.MethodGet,
		path:      workflowsPath,
		query:     opts.query(),
		auth:      true,
	}, &page)
	if err != nil {
		return nil, err
	}

	c.logger.Info("Found workflows", "count", len(page.Data), "active_only", opts.ActiveOnly)
	return &page, nil
}

// Delete removes a workflow. Deleting one that is already gone is a
// NotFoundError.
func (c *Client) Delete(ctx context.Context, id string) error {
	_, err := c.do(ctx, request{
		operation: "delete",
		method:    http.MethodDelete,
		path:      workflowPath(id),
		auth:      true,
	})
	if err != nil {
		return notFound(id, err)
	}

	c.logger.Info("Deleted workflow", "id", id)
	return nil
}

// Activate enables the workflow's triggers.
func (c *Client) Activate(ctx context.Context, id string) (*models.Workflow, error) {
	return c.toggle(ctx, id, "activate")
}

// Deactivate disables the workflow's triggers.
func (c *Client) Deactivate(ctx context.Context, id string) (*models.Workflow, error) {
	return c.toggle(ctx, id, "deactivate")
}

func (c *Client) toggle(ctx context.Context, id, action string) (*models.Workflow, error) {
	var wf models.Workflow
	err := c.doJSON(ctx, request{
		operation: action,
		method:    http.MethodPost,
		path:      workflowPath(id, action),
		auth:      true,
	}, &wf)
	if err != nil {
		return nil, notFound(id, err)
	}

	msg := "Activated workflow"
	if action == "deactivate" {
		msg = "Deactivated workflow"
	}
	c.logger.Info(msg, "id", id, "active", wf.Active)
	return &wf, nil
}

// SetActive toggles the active flag with a partial update instead of the
// activate/deactivate endpoints.
func (c *Client) SetActive(ctx context.Context, id string, active bool) (*models.Workflow, error) {
	var wf models.Workflow
	err := c.doJSON(ctx, request{
		operation: "set_active",
		method:    http.MethodPatch,
		path:      workflowPath(id),
		body:      map[string]bool{"active": active},
		auth:      true,
	}, &wf)
	if err != nil {
		return nil, notFound(id, err)
	}

	c.logger.Info("Patched workflow", "id", id, "active", wf.Active)
	return &wf, nil
}

// Execute runs a workflow through the /execute endpoint.
//
// Deprecated: many n8n versions do not serve /execute. Activate the
// workflow and call TriggerWebhook instead.
func (c *Client) Execute(ctx context.Context, id string) (json.RawMessage, error) {
	var result json.RawMessage
	err := c.doJSON(ctx, request{
		operation: "execute",
		method:    http.MethodPost,
		path:      workflowPath(id, "execute"),
		body:      struct{}{},
		auth:      true,
	}, &result)
	if err != nil {
		return nil, notFound(id, err)
	}

	c.logger.Info("Executed workflow", "id", id)
	return result, nil
}
