// Package api contains the HTTP handlers for the deployment service
package api

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"n8n-workflows/internal/n8n"
)

type workflowSummary struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Active bool   `json:"active"`
}

// ListWorkflows returns the workflows on the n8n instance
// (GET /api/v1/workflows?active=true&limit=N)
func (h *Handler) ListWorkflows(c echo.Context) error {
	ctx := c.Request().Context()

	opts := n8n.ListOptions{ActiveOnly: c.QueryParam("active") == "true"}
	if l := c.QueryParam("limit"); l != "" {
		limit, err := strconv.Atoi(l)
		if err != nil || limit < 0 {
			return badRequest(c, "limit must be a non-negative integer")
		}
		opts.Limit = limit
	}

	workflows, err := h.deployService.Client().List(ctx, opts)
	if err != nil {
		return problem(c, err)
	}

	out := make([]workflowSummary, 0, len(workflows))
	for _, wf := range workflows {
		out = append(out, workflowSummary{ID: wf.ID, Name: wf.Name, Active: wf.Active})
	}
	return c.JSON(http.StatusOK, out)
}

// GetWorkflow returns a full workflow definition
// (GET /api/v1/workflows/:id)
func (h *Handler) GetWorkflow(c echo.Context) error {
	wf, err := h.deployService.Client().Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		return problem(c, err)
	}
	return c.JSON(http.StatusOK, wf)
}

// GetWebhookURL returns the production webhook URL of a workflow
// (GET /api/v1/workflows/:id/webhook)
func (h *Handler) GetWebhookURL(c echo.Context) error {
	id := c.Param("id")
	client := h.deployService.Client()

	path, ok, err := client.ResolveWebhookPath(c.Request().Context(), id)
	if err != nil {
		return problem(c, err)
	}
	if !ok {
		return problem(c, &n8n.NoWebhookTriggerError{WorkflowID: id})
	}
	return c.JSON(http.StatusOK, map[string]string{
		"path":        path,
		"webhook_url": client.WebhookURL(path),
	})
}
