package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"n8n-workflows/internal/n8n"
	"n8n-workflows/internal/workflowfile"
	"n8n-workflows/pkg/models"
)

// DeploymentRequest is the body of POST /api/v1/deployments. A missing
// definition deploys the bundled Hello World workflow.
type DeploymentRequest struct {
	Definition  *models.Document `json:"definition,omitempty"`
	WebhookPath string           `json:"webhook_path,omitempty"`
	Method      string           `json:"method,omitempty"`
	Body        json.RawMessage  `json:"body,omitempty"`
}

// CreateDeployment deploys, activates and triggers a workflow
// (POST /api/v1/deployments)
func (h *Handler) CreateDeployment(c echo.Context) error {
	var req DeploymentRequest
	if err := json.NewDecoder(c.Request().Body).Decode(&req); err != nil {
		return badRequest(c, "Invalid request body: "+err.Error())
	}

	definition := req.Definition
	if definition == nil {
		definition = workflowfile.HelloWorld()
	} else if err := workflowfile.Validate(definition); err != nil {
		return problem(c, err)
	}

	opts := n8n.DeployOptions{WebhookPath: req.WebhookPath, Method: req.Method}
	if len(req.Body) > 0 {
		opts.Body = req.Body
	}

	result, err := h.deployService.DeployAndRun(c.Request().Context(), definition, opts)
	if err != nil {
		return problem(c, err)
	}
	return c.JSON(http.StatusCreated, result)
}

// ListDeployments returns recent deploy-and-run attempts, newest first
// (GET /api/v1/deployments?limit=N)
func (h *Handler) ListDeployments(c echo.Context) error {
	limit := 0
	if l := c.QueryParam("limit"); l != "" {
		n, err := strconv.Atoi(l)
		if err != nil {
			return badRequest(c, "limit must be an integer")
		}
		limit = n
	}

	deployments, err := h.deployService.History(c.Request().Context(), limit)
	if err != nil {
		return problem(c, err)
	}
	return c.JSON(http.StatusOK, deployments)
}

// GetDeployment returns one deploy-and-run attempt
// (GET /api/v1/deployments/:id)
func (h *Handler) GetDeployment(c echo.Context) error {
	d, err := h.deployService.Deployment(c.Request().Context(), c.Param("id"))
	if err != nil {
		return problem(c, err)
	}
	return c.JSON(http.StatusOK, d)
}
