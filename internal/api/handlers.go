package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"n8n-workflows/internal/n8n"
	"n8n-workflows/internal/repository"
	"n8n-workflows/internal/services"
	"n8n-workflows/internal/workflowfile"
)

// Handler contains HTTP handlers for the deployment service REST API
type Handler struct {
	deployService *services.DeployService
	store         repository.DeploymentStore
	version       string
}

// NewHandler creates a new Handler with required dependencies. store may be
// nil when history is disabled.
func NewHandler(deployService *services.DeployService, store repository.DeploymentStore, version string) *Handler {
	return &Handler{deployService: deployService, store: store, version: version}
}

// RegisterHandlers mounts the REST API on g.
func RegisterHandlers(g *echo.Group, h *Handler) {
	g.GET("/workflows", h.ListWorkflows)
	g.GET("/workflows/:id", h.GetWorkflow)
	g.GET("/workflows/:id/webhook", h.GetWebhookURL)
	g.POST("/deployments", h.CreateDeployment)
	g.GET("/deployments", h.ListDeployments)
	g.GET("/deployments/:id", h.GetDeployment)
}

// HealthStatus represents the health check response
type HealthStatus struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Service   string    `json:"service"`
	Version   string    `json:"version"`
	Database  string    `json:"database,omitempty"`
}

// HandleHealth returns the service status. It answers 503 when the history
// database is configured but unreachable.
func (h *Handler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	status := HealthStatus{
		Status:    "ok",
		Timestamp: time.Now(),
		Service:   "n8n-workflows",
		Version:   h.version,
	}
	code := http.StatusOK
	if h.store != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		status.Database = "ok"
		if err := h.store.Ping(ctx); err != nil {
			status.Status = "degraded"
			status.Database = err.Error()
			code = http.StatusServiceUnavailable
		}
	}
	writeJSON(w, code, status)
}

// writeJSON writes a JSON response with the given status code
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		// Log error but can't change response at this point
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
	}
}

// ProblemDetails represents an RFC 7807 Problem Details response
type ProblemDetails struct {
	Type     string `json:"type"`
	Title    string `json:"title"`
	Status   int    `json:"status"`
	Detail   string `json:"detail"`
	Instance string `json:"instance,omitempty"`
}

// writeError writes an RFC 7807 Problem Details JSON error response
func writeError(w http.ResponseWriter, status int, title, detail string) {
	problem := ProblemDetails{
		Type:   "about:blank",
		Title:  title,
		Status: status,
		Detail: detail,
	}
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(problem)
}

func badRequest(c echo.Context, detail string) error {
	writeError(c.Response(), http.StatusBadRequest, http.StatusText(http.StatusBadRequest), detail)
	return nil
}

// problem writes err as Problem Details, choosing the status from its type.
func problem(c echo.Context, err error) error {
	status := http.StatusBadGateway
	var ume *n8n.UnsupportedMethodError
	var ve *workflowfile.ValidationError
	var nwt *n8n.NoWebhookTriggerError
	switch {
	case n8n.IsNotFound(err), errors.Is(err, repository.ErrNotFound):
		status = http.StatusNotFound
	case errors.As(err, &ume), errors.As(err, &ve):
		status = http.StatusBadRequest
	case errors.As(err, &nwt):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, services.ErrNoHistory):
		status = http.StatusNotImplemented
	case errors.Is(err, context.DeadlineExceeded):
		status = http.StatusGatewayTimeout
	}

	writeError(c.Response(), status, http.StatusText(status), err.Error())
	return nil
}
