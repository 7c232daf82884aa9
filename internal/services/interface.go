package services

import (
	"context"
	"encoding/json"

	"n8n-workflows/internal/n8n"
	"n8n-workflows/pkg/models"
)

// WorkflowAPI is the part of the n8n client the services depend on.
type WorkflowAPI interface {
	List(ctx context.Context, opts n8n.ListOptions) ([]models.Workflow, error)
	Get(ctx context.Context, id string) (*models.Workflow, error)
	Activate(ctx context.Context, id string) (*models.Workflow, error)
	Deactivate(ctx context.Context, id string) (*models.Workflow, error)
	TriggerWebhook(ctx context.Context, path, method string, body interface{}) (json.RawMessage, error)
	ResolveWebhookPath(ctx context.Context, id string) (string, bool, error)
	WebhookURL(path string) string
	DeployAndRun(ctx context.Context, definition *models.Document, opts n8n.DeployOptions) (*models.DeployResult, error)
}

var _ WorkflowAPI = (*n8n.Client)(nil)
