package repository

import (
	"context"
	"errors"

	"n8n-workflows/pkg/models"
)

// ErrNotFound is returned when a deployment does not exist.
var ErrNotFound = errors.New("deployment not found")

// DeploymentStore is an interface for recording deploy-and-run history.
type DeploymentStore interface {
	// EnsureSchema creates the deployments table if it is missing.
	EnsureSchema(ctx context.Context) error
	// SaveDeployment saves a deployment to the store.
	SaveDeployment(ctx context.Context, d *models.Deployment) error
	// GetDeployment retrieves a deployment by its ID.
	GetDeployment(ctx context.Context, id string) (*models.Deployment, error)
	// ListDeployments returns the most recent deployments, newest first.
	ListDeployments(ctx context.Context, limit int) ([]*models.Deployment, error)
	// Ping checks that the store is reachable.
	Ping(ctx context.Context) error
}
