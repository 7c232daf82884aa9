package services

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"n8n-workflows/internal/n8n"
	"n8n-workflows/internal/repository"
	"n8n-workflows/internal/workflowfile"
	"n8n-workflows/pkg/models"
)

// ErrNoHistory is returned by history lookups when no store is configured.
var ErrNoHistory = errors.New("deployment history is not configured")

// DeployService deploys workflows and keeps a history of the runs.
type DeployService struct {
	client WorkflowAPI
	store  repository.DeploymentStore
	logger n8n.Logger
}

// NewDeployService creates a new DeployService. store may be nil, in which
// case deployments are not recorded.
func NewDeployService(client WorkflowAPI, store repository.DeploymentStore, logger n8n.Logger) *DeployService {
	return &DeployService{
		client: client,
		store:  store,
		logger: logger,
	}
}

// Client returns the underlying workflow API.
func (s *DeployService) Client() WorkflowAPI {
	return s.client
}

// DeployAndRun runs the deploy sequence and records its outcome. A failure
// to record is logged but does not change the result.
func (s *DeployService) DeployAndRun(ctx context.Context, definition *models.Document, opts n8n.DeployOptions) (*models.DeployResult, error) {
	result, err := s.client.DeployAndRun(ctx, definition, opts)

	deployment := &models.Deployment{
		ID:           uuid.New().String(),
		WorkflowName: definition.String("name"),
	}
	if err != nil {
		deployment.Status = models.DeploymentFailed
		deployment.Error = err.Error()
		var de *n8n.DeployError
		if errors.As(err, &de) {
			deployment.WorkflowID = de.WorkflowID
		}
	} else {
		deployment.Status = models.DeploymentSucceeded
		deployment.WorkflowID = result.WorkflowID
		deployment.WorkflowName = result.WorkflowName
		deployment.WebhookURL = result.WebhookURL
		deployment.Result = result.ExecutionResult
	}
	s.record(ctx, deployment)

	return result, err
}

// DeployFile loads and validates the definition at path before deploying it.
func (s *DeployService) DeployFile(ctx context.Context, path string, opts n8n.DeployOptions) (*models.DeployResult, error) {
	definition, err := workflowfile.Load(path)
	if err != nil {
		return nil, err
	}
	if err := workflowfile.Validate(definition); err != nil {
		return nil, err
	}
	return s.DeployAndRun(ctx, definition, opts)
}

// History returns recent deployments, newest first.
func (s *DeployService) History(ctx context.Context, limit int) ([]*models.Deployment, error) {
	if s.store == nil {
		return nil, ErrNoHistory
	}
	return s.store.ListDeployments(ctx, limit)
}

// Deployment returns one recorded deployment.
func (s *DeployService) Deployment(ctx context.Context, id string) (*models.Deployment, error) {
	if s.store == nil {
		return nil, ErrNoHistory
	}
	return s.store.GetDeployment(ctx, id)
}

func (s *DeployService) record(ctx context.Context, d *models.Deployment) {
	if s.store == nil {
		return
	}
	if err := s.store.SaveDeployment(ctx, d); err != nil {
		s.logger.Warn("Failed to record deployment", "deployment_id", d.ID, "error", err)
		return
	}
	s.logger.Debug("Recorded deployment", "deployment_id", d.ID, "status", d.Status)
}
