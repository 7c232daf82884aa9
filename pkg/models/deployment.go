package models

import (
	"encoding/json"
	"time"
)

// DeploymentStatus is the outcome of a recorded deploy-and-run.
type DeploymentStatus string

const (
	DeploymentSucceeded DeploymentStatus = "succeeded"
	DeploymentFailed    DeploymentStatus = "failed"
)

// Deployment is one row of deploy-and-run history.
type Deployment struct {
	ID           string           `json:"id"`
	WorkflowID   string           `json:"workflow_id,omitempty"`
	WorkflowName string           `json:"workflow_name"`
	WebhookURL   string           `json:"webhook_url,omitempty"`
	Status       DeploymentStatus `json:"status"`
	Error        string           `json:"error,omitempty"`
	Result       json.RawMessage  `json:"result,omitempty"`
	CreatedAt    time.Time        `json:"created_at"`
}
