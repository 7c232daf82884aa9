package n8n

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"n8n-workflows/pkg/models"
)

// normalizeMethod upper-cases method, defaulting to GET, and rejects
// anything a webhook trigger cannot be called with.
func normalizeMethod(method string) (string, error) {
	m := strings.ToUpper(strings.TrimSpace(method))
	switch m {
	case "":
		return http.MethodGet, nil
	case http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete:
		return m, nil
	default:
		return "", &UnsupportedMethodError{Method: method}
	}
}

// WebhookURL returns the production URL of the webhook at path.
func (c *Client) WebhookURL(path string) string {
	return c.baseURL + webhookPrefix + strings.TrimLeft(path, "/")
}

// TriggerWebhook starts a workflow execution by calling its webhook. The
// body is sent as JSON for POST and PUT only, and no API key is sent. The
// response body is returned undecoded; it is nil when the server answered
// with an empty body.
func (c *Client) TriggerWebhook(ctx context.Context, path, method string, body interface{}) (json.RawMessage, error) {
	m, err := normalizeMethod(method)
	if err != nil {
		return nil, err
	}
	path = strings.TrimLeft(strings.TrimSpace(path), "/")
	if path == "" {
		return nil, ErrEmptyWebhookPath
	}
	if m == http.MethodGet || m == http.MethodDelete {
		body = nil
	}

	raw, err := c.do(ctx, request{
		operation: "trigger_webhook",
		method:    m,
		path:      webhookPrefix + path,
		body:      body,
	})
	if err != nil {
		return nil, err
	}

	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		c.logger.Info("Executed webhook", "path", path, "method", m)
		return nil, nil
	}
	if !json.Valid(raw) {
		return nil, fmt.Errorf("webhook %s returned a non-JSON body", path)
	}

	c.logger.Info("Executed webhook", "path", path, "method", m)
	return json.RawMessage(raw), nil
}

// ResolveWebhookPath fetches the workflow and returns the path of its first
// webhook trigger node. It reports false when there is none.
func (c *Client) ResolveWebhookPath(ctx context.Context, id string) (string, bool, error) {
	wf, err := c.Get(ctx, id)
	if err != nil {
		return "", false, err
	}
	path, ok := wf.WebhookPath()
	return path, ok, nil
}

// DeployOptions tunes DeployAndRun.
type DeployOptions struct {
	// WebhookPath skips looking the path up on the deployed workflow.
	WebhookPath string
	// Method defaults to GET.
	Method string
	Body   interface{}
}

// DeployError reports which step of a deploy-and-run failed. WorkflowID is
// set once the workflow exists on the server; it is not removed again.
type DeployError struct {
	Step       string
	WorkflowID string
	Err        error
}

func (e *DeployError) Error() string {
	if e.WorkflowID == "" {
		return fmt.Sprintf("deploy: %s: %v", e.Step, e.Err)
	}
	return fmt.Sprintf("deploy: %s workflow %s: %v", e.Step, e.WorkflowID, e.Err)
}

func (e *DeployError) Unwrap() error {
	return e.Err
}

// DeployAndRun creates the workflow, activates it, finds its webhook path
// unless one is given, and triggers it. Steps run in order and stop at the
// first failure without undoing earlier ones.
func (c *Client) DeployAndRun(ctx context.Context, definition *models.Document, opts DeployOptions) (*models.DeployResult, error) {
	method, err := normalizeMethod(opts.Method)
	if err != nil {
		return nil, &DeployError{Step: "trigger", Err: err}
	}

	wf, err := c.Create(ctx, definition)
	if err != nil {
		return nil, &DeployError{Step: "create", Err: err}
	}

	if _, err := c.Activate(ctx, wf.ID); err != nil {
		return nil, &DeployError{Step: "activate", WorkflowID: wf.ID, Err: err}
	}

	path := strings.TrimLeft(opts.WebhookPath, "/")
	if path == "" {
		p, ok, err := c.ResolveWebhookPath(ctx, wf.ID)
		if err != nil {
			return nil, &DeployError{Step: "resolve", WorkflowID: wf.ID, Err: err}
		}
		if !ok {
			return nil, &DeployError{Step: "resolve", WorkflowID: wf.ID, Err: &NoWebhookTriggerError{WorkflowID: wf.ID}}
		}
		path = p
	}

	result, err := c.TriggerWebhook(ctx, path, method, opts.Body)
	if err != nil {
		return nil, &DeployError{Step: "trigger", WorkflowID: wf.ID, Err: err}
	}

	return &models.DeployResult{
		WorkflowID:      wf.ID,
		WorkflowName:    wf.Name,
		WebhookURL:      c.WebhookURL(path),
		ExecutionResult: result,
	}, nil
}
