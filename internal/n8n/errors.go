package n8n

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// ErrEmptyWebhookPath is returned when a webhook trigger is requested
// without a path.
var ErrEmptyWebhookPath = errors.New("webhook path must not be empty")

// ConfigurationError means the client cannot be built from the given
// settings.
type ConfigurationError struct {
	Reason string
}

func (e *ConfigurationError) Error() string {
	return "n8n configuration: " + e.Reason
}

// RemoteError is a non-2xx response from the n8n server.
type RemoteError struct {
	Method     string
	URL        string
	StatusCode int
	Status     string
	Body       string
	// Message is the server's "message" field, when the body carried one.
	Message string
}

func (e *RemoteError) Error() string {
	s := fmt.Sprintf("%s %s: %s", e.Method, e.URL, e.Status)
	if e.Status == "" {
		s = fmt.Sprintf("%s %s: status %d", e.Method, e.URL, e.StatusCode)
	}
	if e.Message != "" {
		s += ": " + e.Message
	}
	return s
}

// NotFoundError means the workflow addressed by ID does not exist.
type NotFoundError struct {
	ID     string
	Remote *RemoteError
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("workflow %s not found", e.ID)
}

func (e *NotFoundError) Unwrap() error {
	return e.Remote
}

// UnsupportedMethodError is returned for webhook methods other than GET,
// POST, PUT and DELETE.
type UnsupportedMethodError struct {
	Method string
}

func (e *UnsupportedMethodError) Error() string {
	return fmt.Sprintf("unsupported webhook method %q", e.Method)
}

// NoWebhookTriggerError is returned by DeployAndRun when no webhook path was
// given and the deployed workflow has no webhook trigger node. The workflow
// stays on the server, active.
type NoWebhookTriggerError struct {
	WorkflowID string
}

func (e *NoWebhookTriggerError) Error() string {
	return fmt.Sprintf("workflow %s has no webhook trigger", e.WorkflowID)
}

// IsNotFound reports whether err is, or wraps, a NotFoundError.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

// StatusCode returns the HTTP status carried by err, or 0.
func StatusCode(err error) int {
	var re *RemoteError
	if errors.As(err, &re) {
		return re.StatusCode
	}
	return 0
}

// newRemoteError builds a RemoteError from a response whose body has been
// read into body.
func newRemoteError(req *http.Request, resp *http.Response, body []byte) *RemoteError {
	e := &RemoteError{
		Method:     req.Method,
		URL:        req.URL.String(),
		StatusCode: resp.StatusCode,
		Status:     resp.Status,
		Body:       strings.TrimSpace(string(body)),
	}
	var errResp struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if json.Unmarshal(body, &errResp) == nil {
		e.Message = errResp.Message
		if e.Message == "" {
			e.Message = errResp.Error
		}
	}
	return e
}

// notFound converts a 404 on an ID-addressed call into a NotFoundError.
func notFound(id string, err error) error {
	var re *RemoteError
	if errors.As(err, &re) && re.StatusCode == http.StatusNotFound {
		return &NotFoundError{ID: id, Remote: re}
	}
	return err
}
