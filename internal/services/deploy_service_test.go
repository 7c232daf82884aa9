package services

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"n8n-workflows/internal/n8n"
	"n8n-workflows/internal/repository"
	"n8n-workflows/internal/workflowfile"
	"n8n-workflows/pkg/models"
)

// NoOpLogger for testing
type NoOpLogger struct{}

func (l *NoOpLogger) Debug(msg string, args ...any) {}
func (l *NoOpLogger) Info(msg string, args ...any)  {}
func (l *NoOpLogger) Warn(msg string, args ...any)  {}
func (l *NoOpLogger) Error(msg string, args ...any) {}

// MockWorkflowAPI satisfies WorkflowAPI
type MockWorkflowAPI struct {
	mock.Mock
}

func (m *MockWorkflowAPI) DeployAndRun(ctx context.Context, definition *models.Document, opts n8n.DeployOptions) (*models.DeployResult, error) {
	args := m.Called(ctx, definition, opts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.DeployResult), args.Error(1)
}

// Stubs for the rest of the interface
func (m *MockWorkflowAPI) List(ctx context.Context, opts n8n.ListOptions) ([]models.Workflow, error) {
	return nil, nil
}
func (m *MockWorkflowAPI) Get(ctx context.Context, id string) (*models.Workflow, error) {
	return nil, nil
}
func (m *MockWorkflowAPI) Activate(ctx context.Context, id string) (*models.Workflow, error) {
	return nil, nil
}
func (m *MockWorkflowAPI) Deactivate(ctx context.Context, id string) (*models.Workflow, error) {
	return nil, nil
}
func (m *MockWorkflowAPI) TriggerWebhook(ctx context.Context, path, method string, body interface{}) (json.RawMessage, error) {
	return nil, nil
}
func (m *MockWorkflowAPI) ResolveWebhookPath(ctx context.Context, id string) (string, bool, error) {
	return "", false, nil
}
func (m *MockWorkflowAPI) WebhookURL(path string) string { return "http://n8n/webhook/" + path }

// failingStore fails every write.
type failingStore struct {
	*repository.MemoryDeploymentStore
}

func (failingStore) SaveDeployment(ctx context.Context, d *models.Deployment) error {
	return errors.New("disk full")
}

func TestDeployService_RecordsSuccess(t *testing.T) {
	api := new(MockWorkflowAPI)
	store := repository.NewMemoryDeploymentStore()
	svc := NewDeployService(api, store, &NoOpLogger{})

	doc := workflowfile.HelloWorld()
	api.On("DeployAndRun", mock.Anything, doc, n8n.DeployOptions{}).Return(&models.DeployResult{
		WorkflowID:      "wf1",
		WorkflowName:    "Hello World",
		WebhookURL:      "http://n8n/webhook/hello-world",
		ExecutionResult: json.RawMessage(`{"message":"Hello World!"}`),
	}, nil)

	result, err := svc.DeployAndRun(context.Background(), doc, n8n.DeployOptions{})
	require.NoError(t, err)
	assert.Equal(t, "wf1", result.WorkflowID)
	api.AssertExpectations(t)

	history, err := svc.History(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, models.DeploymentSucceeded, history[0].Status)
	assert.Equal(t, "wf1", history[0].WorkflowID)
	assert.Equal(t, "http://n8n/webhook/hello-world", history[0].WebhookURL)
	assert.JSONEq(t, `{"message":"Hello World!"}`, string(history[0].Result))

	got, err := svc.Deployment(context.Background(), history[0].ID)
	require.NoError(t, err)
	assert.Equal(t, history[0].ID, got.ID)
}

func TestDeployService_RecordsFailureWithWorkflowID(t *testing.T) {
	api := new(MockWorkflowAPI)
	store := repository.NewMemoryDeploymentStore()
	svc := NewDeployService(api, store, &NoOpLogger{})

	deployErr := &n8n.DeployError{
		Step:       "resolve",
		WorkflowID: "wf2",
		Err:        &n8n.NoWebhookTriggerError{WorkflowID: "wf2"},
	}
	api.On("DeployAndRun", mock.Anything, mock.Anything, mock.Anything).Return(nil, deployErr)

	_, err := svc.DeployAndRun(context.Background(), workflowfile.HelloWorld(), n8n.DeployOptions{})
	var nwt *n8n.NoWebhookTriggerError
	require.ErrorAs(t, err, &nwt)

	history, err := svc.History(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, models.DeploymentFailed, history[0].Status)
	assert.Equal(t, "wf2", history[0].WorkflowID)
	assert.Equal(t, "Hello World", history[0].WorkflowName)
	assert.Equal(t, deployErr.Error(), history[0].Error)
}

func TestDeployService_StoreFailureDoesNotFailDeploy(t *testing.T) {
	api := new(MockWorkflowAPI)
	svc := NewDeployService(api, failingStore{repository.NewMemoryDeploymentStore()}, &NoOpLogger{})

	api.On("DeployAndRun", mock.Anything, mock.Anything, mock.Anything).Return(&models.DeployResult{WorkflowID: "wf1"}, nil)

	_, err := svc.DeployAndRun(context.Background(), workflowfile.HelloWorld(), n8n.DeployOptions{})
	assert.NoError(t, err)
}

func TestDeployService_WithoutStore(t *testing.T) {
	api := new(MockWorkflowAPI)
	svc := NewDeployService(api, nil, &NoOpLogger{})

	api.On("DeployAndRun", mock.Anything, mock.Anything, mock.Anything).Return(&models.DeployResult{WorkflowID: "wf1"}, nil)

	_, err := svc.DeployAndRun(context.Background(), workflowfile.HelloWorld(), n8n.DeployOptions{})
	require.NoError(t, err)

	_, err = svc.History(context.Background(), 10)
	assert.ErrorIs(t, err, ErrNoHistory)
	_, err = svc.Deployment(context.Background(), "x")
	assert.ErrorIs(t, err, ErrNoHistory)
}

func TestDeployService_DeployFileValidatesFirst(t *testing.T) {
	api := new(MockWorkflowAPI)
	svc := NewDeployService(api, nil, &NoOpLogger{})

	path := filepath.Join(t.TempDir(), "broken.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"name":"broken"}`), 0644))

	_, err := svc.DeployFile(context.Background(), path, n8n.DeployOptions{})
	var ve *workflowfile.ValidationError
	require.ErrorAs(t, err, &ve)
	api.AssertNotCalled(t, "DeployAndRun", mock.Anything, mock.Anything, mock.Anything)

	_, err = svc.DeployFile(context.Background(), filepath.Join(t.TempDir(), "missing.json"), n8n.DeployOptions{})
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestDeployService_DeployFile(t *testing.T) {
	api := new(MockWorkflowAPI)
	svc := NewDeployService(api, nil, &NoOpLogger{})

	path := filepath.Join(t.TempDir(), "hello.json")
	require.NoError(t, workflowfile.Save(path, workflowfile.HelloWorld()))

	opts := n8n.DeployOptions{Method: "POST", Body: map[string]string{"user": "Burke"}}
	api.On("DeployAndRun", mock.Anything, mock.AnythingOfType("*models.Document"), opts).Return(&models.DeployResult{WorkflowID: "wf1"}, nil)

	result, err := svc.DeployFile(context.Background(), path, opts)
	require.NoError(t, err)
	assert.Equal(t, "wf1", result.WorkflowID)
	api.AssertExpectations(t)
}
