package n8n

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"n8n-workflows/internal/n8n/n8ntest"
	"n8n-workflows/pkg/models"
)

const testAPIKey = "test-api-key"

const helloWorld = `{
  "name": "Hello World",
  "nodes": [
    {
      "parameters": {"path": "hello-world", "responseMode": "lastNode"},
      "name": "Webhook",
      "type": "n8n-nodes-base.webhook",
      "typeVersion": 1,
      "position": [250, 300]
    },
    {
      "parameters": {"values": {"string": [{"name": "message", "value": "Hello World!"}]}},
      "name": "Set",
      "type": "n8n-nodes-base.set",
      "typeVersion": 1,
      "position": [450, 300]
    }
  ],
  "connections": {"Webhook": {"main": [[{"node": "Set", "type": "main", "index": 0}]]}},
  "settings": {"executionOrder": "v1"}
}`

const noWebhook = `{
  "name": "Manual only",
  "nodes": [{"parameters": {}, "name": "Start", "type": "n8n-nodes-base.manualTrigger", "typeVersion": 1, "position": [0, 0]}],
  "connections": {},
  "settings": {}
}`

func newTestClient(t *testing.T) (*Client, *n8ntest.Server) {
	t.Helper()
	srv := n8ntest.NewServer(testAPIKey)
	t.Cleanup(srv.Close)

	c, err := New(srv.URL, testAPIKey)
	require.NoError(t, err)
	return c, srv
}

func mustDocument(t *testing.T, s string) *models.Document {
	t.Helper()
	doc, err := models.ParseDocument([]byte(s))
	require.NoError(t, err)
	return doc
}

func TestNew_RequiresAPIKey(t *testing.T) {
	for _, key := range []string{"", "   ", PlaceholderAPIKey} {
		_, err := New("", key)
		var cfgErr *ConfigurationError
		assert.ErrorAs(t, err, &cfgErr, "key %q", key)
	}

	c, err := New("", "k")
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:5678", c.BaseURL())

	c, err = New("http://n8n:5678/api/v1/", "k")
	require.NoError(t, err)
	assert.Equal(t, "http://n8n:5678", c.BaseURL())
}

func TestClient_CreateAssignsFreshIDs(t *testing.T) {
	c, srv := newTestClient(t)
	ctx := context.Background()

	first, err := c.Create(ctx, mustDocument(t, helloWorld))
	require.NoError(t, err)
	second, err := c.Create(ctx, mustDocument(t, helloWorld))
	require.NoError(t, err)

	assert.NotEmpty(t, first.ID)
	assert.NotEqual(t, first.ID, second.ID)
	assert.Equal(t, "Hello World", first.Name)
	require.Len(t, first.Nodes, 2)
	assert.Equal(t, "Webhook", first.Nodes[0].Name)
	assert.Equal(t, 2, srv.Len())

	for _, r := range srv.Requests() {
		assert.Equal(t, testAPIKey, r.APIKey)
	}
}

func TestClient_CreateSendsDefinitionVerbatim(t *testing.T) {
	c, srv := newTestClient(t)

	_, err := c.Create(context.Background(), mustDocument(t, helloWorld))
	require.NoError(t, err)

	reqs := srv.Requests()
	require.Len(t, reqs, 1)
	sent, err := models.ParseDocument(reqs[0].Body)
	require.NoError(t, err)
	assert.Equal(t, []string{"name", "nodes", "connections", "settings"}, sent.Keys())
}

func TestClient_GetMatchesCreated(t *testing.T) {
	c, _ := newTestClient(t)
	ctx := context.Background()

	created, err := c.Create(ctx, mustDocument(t, helloWorld))
	require.NoError(t, err)

	got, err := c.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.ID, got.ID)
	assert.Equal(t, created.Name, got.Name)
	assert.Equal(t, created.Nodes, got.Nodes)

	doc := got.Document()
	assert.True(t, doc.Has("connections"))
	assert.True(t, doc.Has("settings"))
}

func TestClient_UpdateReplacesAndPassesThroughFields(t *testing.T) {
	c, srv := newTestClient(t)
	ctx := context.Background()

	created, err := c.Create(ctx, mustDocument(t, helloWorld))
	require.NoError(t, err)

	doc := created.Document()
	require.NoError(t, doc.Set("name", "Hello Again"))
	updated, err := c.Update(ctx, created.ID, doc)
	require.NoError(t, err)
	assert.Equal(t, "Hello Again", updated.Name)

	stored, ok := srv.Workflow(created.ID)
	require.True(t, ok)
	assert.Equal(t, "Hello Again", stored.Name)
	assert.Equal(t, created.Nodes, stored.Nodes)
}

func TestClient_UpdateUnknownID(t *testing.T) {
	c, _ := newTestClient(t)

	_, err := c.Update(context.Background(), "missing", mustDocument(t, helloWorld))
	var nf *NotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, "missing", nf.ID)

	var re *RemoteError
	require.ErrorAs(t, err, &re)
	assert.Equal(t, http.StatusNotFound, re.StatusCode)
}

func TestClient_CreateRejectsNilDefinition(t *testing.T) {
	c, srv := newTestClient(t)
	_, err := c.Create(context.Background(), nil)
	assert.ErrorIs(t, err, ErrNoDefinition)
	assert.Empty(t, srv.Requests())
}

func TestClient_DeleteThenGetIsNotFound(t *testing.T) {
	c, _ := newTestClient(t)
	ctx := context.Background()

	created, err := c.Create(ctx, mustDocument(t, helloWorld))
	require.NoError(t, err)

	require.NoError(t, c.Delete(ctx, created.ID))

	_, err = c.Get(ctx, created.ID)
	assert.True(t, IsNotFound(err))

	err = c.Delete(ctx, created.ID)
	assert.True(t, IsNotFound(err), "deleting twice reports not found")
}

func TestClient_ActivateDeactivate(t *testing.T) {
	c, _ := newTestClient(t)
	ctx := context.Background()

	created, err := c.Create(ctx, mustDocument(t, helloWorld))
	require.NoError(t, err)
	assert.False(t, created.Active)

	wf, err := c.Activate(ctx, created.ID)
	require.NoError(t, err)
	assert.True(t, wf.Active)
	got, err := c.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.True(t, got.Active)

	_, err = c.Deactivate(ctx, created.ID)
	require.NoError(t, err)
	got, err = c.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.False(t, got.Active)

	_, err = c.Activate(ctx, "missing")
	assert.True(t, IsNotFound(err))
}

func TestClient_SetActiveUsesPatch(t *testing.T) {
	c, srv := newTestClient(t)
	ctx := context.Background()

	created, err := c.Create(ctx, mustDocument(t, helloWorld))
	require.NoError(t, err)

	wf, err := c.SetActive(ctx, created.ID, true)
	require.NoError(t, err)
	assert.True(t, wf.Active)
	assert.Equal(t, 1, srv.CountRequests(http.MethodPatch, "/api/v1/workflows/"+created.ID))
}

func TestClient_List(t *testing.T) {
	c, _ := newTestClient(t)
	ctx := context.Background()

	a, err := c.Create(ctx, mustDocument(t, helloWorld))
	require.NoError(t, err)
	_, err = c.Create(ctx, mustDocument(t, noWebhook))
	require.NoError(t, err)
	_, err = c.Activate(ctx, a.ID)
	require.NoError(t, err)

	all, err := c.List(ctx, ListOptions{})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	active, err := c.List(ctx, ListOptions{ActiveOnly: true})
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, a.ID, active[0].ID)

	page, err := c.ListPage(ctx, ListOptions{Limit: 1})
	require.NoError(t, err)
	assert.Len(t, page.Data, 1)
	assert.NotEmpty(t, page.NextCursor)

	next, err := c.ListPage(ctx, ListOptions{Limit: 1, Cursor: page.NextCursor})
	require.NoError(t, err)
	assert.Len(t, next.Data, 1)
	assert.Empty(t, next.NextCursor)
}

func TestClient_WrongAPIKeyIsRemoteError(t *testing.T) {
	srv := n8ntest.NewServer(testAPIKey)
	defer srv.Close()

	c, err := New(srv.URL, "wrong")
	require.NoError(t, err)

	_, err = c.List(context.Background(), ListOptions{})
	var re *RemoteError
	require.ErrorAs(t, err, &re)
	assert.Equal(t, http.StatusUnauthorized, re.StatusCode)
	assert.Equal(t, "unauthorized", re.Message)
	assert.Equal(t, http.StatusUnauthorized, StatusCode(err))
	assert.False(t, IsNotFound(err))
}

func TestClient_ExecuteDeprecatedEndpoint(t *testing.T) {
	c, srv := newTestClient(t)
	ctx := context.Background()

	created, err := c.Create(ctx, mustDocument(t, helloWorld))
	require.NoError(t, err)

	_, err = c.Execute(ctx, created.ID) //nolint:staticcheck
	assert.True(t, IsNotFound(err), "unsupported by default")

	srv.SetExecuteSupported(true)
	result, err := c.Execute(ctx, created.ID) //nolint:staticcheck
	require.NoError(t, err)
	assert.Contains(t, string(result), created.ID)
}

func TestClient_ConnectionFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c, err := New(url, testAPIKey)
	require.NoError(t, err)

	_, err = c.Get(context.Background(), "x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cannot connect to n8n")
	var re *RemoteError
	assert.False(t, errors.As(err, &re))
}

func TestClient_InvalidJSONResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html>proxy page</html>"))
	}))
	defer srv.Close()

	c, err := New(srv.URL, testAPIKey)
	require.NoError(t, err)

	_, err = c.Get(context.Background(), "x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid response from n8n")
}

type recordingLogger struct {
	messages []string
}

func (l *recordingLogger) Debug(msg string, args ...any) {}
func (l *recordingLogger) Info(msg string, args ...any)  { l.messages = append(l.messages, msg) }
func (l *recordingLogger) Warn(msg string, args ...any)  {}
func (l *recordingLogger) Error(msg string, args ...any) {}

func TestClient_LogsConfirmations(t *testing.T) {
	srv := n8ntest.NewServer(testAPIKey)
	defer srv.Close()

	logger := &recordingLogger{}
	c, err := New(srv.URL, testAPIKey, WithLogger(logger))
	require.NoError(t, err)
	ctx := context.Background()

	created, err := c.Create(ctx, mustDocument(t, helloWorld))
	require.NoError(t, err)
	_, err = c.Activate(ctx, created.ID)
	require.NoError(t, err)
	require.NoError(t, c.Delete(ctx, created.ID))

	assert.Equal(t, []string{"Created workflow", "Activated workflow", "Deleted workflow"}, logger.messages)
}

func TestRemoteError_Message(t *testing.T) {
	e := &RemoteError{Method: "GET", URL: "http://x/api/v1/workflows/1", StatusCode: 500, Status: "500 Internal Server Error", Message: "boom"}
	assert.Equal(t, "GET http://x/api/v1/workflows/1: 500 Internal Server Error: boom", e.Error())

}
