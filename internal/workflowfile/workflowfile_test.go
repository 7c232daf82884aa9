package workflowfile

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"n8n-workflows/pkg/models"
)

func TestHelloWorld(t *testing.T) {
	doc := HelloWorld()
	require.NoError(t, Validate(doc))
	assert.Equal(t, "Hello World", doc.String("name"))

	data, err := doc.MarshalJSON()
	require.NoError(t, err)
	var wf models.Workflow
	require.NoError(t, wf.UnmarshalJSON(data))

	path, ok := wf.WebhookPath()
	assert.True(t, ok)
	assert.Equal(t, HelloWorldPath, path)

	// Each call hands out an independent copy.
	require.NoError(t, doc.Set("name", "changed"))
	assert.Equal(t, "Hello World", HelloWorld().String("name"))
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.json"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, os.ErrNotExist))
	assert.Contains(t, err.Error(), "workflow JSON file not found")
}

func TestLoadRejectsNonObject(t *testing.T) {
	path := filepath.Join(t.TempDir(), "list.json")
	require.NoError(t, os.WriteFile(path, []byte(`[1, 2]`), 0644))

	_, err := Load(path)
	assert.ErrorIs(t, err, models.ErrNotObject)
}

func TestSaveThenLoadKeepsKeyOrder(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "wf.json")
	require.NoError(t, Save(path, HelloWorld()))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "\n  \"nodes\": [")

	doc, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"name", "nodes", "connections", "settings"}, doc.Keys())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		problems []string
	}{
		{
			name:  "minimal",
			input: `{"name":"x","nodes":[],"connections":{},"settings":{}}`,
		},
		{
			name:     "missing everything",
			input:    `{}`,
			problems: []string{"name must be a non-empty string", "nodes must be an array of objects", "connections must be an object", "settings must be an object"},
		},
		{
			name:     "nodes without name or type",
			input:    `{"name":"x","nodes":[{"type":"a"},{"name":"b"}],"connections":{},"settings":{}}`,
			problems: []string{"nodes[0] has no name", "nodes[1] has no type"},
		},
		{
			name:     "duplicate node names",
			input:    `{"name":"x","nodes":[{"name":"a","type":"t"},{"name":"a","type":"t"}],"connections":{},"settings":{}}`,
			problems: []string{`nodes[1] duplicates name "a"`},
		},
		{
			name:     "dangling connection",
			input:    `{"name":"x","nodes":[{"name":"a","type":"t"}],"connections":{"ghost":{}},"settings":{}}`,
			problems: []string{`connections refer to unknown node "ghost"`},
		},
		{
			name:     "several dangling connections are listed by name",
			input:    `{"name":"x","nodes":[{"name":"a","type":"t"}],"connections":{"zeta":{},"a":{},"alpha":{},"mid":{}},"settings":{}}`,
			problems: []string{`connections refer to unknown node "alpha"`, `connections refer to unknown node "mid"`, `connections refer to unknown node "zeta"`},
		},
		{
			name:     "wrong types",
			input:    `{"name":3,"nodes":{},"connections":[],"settings":"v1"}`,
			problems: []string{"name must be a non-empty string", "nodes must be an array of objects", "connections must be an object", "settings must be an object"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc, err := models.ParseDocument([]byte(tt.input))
			require.NoError(t, err)

			err = Validate(doc)
			if tt.problems == nil {
				assert.NoError(t, err)
				return
			}
			var ve *ValidationError
			require.ErrorAs(t, err, &ve)
			assert.Equal(t, tt.problems, ve.Problems)
		})
	}
}
