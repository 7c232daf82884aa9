// Package workflowfile reads, writes and checks workflow definitions kept
// as local JSON files.
package workflowfile

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"n8n-workflows/pkg/models"
)

//go:embed examples/hello-world.json
var helloWorld []byte

// HelloWorld returns the bundled webhook-triggered Hello World workflow,
// served at /webhook/hello-world once deployed and active.
func HelloWorld() *models.Document {
	doc, err := models.ParseDocument(helloWorld)
	if err != nil {
		panic("workflowfile: bundled hello-world.json is invalid: " + err.Error())
	}
	return doc
}

// HelloWorldPath is the webhook path of HelloWorld.
const HelloWorldPath = "hello-world"

// Load reads a workflow definition from path.
func Load(path string) (*models.Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("workflow JSON file not found: %s: %w", path, err)
		}
		return nil, err
	}
	doc, err := models.ParseDocument(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return doc, nil
}

// Save writes v as indented JSON, creating parent directories as needed.
func Save(path string, v interface{}) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", path, err)
	}
	return os.WriteFile(path, append(data, '\n'), 0644)
}

// ValidationError lists every structural problem found in a definition.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	if len(e.Problems) == 1 {
		return "invalid workflow: " + e.Problems[0]
	}
	return fmt.Sprintf("invalid workflow: %d problems, first: %s", len(e.Problems), e.Problems[0])
}

// Validate checks the shape n8n requires before accepting a workflow: a
// name, a nodes array whose entries have a name and a type, and connections
// and settings objects. Node names must be unique because connections refer
// to nodes by name.
func Validate(doc *models.Document) error {
	var problems []string

	var name string
	if ok, err := doc.Decode("name", &name); !ok || err != nil || name == "" {
		problems = append(problems, "name must be a non-empty string")
	}

	var nodes []map[string]json.RawMessage
	if ok, err := doc.Decode("nodes", &nodes); !ok || err != nil || nodes == nil {
		problems = append(problems, "nodes must be an array of objects")
	}
	seen := make(map[string]bool)
	for i, n := range nodes {
		var nodeName, nodeType string
		if json.Unmarshal(n["name"], &nodeName) != nil || nodeName == "" {
			problems = append(problems, fmt.Sprintf("nodes[%d] has no name", i))
		} else if seen[nodeName] {
			problems = append(problems, fmt.Sprintf("nodes[%d] duplicates name %q", i, nodeName))
		}
		seen[nodeName] = true
		if json.Unmarshal(n["type"], &nodeType) != nil || nodeType == "" {
			problems = append(problems, fmt.Sprintf("nodes[%d] has no type", i))
		}
	}

	for _, key := range []string{"connections", "settings"} {
		var obj map[string]json.RawMessage
		if ok, err := doc.Decode(key, &obj); !ok || err != nil || obj == nil {
			problems = append(problems, key+" must be an object")
		}
	}

	var connections map[string]json.RawMessage
	if _, err := doc.Decode("connections", &connections); err == nil && len(nodes) > 0 {
		from := make([]string, 0, len(connections))
		for name := range connections {
			from = append(from, name)
		}
		sort.Strings(from)
		for _, from := range from {
			if !seen[from] {
				problems = append(problems, fmt.Sprintf("connections refer to unknown node %q", from))
			}
		}
	}

	if len(problems) > 0 {
		return &ValidationError{Problems: problems}
	}
	return nil
}
