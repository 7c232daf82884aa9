package models

import (
	"encoding/json"
	"reflect"
	"strings"
)

// WebhookNodeType is the node type n8n uses for webhook triggers.
const WebhookNodeType = "n8n-nodes-base.webhook"

// Workflow is a typed view over a workflow document returned by n8n.
// Only the fields below are interpreted; every other field stays in the
// underlying document and is written back unchanged by MarshalJSON.
type Workflow struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Active bool   `json:"active"`
	Nodes  []Node `json:"nodes"`

	doc *Document
}

// workflowView has Workflow's fields without its methods.
type workflowView Workflow

// UnmarshalJSON implements json.Unmarshaler.
func (w *Workflow) UnmarshalJSON(data []byte) error {
	doc, err := ParseDocument(data)
	if err != nil {
		return err
	}
	var v workflowView
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*w = Workflow(v)
	w.doc = doc
	return nil
}

// MarshalJSON writes the document the workflow was decoded from with the
// typed fields applied on top. A workflow built in code is marshalled from
// its typed fields.
func (w Workflow) MarshalJSON() ([]byte, error) {
	if w.doc != nil {
		doc, err := w.merged()
		if err != nil {
			return nil, err
		}
		return doc.MarshalJSON()
	}
	return json.Marshal(workflowView(w))
}

// Document returns a copy of the full workflow document including any
// changes made to the typed fields, suitable for editing and passing back
// to an update.
func (w *Workflow) Document() *Document {
	if w.doc == nil {
		data, err := json.Marshal(workflowView(*w))
		if err != nil {
			return NewDocument()
		}
		doc, err := ParseDocument(data)
		if err != nil {
			return NewDocument()
		}
		return doc
	}
	doc, err := w.merged()
	if err != nil {
		return w.doc.Clone()
	}
	return doc
}

// merged copies the stored document and writes back every typed field that
// differs from it. Unchanged fields keep their original bytes; changed keys
// keep their position.
func (w Workflow) merged() (*Document, error) {
	doc := w.doc.Clone()

	data, err := doc.MarshalJSON()
	if err != nil {
		return nil, err
	}
	var orig workflowView
	if err := json.Unmarshal(data, &orig); err != nil {
		return nil, err
	}

	if w.ID != orig.ID {
		if err := doc.Set("id", w.ID); err != nil {
			return nil, err
		}
	}
	if w.Name != orig.Name {
		if err := doc.Set("name", w.Name); err != nil {
			return nil, err
		}
	}
	if w.Active != orig.Active {
		if err := doc.Set("active", w.Active); err != nil {
			return nil, err
		}
	}
	if !reflect.DeepEqual(w.Nodes, orig.Nodes) {
		nodes, err := mergeNodes(doc, w.Nodes, orig.Nodes)
		if err != nil {
			return nil, err
		}
		if err := doc.Set("nodes", nodes); err != nil {
			return nil, err
		}
	}
	return doc, nil
}

// mergeNodes applies typed node changes to the raw node objects so fields
// such as position and typeVersion survive an edit. A node is matched to its
// raw object by name, or by index when it was renamed in place.
func mergeNodes(doc *Document, nodes, orig []Node) ([]json.RawMessage, error) {
	var raw []json.RawMessage
	if _, err := doc.Decode("nodes", &raw); err != nil {
		return nil, err
	}

	byName := make(map[string]int, len(orig))
	for i := len(orig) - 1; i >= 0; i-- {
		byName[orig[i].Name] = i
	}
	kept := make(map[string]bool, len(nodes))
	for _, n := range nodes {
		kept[n.Name] = true
	}

	out := make([]json.RawMessage, 0, len(nodes))
	for i, n := range nodes {
		j, ok := byName[n.Name]
		if !ok && i < len(orig) && !kept[orig[i].Name] {
			j, ok = i, true
		}
		if !ok || j >= len(raw) {
			b, err := json.Marshal(n)
			if err != nil {
				return nil, err
			}
			out = append(out, b)
			continue
		}
		if reflect.DeepEqual(n, orig[j]) {
			out = append(out, raw[j])
			continue
		}

		nd, err := ParseDocument(raw[j])
		if err != nil {
			b, err := json.Marshal(n)
			if err != nil {
				return nil, err
			}
			out = append(out, b)
			continue
		}
		if n.Name != orig[j].Name {
			if err := nd.Set("name", n.Name); err != nil {
				return nil, err
			}
		}
		if n.Type != orig[j].Type {
			if err := nd.Set("type", n.Type); err != nil {
				return nil, err
			}
		}
		if n.WebhookID != orig[j].WebhookID {
			if n.WebhookID == "" {
				nd.Delete("webhookId")
			} else if err := nd.Set("webhookId", n.WebhookID); err != nil {
				return nil, err
			}
		}
		if !reflect.DeepEqual(n.Parameters, orig[j].Parameters) {
			if err := nd.Set("parameters", n.Parameters); err != nil {
				return nil, err
			}
		}
		b, err := nd.MarshalJSON()
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, nil
}

// WebhookPath returns the path of the first webhook trigger node that has
// one, and false if there is none. A webhook node with neither a path nor a
// webhook id is skipped in favour of a later one.
func (w *Workflow) WebhookPath() (string, bool) {
	for _, n := range w.Nodes {
		if !n.IsWebhookTrigger() {
			continue
		}
		if p := n.WebhookPath(); p != "" {
			return p, true
		}
	}
	return "", false
}

// Node is a single step of a workflow.
type Node struct {
	Name       string                 `json:"name"`
	Type       string                 `json:"type"`
	WebhookID  string                 `json:"webhookId,omitempty"`
	Parameters map[string]interface{} `json:"parameters"`
}

// IsWebhookTrigger reports whether the node exposes a /webhook endpoint.
func (n Node) IsWebhookTrigger() bool {
	return n.Type == "webhook" || strings.HasSuffix(n.Type, ".webhook")
}

// WebhookPath returns the configured path, falling back to the webhook id
// n8n serves a path-less webhook node under.
func (n Node) WebhookPath() string {
	if p, ok := n.Parameters["path"].(string); ok {
		if p = strings.Trim(p, "/"); p != "" {
			return p
		}
	}
	return n.WebhookID
}

// HTTPMethod returns the method a webhook node listens on.
func (n Node) HTTPMethod() string {
	if m, ok := n.Parameters["httpMethod"].(string); ok && m != "" {
		return strings.ToUpper(m)
	}
	return "GET"
}

// WorkflowPage is one page of a workflow listing.
type WorkflowPage struct {
	Data       []Workflow `json:"data"`
	NextCursor string     `json:"nextCursor,omitempty"`
}

// DeployResult is returned by a deploy-and-run.
type DeployResult struct {
	WorkflowID      string          `json:"workflow_id"`
	WorkflowName    string          `json:"workflow_name"`
	WebhookURL      string          `json:"webhook_url"`
	ExecutionResult json.RawMessage `json:"execution_result"`
}
