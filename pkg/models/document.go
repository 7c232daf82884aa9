package models

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// ErrNotObject is returned when a Document is unmarshalled from anything
// other than a JSON object.
var ErrNotObject = errors.New("document must be a JSON object")

// Document is a JSON object whose keys keep the order they were read in.
// Values are held as raw JSON so fields the client does not understand are
// written back byte for byte.
type Document struct {
	fields *orderedmap.OrderedMap[string, json.RawMessage]
}

// NewDocument returns an empty document.
func NewDocument() *Document {
	return &Document{fields: orderedmap.New[string, json.RawMessage]()}
}

// ParseDocument decodes a JSON object.
func ParseDocument(data []byte) (*Document, error) {
	doc := NewDocument()
	if err := doc.UnmarshalJSON(data); err != nil {
		return nil, err
	}
	return doc, nil
}

// UnmarshalJSON implements json.Unmarshaler.
func (d *Document) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return ErrNotObject
	}
	fields := orderedmap.New[string, json.RawMessage]()
	if err := fields.UnmarshalJSON(trimmed); err != nil {
		return fmt.Errorf("failed to decode document: %w", err)
	}
	d.fields = fields
	return nil
}

// MarshalJSON implements json.Marshaler.
func (d *Document) MarshalJSON() ([]byte, error) {
	if d == nil || d.fields == nil || d.fields.Len() == 0 {
		return []byte("{}"), nil
	}
	return d.fields.MarshalJSON()
}

// Len returns the number of top-level keys.
func (d *Document) Len() int {
	if d == nil || d.fields == nil {
		return 0
	}
	return d.fields.Len()
}

// Keys returns the top-level keys in document order.
func (d *Document) Keys() []string {
	if d == nil || d.fields == nil {
		return nil
	}
	keys := make([]string, 0, d.fields.Len())
	for pair := d.fields.Oldest(); pair != nil; pair = pair.Next() {
		keys = append(keys, pair.Key)
	}
	return keys
}

// Has reports whether key is present.
func (d *Document) Has(key string) bool {
	_, ok := d.Raw(key)
	return ok
}

// Raw returns the undecoded value stored under key.
func (d *Document) Raw(key string) (json.RawMessage, bool) {
	if d == nil || d.fields == nil {
		return nil, false
	}
	return d.fields.Get(key)
}

// Decode unmarshals the value under key into dst. It reports false, without
// touching dst, when the key is absent.
func (d *Document) Decode(key string, dst interface{}) (bool, error) {
	raw, ok := d.Raw(key)
	if !ok {
		return false, nil
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return true, fmt.Errorf("field %q: %w", key, err)
	}
	return true, nil
}

// String returns the value under key if it is a JSON string.
func (d *Document) String(key string) string {
	var s string
	if ok, err := d.Decode(key, &s); !ok || err != nil {
		return ""
	}
	return s
}

// Set stores value under key. An existing key keeps its position; a new key
// is appended.
func (d *Document) Set(key string, value interface{}) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("field %q: %w", key, err)
	}
	if d.fields == nil {
		d.fields = orderedmap.New[string, json.RawMessage]()
	}
	d.fields.Set(key, raw)
	return nil
}

// Delete removes key, reporting whether it was present.
func (d *Document) Delete(key string) bool {
	if d == nil || d.fields == nil {
		return false
	}
	_, ok := d.fields.Delete(key)
	return ok
}

// Clone returns a deep copy.
func (d *Document) Clone() *Document {
	out := NewDocument()
	if d == nil || d.fields == nil {
		return out
	}
	for pair := d.fields.Oldest(); pair != nil; pair = pair.Next() {
		out.fields.Set(pair.Key, append(json.RawMessage(nil), pair.Value...))
	}
	return out
}
