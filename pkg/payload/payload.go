// Package payload assembles the flat JSON object each feedback form submits.
//
// One generic assembler is driven by a per-form Spec: an ordered field map,
// validation rules and media slots. The resulting Payload keeps keys in the
// order the Spec lists them and never holds null values.
package payload

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Payload is an ordered JSON object.
type Payload struct {
	keys   []string
	values map[string]any
}

// New creates an empty payload.
func New() *Payload {
	return &Payload{values: make(map[string]any)}
}

// Set stores v under key. A new key is appended; an existing key keeps its
// position. A nil v is stored as "".
func (p *Payload) Set(key string, v any) {
	if v == nil {
		v = ""
	}
	if _, ok := p.values[key]; !ok {
		p.keys = append(p.keys, key)
	}
	p.values[key] = v
}

// Get returns the value stored under key.
func (p *Payload) Get(key string) (any, bool) {
	v, ok := p.values[key]
	return v, ok
}

// String returns the value under key if it is a string.
func (p *Payload) String(key string) string {
	s, _ := p.values[key].(string)
	return s
}

// Keys returns the keys in insertion order.
func (p *Payload) Keys() []string {
	return append([]string(nil), p.keys...)
}

func (p *Payload) Len() int { return len(p.keys) }

// MarshalJSON writes the object with keys in insertion order and without HTML escaping.
func (p *Payload) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)

	buf.WriteByte('{')
	for i, k := range p.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := enc.Encode(k); err != nil {
			return nil, fmt.Errorf("failed to encode key %q: %w", k, err)
		}
		trimNewline(&buf)
		buf.WriteByte(':')
		if err := enc.Encode(p.values[k]); err != nil {
			return nil, fmt.Errorf("failed to encode %q: %w", k, err)
		}
		trimNewline(&buf)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func trimNewline(buf *bytes.Buffer) {
	if n := buf.Len(); n > 0 && buf.Bytes()[n-1] == '\n' {
		buf.Truncate(n - 1)
	}
}
