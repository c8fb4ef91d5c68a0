package settings

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/goccy/go-yaml"
)

// Entry is one key/value pair of a Patch.
type Entry struct {
	Key   Key
	Value any
}

// Patch is a partial settings record. Entries are written in slice order.
type Patch []Entry

// Set returns p with key set to value. A key already present keeps its
// position and takes the new value.
func (p Patch) Set(key Key, value any) Patch {
	for i := range p {
		if p[i].Key == key {
			p[i].Value = value
			return p
		}
	}
	return append(p, Entry{Key: key, Value: value})
}

// Keys returns the keys of p in order.
func (p Patch) Keys() []Key {
	keys := make([]Key, len(p))
	for i, e := range p {
		keys[i] = e.Key
	}
	return keys
}

// Validate checks that every key is known and every value has the right type.
func (p Patch) Validate() error {
	for _, e := range p {
		if _, err := encode(e.Key, e.Value); err != nil {
			return err
		}
	}
	return nil
}

// MarshalJSON encodes p as a JSON object with keys in slice order.
func (p Patch) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, e := range p {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(string(e.Key))
		if err != nil {
			return nil, err
		}
		v, err := json.Marshal(e.Value)
		if err != nil {
			return nil, fmt.Errorf("encoding %s: %w", e.Key, err)
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// ParsePatch decodes a JSON object into a Patch, keeping the order in which
// keys appear in the document.
func ParsePatch(data []byte) (Patch, error) {
	dec := json.NewDecoder(bytes.NewReader(data))

	tok, err := dec.Token()
	if err != nil {
		return nil, fmt.Errorf("reading settings object: %w", err)
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, fmt.Errorf("settings must be a JSON object")
	}

	var p Patch
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("reading settings key: %w", err)
		}
		name, _ := tok.(string)
		key, ok := LookupKey(name)
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownKey, name)
		}

		var v any
		if err := dec.Decode(&v); err != nil {
			return nil, fmt.Errorf("reading value for %s: %w", key, err)
		}
		p = p.Set(key, v)
	}

	if _, err := dec.Token(); err != nil {
		return nil, fmt.Errorf("reading settings object: %w", err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("unexpected data after settings object")
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

// ParseYAMLPatch decodes a YAML mapping into a Patch, keeping document order.
func ParseYAMLPatch(data []byte) (Patch, error) {
	var ms yaml.MapSlice
	if err := yaml.Unmarshal(data, &ms); err != nil {
		return nil, fmt.Errorf("parsing settings YAML: %w", err)
	}

	var p Patch
	for _, item := range ms {
		name := fmt.Sprint(item.Key)
		key, ok := LookupKey(name)
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownKey, name)
		}
		p = p.Set(key, item.Value)
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}
