// Package codec provides the serialization formats persisted values are
// written in.
//
// Every format exposes a serialize and an unserialize function with the
// signatures the engine accepts as options. The key argument names the slice
// (or "rootState") being encoded; the built-in formats ignore it.
package codec

import (
	"bytes"
	"encoding/json"
	"fmt"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"
)

// Codec pairs a serialize and unserialize function under a name.
type Codec struct {
	Name        string
	Serialize   func(value any, key string) ([]byte, error)
	Unserialize func(data []byte, key string) (any, error)
}

// Format names accepted by ByName.
const (
	FormatJSON      = "json"
	FormatCanonical = "canonical"
	FormatYAML      = "yaml"
)

var codecs = map[string]Codec{
	FormatJSON:      {Name: FormatJSON, Serialize: SerializeJSON, Unserialize: UnserializeJSON},
	FormatCanonical: {Name: FormatCanonical, Serialize: SerializeCanonical, Unserialize: UnserializeJSON},
	FormatYAML:      {Name: FormatYAML, Serialize: SerializeYAML, Unserialize: UnserializeYAML},
}

// ByName returns the codec registered under name. An empty name selects JSON.
func ByName(name string) (Codec, error) {
	if name == "" {
		name = FormatJSON
	}
	c, ok := codecs[strings.ToLower(name)]
	if !ok {
		return Codec{}, fmt.Errorf("codec: unknown format %q (want one of %s)", name, strings.Join(Names(), ", "))
	}
	return c, nil
}

// Names lists the registered formats in sorted order.
func Names() []string {
	names := make([]string, 0, len(codecs))
	for n := range codecs {
		names = append(names, n)
	}
	slices.Sort(names)
	return names
}

// SerializeJSON encodes value as compact JSON without HTML escaping.
func SerializeJSON(value any, _ string) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(value); err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

// UnserializeJSON decodes JSON into generic values: objects become
// map[string]any, arrays []any, numbers float64.
func UnserializeJSON(data []byte, _ string) (any, error) {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, err
	}
	return v, nil
}

// SerializeYAML encodes value as a YAML document.
func SerializeYAML(value any, _ string) ([]byte, error) {
	return yaml.Marshal(value)
}

// UnserializeYAML decodes a YAML document into generic values.
func UnserializeYAML(data []byte, _ string) (any, error) {
	var v any
	if err := yaml.Unmarshal(data, &v); err != nil {
		return nil, err
	}
	return v, nil
}
