// Package document reads and writes framework documents as JSON or YAML.
//
// YAML is a second spelling of the JSON shape: the YAML tree is decoded to
// generic values, re-encoded as JSON and then parsed by the widget package,
// so both formats share one set of decoding rules.
package document

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/HendryAvila/deepframe/internal/widget"
	"gopkg.in/yaml.v3"
)

// Format is a document encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

var validFormats = map[Format]bool{
	FormatJSON: true,
	FormatYAML: true,
}

// ParseFormat accepts "json", "yaml" or "yml" in any case.
func ParseFormat(s string) (Format, error) {
	f := Format(strings.ToLower(strings.TrimSpace(s)))
	if f == "yml" {
		f = FormatYAML
	}
	if !validFormats[f] {
		return "", fmt.Errorf("unknown document format %q (valid: json, yaml)", s)
	}
	return f, nil
}

// FormatFromPath picks the format from a file extension. Anything that is
// not .yaml or .yml is treated as JSON.
func FormatFromPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatJSON
	}
}

// Decode parses a framework document.
func Decode(data []byte, format Format) (*widget.Framework, error) {
	if format == FormatYAML {
		converted, err := yamlToJSON(data)
		if err != nil {
			return nil, err
		}
		data = converted
	}
	var f widget.Framework
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("decoding framework document: %w", err)
	}
	return &f, nil
}

// Encode serializes f. JSON output is indented.
func Encode(f *widget.Framework, format Format) ([]byte, error) {
	data, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encoding framework %q: %w", f.ID, err)
	}
	if format != FormatYAML {
		return append(data, '\n'), nil
	}
	var tree any
	if err := json.Unmarshal(data, &tree); err != nil {
		return nil, fmt.Errorf("encoding framework %q: %w", f.ID, err)
	}
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(tree); err != nil {
		return nil, fmt.Errorf("encoding framework %q as yaml: %w", f.ID, err)
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Load reads a framework document from disk, choosing the format from the
// file extension.
func Load(path string) (*widget.Framework, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	f, err := Decode(data, FormatFromPath(path))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return f, nil
}

// Write stores f at path, creating parent directories as needed.
func Write(path string, f *widget.Framework) error {
	data, err := Encode(f, FormatFromPath(path))
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating directory for %s: %w", path, err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return os.Rename(tmp, path)
}

func yamlToJSON(data []byte) ([]byte, error) {
	var tree any
	if err := yaml.Unmarshal(data, &tree); err != nil {
		return nil, fmt.Errorf("parsing yaml document: %w", err)
	}
	if tree == nil {
		return nil, fmt.Errorf("parsing yaml document: empty document")
	}
	normalized, err := normalize(tree)
	if err != nil {
		return nil, err
	}
	return json.Marshal(normalized)
}

// normalize rewrites yaml's map[any]any nodes, which encoding/json cannot
// marshal, into string-keyed maps.
func normalize(v any) (any, error) {
	switch t := v.(type) {
	case map[string]any:
		for k, child := range t {
			n, err := normalize(child)
			if err != nil {
				return nil, err
			}
			t[k] = n
		}
		return t, nil
	case map[any]any:
		out := make(map[string]any, len(t))
		for k, child := range t {
			key, ok := k.(string)
			if !ok {
				return nil, fmt.Errorf("parsing yaml document: non-string key %v", k)
			}
			n, err := normalize(child)
			if err != nil {
				return nil, err
			}
			out[key] = n
		}
		return out, nil
	case []any:
		for i, child := range t {
			n, err := normalize(child)
			if err != nil {
				return nil, err
			}
			t[i] = n
		}
		return t, nil
	default:
		return v, nil
	}
}
