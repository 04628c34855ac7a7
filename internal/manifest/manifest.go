// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package manifest persists the extraction mapping and checks manifests
// written by earlier runs.
package manifest

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/image-extractor/pkg/types"
)

// Encode serializes m in the given format. JSON output is indented with two
// spaces and leaves non-ASCII and HTML characters unescaped.
func Encode(m *types.Mapping, format types.ManifestFormat) ([]byte, error) {
	switch format {
	case types.FormatYAML:
		data, err := yaml.Marshal(m)
		if err != nil {
			return nil, fmt.Errorf("marshaling YAML: %w", err)
		}
		return data, nil
	case types.FormatJSON, "":
		var buf bytes.Buffer
		enc := json.NewEncoder(&buf)
		enc.SetEscapeHTML(false)
		enc.SetIndent("", "  ")
		if err := enc.Encode(m); err != nil {
			return nil, fmt.Errorf("marshaling JSON: %w", err)
		}
		return buf.Bytes(), nil
	default:
		return nil, fmt.Errorf("unsupported manifest format %q", format)
	}
}

// Write encodes m and replaces the file at path, creating its directory if
// needed.
func Write(path string, m *types.Mapping, format types.ManifestFormat) error {
	data, err := Encode(m, format)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating manifest directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing manifest %s: %w", path, err)
	}
	return nil
}

// Read loads a manifest, choosing the decoder from the file extension.
func Read(path string) (*types.Mapping, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading manifest %s: %w", path, err)
	}
	return Decode(data, types.FormatForPath(path))
}

// Decode parses manifest bytes in the given format.
func Decode(data []byte, format types.ManifestFormat) (*types.Mapping, error) {
	m := types.NewMapping()
	switch format {
	case types.FormatYAML:
		if err := yaml.Unmarshal(data, m); err != nil {
			return nil, fmt.Errorf("parsing YAML manifest: %w", err)
		}
	default:
		if err := json.Unmarshal(data, m); err != nil {
			return nil, fmt.Errorf("parsing JSON manifest: %w", err)
		}
	}
	return m, nil
}
