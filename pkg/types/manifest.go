// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines shared data structures for the image-extractor:
// the records written to the manifest and the configuration of each stage.
package types

import (
	"bytes"
	"encoding/json"
	"fmt"

	"go.yaml.in/yaml/v3"
)

// ImageRecord describes one image file extracted from a PDF page.
type ImageRecord struct {
	// Filename is the generated name: <stem>_page<N>_img<M>.<ext>.
	Filename string `json:"filename" yaml:"filename"`

	// Page is the 1-based page number the image was found on.
	Page int `json:"page" yaml:"page"`

	// Index is the 1-based position of the image in its page's image list.
	// Indices reflect the original position, so a failed image leaves a gap.
	Index int `json:"index" yaml:"index"`

	// Path is the output path of the written file, slash separated.
	Path string `json:"path" yaml:"path"`
}

// DocumentEntry holds the images extracted from one source PDF.
type DocumentEntry struct {
	// TotalImages is the number of successfully extracted images.
	TotalImages int `json:"total_images" yaml:"total_images"`

	// Images lists the extracted images in page, then index order.
	Images []ImageRecord `json:"images" yaml:"images"`
}

// NewDocumentEntry builds an entry whose count always matches its images.
func NewDocumentEntry(images []ImageRecord) DocumentEntry {
	if images == nil {
		images = []ImageRecord{}
	}
	return DocumentEntry{TotalImages: len(images), Images: images}
}

// Mapping maps source filenames to their DocumentEntry. Keys keep their
// insertion order through JSON and YAML round trips.
type Mapping struct {
	keys    []string
	entries map[string]DocumentEntry
}

// NewMapping returns an empty Mapping.
func NewMapping() *Mapping {
	return &Mapping{entries: make(map[string]DocumentEntry)}
}

// Set inserts or replaces the entry for name. A replaced key keeps its
// original position.
func (m *Mapping) Set(name string, entry DocumentEntry) {
	if m.entries == nil {
		m.entries = make(map[string]DocumentEntry)
	}
	if _, ok := m.entries[name]; !ok {
		m.keys = append(m.keys, name)
	}
	m.entries[name] = entry
}

// Get returns the entry for name.
func (m *Mapping) Get(name string) (DocumentEntry, bool) {
	e, ok := m.entries[name]
	return e, ok
}

// Keys returns the document names in insertion order.
func (m *Mapping) Keys() []string {
	out := make([]string, len(m.keys))
	copy(out, m.keys)
	return out
}

// Len returns the number of documents.
func (m *Mapping) Len() int {
	return len(m.keys)
}

// TotalImages sums TotalImages over all documents.
func (m *Mapping) TotalImages() int {
	total := 0
	for _, k := range m.keys {
		total += m.entries[k].TotalImages
	}
	return total
}

// MarshalJSON writes the mapping as a JSON object in insertion order.
// HTML characters are not escaped so filenames stay readable.
func (m *Mapping) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range m.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := marshalUnescaped(k)
		if err != nil {
			return nil, err
		}
		val, err := marshalUnescaped(m.entries[k])
		if err != nil {
			return nil, fmt.Errorf("encoding entry %q: %w", k, err)
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON reads a JSON object, keeping key order.
func (m *Mapping) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("mapping must be a JSON object, got %v", tok)
	}

	*m = Mapping{entries: make(map[string]DocumentEntry)}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		name, ok := tok.(string)
		if !ok {
			return fmt.Errorf("unexpected mapping key %v", tok)
		}
		var entry DocumentEntry
		if err := dec.Decode(&entry); err != nil {
			return fmt.Errorf("decoding entry %q: %w", name, err)
		}
		m.Set(name, entry)
	}
	_, err = dec.Token()
	return err
}

// MarshalYAML emits an ordered YAML mapping node.
func (m *Mapping) MarshalYAML() (any, error) {
	node := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
	for _, k := range m.keys {
		var val yaml.Node
		if err := val.Encode(m.entries[k]); err != nil {
			return nil, fmt.Errorf("encoding entry %q: %w", k, err)
		}
		node.Content = append(node.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: k},
			&val,
		)
	}
	return node, nil
}

// UnmarshalYAML reads a YAML mapping node, keeping key order.
func (m *Mapping) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("mapping must be a YAML mapping, got kind %d", node.Kind)
	}
	*m = Mapping{entries: make(map[string]DocumentEntry)}
	for i := 0; i+1 < len(node.Content); i += 2 {
		name := node.Content[i].Value
		var entry DocumentEntry
		if err := node.Content[i+1].Decode(&entry); err != nil {
			return fmt.Errorf("decoding entry %q: %w", name, err)
		}
		m.Set(name, entry)
	}
	return nil
}

func marshalUnescaped(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}
