// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"fmt"
	"path/filepath"
	"strings"
)

// ManifestFormat selects how the manifest is serialized.
type ManifestFormat string

const (
	FormatJSON ManifestFormat = "json"
	FormatYAML ManifestFormat = "yaml"
)

// ParseManifestFormat accepts "json", "yaml" or "yml" in any case. An empty
// string selects JSON.
func ParseManifestFormat(s string) (ManifestFormat, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "json":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("unsupported manifest format %q: use json or yaml", s)
	}
}

// FormatForPath infers the manifest format from a file extension.
func FormatForPath(path string) ManifestFormat {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatJSON
	}
}

// Defaults for the extraction stage. They reproduce the fixed layout the
// tool has always used, so a bare invocation needs no flags.
const (
	DefaultPDFsDir      = "data/pdfs"
	DefaultImagesDir    = "data/images"
	DefaultManifestPath = "data/processed/images-mapping.json"
	DefaultCatalogPath  = "data/processed/images.db"
	DefaultPreviewLimit = 5
)

// ExtractionConfig holds settings for the extraction stage.
type ExtractionConfig struct {
	// PDFsDir is the input directory scanned (non-recursively) for *.pdf files.
	PDFsDir string `json:"pdfs_dir" yaml:"pdfs_dir"`

	// ImagesDir is the directory extracted image files are written to.
	ImagesDir string `json:"images_dir" yaml:"images_dir"`

	// ManifestPath is where the mapping is written.
	ManifestPath string `json:"manifest_path" yaml:"manifest_path"`

	// ManifestFormat selects json or yaml output.
	ManifestFormat ManifestFormat `json:"manifest_format" yaml:"manifest_format"`

	// PreviewLimit caps the number of documents shown in the summary preview.
	PreviewLimit int `json:"preview_limit" yaml:"preview_limit"`

	// Prune removes generated images left over from earlier runs that no
	// longer appear in the manifest.
	Prune bool `json:"prune" yaml:"prune"`

	// Relaxed opens PDFs with relaxed validation.
	Relaxed bool `json:"relaxed" yaml:"relaxed"`

	// ReportPath, when set, receives a Markdown report of the run.
	ReportPath string `json:"report_path,omitempty" yaml:"report_path,omitempty"`
}

// WithDefaults fills empty fields with the package defaults.
func (c ExtractionConfig) WithDefaults() ExtractionConfig {
	if c.PDFsDir == "" {
		c.PDFsDir = DefaultPDFsDir
	}
	if c.ImagesDir == "" {
		c.ImagesDir = DefaultImagesDir
	}
	if c.ManifestPath == "" {
		c.ManifestPath = DefaultManifestPath
	}
	if c.ManifestFormat == "" {
		c.ManifestFormat = FormatJSON
	}
	if c.PreviewLimit <= 0 {
		c.PreviewLimit = DefaultPreviewLimit
	}
	return c
}

// CatalogConfig holds settings for the image catalog.
type CatalogConfig struct {
	// DBPath is the SQLite database file.
	DBPath string `json:"db_path" yaml:"db_path"`

	// BaseDir is the directory relative record paths are resolved against.
	// Empty means the working directory.
	BaseDir string `json:"base_dir,omitempty" yaml:"base_dir,omitempty"`
}
