// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package manifest

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/pdiddy/image-extractor/pkg/types"
)

// ErrInvalid is wrapped by every schema violation returned from Validate.
var ErrInvalid = errors.New("manifest does not match schema")

//go:embed schema.json
var schemaJSON []byte

var compileSchema = sync.OnceValues(func() (*jsonschema.Schema, error) {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("manifest.schema.json", bytes.NewReader(schemaJSON)); err != nil {
		return nil, fmt.Errorf("loading manifest schema: %w", err)
	}
	schema, err := compiler.Compile("manifest.schema.json")
	if err != nil {
		return nil, fmt.Errorf("compiling manifest schema: %w", err)
	}
	return schema, nil
})

// Validate checks raw JSON manifest bytes against the manifest schema.
func Validate(data []byte) error {
	schema, err := compileSchema()
	if err != nil {
		return err
	}

	var doc any
	if err := json.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	if err := schema.Validate(doc); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	return nil
}

// ValidateFile validates the manifest at path. YAML manifests are converted
// to JSON first.
func ValidateFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading manifest %s: %w", path, err)
	}
	if types.FormatForPath(path) == types.FormatYAML {
		m, err := Decode(data, types.FormatYAML)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrInvalid, err)
		}
		if data, err = Encode(m, types.FormatJSON); err != nil {
			return err
		}
	}
	return Validate(data)
}

// Problem describes one inconsistency found by Verify.
type Problem struct {
	Document string
	Message  string
}

func (p Problem) String() string {
	return p.Document + ": " + p.Message
}

// Verify checks the invariants a manifest written by this tool always
// holds: counts match the image lists, pages and indices are 1-based and
// unique, filenames are unique, and every recorded file exists. Relative
// record paths are resolved against baseDir.
func Verify(m *types.Mapping, baseDir string) []Problem {
	var problems []Problem
	seen := make(map[string]string)

	for _, name := range m.Keys() {
		entry, _ := m.Get(name)
		add := func(format string, args ...any) {
			problems = append(problems, Problem{Document: name, Message: fmt.Sprintf(format, args...)})
		}

		if entry.TotalImages != len(entry.Images) {
			add("total_images is %d but %d images are listed", entry.TotalImages, len(entry.Images))
		}

		positions := make(map[[2]int]bool)
		for _, rec := range entry.Images {
			if rec.Page < 1 || rec.Index < 1 {
				add("%s has page %d index %d; both must be 1-based", rec.Filename, rec.Page, rec.Index)
			}
			pos := [2]int{rec.Page, rec.Index}
			if positions[pos] {
				add("page %d index %d is listed twice", rec.Page, rec.Index)
			}
			positions[pos] = true

			if other, dup := seen[rec.Filename]; dup {
				add("%s is also recorded under %s", rec.Filename, other)
			}
			seen[rec.Filename] = name

			path := filepath.FromSlash(rec.Path)
			if !filepath.IsAbs(path) {
				path = filepath.Join(baseDir, path)
			}
			if _, err := os.Stat(path); err != nil {
				add("%s: file missing at %s", rec.Filename, rec.Path)
			}
		}
	}
	return problems
}
