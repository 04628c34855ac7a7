// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package extract

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"

	"github.com/pdiddy/image-extractor/pkg/types"
)

// generatedName matches names produced by ImageFilename and captures the stem.
var generatedName = regexp.MustCompile(`^(.+)_page\d+_img\d+\.[A-Za-z0-9]+$`)

// Prune deletes generated image files in imagesDir that no record in m
// references. Files whose stem is in keepStems are left alone, so images
// of documents that failed this run survive until they are re-extracted.
// Files not following the generated naming scheme are never touched.
// It returns the removed paths.
func Prune(imagesDir string, m *types.Mapping, keepStems map[string]bool) ([]string, error) {
	entries, err := os.ReadDir(imagesDir)
	if err != nil {
		return nil, fmt.Errorf("reading images directory %s: %w", imagesDir, err)
	}

	referenced := make(map[string]bool)
	for _, name := range m.Keys() {
		entry, _ := m.Get(name)
		for _, rec := range entry.Images {
			referenced[rec.Filename] = true
		}
	}

	var removed []string
	for _, e := range entries {
		if e.IsDir() || referenced[e.Name()] {
			continue
		}
		match := generatedName.FindStringSubmatch(e.Name())
		if match == nil || keepStems[match[1]] {
			continue
		}
		path := filepath.Join(imagesDir, e.Name())
		if err := os.Remove(path); err != nil {
			return removed, fmt.Errorf("removing %s: %w", path, err)
		}
		removed = append(removed, path)
	}
	return removed, nil
}
