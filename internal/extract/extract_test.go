// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package extract

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/image-extractor/internal/manifest"
	"github.com/pdiddy/image-extractor/internal/pdfsource"
	"github.com/pdiddy/image-extractor/internal/pdfsource/pdftest"
	"github.com/pdiddy/image-extractor/pkg/types"
)

// fakeImage is one embedded image; a non-nil err makes extraction fail.
type fakeImage struct {
	data []byte
	ext  string
	err  error
}

// fakeDoc describes a PDF as a list of pages, each a list of images.
type fakeDoc struct {
	pages    [][]fakeImage
	listErr  map[int]error // 1-based page -> listing error
	openErr  error
	closed   bool
	extracts int
}

func (d *fakeDoc) PageCount() int { return len(d.pages) }

func (d *fakeDoc) PageImages(page int) ([]pdfsource.ImageRef, error) {
	if err := d.listErr[page]; err != nil {
		return nil, err
	}
	refs := make([]pdfsource.ImageRef, len(d.pages[page-1]))
	for i := range refs {
		refs[i] = pdfsource.ImageRef{Page: page, ObjNr: page*100 + i, Name: fmt.Sprintf("Im%d", i)}
	}
	return refs, nil
}

func (d *fakeDoc) ExtractImage(ref pdfsource.ImageRef) (pdfsource.Image, error) {
	d.extracts++
	img := d.pages[ref.Page-1][ref.ObjNr-ref.Page*100]
	if img.err != nil {
		return pdfsource.Image{}, img.err
	}
	return pdfsource.Image{Data: img.data, Ext: img.ext}, nil
}

func (d *fakeDoc) Close() error {
	d.closed = true
	return nil
}

// fakeOpener serves fakeDocs keyed by file base name.
type fakeOpener struct {
	docs map[string]*fakeDoc
}

func (o *fakeOpener) Open(path string) (pdfsource.Document, error) {
	d, ok := o.docs[filepath.Base(path)]
	if !ok {
		return nil, errors.New("unexpected path: " + path)
	}
	if d.openErr != nil {
		return nil, d.openErr
	}
	return d, nil
}

// setupDirs creates an input directory holding empty files with the given
// names and returns a config rooted in a temp dir.
func setupDirs(t *testing.T, names ...string) types.ExtractionConfig {
	t.Helper()
	root := t.TempDir()
	pdfsDir := filepath.Join(root, "data", "pdfs")
	require.NoError(t, os.MkdirAll(pdfsDir, 0o755))
	for _, n := range names {
		require.NoError(t, os.WriteFile(filepath.Join(pdfsDir, n), []byte("pdf"), 0o644))
	}
	return types.ExtractionConfig{
		PDFsDir:      pdfsDir,
		ImagesDir:    filepath.Join(root, "data", "images"),
		ManifestPath: filepath.Join(root, "data", "processed", "images-mapping.json"),
	}
}

func TestImageFilename(t *testing.T) {
	tests := []struct {
		stem  string
		page  int
		index int
		ext   string
		want  string
	}{
		{"manual", 1, 1, "png", "manual_page1_img1.png"},
		{"manual", 12, 3, ".jpg", "manual_page12_img3.jpg"},
		{"scan", 1, 2, "JPX", "scan_page1_img2.JPX"},
		{"año 2024", 2, 1, "tif", "año 2024_page2_img1.tif"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ImageFilename(tt.stem, tt.page, tt.index, tt.ext))
	}
}

func TestListPDFs(t *testing.T) {
	cfg := setupDirs(t, "b.pdf", "a.PDF", "notes.txt", ".hidden.pdf")
	require.NoError(t, os.Mkdir(filepath.Join(cfg.PDFsDir, "nested.pdf"), 0o755))

	paths, err := ListPDFs(cfg.PDFsDir)
	require.NoError(t, err)

	var names []string
	for _, p := range paths {
		names = append(names, filepath.Base(p))
	}
	assert.Equal(t, []string{"a.PDF", "b.pdf"}, names)

	_, err = ListPDFs(filepath.Join(cfg.PDFsDir, "missing"))
	assert.Error(t, err)
}

// TestRunManualAndBroken covers the reference scenario: one PDF with a
// single image on page 1 and an empty page 2, and one PDF that fails to open.
func TestRunManualAndBroken(t *testing.T) {
	cfg := setupDirs(t, "manual.pdf", "broken.pdf")
	manual := &fakeDoc{pages: [][]fakeImage{
		{{data: []byte("PNGDATA"), ext: "png"}},
		{},
	}}
	opener := &fakeOpener{docs: map[string]*fakeDoc{
		"manual.pdf": manual,
		"broken.pdf": {openErr: errors.New("no header")},
	}}

	var log bytes.Buffer
	result, err := Run(context.Background(), opener, cfg, &log, nil)
	require.NoError(t, err)

	assert.Equal(t, 1, result.TotalImages)
	assert.Equal(t, 1, result.Documents())
	assert.Equal(t, 1, result.FailedDocuments)
	assert.Equal(t, 0, result.FailedImages)
	assert.True(t, result.HasFailures())
	assert.True(t, manual.closed, "document must be closed")

	assert.Equal(t, []string{"manual.pdf"}, result.Mapping.Keys())
	entry, _ := result.Mapping.Get("manual.pdf")
	require.Len(t, entry.Images, 1)
	rec := entry.Images[0]
	assert.Equal(t, "manual_page1_img1.png", rec.Filename)
	assert.Equal(t, 1, rec.Page)
	assert.Equal(t, 1, rec.Index)
	assert.Equal(t, filepath.ToSlash(filepath.Join(cfg.ImagesDir, "manual_page1_img1.png")), rec.Path)

	data, err := os.ReadFile(filepath.FromSlash(rec.Path))
	require.NoError(t, err)
	assert.Equal(t, []byte("PNGDATA"), data)

	m, err := manifest.Read(cfg.ManifestPath)
	require.NoError(t, err)
	assert.Equal(t, []string{"manual.pdf"}, m.Keys())

	out := log.String()
	assert.Contains(t, out, "processing: manual.pdf")
	assert.Contains(t, out, "failed:  broken.pdf (no header)")
	assert.Contains(t, out, "extracted 1 image(s)")
}

func TestRunImageFailureKeepsOriginalIndices(t *testing.T) {
	cfg := setupDirs(t, "parts.pdf")
	doc := &fakeDoc{pages: [][]fakeImage{{
		{data: []byte("one"), ext: "jpg"},
		{err: errors.New("bad stream")},
		{data: []byte("three"), ext: "png"},
	}}}
	opener := &fakeOpener{docs: map[string]*fakeDoc{"parts.pdf": doc}}

	var log bytes.Buffer
	result, err := Run(context.Background(), opener, cfg, &log, nil)
	require.NoError(t, err)

	entry, ok := result.Mapping.Get("parts.pdf")
	require.True(t, ok)
	assert.Equal(t, 2, entry.TotalImages)
	require.Len(t, entry.Images, 2)
	assert.Equal(t, 1, entry.Images[0].Index)
	assert.Equal(t, 3, entry.Images[1].Index, "indices reflect original position")
	assert.Equal(t, "parts_page1_img3.png", entry.Images[1].Filename)
	assert.Equal(t, 1, result.FailedImages)
	assert.Contains(t, log.String(), "warning: image 2 on page 1: bad stream")

	_, err = os.Stat(filepath.Join(cfg.ImagesDir, "parts_page1_img2.jpg"))
	assert.True(t, os.IsNotExist(err))
}

func TestRunZeroImageDocumentIsRecorded(t *testing.T) {
	cfg := setupDirs(t, "text-only.pdf")
	opener := &fakeOpener{docs: map[string]*fakeDoc{
		"text-only.pdf": {pages: [][]fakeImage{{}, {}, {}}},
	}}

	result, err := Run(context.Background(), opener, cfg, &bytes.Buffer{}, nil)
	require.NoError(t, err)

	entry, ok := result.Mapping.Get("text-only.pdf")
	require.True(t, ok, "documents without images still appear in the mapping")
	assert.Equal(t, 0, entry.TotalImages)
	assert.NotNil(t, entry.Images)

	data, err := os.ReadFile(cfg.ManifestPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"images": []`)
}

func TestRunPageListingFailureSkipsDocument(t *testing.T) {
	cfg := setupDirs(t, "a.pdf", "b.pdf")
	a := &fakeDoc{
		pages:   [][]fakeImage{{{data: []byte("x"), ext: "png"}}, {}},
		listErr: map[int]error{2: errors.New("corrupt resources")},
	}
	opener := &fakeOpener{docs: map[string]*fakeDoc{
		"a.pdf": a,
		"b.pdf": {pages: [][]fakeImage{{{data: []byte("y"), ext: "png"}}}},
	}}

	var log bytes.Buffer
	result, err := Run(context.Background(), opener, cfg, &log, nil)
	require.NoError(t, err)

	assert.Equal(t, []string{"b.pdf"}, result.Mapping.Keys())
	assert.Equal(t, 1, result.TotalImages)
	assert.Equal(t, 1, result.FailedDocuments)
	assert.True(t, a.closed, "document must be closed after a failure")
	assert.Contains(t, log.String(), "failed:  a.pdf (page 2: corrupt resources)")
}

func TestRunEmptyInputWritesEmptyManifest(t *testing.T) {
	cfg := setupDirs(t)

	result, err := Run(context.Background(), &fakeOpener{}, cfg, &bytes.Buffer{}, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, result.Documents())

	data, err := os.ReadFile(cfg.ManifestPath)
	require.NoError(t, err)
	assert.Equal(t, "{}\n", string(data))

	info, err := os.Stat(cfg.ImagesDir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestRunIsRepeatable(t *testing.T) {
	cfg := setupDirs(t, "manual.pdf")
	newOpener := func() *fakeOpener {
		return &fakeOpener{docs: map[string]*fakeDoc{
			"manual.pdf": {pages: [][]fakeImage{{{data: []byte("a"), ext: "png"}, {data: []byte("b"), ext: "png"}}}},
		}}
	}

	_, err := Run(context.Background(), newOpener(), cfg, &bytes.Buffer{}, nil)
	require.NoError(t, err)
	first, err := os.ReadFile(cfg.ManifestPath)
	require.NoError(t, err)

	_, err = Run(context.Background(), newOpener(), cfg, &bytes.Buffer{}, nil)
	require.NoError(t, err)
	second, err := os.ReadFile(cfg.ManifestPath)
	require.NoError(t, err)

	assert.Equal(t, string(first), string(second))
	entries, err := os.ReadDir(cfg.ImagesDir)
	require.NoError(t, err)
	assert.Len(t, entries, 2, "re-running overwrites images instead of duplicating them")
}

func TestRunCancelled(t *testing.T) {
	cfg := setupDirs(t, "manual.pdf")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Run(ctx, &fakeOpener{}, cfg, &bytes.Buffer{}, nil)
	require.ErrorIs(t, err, context.Canceled)

	_, statErr := os.Stat(cfg.ManifestPath)
	assert.True(t, os.IsNotExist(statErr), "a cancelled run writes no manifest")
}

func TestRunMissingInputDirectory(t *testing.T) {
	cfg := setupDirs(t)
	cfg.PDFsDir = filepath.Join(cfg.PDFsDir, "does-not-exist")

	_, err := Run(context.Background(), &fakeOpener{}, cfg, &bytes.Buffer{}, nil)
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "reading input directory"))
}

func TestRunYAMLManifest(t *testing.T) {
	cfg := setupDirs(t, "manual.pdf")
	cfg.ManifestPath = strings.TrimSuffix(cfg.ManifestPath, ".json") + ".yaml"
	cfg.ManifestFormat = types.FormatYAML
	opener := &fakeOpener{docs: map[string]*fakeDoc{
		"manual.pdf": {pages: [][]fakeImage{{{data: []byte("a"), ext: "png"}}}},
	}}

	_, err := Run(context.Background(), opener, cfg, &bytes.Buffer{}, nil)
	require.NoError(t, err)

	m, err := manifest.Read(cfg.ManifestPath)
	require.NoError(t, err)
	assert.Equal(t, 1, m.TotalImages())
}

func TestRunBrokenImageMetadataSkipsOnlyThatImage(t *testing.T) {
	cfg := setupDirs(t)
	pdftest.WriteFile(t, cfg.PDFsDir, "manual.pdf", pdftest.OneGoodOneBroken())

	var log bytes.Buffer
	result, err := Run(context.Background(), pdfsource.NewPDFCPU(true), cfg, &log, nil)
	require.NoError(t, err)

	assert.Equal(t, 0, result.FailedDocuments)
	assert.Equal(t, 1, result.FailedImages)
	assert.Equal(t, 1, result.TotalImages)
	assert.Contains(t, log.String(), "warning: image 2 on page 1")
	assert.NotContains(t, log.String(), "failed:")

	m, err := manifest.Read(cfg.ManifestPath)
	require.NoError(t, err)
	entry, ok := m.Get("manual.pdf")
	require.True(t, ok)
	require.Len(t, entry.Images, 1)
	assert.Equal(t, "manual_page1_img1.png", entry.Images[0].Filename)
	assert.FileExists(t, filepath.Join(cfg.ImagesDir, "manual_page1_img1.png"))
}
