// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package catalog

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/image-extractor/pkg/types"
)

// --- test helpers ---

func testStore(t *testing.T) (*Store, string) {
	t.Helper()
	base := t.TempDir()
	store, err := NewStore(types.CatalogConfig{
		DBPath:  filepath.Join(base, "processed", "images.db"),
		BaseDir: base,
	})
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store, base
}

func writePNG(t *testing.T, path string, w, h int) {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	img.Set(0, 0, color.RGBA{R: 255, A: 255})
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))
}

func writeJPEG(t *testing.T, path string, w, h int) {
	t.Helper()
	img := image.NewGray(image.Rect(0, 0, w, h))
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, img, nil))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))
}

func sampleMapping() *types.Mapping {
	m := types.NewMapping()
	m.Set("manual.pdf", types.NewDocumentEntry([]types.ImageRecord{
		{Filename: "manual_page1_img1.png", Page: 1, Index: 1, Path: "images/manual_page1_img1.png"},
		{Filename: "manual_page2_img1.jpg", Page: 2, Index: 1, Path: "images/manual_page2_img1.jpg"},
	}))
	m.Set("blank.pdf", types.NewDocumentEntry(nil))
	return m
}

// --- tests ---

func TestInspect(t *testing.T) {
	dir := t.TempDir()
	pngPath := filepath.Join(dir, "a.png")
	jpgPath := filepath.Join(dir, "b.jpg")
	rawPath := filepath.Join(dir, "c.jpx")
	writePNG(t, pngPath, 12, 7)
	writeJPEG(t, jpgPath, 4, 9)
	require.NoError(t, os.WriteFile(rawPath, []byte("not an image"), 0o644))

	tests := []struct {
		path   string
		width  int
		height int
		format string
	}{
		{pngPath, 12, 7, "png"},
		{jpgPath, 4, 9, "jpeg"},
		{rawPath, 0, 0, "jpx"},
	}
	for _, tt := range tests {
		t.Run(filepath.Base(tt.path), func(t *testing.T) {
			info, err := Inspect(tt.path)
			require.NoError(t, err)
			assert.Equal(t, tt.width, info.Width)
			assert.Equal(t, tt.height, info.Height)
			assert.Equal(t, tt.format, info.Format)
			assert.Positive(t, info.SizeBytes)
			assert.Empty(t, info.Make)
		})
	}
}

func TestInspectMissingFile(t *testing.T) {
	_, err := Inspect(filepath.Join(t.TempDir(), "nope.png"))
	assert.Error(t, err)
}

func TestIngestAndList(t *testing.T) {
	store, base := testStore(t)
	writePNG(t, filepath.Join(base, "images", "manual_page1_img1.png"), 10, 20)
	writeJPEG(t, filepath.Join(base, "images", "manual_page2_img1.jpg"), 8, 8)

	var out bytes.Buffer
	summary, err := store.Ingest(context.Background(), sampleMapping(), "images-mapping.json", &out)
	require.NoError(t, err)

	assert.NotEmpty(t, summary.RunID)
	assert.Equal(t, 2, summary.Documents)
	assert.Equal(t, 2, summary.Images)
	assert.Equal(t, 0, summary.Missing)
	assert.Contains(t, out.String(), "indexed manual.pdf (2 images)")
	assert.Contains(t, out.String(), "indexed blank.pdf (0 images)")

	rows, err := store.List(context.Background(), Query{})
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "manual_page1_img1.png", rows[0].Filename)
	assert.Equal(t, 10, rows[0].Width)
	assert.Equal(t, 20, rows[0].Height)
	assert.Equal(t, "png", rows[0].Format)
	assert.Equal(t, summary.RunID, rows[0].RunID)
	assert.Equal(t, "jpeg", rows[1].Format)

	n, err := store.DocumentCount(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestListFilters(t *testing.T) {
	store, _ := testStore(t)
	_, err := store.Ingest(context.Background(), sampleMapping(), "", &bytes.Buffer{})
	require.NoError(t, err)

	tests := []struct {
		name  string
		query Query
		want  []string
	}{
		{"by document", Query{Document: "manual.pdf"}, []string{"manual_page1_img1.png", "manual_page2_img1.jpg"}},
		{"by page", Query{Document: "manual.pdf", Page: 2}, []string{"manual_page2_img1.jpg"}},
		{"limit", Query{Limit: 1}, []string{"manual_page1_img1.png"}},
		{"no match", Query{Document: "blank.pdf"}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rows, err := store.List(context.Background(), tt.query)
			require.NoError(t, err)
			var got []string
			for _, r := range rows {
				got = append(got, r.Filename)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestIngestCountsMissingFiles(t *testing.T) {
	store, _ := testStore(t)

	var out bytes.Buffer
	summary, err := store.Ingest(context.Background(), sampleMapping(), "", &out)
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Missing)
	assert.Equal(t, 2, summary.Images)
	assert.Contains(t, out.String(), "warning: reading image")
}

func TestIngestReplacesPreviousRun(t *testing.T) {
	store, _ := testStore(t)
	ctx := context.Background()
	_, err := store.Ingest(ctx, sampleMapping(), "", &bytes.Buffer{})
	require.NoError(t, err)

	next := types.NewMapping()
	next.Set("manual.pdf", types.NewDocumentEntry([]types.ImageRecord{
		{Filename: "manual_page1_img1.png", Page: 1, Index: 1, Path: "images/manual_page1_img1.png"},
	}))
	summary, err := store.Ingest(ctx, next, "", &bytes.Buffer{})
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Removed)

	rows, err := store.List(ctx, Query{})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, summary.RunID, rows[0].RunID)

	n, err := store.DocumentCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestIngestCancelled(t *testing.T) {
	store, _ := testStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := store.Ingest(ctx, sampleMapping(), "", &bytes.Buffer{})
	require.Error(t, err)

	n, err := store.DocumentCount(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}
