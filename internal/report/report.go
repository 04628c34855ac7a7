// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package report renders the end-of-run summary of an extraction.
package report

import (
	"fmt"
	"io"
	"strconv"

	"github.com/nao1215/markdown"

	"github.com/pdiddy/image-extractor/internal/extract"
	"github.com/pdiddy/image-extractor/pkg/types"
)

// DocumentPreview is the per-document line shown in the sample.
type DocumentPreview struct {
	Name        string
	TotalImages int
	FirstImage  string // empty when the document has no images
}

// Summary holds everything the report writers print.
type Summary struct {
	TotalImages     int
	Documents       int
	FailedDocuments int
	FailedImages    int
	Pruned          int
	ManifestPath    string
	ImagesDir       string
	// Preview covers the first documents of the run, in processing order.
	Preview []DocumentPreview
	// All covers every document; only the Markdown report uses it.
	All []DocumentPreview
}

// FromResult builds a Summary. At most cfg.PreviewLimit documents go into
// the preview.
func FromResult(res extract.Result, cfg types.ExtractionConfig) Summary {
	cfg = cfg.WithDefaults()
	s := Summary{
		TotalImages:     res.TotalImages,
		Documents:       res.Documents(),
		FailedDocuments: res.FailedDocuments,
		FailedImages:    res.FailedImages,
		Pruned:          len(res.Pruned),
		ManifestPath:    cfg.ManifestPath,
		ImagesDir:       cfg.ImagesDir,
	}
	if res.Mapping == nil {
		return s
	}

	for _, name := range res.Mapping.Keys() {
		entry, _ := res.Mapping.Get(name)
		p := DocumentPreview{Name: name, TotalImages: entry.TotalImages}
		if len(entry.Images) > 0 {
			p.FirstImage = entry.Images[0].Filename
		}
		s.All = append(s.All, p)
	}
	s.Preview = s.All
	if len(s.Preview) > cfg.PreviewLimit {
		s.Preview = s.Preview[:cfg.PreviewLimit]
	}
	return s
}

// Text prints the console summary followed by the document sample.
func Text(w io.Writer, s Summary) {
	fmt.Fprintln(w, "Extraction complete.")
	fmt.Fprintf(w, "Total images extracted: %d\n", s.TotalImages)
	fmt.Fprintf(w, "Manifest written to: %s\n", s.ManifestPath)
	fmt.Fprintf(w, "Images saved in: %s\n", s.ImagesDir)
	if s.FailedDocuments > 0 || s.FailedImages > 0 {
		fmt.Fprintf(w, "Skipped: %d document(s), %d image(s)\n", s.FailedDocuments, s.FailedImages)
	}
	if s.Pruned > 0 {
		fmt.Fprintf(w, "Pruned stale images: %d\n", s.Pruned)
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, "Sample of images per PDF:")
	for _, p := range s.Preview {
		fmt.Fprintf(w, "\n%s: %d images\n", p.Name, p.TotalImages)
		if p.FirstImage != "" {
			fmt.Fprintf(w, "  - %s\n", p.FirstImage)
		}
	}
}

// Markdown writes a Markdown report with the totals and one row per document.
func Markdown(w io.Writer, s Summary) error {
	md := markdown.NewMarkdown(w)

	md.H1("Image Extraction Report")
	md.PlainText("")
	md.Table(markdown.TableSet{
		Header: []string{"Metric", "Value"},
		Rows: [][]string{
			{"Documents recorded", strconv.Itoa(s.Documents)},
			{"Images extracted", strconv.Itoa(s.TotalImages)},
			{"Documents skipped", strconv.Itoa(s.FailedDocuments)},
			{"Images skipped", strconv.Itoa(s.FailedImages)},
			{"Stale images pruned", strconv.Itoa(s.Pruned)},
			{"Manifest", "`" + s.ManifestPath + "`"},
			{"Image directory", "`" + s.ImagesDir + "`"},
		},
	})
	md.PlainText("")

	if s.FailedDocuments > 0 {
		md.Warningf("%d document(s) could not be read; see the run log for details.", s.FailedDocuments)
		md.PlainText("")
	}

	md.H2("Documents")
	md.PlainText("")
	if len(s.All) == 0 {
		md.PlainText("No documents were recorded.")
		return md.Build()
	}

	rows := make([][]string, 0, len(s.All))
	for _, p := range s.All {
		first := "-"
		if p.FirstImage != "" {
			first = "`" + p.FirstImage + "`"
		}
		rows = append(rows, []string{p.Name, strconv.Itoa(p.TotalImages), first})
	}
	md.Table(markdown.TableSet{
		Header: []string{"Document", "Images", "First image"},
		Rows:   rows,
	})

	return md.Build()
}
