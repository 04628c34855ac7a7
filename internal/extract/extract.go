// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package extract pulls embedded images out of a directory of PDFs, writes
// them to an image directory and builds the manifest mapping each source
// document to its images.
//
// Failures are handled at two levels. A document that cannot be opened or
// paged through is skipped and contributes no entry. An image that cannot be
// extracted or written is skipped and the rest of its document continues.
// Anything else (unreadable input directory, unwritable output) is returned
// to the caller.
package extract

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/pdiddy/image-extractor/internal/manifest"
	"github.com/pdiddy/image-extractor/internal/pdfsource"
	"github.com/pdiddy/image-extractor/pkg/types"
)

const pdfExt = ".pdf"

// Result holds the outcome of a batch extraction run.
type Result struct {
	Mapping         *types.Mapping
	TotalImages     int
	FailedDocuments int
	FailedImages    int
	// Pruned lists image files removed because no record references them.
	Pruned []string
}

// Documents returns the number of documents recorded in the mapping.
func (r Result) Documents() int {
	if r.Mapping == nil {
		return 0
	}
	return r.Mapping.Len()
}

// HasFailures reports whether any document or image was skipped.
func (r Result) HasFailures() bool {
	return r.FailedDocuments > 0 || r.FailedImages > 0
}

// ImageFailure records an image that could not be extracted.
type ImageFailure struct {
	Page  int
	Index int
	Err   error
}

// DocumentOutcome is the result of processing one PDF.
type DocumentOutcome struct {
	Entry  types.DocumentEntry
	Failed []ImageFailure
}

// ImageFilename builds the output name <stem>_page<page>_img<index>.<ext>.
// The extension is used as the PDF engine reports it, minus a leading dot.
func ImageFilename(stem string, page, index int, ext string) string {
	ext = strings.TrimPrefix(ext, ".")
	return fmt.Sprintf("%s_page%d_img%d.%s", stem, page, index, ext)
}

// ListPDFs returns the PDF files directly inside dir, sorted by name.
// Subdirectories and dotfiles are ignored; the extension match ignores case.
func ListPDFs(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading input directory %s: %w", dir, err)
	}

	var paths []string
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || strings.HasPrefix(name, ".") {
			continue
		}
		if !strings.EqualFold(filepath.Ext(name), pdfExt) {
			continue
		}
		paths = append(paths, filepath.Join(dir, name))
	}
	return paths, nil
}

// ProcessDocument extracts every image of one PDF into imagesDir. Image
// failures are printed to w and returned in the outcome; the error return is
// reserved for document-level failures, in which case nothing should be
// recorded for the document. Files written before a document-level failure
// stay on disk.
func ProcessDocument(src pdfsource.Opener, pdfPath, imagesDir string, w io.Writer, logger *slog.Logger) (DocumentOutcome, error) {
	if logger == nil {
		logger = discardLogger
	}
	name := filepath.Base(pdfPath)
	stem := strings.TrimSuffix(name, filepath.Ext(name))

	doc, err := src.Open(pdfPath)
	if err != nil {
		return DocumentOutcome{}, err
	}
	defer doc.Close()

	var (
		records []types.ImageRecord
		failed  []ImageFailure
	)

	pages := doc.PageCount()
	logger.Debug("opened document", "document", name, "pages", pages)

	for p := 0; p < pages; p++ {
		pageNr := p + 1
		refs, err := doc.PageImages(pageNr)
		if err != nil {
			return DocumentOutcome{}, fmt.Errorf("page %d: %w", pageNr, err)
		}

		for i, ref := range refs {
			index := i + 1
			rec, err := extractImage(doc, ref, stem, pageNr, index, imagesDir)
			if err != nil {
				fmt.Fprintf(w, "  warning: image %d on page %d: %v\n", index, pageNr, err)
				failed = append(failed, ImageFailure{Page: pageNr, Index: index, Err: err})
				continue
			}
			logger.Debug("extracted image",
				"document", name, "page", pageNr, "index", index,
				"object", ref.ObjNr, "file", rec.Filename)
			records = append(records, rec)
		}
	}

	return DocumentOutcome{
		Entry:  types.NewDocumentEntry(records),
		Failed: failed,
	}, nil
}

// extractImage pulls one image and writes it to disk. The record is only
// built once the file has been written.
func extractImage(doc pdfsource.Document, ref pdfsource.ImageRef, stem string, page, index int, imagesDir string) (types.ImageRecord, error) {
	img, err := doc.ExtractImage(ref)
	if err != nil {
		return types.ImageRecord{}, err
	}
	if img.Ext == "" {
		return types.ImageRecord{}, pdfsource.ErrUnsupportedImage
	}

	filename := ImageFilename(stem, page, index, img.Ext)
	outPath := filepath.Join(imagesDir, filename)
	if err := os.WriteFile(outPath, img.Data, 0o644); err != nil {
		return types.ImageRecord{}, fmt.Errorf("writing %s: %w", filename, err)
	}

	return types.ImageRecord{
		Filename: filename,
		Page:     page,
		Index:    index,
		Path:     filepath.ToSlash(outPath),
	}, nil
}

// Run executes the full batch: prepare the image directory, process every
// PDF in cfg.PDFsDir, write the manifest, and optionally prune stale images.
// Per-document progress goes to w. The context is checked between
// documents; a cancelled run returns ctx.Err() without writing a manifest.
func Run(ctx context.Context, src pdfsource.Opener, cfg types.ExtractionConfig, w io.Writer, logger *slog.Logger) (Result, error) {
	if logger == nil {
		logger = discardLogger
	}
	cfg = cfg.WithDefaults()

	if err := os.MkdirAll(cfg.ImagesDir, 0o755); err != nil {
		return Result{}, fmt.Errorf("creating images directory: %w", err)
	}

	pdfs, err := ListPDFs(cfg.PDFsDir)
	if err != nil {
		return Result{}, err
	}
	logger.Info("starting extraction", "pdfs", len(pdfs), "images_dir", cfg.ImagesDir)

	result := Result{Mapping: types.NewMapping()}
	failedStems := make(map[string]bool)

	for _, pdfPath := range pdfs {
		select {
		case <-ctx.Done():
			return result, ctx.Err()
		default:
		}

		name := filepath.Base(pdfPath)
		fmt.Fprintf(w, "processing: %s\n", name)

		outcome, err := ProcessDocument(src, pdfPath, cfg.ImagesDir, w, logger)
		if err != nil {
			fmt.Fprintf(w, "failed:  %s (%v)\n\n", name, err)
			result.FailedDocuments++
			failedStems[strings.TrimSuffix(name, filepath.Ext(name))] = true
			continue
		}

		result.Mapping.Set(name, outcome.Entry)
		result.TotalImages += outcome.Entry.TotalImages
		result.FailedImages += len(outcome.Failed)
		fmt.Fprintf(w, "  extracted %d image(s)\n\n", outcome.Entry.TotalImages)
	}

	if err := manifest.Write(cfg.ManifestPath, result.Mapping, cfg.ManifestFormat); err != nil {
		return result, err
	}
	logger.Info("manifest written", "path", cfg.ManifestPath, "documents", result.Mapping.Len())

	if cfg.Prune {
		pruned, err := Prune(cfg.ImagesDir, result.Mapping, failedStems)
		if err != nil {
			return result, err
		}
		for _, p := range pruned {
			fmt.Fprintf(w, "pruned: %s\n", p)
		}
		result.Pruned = pruned
	}

	return result, nil
}

var discardLogger = slog.New(slog.NewTextHandler(io.Discard, nil))
