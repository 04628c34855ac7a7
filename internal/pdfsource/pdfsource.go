// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package pdfsource opens PDF documents and pulls embedded raster images out
// of them. The batch extractor depends only on the Opener and Document
// interfaces; PDFCPU is the production implementation.
package pdfsource

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
)

// ErrUnsupportedImage is returned when an image object exists but cannot be
// rendered to a standalone file (for example JPX or exotic color spaces).
var ErrUnsupportedImage = errors.New("unsupported image encoding")

// ImageRef identifies an embedded image on a page.
type ImageRef struct {
	// Page is the 1-based page the image is referenced from.
	Page int
	// ObjNr is the image's object number in the cross-reference table.
	ObjNr int
	// Name is the resource name the page uses for the image (e.g. "Im0").
	Name string
}

// Image is the extracted content of one embedded image.
type Image struct {
	Data   []byte
	Ext    string // file extension without the dot, e.g. "png"
	// Width and Height are the dimensions declared by the image dictionary.
	Width  int
	Height int
}

// Document is an open PDF.
type Document interface {
	// PageCount returns the number of pages.
	PageCount() int

	// PageImages lists the images referenced by a 1-based page, in a stable
	// order.
	PageImages(page int) ([]ImageRef, error)

	// ExtractImage returns the bytes and file extension of one image.
	ExtractImage(ref ImageRef) (Image, error)

	// Close releases the underlying file.
	Close() error
}

// Opener opens PDF files.
type Opener interface {
	Open(path string) (Document, error)
}

// PDFCPU opens documents with pdfcpu.
type PDFCPU struct {
	conf *model.Configuration
}

// NewPDFCPU returns an Opener backed by pdfcpu. When relaxed is set, PDFs
// that deviate from the PDF standard in recoverable ways are accepted.
func NewPDFCPU(relaxed bool) *PDFCPU {
	conf := model.NewDefaultConfiguration()
	if relaxed {
		conf.ValidationMode = model.ValidationRelaxed
	}
	return &PDFCPU{conf: conf}
}

// Open reads, validates and indexes the PDF at path. The file stays open
// until Close is called on the returned Document.
func (p *PDFCPU) Open(path string) (Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}

	ctx, err := api.ReadValidateAndOptimize(f, p.conf)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	if err := ctx.EnsurePageCount(); err != nil {
		f.Close()
		return nil, fmt.Errorf("counting pages of %s: %w", path, err)
	}

	return &pdfcpuDocument{file: f, ctx: ctx}, nil
}

type pdfcpuDocument struct {
	file *os.File
	ctx  *model.Context
}

func (d *pdfcpuDocument) PageCount() int {
	return d.ctx.PageCount
}

// PageImages lists the image XObjects the page's resources reference. Only
// the optimizer's resource index is consulted, so an image with broken
// metadata is still listed and fails later in ExtractImage. Page thumbnails
// are not embedded images and are left out.
func (d *pdfcpuDocument) PageImages(page int) ([]ImageRef, error) {
	if page < 1 || page > d.ctx.PageCount {
		return nil, fmt.Errorf("page %d out of range (1-%d)", page, d.ctx.PageCount)
	}
	if d.ctx.Optimize == nil {
		return nil, fmt.Errorf("listing images on page %d: resource index not built", page)
	}

	objNrs := pdfcpu.ImageObjNrs(d.ctx, page)
	sort.Ints(objNrs)

	refs := make([]ImageRef, 0, len(objNrs))
	for _, objNr := range objNrs {
		ref := ImageRef{Page: page, ObjNr: objNr}
		if obj, ok := d.ctx.Optimize.ImageObjects[objNr]; ok && obj != nil {
			ref.Name = obj.ResourceNames[page-1]
		}
		refs = append(refs, ref)
	}
	return refs, nil
}

func (d *pdfcpuDocument) ExtractImage(ref ImageRef) (Image, error) {
	sd, err := d.imageDict(ref.ObjNr)
	if err != nil {
		return Image{}, err
	}

	img, err := pdfcpu.ExtractImage(d.ctx, sd, false, ref.Name, ref.ObjNr, false)
	if err != nil {
		return Image{}, fmt.Errorf("decoding object %d: %w", ref.ObjNr, err)
	}
	if img == nil || img.Reader == nil || img.FileType == "" {
		return Image{}, fmt.Errorf("object %d: %w", ref.ObjNr, ErrUnsupportedImage)
	}

	data, err := io.ReadAll(img)
	if err != nil {
		return Image{}, fmt.Errorf("reading object %d: %w", ref.ObjNr, err)
	}

	out := Image{Data: data, Ext: img.FileType}
	if w := sd.IntEntry("Width"); w != nil {
		out.Width = *w
	}
	if h := sd.IntEntry("Height"); h != nil {
		out.Height = *h
	}
	return out, nil
}

// imageDict returns the stream dict of an image object, preferring the
// optimizer's index and falling back to the xref table.
func (d *pdfcpuDocument) imageDict(objNr int) (*types.StreamDict, error) {
	if d.ctx.Optimize != nil {
		if obj, ok := d.ctx.Optimize.ImageObjects[objNr]; ok && obj != nil && obj.ImageDict != nil {
			return obj.ImageDict, nil
		}
	}

	entry, ok := d.ctx.FindTableEntryLight(objNr)
	if !ok || entry == nil || entry.Object == nil {
		return nil, fmt.Errorf("object %d not found", objNr)
	}
	sd, ok := entry.Object.(types.StreamDict)
	if !ok {
		return nil, fmt.Errorf("object %d is not a stream", objNr)
	}
	return &sd, nil
}

func (d *pdfcpuDocument) Close() error {
	return d.file.Close()
}
