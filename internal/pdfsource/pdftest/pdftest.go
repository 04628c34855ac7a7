// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package pdftest builds small hand-written PDFs for tests.
package pdftest

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"testing"
)

// Build assembles a PDF from object bodies numbered 1..n, with object 1 as
// the catalog, and computes a correct xref table.
func Build(objects ...string) []byte {
	var buf bytes.Buffer
	buf.WriteString("%PDF-1.4\n")

	offsets := make([]int, len(objects))
	for i, body := range objects {
		offsets[i] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", i+1, body)
	}

	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n", len(objects)+1)
	buf.WriteString("0000000000 65535 f \n")
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(objects)+1, xref)
	return buf.Bytes()
}

// rgbPixel is one uncompressed DeviceRGB pixel.
const rgbPixel = "\xff\x00\x00"

// OneGoodOneBroken returns a one-page PDF whose page references /Im1, a
// valid 1x1 RGB image, and /Im2, an image dictionary without /Height.
func OneGoodOneBroken() []byte {
	content := "q 10 0 0 10 0 0 cm /Im1 Do Q q 10 0 0 10 0 0 cm /Im2 Do Q"
	return Build(
		"<< /Type /Catalog /Pages 2 0 R >>",
		"<< /Type /Pages /Kids [3 0 R] /Count 1 >>",
		"<< /Type /Page /Parent 2 0 R /MediaBox [0 0 20 20] /Resources << /XObject << /Im1 4 0 R /Im2 5 0 R >> >> /Contents 6 0 R >>",
		fmt.Sprintf("<< /Type /XObject /Subtype /Image /Width 1 /Height 1 /ColorSpace /DeviceRGB /BitsPerComponent 8 /Length %d >>\nstream\n%s\nendstream", len(rgbPixel), rgbPixel),
		fmt.Sprintf("<< /Type /XObject /Subtype /Image /Width 1 /ColorSpace /DeviceRGB /BitsPerComponent 8 /Length %d >>\nstream\n%s\nendstream", len(rgbPixel), rgbPixel),
		fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", len(content), content),
	)
}

// WriteFile writes data as name inside dir and returns the path.
func WriteFile(t testing.TB, dir, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}
