// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package catalog

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"strings"

	exif "github.com/dsoprea/go-exif/v3"
	_ "golang.org/x/image/tiff"
)

// ImageInfo holds facts read from an extracted image file.
type ImageInfo struct {
	SizeBytes int64
	Width     int
	Height    int
	Format    string
	Make      string
	Model     string
	Software  string
}

// Inspect reads the image at path. Files that are not a decodable raster
// format still report their size, with Format taken from the extension.
func Inspect(path string) (ImageInfo, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return ImageInfo{}, fmt.Errorf("reading image %s: %w", path, err)
	}

	info := ImageInfo{SizeBytes: int64(len(data))}
	if cfg, format, err := image.DecodeConfig(bytes.NewReader(data)); err == nil {
		info.Width = cfg.Width
		info.Height = cfg.Height
		info.Format = format
	} else {
		info.Format = strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	}

	if info.Format == "jpeg" || info.Format == "tiff" {
		readCameraTags(data, &info)
	}
	return info, nil
}

// readCameraTags copies the EXIF tags identifying the producing device.
// Missing or unparsable EXIF leaves the fields empty.
func readCameraTags(data []byte, info *ImageInfo) {
	rawExif, err := exif.SearchAndExtractExif(data)
	if err != nil || rawExif == nil {
		return
	}
	entries, _, err := exif.GetFlatExifData(rawExif, nil)
	if err != nil {
		return
	}
	for _, entry := range entries {
		value := strings.TrimSpace(entry.Formatted)
		switch entry.TagName {
		case "Make":
			info.Make = value
		case "Model":
			info.Model = value
		case "Software":
			info.Software = value
		}
	}
}
