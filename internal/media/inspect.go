// Package media describes uploaded files: their MIME type and, for images,
// their pixel dimensions.
package media

import (
	"bytes"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"path"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

const genericMimeType = "application/octet-stream"

var imageExtensions = map[string]struct{}{
	".bmp":  {},
	".gif":  {},
	".jpe":  {},
	".jpeg": {},
	".jpg":  {},
	".png":  {},
	".tif":  {},
	".tiff": {},
	".webp": {},
}

// Info is what an upload looks like once inspected.
type Info struct {
	Name      string
	Extension string
	MimeType  string
	Width     int
	Height    int
	IsImage   bool
}

// Inspector describes an uploaded file.
type Inspector interface {
	Inspect(fileName, declaredType string, data []byte) Info
}

// Sniffer is the default Inspector.
type Sniffer struct{}

// Inspect keeps the base file name with its extension, keeps the declared
// MIME type unless it is empty or generic, and reads image dimensions when
// the extension names an image format.
func (Sniffer) Inspect(fileName, declaredType string, data []byte) Info {
	base := path.Base(strings.ReplaceAll(strings.TrimSpace(fileName), `\`, "/"))
	if base == "." || base == "/" {
		base = ""
	}
	ext := strings.ToLower(path.Ext(base))
	info := Info{
		Name:      base,
		Extension: ext,
		MimeType:  strings.TrimSpace(declaredType),
	}

	if info.MimeType == "" || strings.EqualFold(info.MimeType, genericMimeType) {
		info.MimeType = mimetype.Detect(data).String()
	}

	if IsImageExtension(ext) {
		if cfg, _, err := image.DecodeConfig(bytes.NewReader(data)); err == nil {
			info.IsImage = true
			info.Width = cfg.Width
			info.Height = cfg.Height
		}
	}
	return info
}

// IsImageExtension reports whether ext (with leading dot) names a raster
// image format whose dimensions can be read.
func IsImageExtension(ext string) bool {
	ext = strings.ToLower(strings.TrimSpace(ext))
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	_, ok := imageExtensions[ext]
	return ok
}
