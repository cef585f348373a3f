package media

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"strings"
	"testing"
)

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	img.Set(0, 0, color.RGBA{R: 255, A: 255})
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

func TestSnifferInspect(t *testing.T) {
	pixels := pngBytes(t, 7, 3)

	tests := []struct {
		name         string
		fileName     string
		declared     string
		data         []byte
		wantName     string
		wantExt      string
		wantMime     string
		wantImage    bool
		wantW, wantH int
	}{
		{
			name: "png with declared type", fileName: "shots/screen.PNG", declared: "image/png", data: pixels,
			wantName: "screen.PNG", wantExt: ".png", wantMime: "image/png", wantImage: true, wantW: 7, wantH: 3,
		},
		{
			name: "generic type is detected", fileName: "photo.png", declared: "application/octet-stream", data: pixels,
			wantName: "photo.png", wantExt: ".png", wantMime: "image/png", wantImage: true, wantW: 7, wantH: 3,
		},
		{
			name: "image extension with junk bytes", fileName: "broken.jpg", declared: "image/jpeg", data: []byte("nope"),
			wantName: "broken.jpg", wantExt: ".jpg", wantMime: "image/jpeg",
		},
		{
			name: "non image keeps declared type", fileName: `C:\docs\report.pdf`, declared: "application/pdf", data: []byte("%PDF-1.4"),
			wantName: "report.pdf", wantExt: ".pdf", wantMime: "application/pdf",
		},
		{
			name: "no extension", fileName: "README", declared: "", data: []byte("plain words"),
			wantName: "README", wantExt: "", wantMime: "text/plain",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Sniffer{}.Inspect(tt.fileName, tt.declared, tt.data)
			if got.Name != tt.wantName || got.Extension != tt.wantExt {
				t.Fatalf("expected name=%q ext=%q, got name=%q ext=%q", tt.wantName, tt.wantExt, got.Name, got.Extension)
			}
			if !strings.HasPrefix(got.MimeType, tt.wantMime) {
				t.Fatalf("expected mime %q, got %q", tt.wantMime, got.MimeType)
			}
			if got.IsImage != tt.wantImage || got.Width != tt.wantW || got.Height != tt.wantH {
				t.Fatalf("expected image=%v %dx%d, got image=%v %dx%d", tt.wantImage, tt.wantW, tt.wantH, got.IsImage, got.Width, got.Height)
			}
		})
	}
}

func TestIsImageExtension(t *testing.T) {
	for _, ext := range []string{".png", "JPG", ".webp", ".tiff", "bmp"} {
		if !IsImageExtension(ext) {
			t.Fatalf("expected %q to be an image extension", ext)
		}
	}
	for _, ext := range []string{"", ".pdf", ".svg", "txt"} {
		if IsImageExtension(ext) {
			t.Fatalf("expected %q not to be an image extension", ext)
		}
	}
}
