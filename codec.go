package imagesweep

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/webp"
)

// imageExtensions are the file extensions scanned for duplicates.
var imageExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".gif":  true,
	".bmp":  true,
	".tif":  true,
	".tiff": true,
	".webp": true,
}

// IsImageFile reports whether name has a supported image extension.
func IsImageFile(name string) bool {
	return imageExtensions[strings.ToLower(filepath.Ext(name))]
}

func decodeImage(r io.Reader) (image.Image, error) {
	img, err := imaging.Decode(r, imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDecode, err)
	}
	return img, nil
}

// flatten composites img onto an opaque white background, dropping alpha.
func flatten(img image.Image) *image.NRGBA {
	b := img.Bounds()
	bg := imaging.New(b.Dx(), b.Dy(), color.White)
	return imaging.Overlay(bg, img, image.Pt(0, 0), 1.0)
}

// formatFor picks the encoder for path. WebP has no encoder and is rejected.
func formatFor(path string) (imaging.Format, error) {
	f, err := imaging.FormatFromFilename(path)
	if err != nil {
		return 0, fmt.Errorf("no encoder for %s: %w", filepath.Ext(path), err)
	}
	return f, nil
}

// Encode writes img in format; JPEG uses quality.
func Encode(w io.Writer, img image.Image, format imaging.Format, quality int) error {
	if format == imaging.JPEG {
		return imaging.Encode(w, img, imaging.JPEG, imaging.JPEGQuality(quality))
	}
	return imaging.Encode(w, img, format)
}

// reencode round-trips img through the encoder so the returned image
// carries the same compression artefacts as the bytes that will be written.
func reencode(img image.Image, format imaging.Format, quality int) ([]byte, image.Image, error) {
	var buf bytes.Buffer
	if err := Encode(&buf, img, format, quality); err != nil {
		return nil, nil, fmt.Errorf("encode: %w", err)
	}
	data := buf.Bytes()
	out, err := decodeImage(bytes.NewReader(data))
	if err != nil {
		return nil, nil, err
	}
	return data, out, nil
}
