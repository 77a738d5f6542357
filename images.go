package ghpress

import (
	"bytes"
	"fmt"
	"image/jpeg"
	"image/png"
	"net/http"

	"golang.org/x/image/webp"
)

// maxImageBytes is 4.5 MiB, checked before any network call.
const maxImageBytes = 4608 * 1024

// ImageInfo describes a validated upload.
type ImageInfo struct {
	MIME   string
	Width  int
	Height int
}

// validateImage sniffs the MIME type from the actual bytes (never the
// client-supplied header) and decodes the image header for dimensions.
// Only JPEG, PNG and WebP are accepted.
func validateImage(data []byte) (ImageInfo, error) {
	if len(data) == 0 {
		return ImageInfo{}, fmt.Errorf("empty image: %w", ErrInvalidInput)
	}
	if len(data) > maxImageBytes {
		return ImageInfo{}, fmt.Errorf("image exceeds the 4.5MB limit: %w", ErrInvalidInput)
	}

	mime := http.DetectContentType(data)
	r := bytes.NewReader(data)
	var (
		width, height int
	)
	switch mime {
	case "image/jpeg":
		cfg, err := jpeg.DecodeConfig(r)
		if err != nil {
			return ImageInfo{}, fmt.Errorf("corrupt jpeg: %w", ErrInvalidInput)
		}
		width, height = cfg.Width, cfg.Height
	case "image/png":
		cfg, err := png.DecodeConfig(r)
		if err != nil {
			return ImageInfo{}, fmt.Errorf("corrupt png: %w", ErrInvalidInput)
		}
		width, height = cfg.Width, cfg.Height
	case "image/webp":
		cfg, err := webp.DecodeConfig(r)
		if err != nil {
			return ImageInfo{}, fmt.Errorf("corrupt webp: %w", ErrInvalidInput)
		}
		width, height = cfg.Width, cfg.Height
	default:
		return ImageInfo{}, fmt.Errorf("unsupported image type %s: %w", mime, ErrInvalidInput)
	}

	return ImageInfo{MIME: mime, Width: width, Height: height}, nil
}
