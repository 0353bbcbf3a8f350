// Package codec decodes source and derived images and defines the lossy
// encoder used to write variants.
package codec

import (
	"fmt"
	"image"
	"image/jpeg"
	"io"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/webp" // Register WebP decoder
)

// Encoder writes img to w at the given quality (1-100)
type Encoder interface {
	Encode(w io.Writer, img image.Image, quality int) error

	// Ext is the file extension produced, without the dot
	Ext() string
}

// Config holds header-level facts about an image
type Config struct {
	Width  int
	Height int
	Format string
}

// DecodeConfig reads only the image header
func DecodeConfig(r io.Reader) (Config, error) {
	cfg, format, err := image.DecodeConfig(r)
	if err != nil {
		return Config{}, fmt.Errorf("image header read failed: %w", err)
	}
	return Config{Width: cfg.Width, Height: cfg.Height, Format: format}, nil
}

// Decode fully decodes a JPEG or WebP image
func Decode(r io.Reader) (image.Image, error) {
	img, err := imaging.Decode(r)
	if err != nil {
		return nil, fmt.Errorf("image decode failed: %w", err)
	}
	return img, nil
}

// ResizeToWidth scales img to width preserving aspect ratio. Images already
// no wider than width are returned unchanged.
func ResizeToWidth(img image.Image, width int) image.Image {
	if width <= 0 || img.Bounds().Dx() <= width {
		return img
	}
	return imaging.Resize(img, width, 0, imaging.Lanczos)
}

// JPEGEncoder encodes baseline JPEG
type JPEGEncoder struct{}

// Encode implements Encoder
func (JPEGEncoder) Encode(w io.Writer, img image.Image, quality int) error {
	if err := jpeg.Encode(w, img, &jpeg.Options{Quality: quality}); err != nil {
		return fmt.Errorf("JPEG encode failed: %w", err)
	}
	return nil
}

// Ext implements Encoder
func (JPEGEncoder) Ext() string {
	return "jpg"
}
