// Package libwebp encodes lossy WebP through libwebp (cgo).
package libwebp

import (
	"fmt"
	"image"
	"io"

	"github.com/kolesa-team/go-webp/encoder"
	"github.com/kolesa-team/go-webp/webp"
	"github.com/tendant/simple-image-pipeline/pkg/pipeline"
)

// Encoder implements codec.Encoder for WebP
type Encoder struct {
	preset encoder.EncodingPreset
}

// NewEncoder returns a WebP encoder tuned for photographs
func NewEncoder() *Encoder {
	return &Encoder{preset: encoder.PresetPhoto}
}

// Encode writes img as lossy WebP at quality
func (e *Encoder) Encode(w io.Writer, img image.Image, quality int) error {
	options, err := encoder.NewLossyEncoderOptions(e.preset, float32(quality))
	if err != nil {
		return fmt.Errorf("WebP options: %w", err)
	}
	if err := webp.Encode(w, img, options); err != nil {
		return fmt.Errorf("WebP encode failed: %w", err)
	}
	return nil
}

// Ext implements codec.Encoder
func (e *Encoder) Ext() string {
	return pipeline.ExtWebP
}
