//go:build cgo

package libwebp_test

import (
	"bytes"
	"context"
	"image"
	"math/rand"
	"os"
	"path/filepath"
	"testing"

	"github.com/tendant/simple-image-pipeline/internal/codec"
	"github.com/tendant/simple-image-pipeline/internal/codec/libwebp"
	"github.com/tendant/simple-image-pipeline/internal/config"
	"github.com/tendant/simple-image-pipeline/internal/storage"
	"github.com/tendant/simple-image-pipeline/internal/workflows"
)

func noiseImage(w, h int, seed int64) *image.NRGBA {
	rng := rand.New(rand.NewSource(seed))
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for i := range img.Pix {
		img.Pix[i] = uint8(rng.Intn(256))
	}
	for i := 3; i < len(img.Pix); i += 4 {
		img.Pix[i] = 255
	}
	return img
}

func encode(t *testing.T, img image.Image, quality int) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := libwebp.NewEncoder().Encode(&buf, img, quality); err != nil {
		t.Fatalf("Encode(q=%d): %v", quality, err)
	}
	return buf.Bytes()
}

func TestEncoderLowerQualityIsSmaller(t *testing.T) {
	img := noiseImage(480, 270, 1)

	standard := encode(t, img, config.DefaultQuality)
	ultra := encode(t, img, config.DefaultHeroUltraQuality)
	if len(ultra) >= len(standard) {
		t.Fatalf("q%d = %d bytes, q%d = %d bytes; want strictly smaller",
			config.DefaultHeroUltraQuality, len(ultra), config.DefaultQuality, len(standard))
	}
}

func TestEncoderOutputDecodes(t *testing.T) {
	data := encode(t, noiseImage(321, 123, 2), config.DefaultQuality)

	hdr, err := codec.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("DecodeConfig: %v", err)
	}
	if hdr.Format != "webp" || hdr.Width != 321 || hdr.Height != 123 {
		t.Fatalf("header = %+v", hdr)
	}

	img, err := codec.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 321 || b.Dy() != 123 {
		t.Fatalf("decoded bounds = %v", b)
	}
}

func TestEncoderExt(t *testing.T) {
	if got := libwebp.NewEncoder().Ext(); got != "webp" {
		t.Fatalf("Ext() = %q", got)
	}
}

func TestHeroRecompressRealWebP(t *testing.T) {
	dir := t.TempDir()
	store, err := storage.NewFilesystemStorage(dir)
	if err != nil {
		t.Fatal(err)
	}
	name := "hero-conservation-480w.webp"
	original := encode(t, noiseImage(480, 270, 3), 90)
	if err := os.WriteFile(filepath.Join(dir, name), original, 0644); err != nil {
		t.Fatal(err)
	}

	cfg := config.Default()
	cfg.SourceDir = dir
	cfg.OutputDir = dir
	cfg.LedgerDSN = ""

	report, err := workflows.NewHeroWorkflow(cfg, store, libwebp.NewEncoder(), nil).Recompress(context.Background(), "")
	if err != nil {
		t.Fatalf("Recompress: %v", err)
	}
	if len(report.Optimized) != 1 || len(report.Failures) != 0 {
		t.Fatalf("report = %+v", report)
	}

	after, err := os.ReadFile(filepath.Join(dir, name))
	if err != nil {
		t.Fatal(err)
	}
	if len(after) >= len(original) {
		t.Fatalf("file did not shrink: %d -> %d", len(original), len(after))
	}
	hdr, err := codec.DecodeConfig(bytes.NewReader(after))
	if err != nil {
		t.Fatalf("DecodeConfig: %v", err)
	}
	if hdr.Format != "webp" || hdr.Width != 480 || hdr.Height != 270 {
		t.Fatalf("header = %+v", hdr)
	}
}
