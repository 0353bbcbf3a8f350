package workflows

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"io"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/tendant/simple-image-pipeline/internal/config"
	"github.com/tendant/simple-image-pipeline/internal/storage"
)

var errInjected = errors.New("injected encode failure")

type encodeCall struct {
	width   int
	quality int
}

// fakeEncoder writes JPEG bytes under the webp extension so tests run without libwebp
type fakeEncoder struct {
	failWidth int
	calls     []encodeCall
}

func (e *fakeEncoder) Encode(w io.Writer, img image.Image, quality int) error {
	width := img.Bounds().Dx()
	e.calls = append(e.calls, encodeCall{width: width, quality: quality})
	if e.failWidth != 0 && width == e.failWidth {
		return errInjected
	}
	return jpeg.Encode(w, img, &jpeg.Options{Quality: quality})
}

func (e *fakeEncoder) Ext() string {
	return "webp"
}

func testConfig(dir string) config.Config {
	cfg := config.Default()
	cfg.SourceDir = dir
	cfg.OutputDir = dir
	cfg.LedgerDSN = ""
	return cfg
}

func newStore(t *testing.T) *storage.FilesystemStorage {
	t.Helper()
	fs, err := storage.NewFilesystemStorage(t.TempDir())
	if err != nil {
		t.Fatalf("NewFilesystemStorage: %v", err)
	}
	return fs
}

func gradientImage(w, h int) image.Image {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.NRGBA{R: uint8(x * 255 / w), G: uint8(y * 255 / h), B: 128, A: 255})
		}
	}
	return img
}

func noiseImage(w, h int, seed int64) image.Image {
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

func writeJPEG(t *testing.T, dir, name string, img image.Image, quality int) {
	t.Helper()
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, name), buf.Bytes(), 0644); err != nil {
		t.Fatal(err)
	}
}

func readFile(t *testing.T, dir, name string) []byte {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(dir, name))
	if err != nil {
		t.Fatalf("read %s: %v", name, err)
	}
	return data
}

func fileSize(t *testing.T, dir, name string) int64 {
	t.Helper()
	info, err := os.Stat(filepath.Join(dir, name))
	if err != nil {
		t.Fatalf("stat %s: %v", name, err)
	}
	return info.Size()
}

func imageSize(t *testing.T, dir, name string) (int, int) {
	t.Helper()
	cfg, _, err := image.DecodeConfig(bytes.NewReader(readFile(t, dir, name)))
	if err != nil {
		t.Fatalf("decode %s: %v", name, err)
	}
	return cfg.Width, cfg.Height
}

func listDir(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}

func assertNoTempFiles(t *testing.T, dir string) {
	t.Helper()
	for _, name := range listDir(t, dir) {
		if strings.HasPrefix(name, ".tmp-") {
			t.Fatalf("temp file left behind: %s", name)
		}
	}
}
