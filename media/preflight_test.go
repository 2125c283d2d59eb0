package media

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/png"
	"strings"
	"testing"

	"github.com/snaptag/gateway/tagging"
)

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x % 256), G: uint8(y % 256), B: 120, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode test png: %v", err)
	}
	return buf.Bytes()
}

func TestProcessAcceptsValidImage(t *testing.T) {
	p := &Preflight{MaxFileBytes: 1 << 20, MaxDimension: 100}
	res, err := p.Process("photo.png", bytes.NewReader(pngBytes(t, 40, 30)))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Width != 40 || res.Height != 30 || res.Resized {
		t.Fatalf("result = %+v", res)
	}
	if res.Filename != "photo.png" {
		t.Errorf("filename = %s", res.Filename)
	}
}

func TestProcessRejectsUnsupportedExtension(t *testing.T) {
	p := &Preflight{}
	_, err := p.Process("document.pdf", strings.NewReader("%PDF-1.4"))
	var ve *tagging.ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
}

func TestProcessRejectsUndecodableFile(t *testing.T) {
	p := &Preflight{}
	_, err := p.Process("broken.jpg", strings.NewReader("definitely not a jpeg"))
	var ve *tagging.ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
}

func TestProcessRejectsOversizedFile(t *testing.T) {
	p := &Preflight{MaxFileBytes: 64}
	_, err := p.Process("big.png", bytes.NewReader(pngBytes(t, 64, 64)))
	var ve *tagging.ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
}

// tiffDateTimeBytes builds a minimal little-endian TIFF whose IFD0 holds a
// single DateTime (0x0132) ASCII tag pointing at value.
func tiffDateTimeBytes(value string) []byte {
	buf := []byte{
		'I', 'I', 0x2A, 0x00, // little-endian TIFF header
		0x08, 0x00, 0x00, 0x00, // IFD0 at offset 8
		0x01, 0x00, // one entry
		0x32, 0x01, // DateTime
		0x02, 0x00, // ASCII
		0x14, 0x00, 0x00, 0x00, // 20 bytes including NUL
		0x1A, 0x00, 0x00, 0x00, // value at offset 26
		0x00, 0x00, 0x00, 0x00, // no next IFD
	}
	return append(buf, append([]byte(value), 0x00)...)
}

func TestCaptureTimeFromExif(t *testing.T) {
	taken := captureTime(tiffDateTimeBytes("2024:05:04 10:20:30"))
	if taken == nil {
		t.Fatal("expected a capture time")
	}
	if got := taken.Format("2006:01:02 15:04:05"); got != "2024:05:04 10:20:30" {
		t.Errorf("capture time = %s", got)
	}
}

func TestCaptureTimeAbsent(t *testing.T) {
	if got := captureTime(pngBytes(t, 8, 8)); got != nil {
		t.Errorf("png without EXIF produced %v", got)
	}
}

func TestProcessDownscalesOversizedDimensions(t *testing.T) {
	p := &Preflight{MaxFileBytes: 10 << 20, MaxDimension: 16}
	res, err := p.Process("huge.png", bytes.NewReader(pngBytes(t, 64, 32)))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.Resized {
		t.Fatal("expected a downscale")
	}
	if res.Width > 16 || res.Height > 16 {
		t.Fatalf("still oversized: %dx%d", res.Width, res.Height)
	}
	if res.Filename != "huge.jpg" {
		t.Errorf("re-encoded filename = %s, want huge.jpg", res.Filename)
	}
}
