// Package media runs upload preflight: extension and size gating, decode
// verification, EXIF capture-time extraction, and downscaling of oversized
// originals before anything is sent to the tagging service.
package media

import (
	"bytes"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/disintegration/imaging"
	"github.com/rwcarlsen/goexif/exif"

	"github.com/snaptag/gateway/tagging"
)

var supportedImageExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".gif":  true,
	".bmp":  true,
	".tif":  true,
	".tiff": true,
}

// IsRasterImage checks if the filename has a common raster image extension
func IsRasterImage(filename string) bool {
	ext := strings.ToLower(filepath.Ext(filename))
	return supportedImageExtensions[ext]
}

// Result is one validated upload file plus whatever the preflight learned
// about it.
type Result struct {
	Filename string
	Content  []byte
	Width    int
	Height   int
	TakenAt  *time.Time // from EXIF, when present
	Resized  bool
}

// Preflight holds the upload gating limits.
type Preflight struct {
	MaxFileBytes int64 // reject files larger than this
	MaxDimension int   // downscale when the longest side exceeds this
}

const resizedJpegQuality = 85

// Process validates a single upload file. Gate failures come back as
// tagging.ValidationError so the handler can reject the batch locally,
// without a service round-trip.
func (p *Preflight) Process(filename string, r io.Reader) (*Result, error) {
	if !IsRasterImage(filename) {
		return nil, tagging.NewValidationError("%s: unsupported file type", filename)
	}

	limit := p.MaxFileBytes
	if limit <= 0 {
		limit = 40 << 20
	}
	data, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", filename, err)
	}
	if int64(len(data)) > limit {
		return nil, tagging.NewValidationError("%s: exceeds the %d MB photo limit", filename, limit>>20)
	}

	img, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, tagging.NewValidationError("%s: not a decodable image", filename)
	}

	result := &Result{
		Filename: filepath.Base(filename),
		Content:  data,
		Width:    img.Bounds().Dx(),
		Height:   img.Bounds().Dy(),
		TakenAt:  captureTime(data),
	}

	if p.MaxDimension > 0 && (result.Width > p.MaxDimension || result.Height > p.MaxDimension) {
		fitted := imaging.Fit(img, p.MaxDimension, p.MaxDimension, imaging.Lanczos)

		var buf bytes.Buffer
		if err := imaging.Encode(&buf, fitted, imaging.JPEG, imaging.JPEGQuality(resizedJpegQuality)); err != nil {
			return nil, fmt.Errorf("failed to re-encode %s after downscale: %w", filename, err)
		}
		result.Content = buf.Bytes()
		result.Width = fitted.Bounds().Dx()
		result.Height = fitted.Bounds().Dy()
		result.Resized = true

		// the payload is now a JPEG regardless of the original format
		base := strings.TrimSuffix(result.Filename, filepath.Ext(result.Filename))
		result.Filename = base + ".jpg"
	}

	return result, nil
}

// captureTime pulls the EXIF capture timestamp, if the file carries one.
// EXIF problems are never errors; most PNGs won't have a block at all.
func captureTime(data []byte) *time.Time {
	exifData, err := exif.Decode(bytes.NewReader(data))
	if err != nil {
		return nil
	}
	taken, err := exifData.DateTime()
	if err != nil {
		return nil
	}
	return &taken
}
