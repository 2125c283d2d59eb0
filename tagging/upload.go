package tagging

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/snaptag/gateway/models"
	"github.com/snaptag/gateway/progress"
)

// UploadFile is one file of a batch upload, already validated and (if
// needed) downscaled by the preflight step.
type UploadFile struct {
	Filename string
	Content  io.Reader
}

// UploadMetadata is the free-form generation hints forwarded with a batch
// (category, description style, keyword count and the like). The service
// defines the recognized keys.
type UploadMetadata map[string]string

// UploadResult is the final payload of a successful batch upload.
type UploadResult struct {
	AlbumID string         `json:"album_id"`
	Images  []models.Image `json:"images"`
}

// uploadLine is one line of the service's NDJSON upload response: either a
// progress tick, the final result, or an error.
type uploadLine struct {
	Total     *int           `json:"total,omitempty"`
	Processed *int           `json:"processed,omitempty"`
	AlbumID   string         `json:"album_id,omitempty"`
	Images    []models.Image `json:"images,omitempty"`

	Error            string `json:"error,omitempty"`
	RemainingCredits int    `json:"remaining_credits,omitempty"`
	RequestedImages  int    `json:"requested_images,omitempty"`
}

// UploadBatchImages submits a batch for AI tagging. The service answers
// with an NDJSON stream: progress ticks while it uploads and tags, then a
// final line carrying the created album and image records. onProgress is
// invoked for every tick, in order, on the calling goroutine; it may be
// nil. The per-call HTTP timeout is deliberately not applied here — the
// stream lives as long as the tagging does; cancel via ctx instead.
func (c *Client) UploadBatchImages(ctx context.Context, files []UploadFile, metadata UploadMetadata, onProgress func(progress.Tick)) (*UploadResult, error) {
	if len(files) == 0 {
		return nil, NewValidationError("no files to upload")
	}

	pr, pw := io.Pipe()
	form := multipart.NewWriter(pw)

	go func() {
		var err error
		defer func() { pw.CloseWithError(err) }()

		if metadata != nil {
			var encoded []byte
			encoded, err = json.Marshal(metadata)
			if err != nil {
				return
			}
			if err = form.WriteField("metadata", string(encoded)); err != nil {
				return
			}
		}
		for _, f := range files {
			var part io.Writer
			part, err = form.CreateFormFile("files", f.Filename)
			if err != nil {
				return
			}
			if _, err = io.Copy(part, f.Content); err != nil {
				err = fmt.Errorf("failed to write %s into upload form: %w", f.Filename, err)
				return
			}
		}
		err = form.Close()
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/uploads", pr)
	if err != nil {
		return nil, fmt.Errorf("failed to build upload request: %w", err)
	}
	req.Header.Set("Content-Type", form.FormDataContentType())
	req.Header.Set("Accept", "application/x-ndjson")

	// a streaming upload must not be bound by the short per-call timeout
	streamClient := &http.Client{Transport: c.httpClient.Transport}
	resp, err := streamClient.Do(req)
	if err != nil {
		return nil, &TransientError{Op: "upload batch", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, decodeError("upload batch", resp)
	}

	return readUploadStream(resp.Body, onProgress)
}

// readUploadStream consumes NDJSON lines until the final result or an
// error line arrives.
func readUploadStream(body io.Reader, onProgress func(progress.Tick)) (*UploadResult, error) {
	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	var result *UploadResult
	for scanner.Scan() {
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}

		var line uploadLine
		if err := json.Unmarshal([]byte(text), &line); err != nil {
			return nil, &TransientError{Op: "upload batch", Err: fmt.Errorf("malformed progress line: %w", err)}
		}

		switch {
		case line.Error != "":
			if strings.EqualFold(line.Error, "insufficient credits") {
				return nil, &InsufficientCreditsError{
					RemainingCredits: line.RemainingCredits,
					RequestedImages:  line.RequestedImages,
				}
			}
			return nil, &TransientError{Op: "upload batch", Err: fmt.Errorf("service error: %s", line.Error)}

		case line.Images != nil:
			result = &UploadResult{AlbumID: line.AlbumID, Images: line.Images}

		case line.Total != nil && line.Processed != nil:
			if onProgress != nil {
				onProgress(progress.Tick{Total: *line.Total, Processed: *line.Processed})
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, &TransientError{Op: "upload batch", Err: fmt.Errorf("progress stream interrupted: %w", err)}
	}
	if result == nil {
		return nil, &TransientError{Op: "upload batch", Err: fmt.Errorf("stream ended without a result")}
	}
	return result, nil
}
