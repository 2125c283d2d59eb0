// Package export orchestrates multi-album keyword CSV downloads: bounded
// concurrency, incremental progress, partial-failure tolerance.
package export

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sync"
)

// Downloader is the single tagging-service operation the exporter needs.
type Downloader interface {
	DownloadKeywordsCSV(ctx context.Context, albumID, platform string) (io.ReadCloser, string, error)
}

// ItemError is the per-album failure detail of a batch export.
type ItemError struct {
	AlbumID string `json:"album_id"`
	Error   string `json:"error"`
}

// Result aggregates a batch export. A batch with failures is still a
// completed batch; callers inspect Failed and Errors, they never get a
// hard error for a partial outcome.
type Result struct {
	Successful int         `json:"successful"`
	Failed     int         `json:"failed"`
	Total      int         `json:"total"`
	Errors     []ItemError `json:"errors"`
	Files      []string    `json:"files"`
}

// ProgressFunc is invoked after each per-album completion, success or
// failure, with the number of finished downloads so far.
type ProgressFunc func(completed, total int)

// Exporter downloads keyword CSVs into a local directory using a small
// worker pool.
type Exporter struct {
	Client  Downloader
	Dir     string
	Workers int
}

func NewExporter(client Downloader, dir string, workers int) *Exporter {
	if workers <= 0 {
		workers = 1
	}
	return &Exporter{Client: client, Dir: dir, Workers: workers}
}

// DownloadAlbum fetches one album's CSV and writes it under the export
// directory, returning the written path.
func (e *Exporter) DownloadAlbum(ctx context.Context, albumID, platform string) (string, error) {
	if err := os.MkdirAll(e.Dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create export directory %s: %w", e.Dir, err)
	}

	stream, filename, err := e.Client.DownloadKeywordsCSV(ctx, albumID, platform)
	if err != nil {
		return "", err
	}
	defer stream.Close()

	savePath := filepath.Join(e.Dir, filepath.Base(filename))
	out, err := os.Create(savePath)
	if err != nil {
		return "", fmt.Errorf("failed to create %s: %w", savePath, err)
	}
	defer out.Close()

	if _, err := io.Copy(out, stream); err != nil {
		os.Remove(savePath)
		return "", fmt.Errorf("failed to write %s: %w", savePath, err)
	}
	return savePath, nil
}

// DownloadMultiple exports the CSVs of several albums. Workers pull album
// IDs from a channel; every completion (either way) advances the progress
// callback exactly once. The batch never aborts on a failed album.
func (e *Exporter) DownloadMultiple(ctx context.Context, albumIDs []string, platform string, onProgress ProgressFunc) Result {
	result := Result{Total: len(albumIDs)}
	if len(albumIDs) == 0 {
		return result
	}

	jobs := make(chan string)
	var mu sync.Mutex
	var wg sync.WaitGroup
	completed := 0

	workers := e.Workers
	if workers > len(albumIDs) {
		workers = len(albumIDs)
	}

	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			for albumID := range jobs {
				path, err := e.DownloadAlbum(ctx, albumID, platform)

				mu.Lock()
				completed++
				if err != nil {
					log.Printf("export: album %s failed: %v", albumID, err)
					result.Failed++
					result.Errors = append(result.Errors, ItemError{AlbumID: albumID, Error: err.Error()})
				} else {
					result.Successful++
					result.Files = append(result.Files, path)
				}
				// invoked under the lock so callers see a strictly
				// increasing completed count
				if onProgress != nil {
					onProgress(completed, len(albumIDs))
				}
				mu.Unlock()
			}
		}()
	}

	for _, albumID := range albumIDs {
		jobs <- albumID
	}
	close(jobs)
	wg.Wait()

	if result.Errors == nil {
		result.Errors = []ItemError{}
	}
	if result.Files == nil {
		result.Files = []string{}
	}
	return result
}
