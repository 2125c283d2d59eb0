package export

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// fakeDownloader fails the album IDs listed in failing.
type fakeDownloader struct {
	failing map[string]bool
}

func (f *fakeDownloader) DownloadKeywordsCSV(ctx context.Context, albumID, platform string) (io.ReadCloser, string, error) {
	if f.failing[albumID] {
		return nil, "", errors.New("download rejected")
	}
	body := fmt.Sprintf("keyword,weight\n%s,1\n", albumID)
	return io.NopCloser(strings.NewReader(body)), albumID + "_" + platform + ".csv", nil
}

func TestPartialBatchFailure(t *testing.T) {
	dir := t.TempDir()
	exp := NewExporter(&fakeDownloader{failing: map[string]bool{"a2": true}}, dir, 2)

	result := exp.DownloadMultiple(context.Background(), []string{"a1", "a2", "a3"}, "shutterstock", nil)

	if result.Successful != 2 || result.Failed != 1 || result.Total != 3 {
		t.Fatalf("aggregate = %+v", result)
	}
	if len(result.Errors) != 1 || result.Errors[0].AlbumID != "a2" {
		t.Fatalf("errors = %+v", result.Errors)
	}
	if len(result.Files) != 2 {
		t.Fatalf("files = %+v", result.Files)
	}
	for _, p := range result.Files {
		if _, err := os.Stat(p); err != nil {
			t.Errorf("exported file missing: %v", err)
		}
	}
}

func TestProgressCallbackPerCompletion(t *testing.T) {
	dir := t.TempDir()
	exp := NewExporter(&fakeDownloader{failing: map[string]bool{"a2": true}}, dir, 1)

	var seen []int
	exp.DownloadMultiple(context.Background(), []string{"a1", "a2", "a3"}, "other", func(completed, total int) {
		if total != 3 {
			t.Errorf("total = %d, want 3", total)
		}
		seen = append(seen, completed)
	})

	if len(seen) != 3 {
		t.Fatalf("progress fired %d times, want 3 (got %v)", len(seen), seen)
	}
	for i, c := range seen {
		if c != i+1 {
			t.Fatalf("progress counts not strictly increasing: %v", seen)
		}
	}
}

func TestEmptyBatch(t *testing.T) {
	exp := NewExporter(&fakeDownloader{}, t.TempDir(), 4)
	result := exp.DownloadMultiple(context.Background(), nil, "other", nil)
	if result.Total != 0 || result.Successful != 0 || result.Failed != 0 {
		t.Fatalf("aggregate = %+v", result)
	}
}

func TestDownloadAlbumWritesFile(t *testing.T) {
	dir := t.TempDir()
	exp := NewExporter(&fakeDownloader{}, dir, 1)

	path, err := exp.DownloadAlbum(context.Background(), "a9", "adobe_stock")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if filepath.Dir(path) != dir {
		t.Errorf("file written outside export dir: %s", path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	if !strings.Contains(string(data), "a9") {
		t.Errorf("unexpected content %q", data)
	}
}
