package tagging

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/snaptag/gateway/progress"
)

func newTestClient(handler http.Handler) (*Client, *httptest.Server) {
	srv := httptest.NewServer(handler)
	return NewClient(srv.URL, 5*time.Second), srv
}

func TestFetchAlbumsWithDetails(t *testing.T) {
	client, srv := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/albums" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"albums":[{"album_id":"a1","album_name":"Beach Trip","images":[{"image_id":"i1","keywords":["sun"]}]}]}`)
	}))
	defer srv.Close()

	albums, err := client.FetchAlbumsWithDetails(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(albums) != 1 || albums[0].ID != "a1" || albums[0].Images[0].Keywords[0] != "sun" {
		t.Fatalf("decoded albums = %+v", albums)
	}
}

func TestNotFoundMapping(t *testing.T) {
	client, srv := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		fmt.Fprint(w, `{"error":"Album not found"}`)
	}))
	defer srv.Close()

	err := client.DeleteAlbum(context.Background(), "missing")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestTransientMapping(t *testing.T) {
	client, srv := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		fmt.Fprint(w, `{"error":"database on fire"}`)
	}))
	defer srv.Close()

	_, err := client.FetchAlbumDetails(context.Background(), "a1")
	var te *TransientError
	if !errors.As(err, &te) {
		t.Fatalf("expected TransientError, got %v", err)
	}
	if !strings.Contains(te.Error(), "database on fire") {
		t.Errorf("service payload not passed through: %v", te)
	}
}

func TestBlankKeywordRejectedLocally(t *testing.T) {
	called := false
	client, srv := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer srv.Close()

	for _, kw := range []string{"", "   ", "\t"} {
		err := client.AddKeyword(context.Background(), "i1", "a1", kw)
		var ve *ValidationError
		if !errors.As(err, &ve) {
			t.Fatalf("keyword %q: expected ValidationError, got %v", kw, err)
		}
	}
	if called {
		t.Fatal("blank keyword reached the network")
	}
}

func TestDownloadKeywordsCSVRejectsUnknownPlatform(t *testing.T) {
	client, srv := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("request should not have been sent")
	}))
	defer srv.Close()

	_, _, err := client.DownloadKeywordsCSV(context.Background(), "a1", "gettyimages")
	var ve *ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
}

func TestUploadBatchStreamsProgress(t *testing.T) {
	client, srv := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(32 << 20); err != nil {
			t.Fatalf("bad multipart body: %v", err)
		}
		if got := len(r.MultipartForm.File["files"]); got != 2 {
			t.Errorf("file count = %d, want 2", got)
		}
		w.Header().Set("Content-Type", "application/x-ndjson")
		fmt.Fprintln(w, `{"total":2,"processed":0}`)
		fmt.Fprintln(w, `{"total":2,"processed":1}`)
		fmt.Fprintln(w, `{"total":2,"processed":2}`)
		fmt.Fprintln(w, `{"album_id":"new-album","images":[{"image_id":"i1"},{"image_id":"i2"}]}`)
	}))
	defer srv.Close()

	var ticks []progress.Tick
	files := []UploadFile{
		{Filename: "one.jpg", Content: strings.NewReader("fake-jpeg-1")},
		{Filename: "two.jpg", Content: strings.NewReader("fake-jpeg-2")},
	}
	result, err := client.UploadBatchImages(context.Background(), files, UploadMetadata{"category": "nature"}, func(tk progress.Tick) {
		ticks = append(ticks, tk)
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.AlbumID != "new-album" || len(result.Images) != 2 {
		t.Fatalf("result = %+v", result)
	}
	if len(ticks) != 3 || ticks[0].Processed != 0 || ticks[2].Processed != 2 {
		t.Fatalf("ticks = %+v", ticks)
	}
}

func TestUploadInsufficientCredits(t *testing.T) {
	client, srv := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/x-ndjson")
		fmt.Fprintln(w, `{"total":5,"processed":0}`)
		fmt.Fprintln(w, `{"error":"Insufficient credits","remaining_credits":2,"requested_images":5}`)
	}))
	defer srv.Close()

	files := []UploadFile{{Filename: "a.jpg", Content: strings.NewReader("x")}}
	_, err := client.UploadBatchImages(context.Background(), files, nil, nil)

	var ice *InsufficientCreditsError
	if !errors.As(err, &ice) {
		t.Fatalf("expected InsufficientCreditsError, got %v", err)
	}
	if ice.RemainingCredits != 2 || ice.RequestedImages != 5 {
		t.Fatalf("credit details lost: %+v", ice)
	}
}

func TestUploadRejectsEmptyBatch(t *testing.T) {
	client := NewClient("http://127.0.0.1:0", time.Second)
	_, err := client.UploadBatchImages(context.Background(), nil, nil, nil)
	var ve *ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
}
