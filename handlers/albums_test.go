package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"gorm.io/gorm"

	"github.com/snaptag/gateway/config"
	"github.com/snaptag/gateway/models"
)

type stubAlbumService struct {
	albums     []models.Album
	fetchErr   error
	deleteErrs map[string]error

	deletedImages []string
	addedKeywords []string
}

func (s *stubAlbumService) FetchAlbumsWithDetails(ctx context.Context) ([]models.Album, error) {
	return s.albums, s.fetchErr
}

func (s *stubAlbumService) FetchAlbumDetails(ctx context.Context, albumID string) ([]models.Image, error) {
	for _, a := range s.albums {
		if a.ID == albumID {
			return a.Images, nil
		}
	}
	return nil, s.fetchErr
}

func (s *stubAlbumService) DeleteAlbum(ctx context.Context, albumID string) error {
	return nil
}

func (s *stubAlbumService) DeleteImage(ctx context.Context, imageID, albumID string) error {
	if err, ok := s.deleteErrs[imageID]; ok {
		return err
	}
	s.deletedImages = append(s.deletedImages, imageID)
	return nil
}

func (s *stubAlbumService) AddKeyword(ctx context.Context, imageID, albumID, keyword string) error {
	s.addedKeywords = append(s.addedKeywords, keyword)
	return nil
}

func (s *stubAlbumService) DeleteKeyword(ctx context.Context, imageID, albumID, keyword string) error {
	return nil
}

type stubRefs struct {
	entries map[string]string
}

func newStubRefs() *stubRefs {
	return &stubRefs{entries: make(map[string]string)}
}

func (s *stubRefs) Put(imageID, albumID string) error {
	s.entries[imageID] = albumID
	return nil
}

func (s *stubRefs) PutBatch(albumID string, imageIDs []string) error {
	for _, id := range imageIDs {
		s.entries[id] = albumID
	}
	return nil
}

func (s *stubRefs) Get(imageID string) (string, error) {
	albumID, ok := s.entries[imageID]
	if !ok {
		return "", gorm.ErrRecordNotFound
	}
	return albumID, nil
}

func (s *stubRefs) Delete(imageID string) error {
	delete(s.entries, imageID)
	return nil
}

func (s *stubRefs) DeleteByAlbum(albumID string) error {
	for id, aid := range s.entries {
		if aid == albumID {
			delete(s.entries, id)
		}
	}
	return nil
}

func testConfig() config.Config {
	return config.Config{DefaultPageSize: 5, MaxPageSize: 100}
}

func makeAlbums(n int) []models.Album {
	albums := make([]models.Album, 0, n)
	for i := 1; i <= n; i++ {
		albums = append(albums, models.Album{
			ID:        fmt.Sprintf("a%d", i),
			Name:      fmt.Sprintf("Trip %d", i),
			CreatedAt: "2025-06-01T10:00:00Z",
			Images: []models.Image{
				{ID: fmt.Sprintf("img%d", i), Title: fmt.Sprintf("Photo %d", i)},
			},
		})
	}
	return albums
}

func decodeListResponse(t *testing.T, body io.Reader) albumListResponse {
	t.Helper()
	var resp albumListResponse
	if err := json.NewDecoder(body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	return resp
}

func TestListAlbumsPaginates(t *testing.T) {
	handler := &AlbumHandler{
		Service: &stubAlbumService{albums: makeAlbums(7)},
		Refs:    newStubRefs(),
		Cfg:     testConfig(),
	}

	req := httptest.NewRequest(http.MethodGet, "/api/albums?page=2", nil)
	rec := httptest.NewRecorder()
	handler.ListAlbums(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	resp := decodeListResponse(t, rec.Body)

	if resp.Total != 7 || resp.TotalPages != 2 || resp.Page != 2 {
		t.Fatalf("unexpected envelope: total=%d pages=%d page=%d", resp.Total, resp.TotalPages, resp.Page)
	}
	if len(resp.Albums) != 2 {
		t.Fatalf("expected 2 albums on page 2, got %d", len(resp.Albums))
	}
	if resp.Albums[0].ID != "a6" {
		t.Errorf("expected page 2 to start at a6, got %s", resp.Albums[0].ID)
	}
}

func TestListAlbumsClampsPageIntoRange(t *testing.T) {
	handler := &AlbumHandler{
		Service: &stubAlbumService{albums: makeAlbums(7)},
		Refs:    newStubRefs(),
		Cfg:     testConfig(),
	}

	req := httptest.NewRequest(http.MethodGet, "/api/albums?page=99", nil)
	rec := httptest.NewRecorder()
	handler.ListAlbums(rec, req)

	resp := decodeListResponse(t, rec.Body)
	if resp.Page != 2 {
		t.Errorf("expected page clamped to 2, got %d", resp.Page)
	}
}

func TestListAlbumsQueryMiss(t *testing.T) {
	handler := &AlbumHandler{
		Service: &stubAlbumService{albums: makeAlbums(3)},
		Refs:    newStubRefs(),
		Cfg:     testConfig(),
	}

	req := httptest.NewRequest(http.MethodGet, "/api/albums?q=zzzz", nil)
	rec := httptest.NewRecorder()
	handler.ListAlbums(rec, req)

	resp := decodeListResponse(t, rec.Body)
	if !resp.NoResultsFound {
		t.Error("expected no_results_found for a query matching nothing")
	}
	if resp.Total != 0 || len(resp.Albums) != 0 {
		t.Errorf("expected empty result, got total=%d len=%d", resp.Total, len(resp.Albums))
	}
	if resp.Page != 1 {
		t.Errorf("expected page 1 for an empty result, got %d", resp.Page)
	}
}

func TestListAlbumsAllScopesDisabled(t *testing.T) {
	handler := &AlbumHandler{
		Service: &stubAlbumService{albums: makeAlbums(3)},
		Refs:    newStubRefs(),
		Cfg:     testConfig(),
	}

	req := httptest.NewRequest(http.MethodGet, "/api/albums?q=trip&titles=false&descriptions=false&keywords=false", nil)
	rec := httptest.NewRecorder()
	handler.ListAlbums(rec, req)

	resp := decodeListResponse(t, rec.Body)
	if resp.Total != 0 {
		t.Errorf("expected no matches with every scope disabled, got %d", resp.Total)
	}
}

func TestGetAlbumContentsFillsLookupCache(t *testing.T) {
	refs := newStubRefs()
	handler := &AlbumHandler{
		Service: &stubAlbumService{albums: makeAlbums(2)},
		Refs:    refs,
		Cfg:     testConfig(),
	}

	r := chi.NewRouter()
	r.Get("/api/albums/{album_id}/images", handler.GetAlbumContents)

	req := httptest.NewRequest(http.MethodGet, "/api/albums/a1/images", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if got := refs.entries["img1"]; got != "a1" {
		t.Errorf("expected img1 cached under a1, got %q", got)
	}
}

func TestBulkDeleteReportsPartialFailure(t *testing.T) {
	svc := &stubAlbumService{
		albums:     makeAlbums(3),
		deleteErrs: map[string]error{"img2": fmt.Errorf("boom")},
	}
	handler := &ImageHandler{Service: svc, Refs: newStubRefs()}

	r := chi.NewRouter()
	r.Post("/api/albums/{album_id}/images/bulk_delete", handler.BulkDeleteImages)

	body := strings.NewReader(`{"image_ids":["img1","img2","img3"]}`)
	req := httptest.NewRequest(http.MethodPost, "/api/albums/a1/images/bulk_delete", body)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 for a partial failure, got %d", rec.Code)
	}
	var resp bulkDeleteResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Successful != 2 || resp.Failed != 1 || resp.Total != 3 {
		t.Fatalf("unexpected aggregate: %+v", resp)
	}
	if len(resp.Errors) != 1 || resp.Errors[0].ImageID != "img2" {
		t.Errorf("expected the error to name img2, got %+v", resp.Errors)
	}
	if len(svc.deletedImages) != 2 {
		t.Errorf("expected the batch to keep going after the failure, deleted %v", svc.deletedImages)
	}
}

func TestAddKeywordRejectsBlank(t *testing.T) {
	svc := &stubAlbumService{}
	handler := &KeywordHandler{Service: svc}

	r := chi.NewRouter()
	r.Post("/api/albums/{album_id}/images/{image_id}/keywords", handler.AddKeyword)

	body := strings.NewReader(`{"keyword":"   "}`)
	req := httptest.NewRequest(http.MethodPost, "/api/albums/a1/images/img1/keywords", body)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 for a blank keyword, got %d", rec.Code)
	}
	if len(svc.addedKeywords) != 0 {
		t.Error("blank keyword must not reach the service")
	}
}

func TestLookupAlbumFallsBackToScan(t *testing.T) {
	refs := newStubRefs()
	handler := &ImageHandler{
		Service: &stubAlbumService{albums: makeAlbums(3)},
		Refs:    refs,
	}

	r := chi.NewRouter()
	r.Get("/api/images/{image_id}/album", handler.LookupAlbum)

	req := httptest.NewRequest(http.MethodGet, "/api/images/img2/album", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var resp map[string]string
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp["album_id"] != "a2" {
		t.Errorf("expected album a2, got %q", resp["album_id"])
	}
	if refs.entries["img2"] != "a2" {
		t.Error("expected the scan result to refill the cache")
	}
}

func TestLookupAlbumUnknownImage(t *testing.T) {
	handler := &ImageHandler{
		Service: &stubAlbumService{albums: makeAlbums(1)},
		Refs:    newStubRefs(),
	}

	r := chi.NewRouter()
	r.Get("/api/images/{image_id}/album", handler.LookupAlbum)

	req := httptest.NewRequest(http.MethodGet, "/api/images/nope/album", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for an unknown image, got %d", rec.Code)
	}
}
