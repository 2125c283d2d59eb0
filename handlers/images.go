package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"gorm.io/gorm"

	"github.com/snaptag/gateway/repository"
	"github.com/snaptag/gateway/tagging"
)

type ImageHandler struct {
	Service AlbumService
	Refs    repository.ImageRefRepositoryInterface
}

// DeleteImage removes a single image and evicts its lookup cache entry.
func (ih *ImageHandler) DeleteImage(w http.ResponseWriter, r *http.Request) {
	albumID := chi.URLParam(r, "album_id")
	imageID := chi.URLParam(r, "image_id")

	if err := ih.Service.DeleteImage(r.Context(), imageID, albumID); err != nil {
		WriteServiceError(w, "delete image", err)
		return
	}
	if err := ih.Refs.Delete(imageID); err != nil {
		log.Printf("Error evicting image ref %s: %v", imageID, err)
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "Image deleted successfully"})
}

type bulkDeleteRequest struct {
	ImageIDs []string `json:"image_ids"`
}

type bulkDeleteItemError struct {
	ImageID string `json:"image_id"`
	Error   string `json:"error"`
}

type bulkDeleteResponse struct {
	Successful int                   `json:"successful"`
	Failed     int                   `json:"failed"`
	Total      int                   `json:"total"`
	Errors     []bulkDeleteItemError `json:"errors"`
}

// BulkDeleteImages deletes the selected images one by one. The operation
// is deliberately best-effort: a failure mid-way leaves earlier deletions
// in place, keeps going, and the whole outcome is reported once at the
// end. No rollback.
func (ih *ImageHandler) BulkDeleteImages(w http.ResponseWriter, r *http.Request) {
	albumID := chi.URLParam(r, "album_id")

	var req bulkDeleteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteAPIError(w, http.StatusBadRequest, "bad_request", "Invalid request body: "+err.Error())
		return
	}
	if len(req.ImageIDs) == 0 {
		WriteAPIError(w, http.StatusUnprocessableEntity, "validation_failed", "image_ids must not be empty")
		return
	}

	result := bulkDeleteResponse{Total: len(req.ImageIDs), Errors: []bulkDeleteItemError{}}
	for _, imageID := range req.ImageIDs {
		if err := ih.Service.DeleteImage(r.Context(), imageID, albumID); err != nil {
			log.Printf("bulk delete: image %s failed: %v", imageID, err)
			result.Failed++
			result.Errors = append(result.Errors, bulkDeleteItemError{ImageID: imageID, Error: err.Error()})
			continue
		}
		result.Successful++
		if err := ih.Refs.Delete(imageID); err != nil {
			log.Printf("Error evicting image ref %s: %v", imageID, err)
		}
	}

	writeJSON(w, http.StatusOK, result)
}

// LookupAlbum recovers the album an image belongs to, so a bare image URL
// can be routed back to its album page. The cache is consulted first; on a
// miss the album list is scanned and the cache refilled.
func (ih *ImageHandler) LookupAlbum(w http.ResponseWriter, r *http.Request) {
	imageID := chi.URLParam(r, "image_id")

	albumID, err := ih.Refs.Get(imageID)
	if err == nil {
		writeJSON(w, http.StatusOK, map[string]string{"image_id": imageID, "album_id": albumID})
		return
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		log.Printf("Error reading image ref %s: %v", imageID, err)
	}

	albums, err := ih.Service.FetchAlbumsWithDetails(r.Context())
	if err != nil {
		WriteServiceError(w, "lookup album for image", err)
		return
	}
	for _, album := range albums {
		for _, img := range album.Images {
			if img.ID != imageID {
				continue
			}
			if err := ih.Refs.Put(imageID, album.ID); err != nil {
				log.Printf("Error caching image ref %s: %v", imageID, err)
			}
			writeJSON(w, http.StatusOK, map[string]string{"image_id": imageID, "album_id": album.ID})
			return
		}
	}

	WriteServiceError(w, "lookup album for image", tagging.ErrNotFound)
}
