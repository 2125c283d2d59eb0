package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
)

type KeywordHandler struct {
	Service AlbumService
}

type keywordRequest struct {
	Keyword string `json:"keyword"`
}

// AddKeyword attaches a keyword to an image. Blank keywords never leave
// the gateway.
func (kh *KeywordHandler) AddKeyword(w http.ResponseWriter, r *http.Request) {
	albumID := chi.URLParam(r, "album_id")
	imageID := chi.URLParam(r, "image_id")

	var req keywordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteAPIError(w, http.StatusBadRequest, "bad_request", "Invalid request body: "+err.Error())
		return
	}
	if strings.TrimSpace(req.Keyword) == "" {
		WriteAPIError(w, http.StatusUnprocessableEntity, "validation_failed", "Keyword must not be empty")
		return
	}

	if err := kh.Service.AddKeyword(r.Context(), imageID, albumID, req.Keyword); err != nil {
		WriteServiceError(w, "add keyword", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Keyword added successfully"})
}

// DeleteKeyword detaches a keyword from an image.
func (kh *KeywordHandler) DeleteKeyword(w http.ResponseWriter, r *http.Request) {
	albumID := chi.URLParam(r, "album_id")
	imageID := chi.URLParam(r, "image_id")

	keyword := r.URL.Query().Get("keyword")
	if strings.TrimSpace(keyword) == "" {
		WriteAPIError(w, http.StatusUnprocessableEntity, "validation_failed", "Keyword must not be empty")
		return
	}

	if err := kh.Service.DeleteKeyword(r.Context(), imageID, albumID, keyword); err != nil {
		WriteServiceError(w, "delete keyword", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Keyword removed successfully"})
}
