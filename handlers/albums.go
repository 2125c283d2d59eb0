package handlers

import (
	"log"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"time"

	"github.com/facette/natsort"
	"github.com/go-chi/chi/v5"

	"github.com/snaptag/gateway/config"
	"github.com/snaptag/gateway/models"
	"github.com/snaptag/gateway/paging"
	"github.com/snaptag/gateway/repository"
	"github.com/snaptag/gateway/search"
)

type AlbumHandler struct {
	Service AlbumService
	Refs    repository.ImageRefRepositoryInterface
	Cfg     config.Config
}

// albumView is one album row of the list response; created_at_relative is
// the exact phrase the date search scope matches against.
type albumView struct {
	models.Album
	DisplayName       string `json:"display_name"`
	ImageCount        int    `json:"image_count"`
	CreatedAtRelative string `json:"created_at_relative,omitempty"`
}

type albumListResponse struct {
	Albums         []albumView `json:"albums"`
	Total          int         `json:"total"`
	Page           int         `json:"page"`
	PageSize       int         `json:"page_size"`
	TotalPages     int         `json:"total_pages"`
	NoResultsFound bool        `json:"no_results_found"`
}

func parseBoolParam(values url.Values, key string, fallback bool) bool {
	raw := values.Get(key)
	if raw == "" {
		return fallback
	}
	val, err := strconv.ParseBool(raw)
	if err != nil {
		return fallback
	}
	return val
}

func parseIntParam(values url.Values, key string, fallback int) int {
	raw := values.Get(key)
	if raw == "" {
		return fallback
	}
	val, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return val
}

// ListAlbums runs the fetch → filter → sort → paginate pipeline behind the
// album table: free-text query, per-scope toggles, natural name sort, and
// a clamped 1-based page window.
func (ah *AlbumHandler) ListAlbums(w http.ResponseWriter, r *http.Request) {
	params := r.URL.Query()

	filters := search.DefaultFilters()
	filters.Titles = parseBoolParam(params, "titles", filters.Titles)
	filters.Descriptions = parseBoolParam(params, "descriptions", filters.Descriptions)
	filters.Keywords = parseBoolParam(params, "keywords", filters.Keywords)
	filters.Dates = parseBoolParam(params, "dates", filters.Dates)

	pageSize := parseIntParam(params, "page_size", ah.Cfg.DefaultPageSize)
	if pageSize <= 0 {
		pageSize = ah.Cfg.DefaultPageSize
	}
	if ah.Cfg.MaxPageSize > 0 && pageSize > ah.Cfg.MaxPageSize {
		pageSize = ah.Cfg.MaxPageSize
	}

	albums, err := ah.Service.FetchAlbumsWithDetails(r.Context())
	if err != nil {
		WriteServiceError(w, "list albums", err)
		return
	}

	if params.Get("sort") == "name" {
		sort.SliceStable(albums, func(i, j int) bool {
			return natsort.Compare(albums[i].DisplayName(), albums[j].DisplayName())
		})
	}

	now := time.Now()
	result := search.Filter(albums, params.Get("q"), filters, now)

	totalPages := paging.TotalPages(len(result.Albums), pageSize)
	page := paging.ClampPage(parseIntParam(params, "page", 1), totalPages)
	pageItems := paging.Window(result.Albums, page, pageSize)

	views := make([]albumView, 0, len(pageItems))
	for _, album := range pageItems {
		view := albumView{
			Album:       album,
			DisplayName: album.DisplayName(),
			ImageCount:  album.ImageCount(),
		}
		if created, ok := album.CreatedTime(); ok {
			view.CreatedAtRelative = search.RelativeTime(created, now)
		}
		views = append(views, view)
	}

	writeJSON(w, http.StatusOK, albumListResponse{
		Albums:         views,
		Total:          len(result.Albums),
		Page:           page,
		PageSize:       pageSize,
		TotalPages:     totalPages,
		NoResultsFound: result.NoResultsFound,
	})
}

// GetAlbumContents returns an album's image list and refreshes the
// image→album lookup cache along the way.
func (ah *AlbumHandler) GetAlbumContents(w http.ResponseWriter, r *http.Request) {
	albumID := chi.URLParam(r, "album_id")

	images, err := ah.Service.FetchAlbumDetails(r.Context(), albumID)
	if err != nil {
		WriteServiceError(w, "get album contents", err)
		return
	}

	imageIDs := make([]string, 0, len(images))
	for _, img := range images {
		imageIDs = append(imageIDs, img.ID)
	}
	if err := ah.Refs.PutBatch(albumID, imageIDs); err != nil {
		// cache trouble must never fail the read path
		log.Printf("Error caching image refs for album %s: %v", albumID, err)
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"album_id":    albumID,
		"images":      images,
		"image_count": len(images),
	})
}

// DeleteAlbum removes an album on the tagging service and evicts its
// cached image refs.
func (ah *AlbumHandler) DeleteAlbum(w http.ResponseWriter, r *http.Request) {
	albumID := chi.URLParam(r, "album_id")

	if err := ah.Service.DeleteAlbum(r.Context(), albumID); err != nil {
		WriteServiceError(w, "delete album", err)
		return
	}
	if err := ah.Refs.DeleteByAlbum(albumID); err != nil {
		log.Printf("Error evicting image refs for deleted album %s: %v", albumID, err)
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "Album deleted successfully"})
}
