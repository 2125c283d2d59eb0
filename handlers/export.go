package handlers

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/snaptag/gateway/export"
	"github.com/snaptag/gateway/realtime"
	"github.com/snaptag/gateway/tagging"
)

type ExportHandler struct {
	Service  CSVService
	Exporter *export.Exporter
	Hub      *realtime.Hub
}

// DownloadAlbumCSV streams one album's keyword CSV straight through to the
// browser.
func (eh *ExportHandler) DownloadAlbumCSV(w http.ResponseWriter, r *http.Request) {
	albumID := chi.URLParam(r, "album_id")
	platform := r.URL.Query().Get("platform")

	if !tagging.IsValidPlatform(platform) {
		WriteAPIError(w, http.StatusBadRequest, "bad_request", fmt.Sprintf("Unknown platform %q", platform))
		return
	}

	stream, filename, err := eh.Service.DownloadKeywordsCSV(r.Context(), albumID, platform)
	if err != nil {
		WriteServiceError(w, "download keywords csv", err)
		return
	}
	defer stream.Close()

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	if _, err := io.Copy(w, stream); err != nil {
		log.Printf("Error streaming CSV for album %s: %v", albumID, err)
	}
}

type multiExportRequest struct {
	AlbumIDs []string `json:"album_ids"`
	Platform string   `json:"platform"`
}

type multiExportResponse struct {
	ExportID string `json:"export_id"`
	export.Result
}

// DownloadMultipleCSV exports the CSVs of several albums with bounded
// concurrency. Per-album progress is pushed to the export's websocket
// topic; the response carries the aggregate, which tolerates partial
// failure by design.
func (eh *ExportHandler) DownloadMultipleCSV(w http.ResponseWriter, r *http.Request) {
	var req multiExportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteAPIError(w, http.StatusBadRequest, "bad_request", "Invalid request body: "+err.Error())
		return
	}
	if len(req.AlbumIDs) == 0 {
		WriteAPIError(w, http.StatusUnprocessableEntity, "validation_failed", "album_ids must not be empty")
		return
	}
	if !tagging.IsValidPlatform(req.Platform) {
		WriteAPIError(w, http.StatusBadRequest, "bad_request", fmt.Sprintf("Unknown platform %q", req.Platform))
		return
	}

	exportID := uuid.NewString()
	topic := "export:" + exportID

	result := eh.Exporter.DownloadMultiple(r.Context(), req.AlbumIDs, req.Platform, func(completed, total int) {
		eh.Hub.Publish(realtime.Event{
			Type:  "progress",
			Topic: topic,
			Payload: map[string]int{
				"current": completed,
				"total":   total,
			},
			Timestamp: time.Now().Unix(),
		})
	})

	log.Printf("export %s: %d/%d albums succeeded (%d failed)", exportID, result.Successful, result.Total, result.Failed)
	writeJSON(w, http.StatusOK, multiExportResponse{ExportID: exportID, Result: result})
}
