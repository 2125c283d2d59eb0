package handlers

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/snaptag/gateway/config"
	"github.com/snaptag/gateway/database"
	"github.com/snaptag/gateway/media"
	"github.com/snaptag/gateway/models"
	"github.com/snaptag/gateway/progress"
	"github.com/snaptag/gateway/realtime"
	"github.com/snaptag/gateway/repository"
	"github.com/snaptag/gateway/tagging"
)

// maxMultipartMemory caps how much of the request body stays in memory
// while parsing; the rest spills to temp files.
const maxMultipartMemory = 32 << 20

type UploadHandler struct {
	Service   UploadService
	Preflight *media.Preflight
	Sessions  *progress.Registry
	Hub       *realtime.Hub
	History   *sql.DB
	Refs      repository.ImageRefRepositoryInterface
	Cfg       config.Config

	mu      sync.Mutex
	cancels map[string]context.CancelFunc
}

type createUploadResponse struct {
	UploadID string `json:"upload_id"`
	progress.Snapshot
}

// CreateUpload accepts a multipart batch, runs every file through the
// preflight gates, and starts the tagging upload in the background. The
// response carries the session id to poll or subscribe on; a preflight
// failure rejects the whole batch before anything leaves the gateway.
func (uh *UploadHandler) CreateUpload(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxMultipartMemory); err != nil {
		WriteAPIError(w, http.StatusBadRequest, "bad_request", "Invalid multipart body: "+err.Error())
		return
	}
	defer r.MultipartForm.RemoveAll()

	fileHeaders := r.MultipartForm.File["files"]
	if len(fileHeaders) == 0 {
		WriteAPIError(w, http.StatusUnprocessableEntity, "validation_failed", "No files in upload")
		return
	}
	if uh.Cfg.MaxUploadFiles > 0 && len(fileHeaders) > uh.Cfg.MaxUploadFiles {
		WriteAPIError(w, http.StatusUnprocessableEntity, "validation_failed",
			"Too many files: the limit is "+strconv.Itoa(uh.Cfg.MaxUploadFiles)+" per batch")
		return
	}

	metadata := tagging.UploadMetadata{}
	if raw := r.FormValue("metadata"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &metadata); err != nil {
			WriteAPIError(w, http.StatusBadRequest, "bad_request", "Invalid metadata: "+err.Error())
			return
		}
	}

	checked := make([]*media.Result, 0, len(fileHeaders))
	files := make([]tagging.UploadFile, 0, len(fileHeaders))
	for _, header := range fileHeaders {
		part, err := header.Open()
		if err != nil {
			WriteAPIError(w, http.StatusBadRequest, "bad_request", "Could not read "+header.Filename)
			return
		}
		result, err := uh.Preflight.Process(header.Filename, part)
		part.Close()
		if err != nil {
			WriteServiceError(w, "upload preflight", err)
			return
		}
		checked = append(checked, result)
		files = append(files, tagging.UploadFile{
			Filename: result.Filename,
			Content:  bytes.NewReader(result.Content),
		})
	}

	// the oldest EXIF capture time is the batch's "when were these taken"
	// hint; an explicit caller value wins
	if metadata["captured_at"] == "" {
		if taken := earliestCapture(checked); taken != nil {
			metadata["captured_at"] = taken.UTC().Format(time.RFC3339)
		}
	}

	uploadID := uuid.NewString()
	session := uh.Sessions.Create(uploadID)

	if err := database.InsertUploadSession(uh.History, uploadID, len(files)); err != nil {
		// history is advisory, the upload proceeds without it
		log.Printf("Error recording upload session %s: %v", uploadID, err)
	}

	topic := "upload:" + uploadID
	session.Agg.Subscribe(func(snap progress.Snapshot) {
		uh.Hub.Publish(realtime.Event{
			Type:      "progress",
			Topic:     topic,
			Payload:   snap,
			Timestamp: time.Now().Unix(),
		})
	})

	ctx, cancel := context.WithCancel(context.Background())
	uh.mu.Lock()
	if uh.cancels == nil {
		uh.cancels = make(map[string]context.CancelFunc)
	}
	uh.cancels[uploadID] = cancel
	uh.mu.Unlock()

	go uh.runUpload(ctx, uploadID, session, files, metadata)

	log.Printf("upload %s: started with %d files", uploadID, len(files))
	writeJSON(w, http.StatusAccepted, createUploadResponse{
		UploadID: uploadID,
		Snapshot: session.Agg.Snapshot(),
	})
}

// earliestCapture picks the oldest capture timestamp found across the
// batch, or nil when no file carried EXIF.
func earliestCapture(results []*media.Result) *time.Time {
	var earliest *time.Time
	for _, res := range results {
		if res.TakenAt == nil {
			continue
		}
		if earliest == nil || res.TakenAt.Before(*earliest) {
			earliest = res.TakenAt
		}
	}
	return earliest
}

func (uh *UploadHandler) runUpload(ctx context.Context, uploadID string, session *progress.Session, files []tagging.UploadFile, metadata tagging.UploadMetadata) {
	defer func() {
		uh.mu.Lock()
		delete(uh.cancels, uploadID)
		uh.mu.Unlock()
	}()

	session.Agg.Start(len(files))

	markedProcessing := false
	result, err := uh.Service.UploadBatchImages(ctx, files, metadata, func(t progress.Tick) {
		session.Agg.Apply(t)
		if t.Processed > 0 && !markedProcessing {
			markedProcessing = true
			if err := database.SetUploadSessionStatus(uh.History, uploadID, database.UploadStatusProcessing, nil, nil); err != nil {
				log.Printf("Error updating upload session %s: %v", uploadID, err)
			}
		}
	})
	if err != nil {
		log.Printf("upload %s failed: %v", uploadID, err)
		session.Fail(err)
		msg := err.Error()
		if dbErr := database.SetUploadSessionStatus(uh.History, uploadID, database.UploadStatusFailed, nil, &msg); dbErr != nil {
			log.Printf("Error updating upload session %s: %v", uploadID, dbErr)
		}
		return
	}

	session.Complete(result.AlbumID, result.Images)

	// force the terminal phase even if the stream ended without a 100% tick
	total := session.Agg.Snapshot().Total
	if total <= 0 {
		total = len(files)
	}
	session.Agg.Apply(progress.Tick{Total: total, Processed: total})

	imageIDs := make([]string, 0, len(result.Images))
	for _, img := range result.Images {
		imageIDs = append(imageIDs, img.ID)
	}
	if err := uh.Refs.PutBatch(result.AlbumID, imageIDs); err != nil {
		log.Printf("Error caching image refs for album %s: %v", result.AlbumID, err)
	}

	if err := database.SetUploadSessionStatus(uh.History, uploadID, database.UploadStatusDone, &result.AlbumID, nil); err != nil {
		log.Printf("Error updating upload session %s: %v", uploadID, err)
	}
	log.Printf("upload %s: done, album %s with %d images", uploadID, result.AlbumID, len(result.Images))
}

type uploadStatusResponse struct {
	UploadID string `json:"upload_id"`
	progress.Snapshot
	AlbumID     string          `json:"album_id,omitempty"`
	Images      []models.Image  `json:"images,omitempty"`
	ErrorDetail *APIErrorDetail `json:"error_detail,omitempty"`
}

// GetUpload returns the live snapshot of a session, including the final
// album once the upload resolves. Sessions pruned from memory fall back
// to the history row.
func (uh *UploadHandler) GetUpload(w http.ResponseWriter, r *http.Request) {
	uploadID := chi.URLParam(r, "upload_id")

	session, ok := uh.Sessions.Get(uploadID)
	if !ok {
		row, err := database.GetUploadSession(uh.History, uploadID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				WriteAPIError(w, http.StatusNotFound, "not_found", "Unknown upload session")
				return
			}
			log.Printf("Error reading upload session %s: %v", uploadID, err)
			WriteAPIError(w, http.StatusInternalServerError, "internal_error", "Something went wrong")
			return
		}
		writeJSON(w, http.StatusOK, row)
		return
	}

	resp := uploadStatusResponse{
		UploadID: uploadID,
		Snapshot: session.Agg.Snapshot(),
	}
	albumID, images, err := session.Result()
	if err != nil {
		detail, _ := ErrorDetail(err)
		resp.ErrorDetail = &detail
	} else {
		resp.AlbumID = albumID
		resp.Images = images
	}

	writeJSON(w, http.StatusOK, resp)
}

// CancelUpload aborts an in-flight upload and releases the session. The
// upload goroutine observes the context cancellation and records the
// failure in history.
func (uh *UploadHandler) CancelUpload(w http.ResponseWriter, r *http.Request) {
	uploadID := chi.URLParam(r, "upload_id")

	if _, ok := uh.Sessions.Get(uploadID); !ok {
		WriteAPIError(w, http.StatusNotFound, "not_found", "Unknown upload session")
		return
	}

	uh.mu.Lock()
	cancel, running := uh.cancels[uploadID]
	uh.mu.Unlock()
	if running {
		cancel()
	}
	uh.Sessions.Remove(uploadID)

	writeJSON(w, http.StatusOK, map[string]string{"message": "Upload session released"})
}

// ListUploadHistory returns recent upload sessions from the history
// store. Optional filters: status, since (unix seconds), limit.
func (uh *UploadHandler) ListUploadHistory(w http.ResponseWriter, r *http.Request) {
	params := r.URL.Query()

	status := params.Get("status")
	switch status {
	case "", database.UploadStatusUploading, database.UploadStatusProcessing, database.UploadStatusDone, database.UploadStatusFailed:
	default:
		WriteAPIError(w, http.StatusBadRequest, "bad_request", "Unknown status filter "+strconv.Quote(status))
		return
	}

	var since int64
	if raw := params.Get("since"); raw != "" {
		parsed, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			WriteAPIError(w, http.StatusBadRequest, "bad_request", "since must be a unix timestamp")
			return
		}
		since = parsed
	}
	limit := parseIntParam(params, "limit", 50)

	sessions, err := database.ListUploadSessions(uh.History, status, since, limit)
	if err != nil {
		log.Printf("Error listing upload sessions: %v", err)
		WriteAPIError(w, http.StatusInternalServerError, "internal_error", "Something went wrong")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"sessions": sessions,
		"count":    len(sessions),
	})
}
