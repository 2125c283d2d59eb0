package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/snaptag/gateway/realtime"
)

type WSHandler struct {
	Hub *realtime.Hub
}

// UploadSocket subscribes the client to one upload session's progress
// stream.
func (wh *WSHandler) UploadSocket(w http.ResponseWriter, r *http.Request) {
	uploadID := chi.URLParam(r, "upload_id")
	wh.Hub.ServeWS(w, r, "upload:"+uploadID)
}

// ExportSocket subscribes the client to one batch export's progress
// stream.
func (wh *WSHandler) ExportSocket(w http.ResponseWriter, r *http.Request) {
	exportID := chi.URLParam(r, "export_id")
	wh.Hub.ServeWS(w, r, "export:"+exportID)
}
