// internal/storage/handler.go
package storage

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/mfjones/chatter/internal/log"
)

// Handler exposes the storage service over HTTP.
type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes mounts the object routes. Upload requires auth and is
// registered by the server inside its protected group.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/object/*", h.HandleGetObject)
}

// HandleUpload accepts a multipart "file" field and returns the stored
// object's URL.
func (h *Handler) HandleUpload(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(MaxUploadSize); err != nil {
		writeStorageError(w, http.StatusBadRequest, "invalid_upload", "could not parse multipart form")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeStorageError(w, http.StatusBadRequest, "missing_file", "file field is required")
		return
	}
	defer file.Close()

	contentType := header.Header.Get("Content-Type")
	info, err := h.service.Upload(r.Context(), header.Filename, contentType, file, header.Size)
	if err != nil {
		log.Warn("upload rejected", "filename", header.Filename, "content_type", contentType, "error", err)
		writeStorageError(w, http.StatusBadRequest, "upload_failed", err.Error())
		return
	}

	json.NewEncoder(w).Encode(map[string]any{
		"key":  info.Key,
		"url":  "/storage/v1/object/" + info.Key,
		"size": info.Size,
		"etag": info.ETag,
	})
}

// HandleGetObject streams a stored object to the client.
func (h *Handler) HandleGetObject(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "*")

	reader, info, err := h.service.Open(r.Context(), key)
	if err != nil {
		if IsNotFound(err) || IsInvalidKey(err) {
			writeStorageError(w, http.StatusNotFound, "not_found", "object not found")
			return
		}
		log.Error("failed to open object", "key", key, "error", err)
		writeStorageError(w, http.StatusInternalServerError, "storage_error", "could not read object")
		return
	}
	defer reader.Close()

	if info.ContentType != "" {
		w.Header().Set("Content-Type", info.ContentType)
	} else {
		w.Header().Del("Content-Type")
	}
	if info.Size > 0 {
		w.Header().Set("Content-Length", strconv.FormatInt(info.Size, 10))
	}
	if info.ETag != "" {
		w.Header().Set("ETag", `"`+info.ETag+`"`)
	}
	io.Copy(w, reader)
}

func writeStorageError(w http.ResponseWriter, status int, code, message string) {
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": code, "message": message})
}
