package handlers

import (
	"bytes"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"notably/internal/utils"
)

// Image ids are random, so a blob at a given URL never changes.
const imageCacheControl = "public, max-age=31536000, immutable"

func serveBlob(w http.ResponseWriter, r *http.Request, name, contentType string, modTime time.Time, blob []byte) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", "inline")
	w.Header().Set("Cache-Control", imageCacheControl)
	http.ServeContent(w, r, name, modTime, bytes.NewReader(blob))
}

// GET /api/v1/note-images/{imageID}
// NoteImage godoc
// @Summary Serve a note image
// @Tags Images
// @Produce octet-stream
// @Param imageID path string true "image id"
// @Success 200
// @Failure 404 {object} utils.Payload
// @Router /api/v1/note-images/{imageID} [get]
func (h *Handlers) NoteImage(w http.ResponseWriter, r *http.Request) {
	imageID := chi.URLParam(r, "imageID")
	image, err := h.store.FindNoteImage(r.Context(), imageID)
	if err != nil {
		utils.NotFound(w, "Image not found")
		return
	}
	serveBlob(w, r, image.ID, image.ContentType, image.UpdatedAt, image.Blob)
}

// GET /api/v1/user-images/{imageID}
// UserImage godoc
// @Summary Serve a user avatar
// @Tags Images
// @Produce octet-stream
// @Param imageID path string true "image id"
// @Success 200
// @Failure 404 {object} utils.Payload
// @Router /api/v1/user-images/{imageID} [get]
func (h *Handlers) UserImage(w http.ResponseWriter, r *http.Request) {
	imageID := chi.URLParam(r, "imageID")
	image, err := h.store.FindUserImage(r.Context(), imageID)
	if err != nil {
		utils.NotFound(w, "Image not found")
		return
	}
	serveBlob(w, r, image.ID, image.ContentType, image.UpdatedAt, image.Blob)
}
