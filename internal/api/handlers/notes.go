package handlers

import (
	"errors"
	"io"
	"mime/multipart"
	"net/http"

	"github.com/go-chi/chi/v5"

	"notably/internal/api/middleware"
	"notably/internal/models"
	"notably/internal/store"
	"notably/internal/utils"
)

// Per-image upload cap. Anything larger is rejected before it reaches the
// database.
const maxUploadSize = 3 << 20

const maxImagesPerNote = 5

type noteImageUpload struct {
	blob        []byte
	contentType string
	altText     *string
}

// readNoteForm parses the multipart body shared by create and update:
// title/content fields, up to maxImagesPerNote files under "images", with
// alt texts under "altTexts" aligned by position. A nil return with ok=false
// means the error reply has been written.
func readNoteForm(w http.ResponseWriter, r *http.Request) (title, content string, uploads []noteImageUpload, ok bool) {
	if err := r.ParseMultipartForm(int64(maxImagesPerNote) * maxUploadSize); err != nil {
		utils.JSONResponse(w, http.StatusBadRequest, utils.Payload{
			Success: false,
			Message: "Invalid multipart form",
		})
		return "", "", nil, false
	}

	title = r.FormValue("title")
	content = r.FormValue("content")

	fieldErrs := map[string][]string{}
	if title == "" {
		fieldErrs["title"] = append(fieldErrs["title"], "Title is required")
	} else if len(title) > 100 {
		fieldErrs["title"] = append(fieldErrs["title"], "Title must be 100 characters or less")
	}
	if content == "" {
		fieldErrs["content"] = append(fieldErrs["content"], "Content is required")
	} else if len(content) > 10000 {
		fieldErrs["content"] = append(fieldErrs["content"], "Content must be 10000 characters or less")
	}
	if len(fieldErrs) > 0 {
		utils.ValidationError(w, fieldErrs)
		return "", "", nil, false
	}

	files := r.MultipartForm.File["images"]
	if len(files) > maxImagesPerNote {
		utils.ValidationError(w, map[string][]string{
			"images": {"A note can have at most 5 images"},
		})
		return "", "", nil, false
	}

	altTexts := r.MultipartForm.Value["altTexts"]
	for i, header := range files {
		blob, contentType, err := readUpload(header)
		if err != nil {
			utils.ValidationError(w, map[string][]string{
				"images": {"Image size must be less than 3MB"},
			})
			return "", "", nil, false
		}
		upload := noteImageUpload{blob: blob, contentType: contentType}
		if i < len(altTexts) && altTexts[i] != "" {
			alt := altTexts[i]
			upload.altText = &alt
		}
		uploads = append(uploads, upload)
	}

	return title, content, uploads, true
}

// readUpload drains one file part, enforcing the size cap by reading one
// byte past it.
func readUpload(header *multipart.FileHeader) ([]byte, string, error) {
	if header.Size > maxUploadSize {
		return nil, "", errors.New("file too large")
	}
	file, err := header.Open()
	if err != nil {
		return nil, "", err
	}
	defer file.Close()

	blob, err := io.ReadAll(io.LimitReader(file, maxUploadSize+1))
	if err != nil {
		return nil, "", err
	}
	if len(blob) > maxUploadSize {
		return nil, "", errors.New("file too large")
	}

	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		contentType = http.DetectContentType(blob)
	}
	return blob, contentType, nil
}

// POST /api/v1/notes
// CreateNote godoc
// @Summary Create a note
// @Description Creates a note with up to five image attachments.
// @Tags Notes
// @Accept mpfd
// @Produce json
// @Success 201 {object} utils.Payload
// @Failure 400 {object} utils.Payload
// @Router /api/v1/notes [post]
func (h *Handlers) CreateNote(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.UserID(r.Context())

	title, content, uploads, ok := readNoteForm(w, r)
	if !ok {
		return
	}

	note := &models.Note{Title: title, Content: content, OwnerID: userID}
	if err := h.store.CreateNote(r.Context(), note); err != nil {
		utils.JSONResponse(w, http.StatusInternalServerError, utils.Payload{
			Success: false,
			Message: "Failed to create note",
		})
		return
	}

	for _, upload := range uploads {
		image := &models.NoteImage{
			NoteID:      note.ID,
			Blob:        upload.blob,
			ContentType: upload.contentType,
			AltText:     upload.altText,
		}
		if err := h.store.CreateNoteImage(r.Context(), image); err != nil {
			utils.JSONResponse(w, http.StatusInternalServerError, utils.Payload{
				Success: false,
				Message: "Failed to store image",
			})
			return
		}
	}

	created, err := h.store.FindNoteByID(r.Context(), note.ID)
	if err != nil {
		created = note
	}
	utils.JSONResponse(w, http.StatusCreated, utils.Payload{
		Success: true,
		Message: "Note created successfully",
		Data:    map[string]any{"note": created},
	})
}

// PUT /api/v1/notes/{noteID}
// UpdateNote godoc
// @Summary Update a note
// @Description Rewrites title and content and replaces the image set: images
// @Description listed in keepImageIds survive, new uploads are appended, and
// @Description everything else is removed.
// @Tags Notes
// @Accept mpfd
// @Produce json
// @Success 200 {object} utils.Payload
// @Failure 404 {object} utils.Payload
// @Router /api/v1/notes/{noteID} [put]
func (h *Handlers) UpdateNote(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.UserID(r.Context())
	noteID := chi.URLParam(r, "noteID")

	// Only the owner may edit, regardless of any broader role.
	if _, err := h.store.FindNoteForOwner(r.Context(), noteID, userID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			utils.NotFound(w, "Note not found")
			return
		}
		utils.JSONResponse(w, http.StatusInternalServerError, utils.Payload{
			Success: false,
			Message: "Database error",
		})
		return
	}

	title, content, uploads, ok := readNoteForm(w, r)
	if !ok {
		return
	}

	if err := h.store.UpdateNote(r.Context(), noteID, title, content); err != nil {
		utils.JSONResponse(w, http.StatusInternalServerError, utils.Payload{
			Success: false,
			Message: "Failed to update note",
		})
		return
	}

	keep := r.MultipartForm.Value["keepImageIds"]
	if err := h.store.DeleteNoteImagesExcept(r.Context(), noteID, keep); err != nil {
		utils.JSONResponse(w, http.StatusInternalServerError, utils.Payload{
			Success: false,
			Message: "Failed to update images",
		})
		return
	}
	for _, upload := range uploads {
		image := &models.NoteImage{
			NoteID:      noteID,
			Blob:        upload.blob,
			ContentType: upload.contentType,
			AltText:     upload.altText,
		}
		if err := h.store.CreateNoteImage(r.Context(), image); err != nil {
			utils.JSONResponse(w, http.StatusInternalServerError, utils.Payload{
				Success: false,
				Message: "Failed to store image",
			})
			return
		}
	}

	updated, err := h.store.FindNoteByID(r.Context(), noteID)
	if err != nil {
		utils.JSONResponse(w, http.StatusInternalServerError, utils.Payload{
			Success: false,
			Message: "Database error",
		})
		return
	}
	utils.JSONResponse(w, http.StatusOK, utils.Payload{
		Success: true,
		Message: "Note updated successfully",
		Data:    map[string]any{"note": updated},
	})
}

// DELETE /api/v1/notes/{noteID}
// DeleteNote godoc
// @Summary Delete a note
// @Description Owners need delete:note:own; anyone else needs
// @Description delete:note:any.
// @Tags Notes
// @Produce json
// @Success 200 {object} utils.Payload
// @Failure 403 {object} utils.Payload
// @Failure 404 {object} utils.Payload
// @Router /api/v1/notes/{noteID} [delete]
func (h *Handlers) DeleteNote(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.UserID(r.Context())
	noteID := chi.URLParam(r, "noteID")

	note, err := h.store.FindNoteByID(r.Context(), noteID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			utils.NotFound(w, "Note not found")
			return
		}
		utils.JSONResponse(w, http.StatusInternalServerError, utils.Payload{
			Success: false,
			Message: "Database error",
		})
		return
	}

	permission := "delete:note:any"
	if note.OwnerID == userID {
		permission = "delete:note:own"
	}
	if _, ok := h.auth.RequireUserWithPermission(w, r, permission); !ok {
		return
	}

	if err := h.store.DeleteNote(r.Context(), noteID); err != nil {
		utils.JSONResponse(w, http.StatusInternalServerError, utils.Payload{
			Success: false,
			Message: "Failed to delete note",
		})
		return
	}
	utils.JSONResponse(w, http.StatusOK, utils.Payload{
		Success: true,
		Message: "Note deleted successfully",
	})
}
