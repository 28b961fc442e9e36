package handlers

import (
	"net/http"

	"notably/internal/api/middleware"
	"notably/internal/auth"
	"notably/internal/models"
	"notably/internal/utils"
)

// Health godoc
// @Summary Liveness and database reachability
// @Tags Ops
// @Produce json
// @Success 200 {object} utils.Payload
// @Failure 503 {object} utils.Payload
// @Router /health [get]
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	if err := h.store.Ping(r.Context()); err != nil {
		utils.JSONResponse(w, http.StatusServiceUnavailable, utils.Payload{
			Success: false,
			Message: "Database unreachable",
		})
		return
	}
	utils.JSONResponse(w, http.StatusOK, utils.Payload{
		Success: true,
		Message: "OK",
	})
}

// PUT /api/v1/me/image
// UploadUserImage godoc
// @Summary Replace the authenticated user's avatar
// @Tags Users
// @Accept mpfd
// @Produce json
// @Success 200 {object} utils.Payload
// @Failure 400 {object} utils.Payload
// @Router /api/v1/me/image [put]
func (h *Handlers) UploadUserImage(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.UserID(r.Context())

	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		utils.JSONResponse(w, http.StatusBadRequest, utils.Payload{
			Success: false,
			Message: "Invalid multipart form",
		})
		return
	}

	files := r.MultipartForm.File["image"]
	if len(files) != 1 {
		utils.ValidationError(w, map[string][]string{
			"image": {"Exactly one image is required"},
		})
		return
	}

	blob, contentType, err := readUpload(files[0])
	if err != nil {
		utils.ValidationError(w, map[string][]string{
			"image": {"Image size must be less than 3MB"},
		})
		return
	}

	image := &models.UserImage{
		UserID:      userID,
		Blob:        blob,
		ContentType: contentType,
	}
	if alt := r.FormValue("altText"); alt != "" {
		image.AltText = &alt
	}
	if err := h.store.ReplaceUserImage(r.Context(), image); err != nil {
		utils.JSONResponse(w, http.StatusInternalServerError, utils.Payload{
			Success: false,
			Message: "Failed to store image",
		})
		return
	}

	utils.JSONResponse(w, http.StatusOK, utils.Payload{
		Success: true,
		Message: "Profile image updated",
		Data:    map[string]any{"imageId": image.ID},
	})
}

// DELETE /api/v1/me
// DeleteAccount godoc
// @Summary Delete the authenticated user's account
// @Description Removes the user and everything hanging off it, then ends
// @Description the session.
// @Tags Users
// @Produce json
// @Success 302
// @Router /api/v1/me [delete]
func (h *Handlers) DeleteAccount(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.UserID(r.Context())

	if err := h.store.DeleteUser(r.Context(), userID); err != nil {
		utils.JSONResponse(w, http.StatusInternalServerError, utils.Payload{
			Success: false,
			Message: "Failed to delete account",
		})
		return
	}

	// The session rows are already gone via cascade; just drop the cookie.
	h.auth.Cookies().Clear(w, auth.SessionCookie)
	http.Redirect(w, r, "/", http.StatusFound)
}
