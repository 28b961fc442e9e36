package handlers

import (
	"net/http"
	"time"

	"notably/internal/api/middleware"
	"notably/internal/models"
	"notably/internal/utils"
)

type exportImage struct {
	ID          string    `json:"id"`
	AltText     *string   `json:"altText"`
	ContentType string    `json:"contentType"`
	URL         string    `json:"url"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

type exportNote struct {
	ID        string        `json:"id"`
	Title     string        `json:"title"`
	Content   string        `json:"content"`
	CreatedAt time.Time     `json:"createdAt"`
	UpdatedAt time.Time     `json:"updatedAt"`
	Images    []exportImage `json:"images"`
}

type exportSession struct {
	ID             string    `json:"id"`
	ExpirationDate time.Time `json:"expirationDate"`
	CreatedAt      time.Time `json:"createdAt"`
}

// exportBundle is everything the service knows about a user, minus binary
// blobs and secrets. Blobs are reachable through the image URLs.
type exportBundle struct {
	ID        string          `json:"id"`
	Email     string          `json:"email"`
	Username  string          `json:"username"`
	Name      *string         `json:"name"`
	CreatedAt time.Time       `json:"createdAt"`
	Image     *exportImage    `json:"image"`
	Notes     []exportNote    `json:"notes"`
	Sessions  []exportSession `json:"sessions"`
	Roles     []string        `json:"roles"`
}

// GET /api/v1/export
// Export godoc
// @Summary Export the authenticated user's data
// @Description Returns the full account bundle as JSON. Image binaries are
// @Description referenced by URL rather than embedded.
// @Tags Users
// @Produce json
// @Success 200 {object} utils.Payload
// @Router /api/v1/export [get]
func (h *Handlers) Export(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.UserID(r.Context())

	user, err := h.store.FindUserForExport(r.Context(), userID)
	if err != nil {
		utils.JSONResponse(w, http.StatusInternalServerError, utils.Payload{
			Success: false,
			Message: "Database error",
		})
		return
	}

	bundle := exportBundle{
		ID:        user.ID,
		Email:     user.Email,
		Username:  user.Username,
		Name:      user.Name,
		CreatedAt: user.CreatedAt,
		Notes:     []exportNote{},
		Sessions:  []exportSession{},
		Roles:     []string{},
	}

	if user.Image != nil {
		bundle.Image = &exportImage{
			ID:          user.Image.ID,
			AltText:     user.Image.AltText,
			ContentType: user.Image.ContentType,
			URL:         "/api/v1/user-images/" + user.Image.ID,
			CreatedAt:   user.Image.CreatedAt,
			UpdatedAt:   user.Image.UpdatedAt,
		}
	}
	for _, note := range user.Notes {
		bundle.Notes = append(bundle.Notes, toExportNote(note))
	}
	for _, session := range user.Sessions {
		bundle.Sessions = append(bundle.Sessions, exportSession{
			ID:             session.ID,
			ExpirationDate: session.ExpirationDate,
			CreatedAt:      session.CreatedAt,
		})
	}
	for _, ur := range user.UserRoles {
		bundle.Roles = append(bundle.Roles, ur.Role.Name)
	}

	utils.JSONResponse(w, http.StatusOK, utils.Payload{
		Success: true,
		Message: "Export generated successfully",
		Data:    map[string]any{"user": bundle},
	})
}

func toExportNote(note models.Note) exportNote {
	out := exportNote{
		ID:        note.ID,
		Title:     note.Title,
		Content:   note.Content,
		CreatedAt: note.CreatedAt,
		UpdatedAt: note.UpdatedAt,
		Images:    []exportImage{},
	}
	for _, image := range note.Images {
		out.Images = append(out.Images, exportImage{
			ID:          image.ID,
			AltText:     image.AltText,
			ContentType: image.ContentType,
			URL:         "/api/v1/note-images/" + image.ID,
			CreatedAt:   image.CreatedAt,
			UpdatedAt:   image.UpdatedAt,
		})
	}
	return out
}
