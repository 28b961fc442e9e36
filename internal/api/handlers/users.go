package handlers

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"notably/internal/api/middleware"
	"notably/internal/utils"
)

// GET /api/v1/users?search=term
// SearchUsers godoc
// @Summary List users
// @Description Lists up to 50 users matching the search term, ordered by
// @Description most recent note activity. An empty term lists everyone.
// @Tags Users
// @Produce json
// @Param search query string false "username or name fragment"
// @Success 200 {object} utils.Payload
// @Router /api/v1/users [get]
func (h *Handlers) SearchUsers(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	term := query.Get("search")
	if query.Has("search") && strings.TrimSpace(term) == "" {
		// A blank search submission normalizes to the plain listing URL.
		http.Redirect(w, r, r.URL.Path, http.StatusFound)
		return
	}

	results, err := h.store.SearchUsers(r.Context(), term)
	if err != nil {
		utils.JSONResponse(w, http.StatusInternalServerError, utils.Payload{
			Success: false,
			Message: "Database error",
		})
		return
	}

	utils.JSONResponse(w, http.StatusOK, utils.Payload{
		Success: true,
		Message: "Users retrieved successfully",
		Data:    map[string]any{"users": results},
	})
}

// GET /api/v1/users/{username}
// GetUser godoc
// @Summary Get a public profile
// @Tags Users
// @Produce json
// @Param username path string true "username"
// @Success 200 {object} utils.Payload
// @Failure 404 {object} utils.Payload
// @Router /api/v1/users/{username} [get]
func (h *Handlers) GetUser(w http.ResponseWriter, r *http.Request) {
	username := strings.ToLower(chi.URLParam(r, "username"))
	user, err := h.store.FindUserProfile(r.Context(), username)
	if err != nil {
		utils.NotFound(w, fmt.Sprintf("No user exists with the username %q", username))
		return
	}

	utils.JSONResponse(w, http.StatusOK, utils.Payload{
		Success: true,
		Message: "User retrieved successfully",
		Data:    map[string]any{"user": user},
	})
}

// GET /api/v1/me
// Me godoc
// @Summary Get the authenticated user's profile
// @Tags Users
// @Produce json
// @Success 200 {object} utils.Payload
// @Router /api/v1/me [get]
func (h *Handlers) Me(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.UserID(r.Context())
	user, err := h.store.FindUserProfileByID(r.Context(), userID)
	if err != nil {
		utils.NotFound(w, "User not found")
		return
	}

	utils.JSONResponse(w, http.StatusOK, utils.Payload{
		Success: true,
		Message: "User retrieved successfully",
		Data:    map[string]any{"user": user},
	})
}
