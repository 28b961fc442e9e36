package handlers

import (
	"net/http"

	"notably/internal/api/middleware"
	"notably/internal/utils"
)

// POST /api/v1/2fa
// EnableTwoFactor godoc
// @Summary Begin two-factor enrollment
// @Description Creates a pending challenge and returns the otpauth URL for
// @Description the authenticator app. Enrollment completes at /2fa/verify.
// @Tags TwoFactor
// @Produce json
// @Success 200 {object} utils.Payload
// @Router /api/v1/2fa [post]
func (h *Handlers) EnableTwoFactor(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.UserID(r.Context())

	otpURL, err := h.verify.StartTwoFactorSetup(r.Context(), userID)
	if err != nil {
		utils.JSONResponse(w, http.StatusInternalServerError, utils.Payload{
			Success: false,
			Message: "Failed to start two-factor setup",
		})
		return
	}

	utils.JSONResponse(w, http.StatusOK, utils.Payload{
		Success: true,
		Message: "Scan the code with your authenticator app, then verify",
		Data:    map[string]any{"otpUri": otpURL},
	})
}

// POST /api/v1/2fa/verify
// VerifyTwoFactor godoc
// @Summary Complete two-factor enrollment
// @Tags TwoFactor
// @Accept json
// @Produce json
// @Success 200 {object} utils.Payload
// @Failure 400 {object} utils.Payload
// @Router /api/v1/2fa/verify [post]
func (h *Handlers) VerifyTwoFactor(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.UserID(r.Context())

	var input struct {
		Code string `json:"code"`
	}
	if !decodeJSON(w, r, &input) {
		return
	}

	if err := h.verify.ConfirmTwoFactorSetup(r.Context(), userID, input.Code); err != nil {
		utils.ValidationError(w, map[string][]string{"code": {"Invalid code"}})
		return
	}
	// Completing enrollment counts as a fresh verification.
	if err := h.verify.MarkVerified(w, userID); err != nil {
		utils.JSONResponse(w, http.StatusInternalServerError, utils.Payload{
			Success: false,
			Message: "Failed to record verification",
		})
		return
	}

	utils.JSONResponse(w, http.StatusOK, utils.Payload{
		Success: true,
		Message: "Two-factor authentication enabled",
	})
}

// POST /api/v1/2fa/disable
// DisableTwoFactor godoc
// @Summary Disable two-factor authentication
// @Description Requires a verification completed within the last two hours.
// @Tags TwoFactor
// @Produce json
// @Success 200 {object} utils.Payload
// @Failure 403 {object} utils.Payload
// @Router /api/v1/2fa/disable [post]
func (h *Handlers) DisableTwoFactor(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.UserID(r.Context())

	if !h.verify.RecentlyVerified(r, userID) {
		utils.JSONResponse(w, http.StatusForbidden, utils.Payload{
			Success: false,
			Message: "Please verify your code before disabling two-factor authentication",
		})
		return
	}

	if err := h.verify.DisableTwoFactor(r.Context(), userID); err != nil {
		utils.JSONResponse(w, http.StatusInternalServerError, utils.Payload{
			Success: false,
			Message: "Failed to disable two-factor authentication",
		})
		return
	}

	utils.JSONResponse(w, http.StatusOK, utils.Payload{
		Success: true,
		Message: "Two-factor authentication disabled",
	})
}
