package handlers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"notably/internal/auth"
	"notably/internal/auth/providers"
	"notably/internal/models"
	"notably/internal/store"
	"notably/internal/utils"
)

const challengeTTL = 10 * time.Minute

// POST /api/v1/auth/sign-up
// SignUp godoc
// @Summary Create a local account
// @Description Creates a user with a password and starts a session.
// @Tags Auth
// @Accept json
// @Produce json
// @Success 201 {object} utils.Payload
// @Failure 400 {object} utils.Payload
// @Router /api/v1/auth/sign-up [post]
func (h *Handlers) SignUp(w http.ResponseWriter, r *http.Request) {
	if !h.auth.RequireAnonymous(w, r) {
		return
	}

	var input struct {
		Email    string `json:"email"`
		Username string `json:"username"`
		Password string `json:"password"`
		Name     string `json:"name"`
	}
	if !decodeJSON(w, r, &input) {
		return
	}

	fieldErrs := map[string][]string{}
	if input.Email == "" {
		fieldErrs["email"] = append(fieldErrs["email"], "Email is required")
	}
	if input.Username == "" {
		fieldErrs["username"] = append(fieldErrs["username"], "Username is required")
	}
	if len(input.Password) < 6 {
		fieldErrs["password"] = append(fieldErrs["password"], "Password must be at least 6 characters")
	}
	if len(fieldErrs) > 0 {
		utils.ValidationError(w, fieldErrs)
		return
	}

	username := strings.ToLower(input.Username)
	email := strings.ToLower(input.Email)

	if _, err := h.store.FindUserByUsername(r.Context(), username); err == nil {
		utils.ValidationError(w, map[string][]string{"username": {"Username is already taken"}})
		return
	}
	if _, err := h.store.FindUserByEmail(r.Context(), email); err == nil {
		utils.ValidationError(w, map[string][]string{"email": {"A user already exists with this email"}})
		return
	}

	session, err := h.auth.Signup(r.Context(), auth.SignupParams{
		Email:    email,
		Username: username,
		Password: input.Password,
		Name:     input.Name,
	})
	if err != nil {
		utils.JSONResponse(w, http.StatusInternalServerError, utils.Payload{
			Success: false,
			Message: "Failed to create account",
		})
		return
	}
	if err := h.auth.IssueSessionCookie(w, session); err != nil {
		utils.JSONResponse(w, http.StatusInternalServerError, utils.Payload{
			Success: false,
			Message: "Failed to create session",
		})
		return
	}

	utils.JSONResponse(w, http.StatusCreated, utils.Payload{
		Success: true,
		Message: "User registered successfully",
	})
}

// POST /api/v1/auth/login
// Login godoc
// @Summary Log in with username and password
// @Description Verifies credentials and starts a session, or issues a
// @Description two-factor challenge when 2FA is enabled for the account.
// @Tags Auth
// @Accept json
// @Produce json
// @Success 200 {object} utils.Payload
// @Failure 401 {object} utils.Payload
// @Router /api/v1/auth/login [post]
func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) {
	if !h.auth.RequireAnonymous(w, r) {
		return
	}

	var input struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if !decodeJSON(w, r, &input) {
		return
	}
	if input.Username == "" || input.Password == "" {
		utils.JSONResponse(w, http.StatusBadRequest, utils.Payload{
			Success: false,
			Message: "Invalid input",
		})
		return
	}

	userID, err := h.auth.VerifyUserPassword(r.Context(), auth.ByUsername(strings.ToLower(input.Username)), input.Password)
	if err != nil {
		// Unknown user and wrong password get the same reply.
		if errors.Is(err, auth.ErrInvalidCredentials) {
			utils.JSONResponse(w, http.StatusUnauthorized, utils.Payload{
				Success: false,
				Message: "Invalid credentials",
			})
			return
		}
		utils.JSONResponse(w, http.StatusInternalServerError, utils.Payload{
			Success: false,
			Message: "Database error",
		})
		return
	}

	enabled, err := h.verify.TwoFactorEnabled(r.Context(), userID)
	if err != nil {
		utils.JSONResponse(w, http.StatusInternalServerError, utils.Payload{
			Success: false,
			Message: "Database error",
		})
		return
	}
	if enabled {
		if err := h.auth.Cookies().Set(w, auth.ChallengeCookie, userID, challengeTTL); err != nil {
			utils.JSONResponse(w, http.StatusInternalServerError, utils.Payload{
				Success: false,
				Message: "Failed to create challenge",
			})
			return
		}
		utils.JSONResponse(w, http.StatusOK, utils.Payload{
			Success: true,
			Message: "Two-factor code required",
			Data:    map[string]any{"twoFactorRequired": true},
		})
		return
	}

	h.startSession(w, r, userID)
}

// POST /api/v1/auth/login/2fa
func (h *Handlers) LoginTwoFactor(w http.ResponseWriter, r *http.Request) {
	var input struct {
		Code string `json:"code"`
	}
	if !decodeJSON(w, r, &input) {
		return
	}

	userID, err := h.auth.Cookies().Read(r, auth.ChallengeCookie)
	if err != nil {
		utils.JSONResponse(w, http.StatusUnauthorized, utils.Payload{
			Success: false,
			Message: "No pending login challenge",
		})
		return
	}

	if err := h.verify.ValidateTwoFactor(r.Context(), userID, input.Code); err != nil {
		utils.JSONResponse(w, http.StatusUnauthorized, utils.Payload{
			Success: false,
			Message: "Invalid code",
		})
		return
	}

	h.auth.Cookies().Clear(w, auth.ChallengeCookie)
	if err := h.verify.MarkVerified(w, userID); err != nil {
		log.Printf("login 2fa: mark verified failed: %v", err)
	}
	h.startSession(w, r, userID)
}

func (h *Handlers) startSession(w http.ResponseWriter, r *http.Request, userID string) {
	session, err := h.auth.StartSession(r.Context(), userID)
	if err != nil {
		utils.JSONResponse(w, http.StatusInternalServerError, utils.Payload{
			Success: false,
			Message: "Failed to create session",
		})
		return
	}
	if err := h.auth.IssueSessionCookie(w, session); err != nil {
		utils.JSONResponse(w, http.StatusInternalServerError, utils.Payload{
			Success: false,
			Message: "Failed to create session",
		})
		return
	}
	utils.JSONResponse(w, http.StatusOK, utils.Payload{
		Success: true,
		Message: "Login successful",
	})
}

// POST /api/v1/auth/logout
func (h *Handlers) Logout(w http.ResponseWriter, r *http.Request) {
	h.auth.Logout(w, r, "/")
}

// GET /api/v1/auth/{provider}/login
func (h *Handlers) OAuthLogin(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "provider")
	provider, ok := h.auth.Provider(name)
	if !ok {
		utils.NotFound(w, "Unknown provider")
		return
	}

	state, err := providers.EncodeState(map[string]string{
		"redirectTo": r.URL.Query().Get("redirectTo"),
	})
	if err != nil {
		utils.JSONResponse(w, http.StatusInternalServerError, utils.Payload{
			Success: false,
			Message: "Failed to generate OAuth state",
		})
		return
	}
	http.Redirect(w, r, provider.AuthURL(state), http.StatusTemporaryRedirect)
}

// GET /api/v1/auth/{provider}/callback
func (h *Handlers) OAuthCallback(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "provider")
	provider, ok := h.auth.Provider(name)
	if !ok {
		utils.NotFound(w, "Unknown provider")
		return
	}

	stateData, err := providers.DecodeState(r.FormValue("state"))
	if err != nil {
		utils.JSONResponse(w, http.StatusBadRequest, utils.Payload{
			Success: false,
			Message: "Invalid OAuth state",
		})
		return
	}

	identity, err := provider.HandleCallback(r.Context(), r.FormValue("code"))
	if err != nil {
		log.Printf("oauth callback: %v", err)
		utils.JSONResponse(w, http.StatusInternalServerError, utils.Payload{
			Success: false,
			Message: "Authentication failed",
		})
		return
	}

	session, err := h.sessionForIdentity(r, name, identity)
	if err != nil {
		utils.JSONResponse(w, http.StatusInternalServerError, utils.Payload{
			Success: false,
			Message: "Authentication failed",
		})
		return
	}
	if err := h.auth.IssueSessionCookie(w, session); err != nil {
		utils.JSONResponse(w, http.StatusInternalServerError, utils.Payload{
			Success: false,
			Message: "Failed to create session",
		})
		return
	}

	redirectTo := stateData["redirectTo"]
	if redirectTo == "" {
		redirectTo = "/"
	}
	http.Redirect(w, r, redirectTo, http.StatusTemporaryRedirect)
}

// sessionForIdentity maps a provider identity onto a local session: an
// existing connection logs in, a matching email links a new connection, and
// anything else becomes a fresh OAuth-originated account.
func (h *Handlers) sessionForIdentity(r *http.Request, providerName string, identity *auth.ProviderUser) (*models.Session, error) {
	ctx := r.Context()

	connection, err := h.store.FindConnection(ctx, providerName, identity.ID)
	if err == nil {
		return h.auth.StartSession(ctx, connection.UserID)
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}

	user, err := h.store.FindUserByEmail(ctx, strings.ToLower(identity.Email))
	if err == nil {
		err = h.store.CreateConnection(ctx, &models.Connection{
			ProviderName: providerName,
			ProviderID:   identity.ID,
			UserID:       user.ID,
		})
		if err != nil {
			return nil, err
		}
		return h.auth.StartSession(ctx, user.ID)
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}

	username := identity.Username
	if _, err := h.store.FindUserByUsername(ctx, username); err == nil {
		suffix, err := utils.GenerateSecureToken(3)
		if err != nil {
			return nil, err
		}
		username = username + "_" + strings.ToLower(suffix)
	}

	session, err := h.auth.SignupWithConnection(ctx, auth.SignupParams{
		Email:    identity.Email,
		Username: username,
		Name:     identity.Name,
	}, providerName, identity.ID)
	if err != nil {
		return nil, err
	}

	// Best effort: the account works without the provider's photo.
	if identity.ImageURL != "" {
		if err := h.importProviderImage(ctx, session.UserID, identity.ImageURL); err != nil {
			log.Printf("oauth signup: avatar import failed: %v", err)
		}
	}
	return session, nil
}

// importProviderImage copies the provider's profile photo into the user's
// avatar slot, subject to the same size cap as uploads.
func (h *Handlers) importProviderImage(ctx context.Context, userID, imageURL string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, imageURL, nil)
	if err != nil {
		return err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("fetch avatar: status %d", resp.StatusCode)
	}

	blob, err := io.ReadAll(io.LimitReader(resp.Body, maxUploadSize+1))
	if err != nil {
		return err
	}
	if len(blob) == 0 || len(blob) > maxUploadSize {
		return fmt.Errorf("avatar size %d out of bounds", len(blob))
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = http.DetectContentType(blob)
	}
	return h.store.ReplaceUserImage(ctx, &models.UserImage{
		UserID:      userID,
		Blob:        blob,
		ContentType: contentType,
	})
}

// POST /api/v1/auth/forgot-password
func (h *Handlers) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var input struct {
		Target string `json:"target"`
	}
	if !decodeJSON(w, r, &input) {
		return
	}
	if input.Target == "" {
		utils.ValidationError(w, map[string][]string{"target": {"Username or email is required"}})
		return
	}

	target := strings.ToLower(input.Target)
	if _, err := h.store.FindUserByEmailOrUsername(r.Context(), target); err == nil {
		code, err := h.verify.CreateResetCode(r.Context(), target)
		if err != nil {
			log.Printf("forgot password: create code failed: %v", err)
		} else {
			// Delivered out of band; there is no mailer in this service.
			log.Printf("password reset code for %s: %s", target, code)
		}
	}

	// The reply never reveals whether the target exists.
	utils.JSONResponse(w, http.StatusOK, utils.Payload{
		Success: true,
		Message: "If that account exists, a reset code has been sent",
	})
}

// POST /api/v1/auth/verify-reset
func (h *Handlers) VerifyReset(w http.ResponseWriter, r *http.Request) {
	var input struct {
		Target string `json:"target"`
		Code   string `json:"code"`
	}
	if !decodeJSON(w, r, &input) {
		return
	}

	target := strings.ToLower(input.Target)
	user, userErr := h.store.FindUserByEmailOrUsername(r.Context(), target)
	codeErr := h.verify.ConsumeResetCode(r.Context(), target, input.Code)
	// One message for unknown target and wrong code, to avoid account
	// enumeration.
	if userErr != nil || codeErr != nil {
		utils.ValidationError(w, map[string][]string{"code": {"Invalid code"}})
		return
	}

	if err := h.auth.Cookies().Set(w, auth.ResetCookie, user.Username, challengeTTL); err != nil {
		utils.JSONResponse(w, http.StatusInternalServerError, utils.Payload{
			Success: false,
			Message: "Failed to start reset session",
		})
		return
	}
	utils.JSONResponse(w, http.StatusOK, utils.Payload{
		Success: true,
		Message: "Code verified",
	})
}

// POST /api/v1/auth/reset-password
func (h *Handlers) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var input struct {
		Password        string `json:"password"`
		ConfirmPassword string `json:"confirmPassword"`
	}
	if !decodeJSON(w, r, &input) {
		return
	}

	fieldErrs := map[string][]string{}
	if len(input.Password) < 6 {
		fieldErrs["password"] = append(fieldErrs["password"], "Password must be at least 6 characters")
	}
	if input.Password != input.ConfirmPassword {
		fieldErrs["confirmPassword"] = append(fieldErrs["confirmPassword"], "Passwords do not match")
	}
	if len(fieldErrs) > 0 {
		utils.ValidationError(w, fieldErrs)
		return
	}

	username, err := h.auth.Cookies().Read(r, auth.ResetCookie)
	if err != nil {
		utils.JSONResponse(w, http.StatusUnauthorized, utils.Payload{
			Success: false,
			Message: "Reset session expired",
		})
		return
	}

	user, err := h.store.FindUserByUsername(r.Context(), username)
	if err != nil {
		utils.JSONResponse(w, http.StatusUnauthorized, utils.Payload{
			Success: false,
			Message: "Reset session expired",
		})
		return
	}

	if err := h.auth.ResetUserPassword(r.Context(), username, input.Password); err != nil {
		utils.JSONResponse(w, http.StatusInternalServerError, utils.Payload{
			Success: false,
			Message: "Failed to reset password",
		})
		return
	}
	// Existing sessions are revoked along with the old password.
	if err := h.store.DeleteSessionsForUser(r.Context(), user.ID); err != nil {
		log.Printf("reset password: session cleanup failed: %v", err)
	}

	h.auth.Cookies().Clear(w, auth.ResetCookie)
	utils.JSONResponse(w, http.StatusOK, utils.Payload{
		Success: true,
		Message: "Password has been reset",
	})
}
