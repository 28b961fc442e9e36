package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
	httpSwagger "github.com/swaggo/http-swagger"

	_ "notably/docs"
	"notably/internal/api/handlers"
	"notably/internal/api/middleware"
	"notably/internal/auth"
)

// NewRouter assembles the full HTTP surface: public auth and resource
// routes, the session-gated application routes, and the operational
// endpoints (health, metrics, docs).
func NewRouter(h *handlers.Handlers, a *auth.Authenticator, corsOpts cors.Options) http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(chimw.Timeout(60 * time.Second))
	r.Use(middleware.Metrics)

	// ---------- PUBLIC ROUTES ----------
	r.Get("/health", h.Health)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())
	r.Get("/docs/*", httpSwagger.WrapHandler)

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Post("/sign-up", h.SignUp)
			r.Post("/login", h.Login)
			r.Post("/login/2fa", h.LoginTwoFactor)
			r.Post("/logout", h.Logout)
			r.Post("/forgot-password", h.ForgotPassword)
			r.Post("/verify-reset", h.VerifyReset)
			r.Post("/reset-password", h.ResetPassword)
			r.Get("/{provider}/login", h.OAuthLogin)
			r.Get("/{provider}/callback", h.OAuthCallback)
		})

		r.Get("/users", h.SearchUsers)
		r.Get("/users/{username}", h.GetUser)
		r.Get("/note-images/{imageID}", h.NoteImage)
		r.Get("/user-images/{imageID}", h.UserImage)

		// ---------- PROTECTED ROUTES ----------
		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireUser(a))
			r.Get("/me", h.Me)
			r.Delete("/me", h.DeleteAccount)
			r.Put("/me/image", h.UploadUserImage)
			r.Get("/export", h.Export)
			r.Post("/notes", h.CreateNote)
			r.Put("/notes/{noteID}", h.UpdateNote)
			r.Delete("/notes/{noteID}", h.DeleteNote)
			r.Post("/2fa", h.EnableTwoFactor)
			r.Post("/2fa/verify", h.VerifyTwoFactor)
			r.Post("/2fa/disable", h.DisableTwoFactor)
		})
	})

	handler := cors.New(corsOpts).Handler(r)
	handler = middleware.Logger(handler)
	return handler
}
