package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/buzzdrop/buzzdrop/internal/middleware"
)

// NewRouter constructs the HTTP handler serving the Buzzdrop API.
//
// Routes:
//
//	POST   /api/login                 → authHandler.Login
//	POST   /api/logout                → authHandler.Logout
//	GET    /api/shares/{id}           → shareHandler.View (public)
//	GET    /api/shares/{id}/download  → shareHandler.Download (public, one-shot)
//	POST   /api/shares/{id}/report    → shareHandler.Report (public)
//	GET    /api/shares                → shareHandler.List (session)
//	POST   /api/shares                → shareHandler.Upload (session)
//	DELETE /api/shares/{id}           → shareHandler.Delete (session)
//
// Download and upload are intentionally outside the JSON content-type
// gate: their bodies are opaque payload bytes.
func NewRouter(
	authHandler *AuthHandler,
	shareHandler *ShareHandler,
	sessions middleware.SessionResolver,
	maxUploadBytes int64,
	logger *zap.Logger,
) http.Handler {
	r := chi.NewRouter()

	r.Use(chiMiddleware.RealIP)
	r.Use(middleware.WithRequestLogging(logger))
	r.Use(chiMiddleware.Recoverer)
	// Reject oversized request bodies before they hit storage.
	r.Use(chiMiddleware.RequestSize(maxUploadBytes))

	r.Route("/api", func(r chi.Router) {
		r.With(chiMiddleware.AllowContentType("application/json")).
			Post("/login", authHandler.Login)
		r.Post("/logout", authHandler.Logout)

		// Recipient endpoints need no account: the link and the share
		// password are the whole capability.
		r.Get("/shares/{id}", shareHandler.View)
		r.Get("/shares/{id}/download", shareHandler.Download)
		r.With(chiMiddleware.AllowContentType("application/json")).
			Post("/shares/{id}/report", shareHandler.Report)

		// Sender endpoints require a session.
		r.Group(func(r chi.Router) {
			r.Use(middleware.SessionAuth(sessions))
			r.Get("/shares", shareHandler.List)
			r.Post("/shares", shareHandler.Upload)
			r.Delete("/shares/{id}", shareHandler.Delete)
		})
	})

	return r
}
