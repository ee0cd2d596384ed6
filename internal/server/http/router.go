// Package httpserver exposes the inventory tracker HTTP API.
package httpserver

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

// NewRouter mounts public and protected routes.
//
// Middleware chain (applied in order):
//  1. RequestID, RealIP
//  2. RequestLogging(log), Recover(log)
//  3. RequireJSON for requests with a body
//  4. Authenticate for the protected group
func NewRouter(h *Handler, log *zap.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(RequestLogging(log))
	r.Use(Recover(log))
	r.Use(RequireJSON)

	r.NotFound(h.NotFound)
	r.MethodNotAllowed(h.MethodNotAllowed)

	r.Get("/health", h.Health)
	r.Get("/version", h.Version)

	r.Route("/auth", func(r chi.Router) {
		r.Post("/register", h.Register)
		r.Post("/login", h.Login)
		r.Post("/refresh", h.Refresh)
	})

	r.Group(func(r chi.Router) {
		r.Use(Authenticate(h.auth, log))

		r.Get("/me", h.Me)
		r.Delete("/me", h.DeleteMe)

		r.Get("/catalog/skins", h.CatalogList)
		r.Get("/catalog/skins/search", h.CatalogSearch)

		r.Get("/skins", h.ListSkins)
		r.Post("/skins", h.AddSkin)
		r.Put("/skins/{id}", h.UpdateSkin)
		r.Delete("/skins/{id}", h.DeleteSkin)
	})

	return r
}
