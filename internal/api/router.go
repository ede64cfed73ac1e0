// Package api assembles the HTTP surface: auth routes, drive routes and their middleware.
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/pysugar/drivesweep/internal/api/handlers"
	"github.com/pysugar/drivesweep/internal/api/middleware"
	"github.com/pysugar/drivesweep/internal/logging"
)

// Authenticator serves the OAuth login and callback.
type Authenticator interface {
	HandleLogin(w http.ResponseWriter, r *http.Request)
	HandleCallback(w http.ResponseWriter, r *http.Request)
}

// Deps wires the router.
type Deps struct {
	Service  handlers.DriveService
	Sessions middleware.SessionStore
	Auth     Authenticator
}

// NewRouter builds the chi router.
func NewRouter(d Deps) chi.Router {
	r := chi.NewRouter()
	r.Use(logging.Middleware)
	r.Use(logging.AccessLog)
	r.Use(chimiddleware.Recoverer)

	session := middleware.SessionAuth(d.Sessions)

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("drivesweep is running"))
	})
	r.Get("/api/version", handlers.VersionHandler())

	r.Route("/auth", func(r chi.Router) {
		r.Get("/google", d.Auth.HandleLogin)
		r.Get("/google/callback", d.Auth.HandleCallback)
		r.With(session).Get("/me", handlers.MeHandler())
	})

	r.Route("/drive", func(r chi.Router) {
		r.Use(session)

		scan := handlers.ScanHandler(d.Service)
		r.Post("/scan", scan)
		r.Get("/scan", scan)

		r.Get("/unused", handlers.UnusedHandler(d.Service))
		r.Get("/shared", handlers.SharedHandler(d.Service))
		r.Get("/large", handlers.LargeHandler(d.Service))
		r.Get("/stats", handlers.StatsHandler(d.Service))
		r.Get("/files/{fileId}", handlers.FileHandler(d.Service))

		del := handlers.DeleteHandler(d.Service)
		r.Post("/delete", del)
		r.Delete("/delete", del)
		r.Post("/trash", handlers.TrashHandler(d.Service))
		r.Post("/remove", handlers.RemoveHandler(d.Service))
	})

	return r
}
