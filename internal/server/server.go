// Package server exposes the HTTP API of the health-management backend.
package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"healthhub/internal/app"
	"healthhub/internal/util"
)

// TokenVerifier checks access tokens on authenticated routes.
type TokenVerifier interface {
	Verify(token string) (int64, error)
}

// Limiter throttles requests per key.
type Limiter interface {
	Allow(key string) bool
}

// Config wires required dependencies for the HTTP server. LoginLimiter is
// optional; when nil the login endpoint is not throttled.
type Config struct {
	Drugs        *app.DrugService
	Users        *app.UserService
	Tokens       TokenVerifier
	LoginLimiter Limiter
}

// Server routes requests to the drug and user services.
type Server struct {
	drugs        *app.DrugService
	users        *app.UserService
	tokens       TokenVerifier
	loginLimiter Limiter
	router       chi.Router
}

// New constructs the server with routes configured.
func New(cfg Config) *Server {
	s := &Server{
		drugs:        cfg.Drugs,
		users:        cfg.Users,
		tokens:       cfg.Tokens,
		loginLimiter: cfg.LoginLimiter,
	}
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(withRequestLog)
	r.Use(middleware.Recoverer)
	r.Use(util.WithSecurityHeaders)
	r.Use(util.WithCORS)

	r.Get("/healthz", s.handleHealth)

	r.Route("/api", func(r chi.Router) {
		r.With(s.withLoginLimit).Post("/user/login", s.handleLogin)

		// Drug lookups are open to the mini-program without a token.
		r.Get("/drug/barcode/{barcode}", s.handleLookupByBarcode)
		r.Get("/drug/search", s.handleSearchDrugs)
		r.Get("/drug/detail/{id}", s.handleDrugDetail)
		r.Get("/drug/suggest", s.handleDrugSuggest)
		r.Get("/drug/popular", s.handlePopularDrugs)

		r.Group(func(r chi.Router) {
			r.Use(s.withAuth)

			r.Get("/user/profile", s.handleGetProfile)
			r.Put("/user/profile", s.handleUpdateProfile)
			r.Get("/user/list", s.handleListUsers)
			r.Put("/user/status", s.handleUpdateUserStatus)
			r.Get("/user/statistics", s.handleUserStatistics)

			r.Post("/drug", s.handleAddDrug)
			r.Put("/drug", s.handleUpdateDrug)
			r.Delete("/drug/{id}", s.handleDeleteDrug)
			r.Put("/drug/status", s.handleUpdateDrugStatus)
			r.Get("/drug/statistics", s.handleDrugStatistics)
		})
	})

	s.router = r
	return s
}

// Router returns the configured handler.
func (s *Server) Router() http.Handler {
	return s.router
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeResult(w, map[string]string{"status": "ok"})
}
