package server

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/claude/zwogen/internal/library"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// UserStore resolves a login to a user ID, creating the user on first sight.
type UserStore interface {
	GetOrCreateUser(ctx context.Context, login, displayName string) (int, error)
}

// Server holds dependencies for HTTP handlers.
type Server struct {
	lib    *library.Service
	users  UserStore
	log    *slog.Logger
	apiKey string
	router chi.Router
	whois  WhoIs
	mcp    http.Handler
}

// New creates a new Server with all routes configured.
func New(lib *library.Service, users UserStore, apiKey string, log *slog.Logger) *Server {
	s := &Server{
		lib:    lib,
		users:  users,
		log:    log,
		apiKey: apiKey,
		router: chi.NewRouter(),
	}
	s.routes()
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// SetTailscale switches request identity from the local dev user to the
// tailnet peer reported by whois. Call before serving.
func (s *Server) SetTailscale(whois WhoIs) {
	s.whois = whois
}

// SetMCP serves the MCP streamable HTTP endpoint at /mcp. Requests must
// carry the API key. Call before serving.
func (s *Server) SetMCP(h http.Handler) {
	s.mcp = h
}

func (s *Server) routes() {
	s.router.Use(middleware.RequestID)
	s.router.Use(RequestLogging(s.log))
	s.router.Use(middleware.Recoverer)
	s.router.Use(CORS)

	s.router.Group(func(r chi.Router) {
		r.Use(s.identity)

		r.Post("/api/v1/compile", s.handleCompile)
		r.Get("/api/v1/workouts", s.handleQueryWorkouts)
		r.Get("/api/v1/workouts/{id}", s.handleGetWorkout)
		r.Get("/api/v1/workouts/{id}/zwo", s.handleDownloadWorkout)
		r.Get("/api/v1/stats", s.handleStats)
		r.Get("/api/v1/compile-logs", s.handleCompileLogs)
		r.Get("/api/v1/me", s.handleMe)

		// Library writes (API key required), including MCP's save_workout
		r.Group(func(r chi.Router) {
			r.Use(APIKeyAuth(s.apiKey))
			r.Post("/api/v1/workouts", s.handleSaveWorkout)
			r.Delete("/api/v1/workouts/{id}", s.handleDeleteWorkout)
			r.HandleFunc("/mcp", s.handleMCP)
		})
	})
}

// identity resolves the caller with TailscaleIdentity when a tailnet is
// configured and with DevIdentity otherwise.
func (s *Server) identity(next http.Handler) http.Handler {
	dev := DevIdentity(next)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.whois == nil {
			dev.ServeHTTP(w, r)
			return
		}
		TailscaleIdentity(s.whois, s.users, s.log)(next).ServeHTTP(w, r)
	})
}

func (s *Server) handleMCP(w http.ResponseWriter, r *http.Request) {
	if s.mcp == nil {
		http.NotFound(w, r)
		return
	}
	s.mcp.ServeHTTP(w, r)
}
