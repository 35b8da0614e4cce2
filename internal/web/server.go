// Package web provides the JSON HTTP API of the planner.
package web

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/JonMunkholm/planner/internal/config"
	"github.com/JonMunkholm/planner/internal/core"
	mw "github.com/JonMunkholm/planner/internal/web/middleware"
)

// Pinger reports whether the storage backend is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Server is the HTTP server for the planner API.
type Server struct {
	service *core.Service
	cfg     *config.Config
	health  Pinger
	router  *chi.Mux
	server  *http.Server

	limiters []*rateLimiter
}

// NewServer creates a Server. health may be nil, in which case /healthz only
// reports the import limiter.
func NewServer(service *core.Service, cfg *config.Config, health Pinger) *Server {
	s := &Server{
		service: service,
		cfg:     cfg,
		health:  health,
		router:  chi.NewRouter(),
	}
	s.setupMiddleware()
	s.setupRoutes()
	return s
}

// setupMiddleware configures middleware for all routes.
func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(mw.TrustedRealIP(s.cfg.Security.TrustedProxies))
	s.router.Use(mw.Logger)
	s.router.Use(middleware.Recoverer)
	if s.cfg.Server.RequestTimeout > 0 {
		s.router.Use(middleware.Timeout(s.cfg.Server.RequestTimeout))
	}
	s.router.Use(middleware.Compress(5))
	s.router.Use(securityHeaders)
	s.router.Use(requestMetadata)

	if s.cfg.Rate.Enabled {
		s.router.Use(s.newLimiter(s.cfg.Rate.RequestsPerMinute).middleware)
	}
}

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() {
	s.router.Get("/healthz", s.handleHealth)

	s.router.Route("/api", func(r chi.Router) {
		r.Use(mw.APIKeyAuth(s.cfg.Security))

		r.Get("/projects", s.handleListProjects)
		r.Post("/projects", s.handleCreateProject)

		r.Route("/projects/{projectID}", func(r chi.Router) {
			r.Get("/", s.handleGetProject)
			r.Patch("/", s.handleUpdateProject)
			r.Delete("/", s.handleDeleteProject)

			// Imports
			r.Group(func(r chi.Router) {
				if s.cfg.Rate.Enabled {
					r.Use(s.newLimiter(s.cfg.Rate.ImportLimit).middleware)
				}
				r.Post("/import", s.handleImport)
				r.Post("/import/validate", s.handleValidateImport)
			})

			// Plan
			r.Get("/tasks", s.handleGetPlan)
			r.Post("/tasks", s.handleCreateTask)
			r.Put("/tasks/order", s.handleReorderTasks)
			r.Get("/summary", s.handlePlanSummary)

			r.Route("/tasks/{taskID}", func(r chi.Router) {
				r.Patch("/", s.handleUpdateTask)
				r.Delete("/", s.handleDeleteTask)
				r.Get("/hours", s.handleTaskHours)
				r.Get("/progress", s.handleTaskProgress)
				r.Patch("/state", s.handleUpdateTaskState)

				r.Post("/subtasks", s.handleAddSubtask)
				r.Post("/subtasks/bulk", s.handleAddSubtasks)
				r.Put("/subtasks/order", s.handleReorderSubtasks)
				r.Patch("/subtasks/{subtaskID}", s.handleUpdateSubtask)
				r.Delete("/subtasks/{subtaskID}", s.handleDeleteSubtask)
				r.Post("/subtasks/{subtaskID}/toggle", s.handleToggleSubtask)
			})

			// Sharing
			r.Get("/collaborators", s.handleListCollaborators)
			r.Post("/collaborators", s.handleAddCollaborator)
			r.Delete("/collaborators/{email}", s.handleRemoveCollaborator)

			r.Get("/activity", s.handleProjectActivity)
		})

		r.Get("/activity", s.handleListActivity)
		r.Get("/imports/status", s.handleImportStatus)
	})
}

func (s *Server) newLimiter(perMinute int) *rateLimiter {
	rl := newRateLimiter(perMinute, time.Minute)
	s.limiters = append(s.limiters, rl)
	return rl
}

// Start begins listening for HTTP requests.
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:         s.cfg.Server.Addr(),
		Handler:      s.router,
		ReadTimeout:  s.cfg.Server.ReadTimeout,
		WriteTimeout: s.cfg.Server.WriteTimeout,
		IdleTimeout:  s.cfg.Server.IdleTimeout,
	}

	slog.Info("starting server", "addr", s.server.Addr)
	return s.server.ListenAndServe()
}

// Shutdown gracefully stops the server and its rate limiters.
func (s *Server) Shutdown(ctx context.Context) error {
	for _, rl := range s.limiters {
		rl.close()
	}
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// Router returns the underlying chi router for testing.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// securityHeaders adds security headers to all responses.
func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'")
		w.Header().Set("Referrer-Policy", "no-referrer")
		w.Header().Set("Cache-Control", "no-store")
		next.ServeHTTP(w, r)
	})
}
