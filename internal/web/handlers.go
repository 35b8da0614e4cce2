package web

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/JonMunkholm/planner/internal/core"
)

// healthResponse is the body of /healthz.
type healthResponse struct {
	Status   string                   `json:"status"`
	Storage  string                   `json:"storage"`
	Imports  core.ImportLimiterStatus `json:"imports"`
	Error    string                   `json:"error,omitempty"`
	Duration string                   `json:"duration"`
}

// handleHealth reports storage reachability and import capacity.
// An unreachable store answers 503.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	resp := healthResponse{
		Status:  "ok",
		Storage: "unchecked",
		Imports: s.service.Limiter().Status(),
	}
	status := http.StatusOK

	if s.health != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.health.Ping(ctx); err != nil {
			resp.Status = "degraded"
			resp.Storage = "unreachable"
			resp.Error = core.MapError(err).Message
			status = http.StatusServiceUnavailable
		} else {
			resp.Storage = "ok"
		}
	}

	resp.Duration = time.Since(start).String()
	writeJSON(w, r, status, resp)
}

// handleImportStatus returns the current state of the import limiter.
func (s *Server) handleImportStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, s.service.Limiter().Status())
}

func (s *Server) handleListProjects(w http.ResponseWriter, r *http.Request) {
	projects, err := s.service.ListProjects(r.Context())
	if err != nil {
		respondError(w, r, err)
		return
	}
	if projects == nil {
		projects = []core.Project{}
	}
	writeJSON(w, r, http.StatusOK, projects)
}

// handleCreateProject creates a project owned by the caller unless the body
// names an owner.
func (s *Server) handleCreateProject(w http.ResponseWriter, r *http.Request) {
	var p core.Project
	if err := decodeJSON(w, r, &p); err != nil {
		respondError(w, r, err)
		return
	}

	created, err := s.service.CreateProject(r.Context(), p)
	if err != nil {
		respondError(w, r, err)
		return
	}
	w.Header().Set("Location", "/api/projects/"+created.ID)
	writeJSON(w, r, http.StatusCreated, created)
}

func (s *Server) handleGetProject(w http.ResponseWriter, r *http.Request) {
	p, err := s.service.GetProject(r.Context(), chi.URLParam(r, "projectID"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, p)
}

func (s *Server) handleUpdateProject(w http.ResponseWriter, r *http.Request) {
	var patch core.ProjectPatch
	if err := decodeJSON(w, r, &patch); err != nil {
		respondError(w, r, err)
		return
	}

	p, err := s.service.UpdateProject(r.Context(), chi.URLParam(r, "projectID"), patch)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, p)
}

func (s *Server) handleDeleteProject(w http.ResponseWriter, r *http.Request) {
	if err := s.service.DeleteProject(r.Context(), chi.URLParam(r, "projectID")); err != nil {
		respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
