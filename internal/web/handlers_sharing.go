package web

import (
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"

	"github.com/JonMunkholm/planner/internal/core"
)

type addCollaboratorRequest struct {
	Email string    `json:"email"`
	Role  core.Role `json:"role"`
}

func (s *Server) handleListCollaborators(w http.ResponseWriter, r *http.Request) {
	collabs, err := s.service.ListCollaborators(r.Context(), chi.URLParam(r, "projectID"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	if collabs == nil {
		collabs = []core.Collaborator{}
	}
	writeJSON(w, r, http.StatusOK, collabs)
}

// handleAddCollaborator shares the project and emails an invitation. A failed
// invitation does not fail the request.
func (s *Server) handleAddCollaborator(w http.ResponseWriter, r *http.Request) {
	var req addCollaboratorRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, r, err)
		return
	}
	if req.Role == "" {
		req.Role = core.RoleViewer
	}

	c, err := s.service.AddCollaborator(r.Context(), chi.URLParam(r, "projectID"), req.Email, req.Role)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusCreated, c)
}

func (s *Server) handleRemoveCollaborator(w http.ResponseWriter, r *http.Request) {
	email, err := url.PathUnescape(chi.URLParam(r, "email"))
	if err != nil {
		respondError(w, r, core.ErrInvalidEmail)
		return
	}

	if err := s.service.RemoveCollaborator(r.Context(), chi.URLParam(r, "projectID"), email); err != nil {
		respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleListActivity lists activity across projects. Filters: projectId,
// action, since, until, limit and offset.
func (s *Server) handleListActivity(w http.ResponseWriter, r *http.Request) {
	filter, err := parseActivityFilter(r)
	if err != nil {
		respondError(w, r, err)
		return
	}
	filter.ProjectID = r.URL.Query().Get("projectId")
	s.listActivity(w, r, filter)
}

// handleProjectActivity lists the activity of one project.
func (s *Server) handleProjectActivity(w http.ResponseWriter, r *http.Request) {
	filter, err := parseActivityFilter(r)
	if err != nil {
		respondError(w, r, err)
		return
	}
	filter.ProjectID = chi.URLParam(r, "projectID")
	s.listActivity(w, r, filter)
}

func (s *Server) listActivity(w http.ResponseWriter, r *http.Request, filter core.ActivityFilter) {
	entries, err := s.service.ListActivity(r.Context(), filter)
	if err != nil {
		respondError(w, r, err)
		return
	}
	if entries == nil {
		entries = []core.ActivityEntry{}
	}
	writeJSON(w, r, http.StatusOK, entries)
}

func parseActivityFilter(r *http.Request) (core.ActivityFilter, error) {
	filter := core.ActivityFilter{
		Action: core.ActivityAction(r.URL.Query().Get("action")),
		Limit:  parseIntParam(r, "limit", core.DefaultActivityLimit),
		Offset: parseIntParam(r, "offset", 0),
	}
	if filter.Limit > maxActivityLimit {
		filter.Limit = maxActivityLimit
	}

	var err error
	if filter.Since, err = parseTimeParam(r, "since"); err != nil {
		return filter, err
	}
	if filter.Until, err = parseTimeParam(r, "until"); err != nil {
		return filter, err
	}
	return filter, nil
}
