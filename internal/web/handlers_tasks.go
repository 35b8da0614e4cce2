package web

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/JonMunkholm/planner/internal/taskstore"
)

// orderRequest is the body of the reorder endpoints.
type orderRequest struct {
	IDs []string `json:"ids"`
}

type bulkSubtasksRequest struct {
	Subtasks []taskstore.Subtask `json:"subtasks"`
}

type hoursResponse struct {
	TaskID string  `json:"taskId"`
	Hours  float64 `json:"hours"`
}

func (s *Server) handleGetPlan(w http.ResponseWriter, r *http.Request) {
	plan, err := s.service.GetPlan(r.Context(), chi.URLParam(r, "projectID"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, plan)
}

func (s *Server) handlePlanSummary(w http.ResponseWriter, r *http.Request) {
	totals, err := s.service.PlanSummary(r.Context(), chi.URLParam(r, "projectID"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, totals)
}

func (s *Server) handleCreateTask(w http.ResponseWriter, r *http.Request) {
	var t taskstore.Task
	if err := decodeJSON(w, r, &t); err != nil {
		respondError(w, r, err)
		return
	}

	created, err := s.service.CreateTask(r.Context(), chi.URLParam(r, "projectID"), t)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusCreated, created)
}

func (s *Server) handleUpdateTask(w http.ResponseWriter, r *http.Request) {
	var patch taskstore.TaskPatch
	if err := decodeJSON(w, r, &patch); err != nil {
		respondError(w, r, err)
		return
	}

	t, err := s.service.UpdateTask(r.Context(), chi.URLParam(r, "projectID"), chi.URLParam(r, "taskID"), patch)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, t)
}

func (s *Server) handleDeleteTask(w http.ResponseWriter, r *http.Request) {
	if err := s.service.DeleteTask(r.Context(), chi.URLParam(r, "projectID"), chi.URLParam(r, "taskID")); err != nil {
		respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleReorderTasks applies a full task order; the IDs must be a
// permutation of the plan's tasks.
func (s *Server) handleReorderTasks(w http.ResponseWriter, r *http.Request) {
	var req orderRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, r, err)
		return
	}

	if err := s.service.ReorderTasks(r.Context(), chi.URLParam(r, "projectID"), req.IDs); err != nil {
		respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleTaskHours(w http.ResponseWriter, r *http.Request) {
	taskID := chi.URLParam(r, "taskID")
	hours, err := s.service.TaskHours(r.Context(), chi.URLParam(r, "projectID"), taskID)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, hoursResponse{TaskID: taskID, Hours: hours})
}

func (s *Server) handleTaskProgress(w http.ResponseWriter, r *http.Request) {
	p, err := s.service.TaskProgress(r.Context(), chi.URLParam(r, "projectID"), chi.URLParam(r, "taskID"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, p)
}

func (s *Server) handleUpdateTaskState(w http.ResponseWriter, r *http.Request) {
	var patch taskstore.StatePatch
	if err := decodeJSON(w, r, &patch); err != nil {
		respondError(w, r, err)
		return
	}

	state, err := s.service.UpdateTaskState(r.Context(), chi.URLParam(r, "projectID"), chi.URLParam(r, "taskID"), patch)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, state)
}

func (s *Server) handleAddSubtask(w http.ResponseWriter, r *http.Request) {
	var sub taskstore.Subtask
	if err := decodeJSON(w, r, &sub); err != nil {
		respondError(w, r, err)
		return
	}

	created, err := s.service.AddSubtask(r.Context(), chi.URLParam(r, "projectID"), chi.URLParam(r, "taskID"), sub)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusCreated, created)
}

// handleAddSubtasks adds several subtasks at once; either all are added or none.
func (s *Server) handleAddSubtasks(w http.ResponseWriter, r *http.Request) {
	var req bulkSubtasksRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, r, err)
		return
	}

	created, err := s.service.AddSubtasks(r.Context(), chi.URLParam(r, "projectID"), chi.URLParam(r, "taskID"), req.Subtasks)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusCreated, created)
}

func (s *Server) handleUpdateSubtask(w http.ResponseWriter, r *http.Request) {
	var patch taskstore.SubtaskPatch
	if err := decodeJSON(w, r, &patch); err != nil {
		respondError(w, r, err)
		return
	}

	sub, err := s.service.UpdateSubtask(r.Context(),
		chi.URLParam(r, "projectID"), chi.URLParam(r, "taskID"), chi.URLParam(r, "subtaskID"), patch)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, sub)
}

func (s *Server) handleDeleteSubtask(w http.ResponseWriter, r *http.Request) {
	err := s.service.DeleteSubtask(r.Context(),
		chi.URLParam(r, "projectID"), chi.URLParam(r, "taskID"), chi.URLParam(r, "subtaskID"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleReorderSubtasks(w http.ResponseWriter, r *http.Request) {
	var req orderRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, r, err)
		return
	}

	if err := s.service.ReorderSubtasks(r.Context(), chi.URLParam(r, "projectID"), chi.URLParam(r, "taskID"), req.IDs); err != nil {
		respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleToggleSubtask flips a subtask between completed and pending.
func (s *Server) handleToggleSubtask(w http.ResponseWriter, r *http.Request) {
	sub, err := s.service.ToggleSubtask(r.Context(),
		chi.URLParam(r, "projectID"), chi.URLParam(r, "taskID"), chi.URLParam(r, "subtaskID"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, sub)
}
