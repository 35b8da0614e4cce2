package web

// errors.go turns service errors into JSON responses.
//
// The technical error is logged with the request ID; the client gets the
// message, action and code from core.MapError, and a status derived from the
// error's sentinel.

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/JonMunkholm/planner/internal/core"
	"github.com/JonMunkholm/planner/internal/csvimport"
	"github.com/JonMunkholm/planner/internal/logging"
	"github.com/JonMunkholm/planner/internal/taskstore"
)

var (
	// errInvalidBody is returned for request bodies that do not decode.
	errInvalidBody = errors.New("invalid request body")
	errRateLimited = errors.New("rate limit exceeded")
)

// ErrorResponse is the JSON body of every error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Action  string `json:"action,omitempty"`
	Code    string `json:"code"`
}

// statusFor picks the HTTP status for err.
func statusFor(err error) int {
	var importErr *csvimport.ImportError
	switch {
	case errors.Is(err, core.ErrProjectNotFound),
		errors.Is(err, core.ErrCollaboratorNotFound),
		errors.Is(err, taskstore.ErrTaskNotFound),
		errors.Is(err, taskstore.ErrSubtaskNotFound):
		return http.StatusNotFound

	case errors.Is(err, core.ErrDuplicateCollaborator),
		errors.Is(err, core.ErrOwnerRemoval),
		errors.Is(err, taskstore.ErrDuplicateTask):
		return http.StatusConflict

	case errors.Is(err, csvimport.ErrFileTooLarge):
		return http.StatusRequestEntityTooLarge

	case errors.Is(err, core.ErrTooManyImports):
		return http.StatusServiceUnavailable

	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout

	case errors.As(err, &importErr),
		errors.Is(err, errInvalidBody),
		errors.Is(err, csvimport.ErrEmptyFile),
		errors.Is(err, core.ErrNoFile),
		errors.Is(err, core.ErrProjectNameRequired),
		errors.Is(err, core.ErrInvalidRole),
		errors.Is(err, core.ErrInvalidEmail),
		errors.Is(err, taskstore.ErrInvalidOrder),
		errors.Is(err, taskstore.ErrInvalidStatus),
		errors.Is(err, taskstore.ErrInvalidHourMode),
		errors.Is(err, taskstore.ErrEmptyName):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

// respondError logs err and writes its user-facing form.
func respondError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	msg := core.MapError(err)

	level := slog.LevelWarn
	if status >= http.StatusInternalServerError {
		level = slog.LevelError
	}
	logging.FromContext(r.Context()).Log(r.Context(), level, "request error",
		"path", r.URL.Path,
		"method", r.Method,
		"status", status,
		"error", err.Error(),
		"code", msg.Code,
	)

	if status == http.StatusServiceUnavailable {
		w.Header().Set("Retry-After", "10")
	}
	writeErrorJSON(w, status, msg)
}

func writeErrorJSON(w http.ResponseWriter, status int, msg core.UserMessage) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(ErrorResponse{
		Error:   msg.Message,
		Message: msg.Message,
		Action:  msg.Action,
		Code:    msg.Code,
	})
}
