package core

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/JonMunkholm/planner/internal/csvimport"
	"github.com/JonMunkholm/planner/internal/taskstore"
)

func TestMapError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode string
	}{
		{"nil error returns empty", nil, ""},
		{"missing task column", &csvimport.ImportError{Line: 1, Err: csvimport.ErrNoTaskColumn}, "IMP001"},
		{"too few lines", csvimport.ErrTooFewLines, "IMP002"},
		{"import queue full", ErrTooManyImports, "IMPQ001"},
		{"file too large", fmt.Errorf("%w: exceeds 10 bytes", csvimport.ErrFileTooLarge), "FILE001"},
		{"no file", ErrNoFile, "FILE004"},
		{"empty file", csvimport.ErrEmptyFile, "FILE005"},
		{"project not found", fmt.Errorf("load: %w", ErrProjectNotFound), "PRJ001"},
		{"project name", ErrProjectNameRequired, "PRJ002"},
		{"subtask before task", taskstore.ErrSubtaskNotFound, "TSK002"},
		{"task not found", taskstore.ErrTaskNotFound, "TSK001"},
		{"invalid order", taskstore.ErrInvalidOrder, "TSK003"},
		{"invalid status", taskstore.ErrInvalidStatus, "TSK004"},
		{"invalid hour mode", taskstore.ErrInvalidHourMode, "TSK005"},
		{"task name", taskstore.ErrEmptyName, "TSK006"},
		{"duplicate task", taskstore.ErrDuplicateTask, "TSK007"},
		{"collaborator not found", ErrCollaboratorNotFound, "COL001"},
		{"duplicate collaborator", ErrDuplicateCollaborator, "COL002"},
		{"owner removal", ErrOwnerRemoval, "COL005"},
		{"cancelled", context.Canceled, "REQ001"},
		{"deadline", context.DeadlineExceeded, "REQ002"},
		{"connection refused", errors.New("dial tcp: connection refused"), "DB004"},
		{"case insensitive", errors.New("RATE LIMIT exceeded"), "RATE001"},
		{"unknown error", errors.New("some random internal error"), "ERR000"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := MapError(tt.err).Code; got != tt.wantCode {
				t.Errorf("MapError() code = %q, want %q", got, tt.wantCode)
			}
		})
	}
}

func TestFormatUserError(t *testing.T) {
	got := FormatUserError(ErrProjectNotFound)
	want := "Project not found (Code: PRJ001). It may have been deleted. Refresh the project list"
	if got != want {
		t.Errorf("FormatUserError() = %q, want %q", got, want)
	}
	if got := FormatUserError(nil); got != "" {
		t.Errorf("FormatUserError(nil) = %q, want empty", got)
	}
}

func TestIsUserFacing(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil error is not user facing", nil, false},
		{"known error is user facing", taskstore.ErrTaskNotFound, true},
		{"unknown error is not user facing", errors.New("random internal error xyz"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsUserFacing(tt.err); got != tt.want {
				t.Errorf("IsUserFacing() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNewUserError(t *testing.T) {
	if got := NewUserError(nil); got != nil {
		t.Errorf("NewUserError(nil) = %v, want nil", got)
	}

	userErr := NewUserError(ErrOwnerRemoval)
	if userErr.Error() != "The project owner cannot be removed" {
		t.Errorf("Error() = %q, want user message", userErr.Error())
	}
	if !errors.Is(userErr, ErrOwnerRemoval) {
		t.Error("Unwrap() should return the technical error")
	}
}
