package core

// error_messages.go maps technical errors to user-facing messages with codes
// support staff can look up.
//
// Codes are grouped by category:
//
//	IMP001-IMP099   import structure (missing Task column, too few lines)
//	IMPQ001         import queue (all import slots busy)
//	FILE001-FILE099 uploaded file (size, empty, missing)
//	PRJ001-PRJ099   projects
//	TSK001-TSK099   tasks and subtasks
//	COL001-COL099   collaborators
//	REQ001-REQ099   request handling (cancelled, timed out, malformed)
//	DB001-DB099     storage connectivity
//	RATE001         throttling
//	ERR000          fallback; check the logs for the technical error
//
// Patterns are matched case-insensitively with strings.Contains and the first
// match wins, so specific patterns come before general ones.

import (
	"fmt"
	"strings"
)

// UserMessage is user-friendly error information with guidance.
type UserMessage struct {
	Message string `json:"message"`
	Action  string `json:"action"`
	Code    string `json:"code"`
}

type errorPattern struct {
	pattern string
	msg     UserMessage
}

var errorPatterns = []errorPattern{
	// Import structure
	{"no task column found", UserMessage{
		Message: "The file has no Task column",
		Action:  "Add a header row with a Task, Name or Title column",
		Code:    "IMP001",
	}},
	{"fewer than 2 lines", UserMessage{
		Message: "The file needs a header row and at least one task",
		Action:  "Add task rows below the header and upload again",
		Code:    "IMP002",
	}},
	{"too many concurrent imports", UserMessage{
		Message: "The system is busy processing other imports",
		Action:  "Please wait a moment and try again",
		Code:    "IMPQ001",
	}},

	// Files
	{"file too large", UserMessage{
		Message: "File exceeds the maximum upload size",
		Action:  "Split the file or remove unused columns",
		Code:    "FILE001",
	}},
	{"no file provided", UserMessage{
		Message: "No file was selected",
		Action:  "Please select a CSV or TSV file to import",
		Code:    "FILE004",
	}},
	{"empty file", UserMessage{
		Message: "The uploaded file is empty",
		Action:  "Please upload a file with a header row and tasks",
		Code:    "FILE005",
	}},

	// Projects
	{"project not found", UserMessage{
		Message: "Project not found",
		Action:  "It may have been deleted. Refresh the project list",
		Code:    "PRJ001",
	}},
	{"project name is required", UserMessage{
		Message: "A project needs a name",
		Action:  "Enter a project name",
		Code:    "PRJ002",
	}},

	// Tasks
	{"subtask not found", UserMessage{
		Message: "Subtask not found",
		Action:  "It may have been deleted. Reload the task",
		Code:    "TSK002",
	}},
	{"task not found", UserMessage{
		Message: "Task not found",
		Action:  "It may have been deleted. Reload the project",
		Code:    "TSK001",
	}},
	{"invalid order", UserMessage{
		Message: "The new order does not match the current list",
		Action:  "Reload and try reordering again",
		Code:    "TSK003",
	}},
	{"invalid status", UserMessage{
		Message: "Unknown status",
		Action:  "Use pending, in-progress, blocked or completed",
		Code:    "TSK004",
	}},
	{"invalid hour mode", UserMessage{
		Message: "Unknown hour mode",
		Action:  "Use manual or auto",
		Code:    "TSK005",
	}},
	{"duplicate task id", UserMessage{
		Message: "A task with this ID already exists",
		Action:  "Leave the ID empty to have one generated",
		Code:    "TSK007",
	}},

	// Collaborators
	{"collaborator not found", UserMessage{
		Message: "Collaborator not found",
		Action:  "Refresh the collaborator list",
		Code:    "COL001",
	}},
	{"already a collaborator", UserMessage{
		Message: "This person already has access",
		Action:  "Change their role instead of inviting again",
		Code:    "COL002",
	}},
	{"invalid role", UserMessage{
		Message: "Unknown collaborator role",
		Action:  "Use editor or viewer",
		Code:    "COL003",
	}},
	{"invalid email", UserMessage{
		Message: "The email address is not valid",
		Action:  "Check the address and try again",
		Code:    "COL004",
	}},
	{"cannot remove the project owner", UserMessage{
		Message: "The project owner cannot be removed",
		Action:  "Delete the project instead",
		Code:    "COL005",
	}},

	// Generic name check; after the project-specific pattern above.
	{"name is required", UserMessage{
		Message: "A name is required",
		Action:  "Enter a name and try again",
		Code:    "TSK006",
	}},

	// Requests
	{"context canceled", UserMessage{
		Message: "Request was cancelled",
		Action:  "Please try again",
		Code:    "REQ001",
	}},
	{"context deadline exceeded", UserMessage{
		Message: "Request timed out",
		Action:  "Try a smaller file or try again later",
		Code:    "REQ002",
	}},
	{"invalid request body", UserMessage{
		Message: "The request could not be read",
		Action:  "Check the submitted data",
		Code:    "REQ003",
	}},

	// Storage
	{"connection refused", UserMessage{
		Message: "Unable to connect to the database",
		Action:  "Please try again in a few moments",
		Code:    "DB004",
	}},
	{"connection reset", UserMessage{
		Message: "Database connection was interrupted",
		Action:  "Please try again",
		Code:    "DB005",
	}},
	{"deadlock", UserMessage{
		Message: "Database was busy with conflicting operations",
		Action:  "Please try again",
		Code:    "DB007",
	}},

	{"rate limit", UserMessage{
		Message: "Too many requests",
		Action:  "Please wait a moment before trying again",
		Code:    "RATE001",
	}},
}

var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Please try again or contact support",
	Code:    "ERR000",
}

// MapError converts a technical error to a user-friendly message.
// Unknown errors map to ERR000.
//
//	msg := MapError(fmt.Errorf("load plan: %w", ErrProjectNotFound))
//	// msg.Code == "PRJ001"
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	errStr := strings.ToLower(err.Error())
	for _, ep := range errorPatterns {
		if strings.Contains(errStr, ep.pattern) {
			return ep.msg
		}
	}
	return defaultMessage
}

// FormatUserError renders err as "Message (Code: XXX). Action".
func FormatUserError(err error) string {
	msg := MapError(err)
	if msg.Message == "" {
		return ""
	}
	return fmt.Sprintf("%s (Code: %s). %s", msg.Message, msg.Code, msg.Action)
}

// IsUserFacing reports whether err maps to a specific message rather than ERR000.
func IsUserFacing(err error) bool {
	return err != nil && MapError(err).Code != defaultMessage.Code
}

// UserError carries a technical error together with its user message.
// Error returns the user message; Unwrap returns the technical error.
type UserError struct {
	Technical error
	User      UserMessage
}

func (e *UserError) Error() string {
	return e.User.Message
}

func (e *UserError) Unwrap() error {
	return e.Technical
}

// NewUserError maps err to a UserError. It returns nil for a nil err.
func NewUserError(err error) *UserError {
	if err == nil {
		return nil
	}
	return &UserError{Technical: err, User: MapError(err)}
}
