package core

import (
	"context"
	"fmt"
	"time"

	"github.com/JonMunkholm/planner/internal/logging"
)

// ActivityAction is the kind of change recorded in the activity log.
type ActivityAction string

const (
	ActionProjectCreate      ActivityAction = "project_create"
	ActionProjectUpdate      ActivityAction = "project_update"
	ActionProjectDelete      ActivityAction = "project_delete"
	ActionImport             ActivityAction = "import"
	ActionTaskCreate         ActivityAction = "task_create"
	ActionTaskUpdate         ActivityAction = "task_update"
	ActionTaskDelete         ActivityAction = "task_delete"
	ActionTaskReorder        ActivityAction = "task_reorder"
	ActionStateUpdate        ActivityAction = "state_update"
	ActionSubtaskCreate      ActivityAction = "subtask_create"
	ActionSubtaskUpdate      ActivityAction = "subtask_update"
	ActionSubtaskDelete      ActivityAction = "subtask_delete"
	ActionSubtaskReorder     ActivityAction = "subtask_reorder"
	ActionSubtaskToggle      ActivityAction = "subtask_toggle"
	ActionCollaboratorAdd    ActivityAction = "collaborator_add"
	ActionCollaboratorRemove ActivityAction = "collaborator_remove"
)

// ActivitySeverity ranks how disruptive an action is.
type ActivitySeverity string

const (
	SeverityLow      ActivitySeverity = "low"
	SeverityMedium   ActivitySeverity = "medium"
	SeverityHigh     ActivitySeverity = "high"
	SeverityCritical ActivitySeverity = "critical"
)

// DefaultActivityLimit is the page size when a filter sets none.
const DefaultActivityLimit = 100

// ActivityEntry is one recorded change.
type ActivityEntry struct {
	ID           string           `json:"id"`
	ProjectID    string           `json:"projectId"`
	Action       ActivityAction   `json:"action"`
	Severity     ActivitySeverity `json:"severity"`
	Actor        string           `json:"actor,omitempty"`
	IPAddress    string           `json:"ipAddress,omitempty"`
	UserAgent    string           `json:"userAgent,omitempty"`
	Subject      string           `json:"subject,omitempty"`
	Detail       string           `json:"detail,omitempty"`
	RowsAffected int              `json:"rowsAffected,omitempty"`
	ImportID     string           `json:"importId,omitempty"`
	CreatedAt    time.Time        `json:"createdAt"`
}

// ActivityParams describes a change to record. Actor, IP address and user
// agent are taken from the context.
type ActivityParams struct {
	ProjectID    string
	Action       ActivityAction
	Subject      string
	Detail       string
	RowsAffected int
	ImportID     string
}

// ActivityFilter selects activity entries, newest first.
type ActivityFilter struct {
	ProjectID string
	Action    ActivityAction
	Since     time.Time
	Until     time.Time
	Limit     int
	Offset    int
}

// Matches reports whether e passes the filter, ignoring Limit and Offset.
func (f ActivityFilter) Matches(e ActivityEntry) bool {
	if f.ProjectID != "" && e.ProjectID != f.ProjectID {
		return false
	}
	if f.Action != "" && e.Action != f.Action {
		return false
	}
	if !f.Since.IsZero() && e.CreatedAt.Before(f.Since) {
		return false
	}
	if !f.Until.IsZero() && !e.CreatedAt.Before(f.Until) {
		return false
	}
	return true
}

func determineSeverity(action ActivityAction) ActivitySeverity {
	switch action {
	case ActionProjectDelete:
		return SeverityCritical
	case ActionImport, ActionTaskDelete, ActionCollaboratorAdd, ActionCollaboratorRemove:
		return SeverityHigh
	case ActionTaskReorder, ActionSubtaskReorder, ActionSubtaskToggle:
		return SeverityLow
	default:
		return SeverityMedium
	}
}

// LogActivity records a change.
func (s *Service) LogActivity(ctx context.Context, params ActivityParams) (*ActivityEntry, error) {
	entry := ActivityEntry{
		ID:           s.newID(),
		ProjectID:    params.ProjectID,
		Action:       params.Action,
		Severity:     determineSeverity(params.Action),
		Actor:        ActorFromContext(ctx),
		IPAddress:    IPAddressFromContext(ctx),
		UserAgent:    UserAgentFromContext(ctx),
		Subject:      params.Subject,
		Detail:       params.Detail,
		RowsAffected: params.RowsAffected,
		ImportID:     params.ImportID,
		CreatedAt:    s.now().UTC(),
	}

	if err := s.repo.InsertActivity(ctx, entry); err != nil {
		return nil, fmt.Errorf("insert activity: %w", err)
	}
	return &entry, nil
}

// recordActivity logs a change; a failure is logged and otherwise ignored.
func (s *Service) recordActivity(ctx context.Context, params ActivityParams) {
	if _, err := s.LogActivity(ctx, params); err != nil {
		logging.FromContext(ctx).Warn("activity log failed",
			"action", params.Action,
			"project_id", params.ProjectID,
			"error", err,
		)
	}
}

// ListActivity returns activity entries matching filter, newest first.
func (s *Service) ListActivity(ctx context.Context, filter ActivityFilter) ([]ActivityEntry, error) {
	if filter.Limit <= 0 {
		filter.Limit = DefaultActivityLimit
	}
	if filter.ProjectID != "" {
		if _, err := s.repo.GetProject(ctx, filter.ProjectID); err != nil {
			return nil, err
		}
	}
	return s.repo.ListActivity(ctx, filter)
}
