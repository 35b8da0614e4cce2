package core

import (
	"errors"
	"io"
	"time"

	"github.com/JonMunkholm/planner/internal/csvimport"
	"github.com/JonMunkholm/planner/internal/taskstore"
)

var (
	ErrProjectNotFound       = errors.New("project not found")
	ErrProjectNameRequired   = errors.New("project name is required")
	ErrCollaboratorNotFound  = errors.New("collaborator not found")
	ErrDuplicateCollaborator = errors.New("already a collaborator")
	ErrInvalidRole           = errors.New("invalid role")
	ErrInvalidEmail          = errors.New("invalid email")
	ErrOwnerRemoval          = errors.New("cannot remove the project owner")
	ErrNoFile                = errors.New("no file provided")
)

// Project is a plan of tasks owned by one person and shared with collaborators.
type Project struct {
	ID              string     `json:"id"`
	Name            string     `json:"name"`
	Description     string     `json:"description,omitempty"`
	InitialPrompt   string     `json:"initialPrompt,omitempty"`
	ProjectType     string     `json:"projectType,omitempty"`
	ExperienceLevel string     `json:"experienceLevel,omitempty"`
	Lead            string     `json:"projectLead,omitempty"`
	Status          string     `json:"status,omitempty"`
	Timeline        string     `json:"timeline,omitempty"`
	Budget          *float64   `json:"budget,omitempty"`
	StartDate       *time.Time `json:"startDate,omitempty"`
	TargetEndDate   *time.Time `json:"targetEndDate,omitempty"`
	OwnerEmail      string     `json:"ownerEmail,omitempty"`
	CreatedAt       time.Time  `json:"createdAt"`
	UpdatedAt       time.Time  `json:"updatedAt"`
}

// ProjectPatch is a partial project update. Nil fields are left alone.
type ProjectPatch struct {
	Name            *string    `json:"name,omitempty"`
	Description     *string    `json:"description,omitempty"`
	InitialPrompt   *string    `json:"initialPrompt,omitempty"`
	ProjectType     *string    `json:"projectType,omitempty"`
	ExperienceLevel *string    `json:"experienceLevel,omitempty"`
	Lead            *string    `json:"projectLead,omitempty"`
	Status          *string    `json:"status,omitempty"`
	Timeline        *string    `json:"timeline,omitempty"`
	Budget          *float64   `json:"budget,omitempty"`
	StartDate       *time.Time `json:"startDate,omitempty"`
	TargetEndDate   *time.Time `json:"targetEndDate,omitempty"`
}

// Plan is the persisted task list of a project with its tracked state.
type Plan struct {
	Tasks  []taskstore.Task
	States map[string]taskstore.TaskState
}

// Role is a collaborator's access level.
type Role string

const (
	RoleOwner  Role = "owner"
	RoleEditor Role = "editor"
	RoleViewer Role = "viewer"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	switch r {
	case RoleOwner, RoleEditor, RoleViewer:
		return true
	}
	return false
}

// Collaborator is a person with access to a project.
type Collaborator struct {
	ProjectID string    `json:"projectId"`
	Email     string    `json:"email"`
	Role      Role      `json:"role"`
	InvitedBy string    `json:"invitedBy,omitempty"`
	AddedAt   time.Time `json:"addedAt"`
}

// TaskView is a task with its state and derived numbers, as shown to users.
type TaskView struct {
	taskstore.Task
	State    taskstore.TaskState `json:"state"`
	Hours    float64             `json:"hours"`
	Progress taskstore.Progress  `json:"progress"`
}

// PlanView is the full plan of a project.
type PlanView struct {
	ProjectID string           `json:"projectId"`
	Tasks     []TaskView       `json:"tasks"`
	Totals    taskstore.Totals `json:"totals"`
}

// ImportRequest describes one file import into a project.
type ImportRequest struct {
	ProjectID string
	FileName  string
	Body      io.Reader

	// ApplyMeta fills empty project fields from the file's metadata block.
	ApplyMeta bool

	// ExtendedAliases also accepts "hours" and "estimated" as estimate headers.
	// The service-wide setting applies when false.
	ExtendedAliases bool

	// HeaderSearchRows overrides the service default when positive.
	HeaderSearchRows int
}

// ImportResult reports the outcome of ImportCSV.
type ImportResult struct {
	ImportID    string                 `json:"importId"`
	ProjectID   string                 `json:"projectId"`
	FileName    string                 `json:"fileName,omitempty"`
	Imported    int                    `json:"imported"`
	Skipped     []csvimport.SkippedRow `json:"skipped,omitempty"`
	Delimiter   string                 `json:"delimiter"`
	HeaderLine  int                    `json:"headerLine"`
	Meta        csvimport.ProjectMeta  `json:"meta"`
	MetaApplied []string               `json:"metaApplied,omitempty"`
	Tasks       []taskstore.Task       `json:"tasks"`
	DurationMs  int64                  `json:"durationMs"`
}
