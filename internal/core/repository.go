package core

import (
	"context"
	"time"
)

// Repository persists projects, their plans, collaborators and activity.
//
// Lookups of a missing project return an error wrapping ErrProjectNotFound.
// SavePlan replaces the whole plan of a project atomically.
type Repository interface {
	CreateProject(ctx context.Context, p Project) error
	GetProject(ctx context.Context, id string) (Project, error)
	ListProjects(ctx context.Context) ([]Project, error)
	UpdateProject(ctx context.Context, p Project) error
	DeleteProject(ctx context.Context, id string) error

	LoadPlan(ctx context.Context, projectID string) (Plan, error)
	SavePlan(ctx context.Context, projectID string, plan Plan) error

	ListCollaborators(ctx context.Context, projectID string) ([]Collaborator, error)
	AddCollaborator(ctx context.Context, c Collaborator) error
	RemoveCollaborator(ctx context.Context, projectID, email string) error

	InsertActivity(ctx context.Context, e ActivityEntry) error
	ListActivity(ctx context.Context, filter ActivityFilter) ([]ActivityEntry, error)
	PurgeActivity(ctx context.Context, before time.Time) (int64, error)
}
