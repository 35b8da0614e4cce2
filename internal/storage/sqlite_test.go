package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/planner/internal/config"
	"github.com/JonMunkholm/planner/internal/core"
	"github.com/JonMunkholm/planner/internal/taskstore"
)

func openTestSQLite(t *testing.T) *SQLite {
	t.Helper()
	db, err := OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "data", "planner.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestSQLite_ProjectCRUD(t *testing.T) {
	ctx := context.Background()
	db := openTestSQLite(t)

	budget := 1500.0
	start := time.Date(2024, 6, 3, 15, 0, 0, 0, time.UTC)
	require.NoError(t, db.CreateProject(ctx, core.Project{
		ID: "a", Name: "Alpha", Lead: "Dana", Budget: &budget, StartDate: &start,
		CreatedAt: t0, UpdatedAt: t0,
	}))
	require.NoError(t, db.CreateProject(ctx, core.Project{ID: "b", Name: "Beta", CreatedAt: t0.Add(time.Hour), UpdatedAt: t0}))

	list, err := db.ListProjects(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "b", list[0].ID, "newest first")

	got, err := db.GetProject(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, "Dana", got.Lead)
	assert.Empty(t, got.Description)
	require.NotNil(t, got.Budget)
	assert.Equal(t, 1500.0, *got.Budget)
	require.NotNil(t, got.StartDate)
	assert.True(t, time.Date(2024, 6, 3, 0, 0, 0, 0, time.UTC).Equal(*got.StartDate))
	assert.True(t, t0.Equal(got.CreatedAt))

	got.Name = "Renamed"
	got.Budget = nil
	require.NoError(t, db.UpdateProject(ctx, got))
	again, err := db.GetProject(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, "Renamed", again.Name)
	assert.Nil(t, again.Budget)

	require.NoError(t, db.DeleteProject(ctx, "a"))
	_, err = db.GetProject(ctx, "a")
	assert.ErrorIs(t, err, core.ErrProjectNotFound)
	assert.ErrorIs(t, db.DeleteProject(ctx, "a"), core.ErrProjectNotFound)
	assert.ErrorIs(t, db.UpdateProject(ctx, core.Project{ID: "zzz"}), core.ErrProjectNotFound)
}

func TestSQLite_PlanRoundTrip(t *testing.T) {
	ctx := context.Background()
	db := openTestSQLite(t)
	require.NoError(t, db.CreateProject(ctx, core.Project{ID: "p", Name: "P", CreatedAt: t0, UpdatedAt: t0}))

	empty, err := db.LoadPlan(ctx, "p")
	require.NoError(t, err)
	assert.Empty(t, empty.Tasks)

	est := 2.0
	done := t0.Add(time.Hour)
	plan := core.Plan{
		Tasks: []taskstore.Task{
			{
				ID: "t1", Name: "Design", Phase: "planning", PhaseTitle: "Planning",
				BaseEstHours: 4, CriticalPath: true, HourMode: taskstore.HourManual,
				Subtasks: []taskstore.Subtask{
					{ID: "s2", Name: "Review", Order: 1, Status: taskstore.StatusCompleted, CompletedAt: &done},
					{ID: "s1", Name: "Sketch", Order: 0, Status: taskstore.StatusPending, EstHours: &est},
				},
			},
			{ID: "t0", Name: "Build", Phase: "build", PhaseTitle: "Build"},
		},
		States: map[string]taskstore.TaskState{"t1": {Status: taskstore.StatusBlocked, Notes: "waiting", ActualHours: "3"}},
	}
	require.NoError(t, db.SavePlan(ctx, "p", plan))

	loaded, err := db.LoadPlan(ctx, "p")
	require.NoError(t, err)
	require.Len(t, loaded.Tasks, 2)
	assert.Equal(t, "t1", loaded.Tasks[0].ID, "plan order kept")
	assert.True(t, loaded.Tasks[0].CriticalPath)
	assert.Equal(t, taskstore.HourManual, loaded.Tasks[0].HourMode)

	subs := loaded.Tasks[0].Subtasks
	require.Len(t, subs, 2)
	assert.Equal(t, []string{"s2", "s1"}, []string{subs[0].ID, subs[1].ID}, "subtask slice order kept")
	assert.Equal(t, 1, subs[0].Order)
	require.NotNil(t, subs[0].CompletedAt)
	assert.True(t, done.Equal(*subs[0].CompletedAt))
	require.NotNil(t, subs[1].EstHours)
	assert.Equal(t, 2.0, *subs[1].EstHours)

	state := loaded.States["t1"]
	assert.Equal(t, taskstore.StatusBlocked, state.Status)
	assert.Equal(t, "3", state.ActualHours)

	// Saving again replaces, not appends.
	plan.Tasks = plan.Tasks[1:]
	require.NoError(t, db.SavePlan(ctx, "p", plan))
	loaded, err = db.LoadPlan(ctx, "p")
	require.NoError(t, err)
	require.Len(t, loaded.Tasks, 1)
	assert.Empty(t, loaded.States)

	assert.ErrorIs(t, db.SavePlan(ctx, "missing", plan), core.ErrProjectNotFound)
	_, err = db.LoadPlan(ctx, "missing")
	assert.ErrorIs(t, err, core.ErrProjectNotFound)
}

func TestSQLite_Collaborators(t *testing.T) {
	ctx := context.Background()
	db := openTestSQLite(t)
	require.NoError(t, db.CreateProject(ctx, core.Project{ID: "p", Name: "P", CreatedAt: t0, UpdatedAt: t0}))

	require.NoError(t, db.AddCollaborator(ctx, core.Collaborator{ProjectID: "p", Email: "ed@example.com", Role: core.RoleEditor, AddedAt: t0}))
	require.NoError(t, db.AddCollaborator(ctx, core.Collaborator{ProjectID: "p", Email: "own@example.com", Role: core.RoleOwner, AddedAt: t0.Add(time.Minute)}))
	assert.ErrorIs(t,
		db.AddCollaborator(ctx, core.Collaborator{ProjectID: "p", Email: "ed@example.com", Role: core.RoleViewer, AddedAt: t0}),
		core.ErrDuplicateCollaborator)

	list, err := db.ListCollaborators(ctx, "p")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, core.RoleOwner, list[0].Role)

	require.NoError(t, db.RemoveCollaborator(ctx, "p", "ed@example.com"))
	assert.ErrorIs(t, db.RemoveCollaborator(ctx, "p", "ed@example.com"), core.ErrCollaboratorNotFound)

	// Collaborators go with their project.
	require.NoError(t, db.DeleteProject(ctx, "p"))
	list, err = db.ListCollaborators(ctx, "p")
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestSQLite_Activity(t *testing.T) {
	ctx := context.Background()
	db := openTestSQLite(t)

	for i, a := range []core.ActivityAction{core.ActionImport, core.ActionTaskCreate, core.ActionImport} {
		require.NoError(t, db.InsertActivity(ctx, core.ActivityEntry{
			ID:        string(rune('a' + i)),
			ProjectID: "p",
			Action:    a,
			Severity:  core.SeverityLow,
			CreatedAt: t0.Add(time.Duration(i) * time.Hour),
		}))
	}

	all, err := db.ListActivity(ctx, core.ActivityFilter{ProjectID: "p"})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "c", all[0].ID, "newest first")

	imports, err := db.ListActivity(ctx, core.ActivityFilter{ProjectID: "p", Action: core.ActionImport})
	require.NoError(t, err)
	assert.Len(t, imports, 2)

	window, err := db.ListActivity(ctx, core.ActivityFilter{Since: t0.Add(30 * time.Minute), Until: t0.Add(90 * time.Minute)})
	require.NoError(t, err)
	require.Len(t, window, 1)
	assert.Equal(t, "b", window[0].ID)

	page, err := db.ListActivity(ctx, core.ActivityFilter{ProjectID: "p", Limit: 1, Offset: 1})
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, "b", page[0].ID)

	purged, err := db.PurgeActivity(ctx, t0.Add(90*time.Minute))
	require.NoError(t, err)
	assert.Equal(t, int64(2), purged)
}

func TestSQLite_PersistsAcrossOpen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "planner.db")

	db, err := OpenSQLite(ctx, path)
	require.NoError(t, err)
	require.NoError(t, db.CreateProject(ctx, core.Project{ID: "p", Name: "Kept", CreatedAt: t0, UpdatedAt: t0}))
	require.NoError(t, db.Close())

	repo, closeRepo, err := Open(ctx, config.StorageConfig{Driver: config.DriverSQLite, SQLitePath: path})
	require.NoError(t, err)
	defer closeRepo()

	require.NoError(t, repo.Ping(ctx))
	got, err := repo.GetProject(ctx, "p")
	require.NoError(t, err)
	assert.Equal(t, "Kept", got.Name)
}

func TestSQLite_SubtaskOrderWithEqualSortOrder(t *testing.T) {
	db := openTestSQLite(t)
	ctx := context.Background()
	t0 := time.Date(2024, 6, 3, 10, 0, 0, 0, time.UTC)
	require.NoError(t, db.CreateProject(ctx, core.Project{ID: "p", Name: "P", CreatedAt: t0, UpdatedAt: t0}))

	plan := core.Plan{Tasks: []taskstore.Task{{
		ID: "t1", Name: "Design",
		Subtasks: []taskstore.Subtask{
			{ID: "zz", Name: "Third id, first added", Status: taskstore.StatusPending},
			{ID: "aa", Name: "First id, second added", Status: taskstore.StatusPending},
			{ID: "mm", Name: "Second id, third added", Status: taskstore.StatusPending},
		},
	}}}
	require.NoError(t, db.SavePlan(ctx, "p", plan))

	loaded, err := db.LoadPlan(ctx, "p")
	require.NoError(t, err)
	require.Len(t, loaded.Tasks, 1)
	var ids []string
	for _, st := range loaded.Tasks[0].Subtasks {
		ids = append(ids, st.ID)
	}
	assert.Equal(t, []string{"zz", "aa", "mm"}, ids)
}

func TestSQLiteSchemaEmbedded(t *testing.T) {
	assert.Contains(t, sqliteSchemaSQL, "CREATE TABLE IF NOT EXISTS activity_log (")
	assert.NotContains(t, sqliteSchemaSQL, "TIMESTAMPTZ")
	assert.Contains(t, sqliteSchemaSQL, "position     INTEGER NOT NULL DEFAULT 0")
}
