package storage

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/mattn/go-sqlite3"

	"github.com/JonMunkholm/planner/internal/core"
	"github.com/JonMunkholm/planner/internal/taskstore"
)

//go:embed sqlite_schema.sql
var sqliteSchemaSQL string

// SQLite is a core.Repository backed by a single SQLite file. It suits a
// one-node deployment that needs data to survive restarts without a
// database server.
type SQLite struct {
	db *sql.DB
}

// OpenSQLite opens or creates the database at path and applies the schema.
func OpenSQLite(ctx context.Context, path string) (*SQLite, error) {
	if strings.HasPrefix(path, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, err
		}
		path = filepath.Join(home, path[1:])
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	dsn := "file:" + path + "?_foreign_keys=on&_busy_timeout=5000&_journal_mode=WAL&_txlock=immediate"
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	s := &SQLite{db: db}
	if err := s.migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLite) migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, sqliteSchemaSQL); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

// Close releases the database handle.
func (s *SQLite) Close() error {
	return s.db.Close()
}

// Ping checks the database handle.
func (s *SQLite) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func sqliteBind(int) string { return "?" }

// isConstraint reports whether err is a primary key or unique violation.
func isConstraint(err error) bool {
	var sqlErr sqlite3.Error
	if !errors.As(err, &sqlErr) {
		return false
	}
	return sqlErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey ||
		sqlErr.ExtendedCode == sqlite3.ErrConstraintUnique
}

func nullString(s string) sql.NullString {
	if strings.TrimSpace(s) == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func nullFloat(f *float64) sql.NullFloat64 {
	if f == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *f, Valid: true}
}

func floatPtr(f sql.NullFloat64) *float64 {
	if !f.Valid {
		return nil
	}
	v := f.Float64
	return &v
}

// nullTime stores instants in UTC so text comparison orders them.
func nullTime(t *time.Time) sql.NullTime {
	if t == nil || t.IsZero() {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}

func nullDate(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	y, m, d := t.Date()
	return sql.NullTime{Time: time.Date(y, m, d, 0, 0, 0, 0, time.UTC), Valid: true}
}

func timePtr(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time
	return &v
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSQLiteProject(row rowScanner) (core.Project, error) {
	var (
		pr                                           core.Project
		description, prompt, projectType, experience sql.NullString
		lead, status, timeline, owner                sql.NullString
		budget                                       sql.NullFloat64
		startDate, targetEndDate                     sql.NullTime
	)
	err := row.Scan(
		&pr.ID, &pr.Name, &description, &prompt, &projectType, &experience,
		&lead, &status, &timeline, &budget, &startDate, &targetEndDate, &owner,
		&pr.CreatedAt, &pr.UpdatedAt,
	)
	if err != nil {
		return core.Project{}, err
	}

	pr.Description = description.String
	pr.InitialPrompt = prompt.String
	pr.ProjectType = projectType.String
	pr.ExperienceLevel = experience.String
	pr.Lead = lead.String
	pr.Status = status.String
	pr.Timeline = timeline.String
	pr.OwnerEmail = owner.String
	pr.Budget = floatPtr(budget)
	pr.StartDate = timePtr(startDate)
	pr.TargetEndDate = timePtr(targetEndDate)
	return pr, nil
}

// CreateProject inserts a project.
func (s *SQLite) CreateProject(ctx context.Context, pr core.Project) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO projects (`+projectColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		pr.ID, pr.Name,
		nullString(pr.Description), nullString(pr.InitialPrompt), nullString(pr.ProjectType),
		nullString(pr.ExperienceLevel), nullString(pr.Lead), nullString(pr.Status), nullString(pr.Timeline),
		nullFloat(pr.Budget), nullDate(pr.StartDate), nullDate(pr.TargetEndDate),
		nullString(pr.OwnerEmail), pr.CreatedAt.UTC(), pr.UpdatedAt.UTC(),
	)
	return err
}

// GetProject returns one project or core.ErrProjectNotFound.
func (s *SQLite) GetProject(ctx context.Context, id string) (core.Project, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+projectColumns+` FROM projects WHERE id = ?`, id)
	pr, err := scanSQLiteProject(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Project{}, core.ErrProjectNotFound
	}
	return pr, err
}

// ListProjects returns all projects, newest first.
func (s *SQLite) ListProjects(ctx context.Context) ([]core.Project, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+projectColumns+` FROM projects ORDER BY created_at DESC, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	projects := make([]core.Project, 0)
	for rows.Next() {
		pr, err := scanSQLiteProject(rows)
		if err != nil {
			return nil, err
		}
		projects = append(projects, pr)
	}
	return projects, rows.Err()
}

// UpdateProject overwrites a project's fields.
func (s *SQLite) UpdateProject(ctx context.Context, pr core.Project) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE projects SET name = ?, description = ?, initial_prompt = ?, project_type = ?,
			experience_level = ?, project_lead = ?, status = ?, timeline = ?, budget = ?,
			start_date = ?, target_end_date = ?, owner_email = ?, updated_at = ?
		 WHERE id = ?`,
		pr.Name,
		nullString(pr.Description), nullString(pr.InitialPrompt), nullString(pr.ProjectType),
		nullString(pr.ExperienceLevel), nullString(pr.Lead), nullString(pr.Status), nullString(pr.Timeline),
		nullFloat(pr.Budget), nullDate(pr.StartDate), nullDate(pr.TargetEndDate),
		nullString(pr.OwnerEmail), pr.UpdatedAt.UTC(), pr.ID,
	)
	return requireRow(res, err, core.ErrProjectNotFound)
}

// DeleteProject removes a project; its plan and collaborators cascade.
func (s *SQLite) DeleteProject(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM projects WHERE id = ?`, id)
	return requireRow(res, err, core.ErrProjectNotFound)
}

// requireRow turns a statement that touched no rows into notFound.
func requireRow(res sql.Result, err error, notFound error) error {
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return notFound
	}
	return nil
}

// LoadPlan reads a project's tasks in plan order with subtasks and states.
func (s *SQLite) LoadPlan(ctx context.Context, projectID string) (core.Plan, error) {
	var exists int
	err := s.db.QueryRowContext(ctx, `SELECT 1 FROM projects WHERE id = ?`, projectID).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Plan{}, core.ErrProjectNotFound
	}
	if err != nil {
		return core.Plan{}, err
	}

	plan := core.Plan{
		Tasks:  make([]taskstore.Task, 0),
		States: make(map[string]taskstore.TaskState),
	}
	index := make(map[string]int)
	if err := s.loadTasks(ctx, projectID, &plan, index); err != nil {
		return core.Plan{}, err
	}
	if err := s.loadSubtasks(ctx, projectID, plan.Tasks, index); err != nil {
		return core.Plan{}, err
	}
	if err := s.loadStates(ctx, projectID, plan.States); err != nil {
		return core.Plan{}, err
	}
	return plan, nil
}

func (s *SQLite) loadTasks(ctx context.Context, projectID string, plan *core.Plan, index map[string]int) error {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, phase, phase_title, category, base_est_hours, adjusted_est_hours,
			notes, critical_path, hour_mode
		 FROM tasks WHERE project_id = ? ORDER BY position`, projectID)
	if err != nil {
		return fmt.Errorf("query tasks: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			t               taskstore.Task
			notes, hourMode sql.NullString
		)
		if err := rows.Scan(&t.ID, &t.Name, &t.Phase, &t.PhaseTitle, &t.Category,
			&t.BaseEstHours, &t.AdjustedEstHours, &notes, &t.CriticalPath, &hourMode); err != nil {
			return fmt.Errorf("scan task: %w", err)
		}
		t.Notes = notes.String
		t.HourMode = taskstore.HourMode(hourMode.String)
		index[t.ID] = len(plan.Tasks)
		plan.Tasks = append(plan.Tasks, t)
	}
	return rows.Err()
}

func (s *SQLite) loadSubtasks(ctx context.Context, projectID string, tasks []taskstore.Task, index map[string]int) error {
	rows, err := s.db.QueryContext(ctx,
		`SELECT task_id, id, name, sort_order, status, est_hours, actual_hours, notes, completed_at
		 FROM subtasks WHERE project_id = ? ORDER BY task_id, position, sort_order, id`, projectID)
	if err != nil {
		return fmt.Errorf("query subtasks: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			taskID, status string
			st             taskstore.Subtask
			est, actual    sql.NullFloat64
			notes          sql.NullString
			completedAt    sql.NullTime
		)
		if err := rows.Scan(&taskID, &st.ID, &st.Name, &st.Order, &status,
			&est, &actual, &notes, &completedAt); err != nil {
			return fmt.Errorf("scan subtask: %w", err)
		}
		i, ok := index[taskID]
		if !ok {
			continue
		}
		st.Status = taskstore.Status(status)
		st.EstHours = floatPtr(est)
		st.ActualHours = floatPtr(actual)
		st.Notes = notes.String
		st.CompletedAt = timePtr(completedAt)
		tasks[i].Subtasks = append(tasks[i].Subtasks, st)
	}
	return rows.Err()
}

func (s *SQLite) loadStates(ctx context.Context, projectID string, states map[string]taskstore.TaskState) error {
	rows, err := s.db.QueryContext(ctx,
		`SELECT task_id, status, est_hours_override, actual_hours, notes
		 FROM task_states WHERE project_id = ?`, projectID)
	if err != nil {
		return fmt.Errorf("query states: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			taskID, status string
			override       sql.NullFloat64
			actual, notes  sql.NullString
		)
		if err := rows.Scan(&taskID, &status, &override, &actual, &notes); err != nil {
			return fmt.Errorf("scan state: %w", err)
		}
		states[taskID] = taskstore.TaskState{
			Status:           taskstore.Status(status),
			EstHoursOverride: floatPtr(override),
			ActualHours:      actual.String,
			Notes:            notes.String,
		}
	}
	return rows.Err()
}

// SavePlan replaces a project's plan in one transaction.
func (s *SQLite) SavePlan(ctx context.Context, projectID string, plan core.Plan) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `UPDATE projects SET updated_at = ? WHERE id = ?`, time.Now().UTC(), projectID)
	if err := requireRow(res, err, core.ErrProjectNotFound); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM tasks WHERE project_id = ?`, projectID); err != nil {
		return fmt.Errorf("clear plan: %w", err)
	}

	insertTask, err := tx.PrepareContext(ctx,
		`INSERT INTO tasks (project_id, id, position, name, phase, phase_title, category,
			base_est_hours, adjusted_est_hours, notes, critical_path, hour_mode)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare tasks: %w", err)
	}
	defer insertTask.Close()

	insertSubtask, err := tx.PrepareContext(ctx,
		`INSERT INTO subtasks (project_id, task_id, id, position, name, sort_order, status,
			est_hours, actual_hours, notes, completed_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare subtasks: %w", err)
	}
	defer insertSubtask.Close()

	insertState, err := tx.PrepareContext(ctx,
		`INSERT INTO task_states (project_id, task_id, status, est_hours_override, actual_hours, notes)
		 VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare states: %w", err)
	}
	defer insertState.Close()

	for pos, t := range plan.Tasks {
		if _, err := insertTask.ExecContext(ctx,
			projectID, t.ID, pos, t.Name, t.Phase, t.PhaseTitle, t.Category,
			t.BaseEstHours, t.AdjustedEstHours, nullString(t.Notes), t.CriticalPath,
			nullString(string(t.HourMode)),
		); err != nil {
			return fmt.Errorf("insert task %s: %w", t.ID, err)
		}
		for i, st := range t.Subtasks {
			if _, err := insertSubtask.ExecContext(ctx,
				projectID, t.ID, st.ID, i, st.Name, st.Order, string(st.Status),
				nullFloat(st.EstHours), nullFloat(st.ActualHours), nullString(st.Notes),
				nullTime(st.CompletedAt),
			); err != nil {
				return fmt.Errorf("insert subtask %s: %w", st.ID, err)
			}
		}
		if state, ok := plan.States[t.ID]; ok {
			if _, err := insertState.ExecContext(ctx,
				projectID, t.ID, string(state.Status), nullFloat(state.EstHoursOverride),
				nullString(state.ActualHours), nullString(state.Notes),
			); err != nil {
				return fmt.Errorf("insert state %s: %w", t.ID, err)
			}
		}
	}
	return tx.Commit()
}

// ListCollaborators returns a project's collaborators, owner first.
func (s *SQLite) ListCollaborators(ctx context.Context, projectID string) ([]core.Collaborator, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT email, role, invited_by, added_at FROM collaborators
		 WHERE project_id = ?
		 ORDER BY role = 'owner' DESC, added_at, email`, projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	collabs := make([]core.Collaborator, 0)
	for rows.Next() {
		var (
			c         core.Collaborator
			role      string
			invitedBy sql.NullString
		)
		if err := rows.Scan(&c.Email, &role, &invitedBy, &c.AddedAt); err != nil {
			return nil, err
		}
		c.ProjectID = projectID
		c.Role = core.Role(role)
		c.InvitedBy = invitedBy.String
		collabs = append(collabs, c)
	}
	return collabs, rows.Err()
}

// AddCollaborator inserts a collaborator.
func (s *SQLite) AddCollaborator(ctx context.Context, c core.Collaborator) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO collaborators (project_id, email, role, invited_by, added_at)
		 VALUES (?, ?, ?, ?, ?)`,
		c.ProjectID, c.Email, string(c.Role), nullString(c.InvitedBy), c.AddedAt.UTC(),
	)
	if isConstraint(err) {
		return core.ErrDuplicateCollaborator
	}
	return err
}

// RemoveCollaborator deletes a collaborator or returns core.ErrCollaboratorNotFound.
func (s *SQLite) RemoveCollaborator(ctx context.Context, projectID, email string) error {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM collaborators WHERE project_id = ? AND email = ?`, projectID, email)
	return requireRow(res, err, core.ErrCollaboratorNotFound)
}

// InsertActivity appends an activity entry.
func (s *SQLite) InsertActivity(ctx context.Context, e core.ActivityEntry) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO activity_log (id, project_id, action, severity, actor, ip_address, user_agent,
			subject, detail, rows_affected, import_id, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.ProjectID, string(e.Action), string(e.Severity),
		nullString(e.Actor), nullString(e.IPAddress), nullString(e.UserAgent),
		nullString(e.Subject), nullString(e.Detail), e.RowsAffected, nullString(e.ImportID), e.CreatedAt.UTC(),
	)
	return err
}

// ListActivity returns entries matching filter, newest first.
func (s *SQLite) ListActivity(ctx context.Context, f core.ActivityFilter) ([]core.ActivityEntry, error) {
	if !f.Since.IsZero() {
		f.Since = f.Since.UTC()
	}
	if !f.Until.IsZero() {
		f.Until = f.Until.UTC()
	}
	query, args := activityQuery(f, sqliteBind)
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := make([]core.ActivityEntry, 0)
	for rows.Next() {
		var (
			e                              core.ActivityEntry
			action, severity               string
			actor, ip, ua, subject, detail sql.NullString
			importID                       sql.NullString
		)
		if err := rows.Scan(&e.ID, &e.ProjectID, &action, &severity, &actor, &ip, &ua,
			&subject, &detail, &e.RowsAffected, &importID, &e.CreatedAt); err != nil {
			return nil, err
		}
		e.Action = core.ActivityAction(action)
		e.Severity = core.ActivitySeverity(severity)
		e.Actor = actor.String
		e.IPAddress = ip.String
		e.UserAgent = ua.String
		e.Subject = subject.String
		e.Detail = detail.String
		e.ImportID = importID.String
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// PurgeActivity deletes entries created before the cutoff.
func (s *SQLite) PurgeActivity(ctx context.Context, before time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM activity_log WHERE created_at < ?`, before.UTC())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
