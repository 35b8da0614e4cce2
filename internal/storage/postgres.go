package storage

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/JonMunkholm/planner/internal/core"
	"github.com/JonMunkholm/planner/internal/taskstore"
)

//go:embed schema.sql
var schemaSQL string

// Postgres is a core.Repository backed by PostgreSQL.
type Postgres struct {
	pool *pgxpool.Pool
}

// NewPostgres wraps an open pool.
func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

// Migrate creates the tables when missing. It is safe to run on every start.
func (p *Postgres) Migrate(ctx context.Context) error {
	if _, err := p.pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

// Ping checks the database connection.
func (p *Postgres) Ping(ctx context.Context) error {
	return p.pool.Ping(ctx)
}

const projectColumns = `id, name, description, initial_prompt, project_type, experience_level,
	project_lead, status, timeline, budget, start_date, target_end_date, owner_email,
	created_at, updated_at`

func projectArgs(pr core.Project) []any {
	return []any{
		pr.ID, pr.Name,
		toPgText(pr.Description), toPgText(pr.InitialPrompt), toPgText(pr.ProjectType),
		toPgText(pr.ExperienceLevel), toPgText(pr.Lead), toPgText(pr.Status), toPgText(pr.Timeline),
		toPgFloat8(pr.Budget), toPgDate(pr.StartDate), toPgDate(pr.TargetEndDate),
		toPgText(pr.OwnerEmail), pr.CreatedAt, pr.UpdatedAt,
	}
}

func scanProject(row pgx.Row) (core.Project, error) {
	var (
		pr                                           core.Project
		description, prompt, projectType, experience pgtype.Text
		lead, status, timeline, owner                pgtype.Text
		budget                                       pgtype.Float8
		startDate, targetEndDate                     pgtype.Date
		createdAt, updatedAt                         pgtype.Timestamptz
	)
	err := row.Scan(
		&pr.ID, &pr.Name, &description, &prompt, &projectType, &experience,
		&lead, &status, &timeline, &budget, &startDate, &targetEndDate, &owner,
		&createdAt, &updatedAt,
	)
	if err != nil {
		return core.Project{}, err
	}

	pr.Description = fromPgText(description)
	pr.InitialPrompt = fromPgText(prompt)
	pr.ProjectType = fromPgText(projectType)
	pr.ExperienceLevel = fromPgText(experience)
	pr.Lead = fromPgText(lead)
	pr.Status = fromPgText(status)
	pr.Timeline = fromPgText(timeline)
	pr.OwnerEmail = fromPgText(owner)
	pr.Budget = fromPgFloat8(budget)
	pr.StartDate = fromPgDate(startDate)
	pr.TargetEndDate = fromPgDate(targetEndDate)
	pr.CreatedAt = createdAt.Time
	pr.UpdatedAt = updatedAt.Time
	return pr, nil
}

// CreateProject inserts a project.
func (p *Postgres) CreateProject(ctx context.Context, pr core.Project) error {
	_, err := p.pool.Exec(ctx,
		`INSERT INTO projects (`+projectColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`,
		projectArgs(pr)...,
	)
	return err
}

// GetProject returns one project or core.ErrProjectNotFound.
func (p *Postgres) GetProject(ctx context.Context, id string) (core.Project, error) {
	row := p.pool.QueryRow(ctx, `SELECT `+projectColumns+` FROM projects WHERE id = $1`, id)
	pr, err := scanProject(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return core.Project{}, core.ErrProjectNotFound
	}
	return pr, err
}

// ListProjects returns all projects, newest first.
func (p *Postgres) ListProjects(ctx context.Context) ([]core.Project, error) {
	rows, err := p.pool.Query(ctx, `SELECT `+projectColumns+` FROM projects ORDER BY created_at DESC, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	projects := make([]core.Project, 0)
	for rows.Next() {
		pr, err := scanProject(rows)
		if err != nil {
			return nil, err
		}
		projects = append(projects, pr)
	}
	return projects, rows.Err()
}

// UpdateProject overwrites a project's fields.
func (p *Postgres) UpdateProject(ctx context.Context, pr core.Project) error {
	tag, err := p.pool.Exec(ctx,
		`UPDATE projects SET name = $2, description = $3, initial_prompt = $4, project_type = $5,
			experience_level = $6, project_lead = $7, status = $8, timeline = $9, budget = $10,
			start_date = $11, target_end_date = $12, owner_email = $13, updated_at = $14
		 WHERE id = $1`,
		pr.ID, pr.Name,
		toPgText(pr.Description), toPgText(pr.InitialPrompt), toPgText(pr.ProjectType),
		toPgText(pr.ExperienceLevel), toPgText(pr.Lead), toPgText(pr.Status), toPgText(pr.Timeline),
		toPgFloat8(pr.Budget), toPgDate(pr.StartDate), toPgDate(pr.TargetEndDate),
		toPgText(pr.OwnerEmail), pr.UpdatedAt,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return core.ErrProjectNotFound
	}
	return nil
}

// DeleteProject removes a project; its plan and collaborators cascade.
func (p *Postgres) DeleteProject(ctx context.Context, id string) error {
	tag, err := p.pool.Exec(ctx, `DELETE FROM projects WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return core.ErrProjectNotFound
	}
	return nil
}

// LoadPlan reads a project's tasks in plan order with subtasks and states.
func (p *Postgres) LoadPlan(ctx context.Context, projectID string) (core.Plan, error) {
	plan := core.Plan{
		Tasks:  make([]taskstore.Task, 0),
		States: make(map[string]taskstore.TaskState),
	}

	rows, err := p.pool.Query(ctx,
		`SELECT id, name, phase, phase_title, category, base_est_hours, adjusted_est_hours,
			notes, critical_path, hour_mode
		 FROM tasks WHERE project_id = $1 ORDER BY position`, projectID)
	if err != nil {
		return core.Plan{}, fmt.Errorf("query tasks: %w", err)
	}
	index := make(map[string]int)
	for rows.Next() {
		var (
			t              taskstore.Task
			notes, hourMod pgtype.Text
		)
		if err := rows.Scan(&t.ID, &t.Name, &t.Phase, &t.PhaseTitle, &t.Category,
			&t.BaseEstHours, &t.AdjustedEstHours, &notes, &t.CriticalPath, &hourMod); err != nil {
			rows.Close()
			return core.Plan{}, fmt.Errorf("scan task: %w", err)
		}
		t.Notes = fromPgText(notes)
		t.HourMode = taskstore.HourMode(fromPgText(hourMod))
		index[t.ID] = len(plan.Tasks)
		plan.Tasks = append(plan.Tasks, t)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return core.Plan{}, err
	}

	if err := p.loadSubtasks(ctx, projectID, plan.Tasks, index); err != nil {
		return core.Plan{}, err
	}
	if err := p.loadStates(ctx, projectID, plan.States); err != nil {
		return core.Plan{}, err
	}
	return plan, nil
}

func (p *Postgres) loadSubtasks(ctx context.Context, projectID string, tasks []taskstore.Task, index map[string]int) error {
	rows, err := p.pool.Query(ctx,
		`SELECT task_id, id, name, sort_order, status, est_hours, actual_hours, notes, completed_at
		 FROM subtasks WHERE project_id = $1 ORDER BY task_id, position, sort_order, id`, projectID)
	if err != nil {
		return fmt.Errorf("query subtasks: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			taskID, status string
			st             taskstore.Subtask
			est, actual    pgtype.Float8
			notes          pgtype.Text
			completedAt    pgtype.Timestamptz
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
		st.EstHours = fromPgFloat8(est)
		st.ActualHours = fromPgFloat8(actual)
		st.Notes = fromPgText(notes)
		st.CompletedAt = fromPgTimestamptz(completedAt)
		tasks[i].Subtasks = append(tasks[i].Subtasks, st)
	}
	return rows.Err()
}

func (p *Postgres) loadStates(ctx context.Context, projectID string, states map[string]taskstore.TaskState) error {
	rows, err := p.pool.Query(ctx,
		`SELECT task_id, status, est_hours_override, actual_hours, notes
		 FROM task_states WHERE project_id = $1`, projectID)
	if err != nil {
		return fmt.Errorf("query states: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			taskID, status string
			override       pgtype.Float8
			actual, notes  pgtype.Text
		)
		if err := rows.Scan(&taskID, &status, &override, &actual, &notes); err != nil {
			return fmt.Errorf("scan state: %w", err)
		}
		states[taskID] = taskstore.TaskState{
			Status:           taskstore.Status(status),
			EstHoursOverride: fromPgFloat8(override),
			ActualHours:      fromPgText(actual),
			Notes:            fromPgText(notes),
		}
	}
	return rows.Err()
}

// SavePlan replaces a project's plan in one transaction. Rows are written
// with COPY; subtasks and states of removed tasks go with the cascade.
func (p *Postgres) SavePlan(ctx context.Context, projectID string, plan core.Plan) error {
	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM tasks WHERE project_id = $1`, projectID); err != nil {
		return fmt.Errorf("clear plan: %w", err)
	}

	taskRows := make([][]any, 0, len(plan.Tasks))
	var subRows, stateRows [][]any
	for pos, t := range plan.Tasks {
		taskRows = append(taskRows, []any{
			projectID, t.ID, pos, t.Name, t.Phase, t.PhaseTitle, t.Category,
			t.BaseEstHours, t.AdjustedEstHours, toPgText(t.Notes), t.CriticalPath,
			toPgText(string(t.HourMode)),
		})
		for i, st := range t.Subtasks {
			subRows = append(subRows, []any{
				projectID, t.ID, st.ID, i, st.Name, st.Order, string(st.Status),
				toPgFloat8(st.EstHours), toPgFloat8(st.ActualHours), toPgText(st.Notes),
				toPgTimestamptz(st.CompletedAt),
			})
		}
		if s, ok := plan.States[t.ID]; ok {
			stateRows = append(stateRows, []any{
				projectID, t.ID, string(s.Status), toPgFloat8(s.EstHoursOverride),
				toPgText(s.ActualHours), toPgText(s.Notes),
			})
		}
	}

	copies := []struct {
		table   string
		columns []string
		rows    [][]any
	}{
		{"tasks", []string{"project_id", "id", "position", "name", "phase", "phase_title", "category",
			"base_est_hours", "adjusted_est_hours", "notes", "critical_path", "hour_mode"}, taskRows},
		{"subtasks", []string{"project_id", "task_id", "id", "position", "name", "sort_order", "status",
			"est_hours", "actual_hours", "notes", "completed_at"}, subRows},
		{"task_states", []string{"project_id", "task_id", "status", "est_hours_override",
			"actual_hours", "notes"}, stateRows},
	}
	for _, c := range copies {
		if len(c.rows) == 0 {
			continue
		}
		if _, err := tx.CopyFrom(ctx, pgx.Identifier{c.table}, c.columns, pgx.CopyFromRows(c.rows)); err != nil {
			return fmt.Errorf("copy %s: %w", c.table, err)
		}
	}

	if _, err := tx.Exec(ctx, `UPDATE projects SET updated_at = now() WHERE id = $1`, projectID); err != nil {
		return fmt.Errorf("touch project: %w", err)
	}
	return tx.Commit(ctx)
}

// ListCollaborators returns a project's collaborators, owner first.
func (p *Postgres) ListCollaborators(ctx context.Context, projectID string) ([]core.Collaborator, error) {
	rows, err := p.pool.Query(ctx,
		`SELECT email, role, invited_by, added_at FROM collaborators
		 WHERE project_id = $1
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
			invitedBy pgtype.Text
			addedAt   pgtype.Timestamptz
		)
		if err := rows.Scan(&c.Email, &role, &invitedBy, &addedAt); err != nil {
			return nil, err
		}
		c.ProjectID = projectID
		c.Role = core.Role(role)
		c.InvitedBy = fromPgText(invitedBy)
		c.AddedAt = addedAt.Time
		collabs = append(collabs, c)
	}
	return collabs, rows.Err()
}

// AddCollaborator inserts a collaborator.
func (p *Postgres) AddCollaborator(ctx context.Context, c core.Collaborator) error {
	_, err := p.pool.Exec(ctx,
		`INSERT INTO collaborators (project_id, email, role, invited_by, added_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		c.ProjectID, c.Email, string(c.Role), toPgText(c.InvitedBy), c.AddedAt,
	)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return core.ErrDuplicateCollaborator
	}
	return err
}

// RemoveCollaborator deletes a collaborator or returns core.ErrCollaboratorNotFound.
func (p *Postgres) RemoveCollaborator(ctx context.Context, projectID, email string) error {
	tag, err := p.pool.Exec(ctx,
		`DELETE FROM collaborators WHERE project_id = $1 AND email = $2`, projectID, email)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return core.ErrCollaboratorNotFound
	}
	return nil
}

// InsertActivity appends an activity entry.
func (p *Postgres) InsertActivity(ctx context.Context, e core.ActivityEntry) error {
	_, err := p.pool.Exec(ctx,
		`INSERT INTO activity_log (id, project_id, action, severity, actor, ip_address, user_agent,
			subject, detail, rows_affected, import_id, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		e.ID, e.ProjectID, string(e.Action), string(e.Severity),
		toPgText(e.Actor), toPgText(e.IPAddress), toPgText(e.UserAgent),
		toPgText(e.Subject), toPgText(e.Detail), e.RowsAffected, toPgText(e.ImportID), e.CreatedAt,
	)
	return err
}

// activityQuery builds the filtered activity query and its arguments.
// bind renders the placeholder for the n-th argument.
func activityQuery(f core.ActivityFilter, bind func(n int) string) (string, []any) {
	var (
		where []string
		args  []any
	)
	add := func(cond string, v any) {
		args = append(args, v)
		where = append(where, cond+" "+bind(len(args)))
	}
	if f.ProjectID != "" {
		add("project_id =", f.ProjectID)
	}
	if f.Action != "" {
		add("action =", string(f.Action))
	}
	if !f.Since.IsZero() {
		add("created_at >=", f.Since)
	}
	if !f.Until.IsZero() {
		add("created_at <", f.Until)
	}

	var sb strings.Builder
	sb.WriteString(`SELECT id, project_id, action, severity, actor, ip_address, user_agent,
		subject, detail, rows_affected, import_id, created_at FROM activity_log`)
	if len(where) > 0 {
		sb.WriteString(" WHERE ")
		sb.WriteString(strings.Join(where, " AND "))
	}
	sb.WriteString(" ORDER BY created_at DESC, id DESC")

	limit := f.Limit
	if limit <= 0 {
		limit = core.DefaultActivityLimit
	}
	args = append(args, limit)
	sb.WriteString(" LIMIT " + bind(len(args)))
	if f.Offset > 0 {
		args = append(args, f.Offset)
		sb.WriteString(" OFFSET " + bind(len(args)))
	}
	return sb.String(), args
}

func pgBind(n int) string { return "$" + strconv.Itoa(n) }

// ListActivity returns entries matching filter, newest first.
func (p *Postgres) ListActivity(ctx context.Context, f core.ActivityFilter) ([]core.ActivityEntry, error) {
	query, args := activityQuery(f, pgBind)
	rows, err := p.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := make([]core.ActivityEntry, 0)
	for rows.Next() {
		var (
			e                              core.ActivityEntry
			action, severity               string
			actor, ip, ua, subject, detail pgtype.Text
			importID                       pgtype.Text
			createdAt                      pgtype.Timestamptz
		)
		if err := rows.Scan(&e.ID, &e.ProjectID, &action, &severity, &actor, &ip, &ua,
			&subject, &detail, &e.RowsAffected, &importID, &createdAt); err != nil {
			return nil, err
		}
		e.Action = core.ActivityAction(action)
		e.Severity = core.ActivitySeverity(severity)
		e.Actor = fromPgText(actor)
		e.IPAddress = fromPgText(ip)
		e.UserAgent = fromPgText(ua)
		e.Subject = fromPgText(subject)
		e.Detail = fromPgText(detail)
		e.ImportID = fromPgText(importID)
		e.CreatedAt = createdAt.Time
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// PurgeActivity deletes entries created before the cutoff.
func (p *Postgres) PurgeActivity(ctx context.Context, before time.Time) (int64, error) {
	tag, err := p.pool.Exec(ctx, `DELETE FROM activity_log WHERE created_at < $1`, before)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
