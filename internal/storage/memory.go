package storage

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/JonMunkholm/planner/internal/core"
	"github.com/JonMunkholm/planner/internal/taskstore"
)

type memProject struct {
	project core.Project
	plan    core.Plan
	collabs []core.Collaborator
}

// Memory is a core.Repository that keeps everything in process memory.
// Values are copied in and out, so callers never share state with it.
type Memory struct {
	mu       sync.RWMutex
	projects map[string]*memProject
	activity []core.ActivityEntry
}

// NewMemory returns an empty repository.
func NewMemory() *Memory {
	return &Memory{projects: make(map[string]*memProject)}
}

// Ping always succeeds.
func (m *Memory) Ping(context.Context) error { return nil }

func (m *Memory) CreateProject(_ context.Context, p core.Project) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.projects[p.ID] = &memProject{
		project: copyProject(p),
		plan:    core.Plan{States: make(map[string]taskstore.TaskState)},
	}
	return nil
}

func (m *Memory) GetProject(_ context.Context, id string) (core.Project, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	mp, ok := m.projects[id]
	if !ok {
		return core.Project{}, core.ErrProjectNotFound
	}
	return copyProject(mp.project), nil
}

// ListProjects returns all projects, newest first.
func (m *Memory) ListProjects(_ context.Context) ([]core.Project, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]core.Project, 0, len(m.projects))
	for _, mp := range m.projects {
		out = append(out, copyProject(mp.project))
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (m *Memory) UpdateProject(_ context.Context, p core.Project) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	mp, ok := m.projects[p.ID]
	if !ok {
		return core.ErrProjectNotFound
	}
	mp.project = copyProject(p)
	return nil
}

func (m *Memory) DeleteProject(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.projects[id]; !ok {
		return core.ErrProjectNotFound
	}
	delete(m.projects, id)
	return nil
}

func (m *Memory) LoadPlan(_ context.Context, projectID string) (core.Plan, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	mp, ok := m.projects[projectID]
	if !ok {
		return core.Plan{}, core.ErrProjectNotFound
	}
	return copyPlan(mp.plan), nil
}

func (m *Memory) SavePlan(_ context.Context, projectID string, plan core.Plan) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	mp, ok := m.projects[projectID]
	if !ok {
		return core.ErrProjectNotFound
	}
	mp.plan = copyPlan(plan)
	return nil
}

// ListCollaborators returns a project's collaborators, owner first.
func (m *Memory) ListCollaborators(_ context.Context, projectID string) ([]core.Collaborator, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	mp, ok := m.projects[projectID]
	if !ok {
		return nil, core.ErrProjectNotFound
	}
	out := make([]core.Collaborator, len(mp.collabs))
	copy(out, mp.collabs)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Role == core.RoleOwner && out[j].Role != core.RoleOwner
	})
	return out, nil
}

func (m *Memory) AddCollaborator(_ context.Context, c core.Collaborator) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	mp, ok := m.projects[c.ProjectID]
	if !ok {
		return core.ErrProjectNotFound
	}
	for _, existing := range mp.collabs {
		if existing.Email == c.Email {
			return core.ErrDuplicateCollaborator
		}
	}
	mp.collabs = append(mp.collabs, c)
	return nil
}

func (m *Memory) RemoveCollaborator(_ context.Context, projectID, email string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	mp, ok := m.projects[projectID]
	if !ok {
		return core.ErrProjectNotFound
	}
	for i, c := range mp.collabs {
		if c.Email == email {
			mp.collabs = append(mp.collabs[:i], mp.collabs[i+1:]...)
			return nil
		}
	}
	return core.ErrCollaboratorNotFound
}

func (m *Memory) InsertActivity(_ context.Context, e core.ActivityEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.activity = append(m.activity, e)
	return nil
}

// ListActivity returns entries matching f, newest first.
func (m *Memory) ListActivity(_ context.Context, f core.ActivityFilter) ([]core.ActivityEntry, error) {
	m.mu.RLock()
	matched := make([]core.ActivityEntry, 0)
	for _, e := range m.activity {
		if f.Matches(e) {
			matched = append(matched, e)
		}
	}
	m.mu.RUnlock()

	// Insertion order breaks ties, so equal timestamps still list newest first.
	for i, j := 0, len(matched)-1; i < j; i, j = i+1, j-1 {
		matched[i], matched[j] = matched[j], matched[i]
	}
	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	if f.Offset >= len(matched) {
		return []core.ActivityEntry{}, nil
	}
	if f.Offset > 0 {
		matched = matched[f.Offset:]
	}
	limit := f.Limit
	if limit <= 0 {
		limit = core.DefaultActivityLimit
	}
	if len(matched) > limit {
		matched = matched[:limit]
	}
	return matched, nil
}

func (m *Memory) PurgeActivity(_ context.Context, before time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	kept := m.activity[:0]
	var purged int64
	for _, e := range m.activity {
		if e.CreatedAt.Before(before) {
			purged++
			continue
		}
		kept = append(kept, e)
	}
	m.activity = kept
	return purged, nil
}

func copyProject(p core.Project) core.Project {
	if p.Budget != nil {
		b := *p.Budget
		p.Budget = &b
	}
	if p.StartDate != nil {
		d := *p.StartDate
		p.StartDate = &d
	}
	if p.TargetEndDate != nil {
		d := *p.TargetEndDate
		p.TargetEndDate = &d
	}
	return p
}

// copyPlan deep-copies a plan by round-tripping it through a Store, which
// clones tasks and states on the way in and out.
func copyPlan(plan core.Plan) core.Plan {
	store := taskstore.New(plan.Tasks, plan.States)
	return core.Plan{Tasks: store.Tasks(), States: store.States()}
}
