package taskstore

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

var (
	ErrTaskNotFound    = errors.New("task not found")
	ErrSubtaskNotFound = errors.New("subtask not found")
	ErrDuplicateTask   = errors.New("duplicate task id")
	ErrInvalidOrder    = errors.New("invalid order: ids must list every item exactly once")
	ErrInvalidStatus   = errors.New("invalid status")
	ErrInvalidHourMode = errors.New("invalid hour mode")
	ErrEmptyName       = errors.New("name is required")
)

// Store is the in-memory plan of one project.
//
// Store has a single owner: it does no locking and callers must not mutate it
// from more than one goroutine at a time. Every mutation builds a new task
// slice and swaps it in, so slices handed out earlier are never modified.
type Store struct {
	tasks  []Task
	states map[string]TaskState
	now    func() time.Time
	newID  func() string
}

// Option configures a Store.
type Option func(*Store)

// WithClock sets the clock used to stamp subtask completion.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithIDGenerator sets the generator used for new task and subtask IDs.
func WithIDGenerator(gen func() string) Option {
	return func(s *Store) { s.newID = gen }
}

// New builds a Store from an existing plan. Tasks without a state get a fresh
// one; states for unknown tasks are dropped.
func New(tasks []Task, states map[string]TaskState, opts ...Option) *Store {
	s := &Store{
		now:   time.Now,
		newID: uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}

	s.tasks = make([]Task, len(tasks))
	s.states = make(map[string]TaskState, len(tasks))
	for i, t := range tasks {
		s.tasks[i] = cloneTask(t)
		if st, ok := states[t.ID]; ok {
			s.states[t.ID] = cloneState(st)
		} else {
			s.states[t.ID] = NewTaskState()
		}
	}
	return s
}

// Tasks returns a copy of all tasks in plan order.
func (s *Store) Tasks() []Task {
	out := make([]Task, len(s.tasks))
	for i, t := range s.tasks {
		out[i] = cloneTask(t)
	}
	return out
}

// States returns a copy of the task state map.
func (s *Store) States() map[string]TaskState {
	out := make(map[string]TaskState, len(s.states))
	for id, st := range s.states {
		out[id] = cloneState(st)
	}
	return out
}

// Len returns the number of tasks.
func (s *Store) Len() int {
	return len(s.tasks)
}

// Task returns a copy of the task with the given ID.
func (s *Store) Task(id string) (Task, bool) {
	i := s.indexOf(id)
	if i < 0 {
		return Task{}, false
	}
	return cloneTask(s.tasks[i]), true
}

// State returns a copy of the state of the task with the given ID.
func (s *Store) State(id string) (TaskState, bool) {
	st, ok := s.states[id]
	if !ok {
		return TaskState{}, false
	}
	return cloneState(st), true
}

// AddTask appends a task to the plan and creates its state.
// Missing IDs are generated and an empty hour mode defaults to manual.
func (s *Store) AddTask(t Task) (Task, error) {
	added, err := s.AddTasks([]Task{t}, nil)
	if err != nil {
		return Task{}, err
	}
	return added[0], nil
}

// AddTasks appends several tasks at once, e.g. the result of an import.
// States supplied for the new tasks are used instead of fresh ones.
// Either all tasks are added or none are.
func (s *Store) AddTasks(tasks []Task, states map[string]TaskState) ([]Task, error) {
	seen := make(map[string]bool, len(s.tasks)+len(tasks))
	for _, t := range s.tasks {
		seen[t.ID] = true
	}

	prepared := make([]Task, len(tasks))
	for i, t := range tasks {
		t = cloneTask(t)
		if t.Name == "" {
			return nil, fmt.Errorf("task %d: %w", i+1, ErrEmptyName)
		}
		if t.ID == "" {
			t.ID = s.newID()
		}
		if seen[t.ID] {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateTask, t.ID)
		}
		seen[t.ID] = true

		if t.HourMode == "" {
			t.HourMode = HourManual
		}
		if t.HourMode != HourManual && t.HourMode != HourAuto {
			return nil, fmt.Errorf("%w: %q", ErrInvalidHourMode, t.HourMode)
		}
		subs, err := s.prepareSubtasks(nil, t.Subtasks)
		if err != nil {
			return nil, fmt.Errorf("task %q: %w", t.Name, err)
		}
		t.Subtasks = subs
		prepared[i] = t
	}

	next := make([]Task, 0, len(s.tasks)+len(prepared))
	next = append(next, s.tasks...)
	next = append(next, prepared...)

	nextStates := s.States()
	for _, t := range prepared {
		if st, ok := states[t.ID]; ok {
			nextStates[t.ID] = cloneState(st)
		} else {
			nextStates[t.ID] = NewTaskState()
		}
	}

	s.tasks = next
	s.states = nextStates

	out := make([]Task, len(prepared))
	for i, t := range prepared {
		out[i] = cloneTask(t)
	}
	return out, nil
}

// UpdateTask applies a patch to one task.
func (s *Store) UpdateTask(id string, p TaskPatch) (Task, error) {
	i := s.indexOf(id)
	if i < 0 {
		return Task{}, fmt.Errorf("%w: %s", ErrTaskNotFound, id)
	}

	t := cloneTask(s.tasks[i])
	if p.Name != nil {
		if *p.Name == "" {
			return Task{}, ErrEmptyName
		}
		t.Name = *p.Name
	}
	if p.Phase != nil {
		t.Phase = *p.Phase
	}
	if p.PhaseTitle != nil {
		t.PhaseTitle = *p.PhaseTitle
	}
	if p.Category != nil {
		t.Category = *p.Category
	}
	if p.BaseEstHours != nil {
		t.BaseEstHours = *p.BaseEstHours
	}
	if p.AdjustedEstHours != nil {
		t.AdjustedEstHours = *p.AdjustedEstHours
	}
	if p.Notes != nil {
		t.Notes = *p.Notes
	}
	if p.CriticalPath != nil {
		t.CriticalPath = *p.CriticalPath
	}
	if p.HourMode != nil {
		if *p.HourMode != HourManual && *p.HourMode != HourAuto {
			return Task{}, fmt.Errorf("%w: %q", ErrInvalidHourMode, *p.HourMode)
		}
		t.HourMode = *p.HourMode
	}

	s.replaceTask(i, t)
	return cloneTask(t), nil
}

// DeleteTask removes a task and its state.
func (s *Store) DeleteTask(id string) error {
	i := s.indexOf(id)
	if i < 0 {
		return fmt.Errorf("%w: %s", ErrTaskNotFound, id)
	}

	next := make([]Task, 0, len(s.tasks)-1)
	next = append(next, s.tasks[:i]...)
	next = append(next, s.tasks[i+1:]...)

	nextStates := s.States()
	delete(nextStates, id)

	s.tasks = next
	s.states = nextStates
	return nil
}

// ReorderTasks rearranges the plan to follow ids, which must name every task
// exactly once.
func (s *Store) ReorderTasks(ids []string) error {
	if len(ids) != len(s.tasks) {
		return ErrInvalidOrder
	}

	byID := make(map[string]Task, len(s.tasks))
	for _, t := range s.tasks {
		byID[t.ID] = t
	}

	next := make([]Task, 0, len(ids))
	for _, id := range ids {
		t, ok := byID[id]
		if !ok {
			return ErrInvalidOrder
		}
		delete(byID, id)
		next = append(next, t)
	}

	s.tasks = next
	return nil
}

// UpdateState applies a patch to a task's progress record.
func (s *Store) UpdateState(id string, p StatePatch) (TaskState, error) {
	st, ok := s.states[id]
	if !ok {
		return TaskState{}, fmt.Errorf("%w: %s", ErrTaskNotFound, id)
	}

	st = cloneState(st)
	if p.Status != nil {
		if !p.Status.Valid() {
			return TaskState{}, fmt.Errorf("%w: %q", ErrInvalidStatus, *p.Status)
		}
		st.Status = *p.Status
	}
	if p.ClearEstHoursOverride {
		st.EstHoursOverride = nil
	} else if p.EstHoursOverride != nil {
		st.EstHoursOverride = cloneFloat(p.EstHoursOverride)
	}
	if p.ActualHours != nil {
		st.ActualHours = *p.ActualHours
	}
	if p.Notes != nil {
		st.Notes = *p.Notes
	}

	next := s.States()
	next[id] = st
	s.states = next
	return cloneState(st), nil
}

// TaskHours returns the estimated hours of a task. See CalculateTaskHours.
func (s *Store) TaskHours(id string) (float64, error) {
	i := s.indexOf(id)
	if i < 0 {
		return 0, fmt.Errorf("%w: %s", ErrTaskNotFound, id)
	}
	st := s.states[id]
	return CalculateTaskHours(s.tasks[i], &st), nil
}

// Progress returns the subtask completion of a task.
func (s *Store) Progress(id string) (Progress, error) {
	i := s.indexOf(id)
	if i < 0 {
		return Progress{}, fmt.Errorf("%w: %s", ErrTaskNotFound, id)
	}
	return SubtaskProgress(s.tasks[i]), nil
}

// Totals summarizes the whole plan.
func (s *Store) Totals() Totals {
	var tot Totals
	for _, t := range s.tasks {
		st := s.states[t.ID]

		tot.Tasks++
		if t.CriticalPath {
			tot.CriticalPath++
		}
		if st.Status == StatusCompleted {
			tot.CompletedTasks++
		}
		tot.EstimatedHours += CalculateTaskHours(t, &st)
		if h, ok := ParseActualHours(st.ActualHours); ok {
			tot.ActualHours += h
		}

		p := SubtaskProgress(t)
		tot.CompletedSubtasks += p.Completed
		tot.TotalSubtasks += p.Total
	}
	return tot
}

func (s *Store) indexOf(id string) int {
	for i, t := range s.tasks {
		if t.ID == id {
			return i
		}
	}
	return -1
}

// replaceTask swaps in a new slice with t at position i.
func (s *Store) replaceTask(i int, t Task) {
	next := make([]Task, len(s.tasks))
	copy(next, s.tasks)
	next[i] = t
	s.tasks = next
}
