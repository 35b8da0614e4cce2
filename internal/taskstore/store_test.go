package taskstore

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC)

func newTestStore(t *testing.T, tasks ...Task) *Store {
	t.Helper()
	n := 0
	s := New(nil, nil,
		WithClock(func() time.Time { return fixedNow }),
		WithIDGenerator(func() string {
			n++
			return fmt.Sprintf("id-%d", n)
		}),
	)
	if len(tasks) > 0 {
		_, err := s.AddTasks(tasks, nil)
		require.NoError(t, err)
	}
	return s
}

func ptr[T any](v T) *T { return &v }

func TestStore_AddTask(t *testing.T) {
	s := newTestStore(t)

	added, err := s.AddTask(Task{Name: "Design", Phase: "planning", PhaseTitle: "Planning"})
	require.NoError(t, err)

	assert.Equal(t, "id-1", added.ID)
	assert.Equal(t, HourManual, added.HourMode)
	assert.Equal(t, 1, s.Len())

	st, ok := s.State(added.ID)
	require.True(t, ok)
	assert.Equal(t, StatusPending, st.Status)
}

func TestStore_AddTask_Validation(t *testing.T) {
	tests := []struct {
		name    string
		task    Task
		wantErr error
	}{
		{name: "empty name", task: Task{}, wantErr: ErrEmptyName},
		{name: "bad hour mode", task: Task{Name: "x", HourMode: "sometimes"}, wantErr: ErrInvalidHourMode},
		{name: "bad subtask status", task: Task{Name: "x", Subtasks: []Subtask{{Name: "a", Status: "later"}}}, wantErr: ErrInvalidStatus},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestStore(t)
			_, err := s.AddTask(tt.task)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Equal(t, 0, s.Len())
		})
	}
}

func TestStore_AddTasks_IsAllOrNothing(t *testing.T) {
	s := newTestStore(t, Task{ID: "a", Name: "A"})

	_, err := s.AddTasks([]Task{{ID: "b", Name: "B"}, {ID: "a", Name: "dup"}}, nil)
	require.ErrorIs(t, err, ErrDuplicateTask)
	assert.Equal(t, 1, s.Len())
}

func TestStore_AddTasks_UsesSuppliedStates(t *testing.T) {
	s := newTestStore(t)

	_, err := s.AddTasks(
		[]Task{{ID: "a", Name: "A"}, {ID: "b", Name: "B"}},
		map[string]TaskState{"a": {Status: StatusInProgress, ActualHours: "3"}},
	)
	require.NoError(t, err)

	a, _ := s.State("a")
	b, _ := s.State("b")
	assert.Equal(t, StatusInProgress, a.Status)
	assert.Equal(t, "3", a.ActualHours)
	assert.Equal(t, StatusPending, b.Status)
}

func TestStore_MutationsDoNotAliasEarlierSnapshots(t *testing.T) {
	s := newTestStore(t, Task{ID: "a", Name: "A", Subtasks: []Subtask{{ID: "s1", Name: "one"}}})

	before := s.Tasks()
	_, err := s.UpdateTask("a", TaskPatch{Name: ptr("renamed")})
	require.NoError(t, err)
	_, err = s.ToggleSubtask("a", "s1")
	require.NoError(t, err)

	assert.Equal(t, "A", before[0].Name)
	assert.Equal(t, StatusPending, before[0].Subtasks[0].Status)

	after, _ := s.Task("a")
	assert.Equal(t, "renamed", after.Name)
	assert.Equal(t, StatusCompleted, after.Subtasks[0].Status)
}

func TestStore_UpdateTask(t *testing.T) {
	s := newTestStore(t, Task{ID: "a", Name: "A", AdjustedEstHours: 4})

	got, err := s.UpdateTask("a", TaskPatch{
		AdjustedEstHours: ptr(6.5),
		CriticalPath:     ptr(true),
		HourMode:         ptr(HourAuto),
	})
	require.NoError(t, err)
	assert.Equal(t, 6.5, got.AdjustedEstHours)
	assert.True(t, got.CriticalPath)
	assert.Equal(t, HourAuto, got.HourMode)

	_, err = s.UpdateTask("missing", TaskPatch{})
	assert.ErrorIs(t, err, ErrTaskNotFound)

	_, err = s.UpdateTask("a", TaskPatch{Name: ptr("")})
	assert.ErrorIs(t, err, ErrEmptyName)
}

func TestStore_DeleteTask_RemovesState(t *testing.T) {
	s := newTestStore(t, Task{ID: "a", Name: "A"}, Task{ID: "b", Name: "B"})

	require.NoError(t, s.DeleteTask("a"))

	_, ok := s.State("a")
	assert.False(t, ok)
	assert.Len(t, s.States(), 1)
	assert.Equal(t, 1, s.Len())
	assert.ErrorIs(t, s.DeleteTask("a"), ErrTaskNotFound)
}

func TestStore_ReorderTasks(t *testing.T) {
	s := newTestStore(t, Task{ID: "a", Name: "A"}, Task{ID: "b", Name: "B"}, Task{ID: "c", Name: "C"})

	require.NoError(t, s.ReorderTasks([]string{"c", "a", "b"}))

	var ids []string
	for _, task := range s.Tasks() {
		ids = append(ids, task.ID)
	}
	assert.Equal(t, []string{"c", "a", "b"}, ids)

	assert.ErrorIs(t, s.ReorderTasks([]string{"a", "b"}), ErrInvalidOrder)
	assert.ErrorIs(t, s.ReorderTasks([]string{"a", "a", "b"}), ErrInvalidOrder)
	assert.ErrorIs(t, s.ReorderTasks([]string{"a", "b", "x"}), ErrInvalidOrder)
}

func TestStore_UpdateState(t *testing.T) {
	s := newTestStore(t, Task{ID: "a", Name: "A", AdjustedEstHours: 8})

	st, err := s.UpdateState("a", StatePatch{
		Status:           ptr(StatusBlocked),
		EstHoursOverride: ptr(10.0),
		ActualHours:      ptr("2h30m"),
	})
	require.NoError(t, err)
	assert.Equal(t, StatusBlocked, st.Status)

	hours, err := s.TaskHours("a")
	require.NoError(t, err)
	assert.Equal(t, 10.0, hours)

	_, err = s.UpdateState("a", StatePatch{ClearEstHoursOverride: true})
	require.NoError(t, err)
	hours, _ = s.TaskHours("a")
	assert.Equal(t, 8.0, hours)

	_, err = s.UpdateState("a", StatePatch{Status: ptr(Status("later"))})
	assert.ErrorIs(t, err, ErrInvalidStatus)
}

func TestStore_Totals(t *testing.T) {
	s := newTestStore(t,
		Task{ID: "a", Name: "A", AdjustedEstHours: 8, CriticalPath: true},
		Task{ID: "b", Name: "B", HourMode: HourAuto, Subtasks: []Subtask{
			{Name: "one", EstHours: ptr(2.0), Status: StatusCompleted},
			{Name: "two", EstHours: ptr(3.0)},
		}},
	)
	_, err := s.UpdateState("a", StatePatch{Status: ptr(StatusCompleted), ActualHours: ptr("6.5")})
	require.NoError(t, err)

	tot := s.Totals()
	assert.Equal(t, 2, tot.Tasks)
	assert.Equal(t, 1, tot.CriticalPath)
	assert.Equal(t, 1, tot.CompletedTasks)
	assert.Equal(t, 13.0, tot.EstimatedHours)
	assert.Equal(t, 6.5, tot.ActualHours)
	assert.Equal(t, 1, tot.CompletedSubtasks)
	assert.Equal(t, 2, tot.TotalSubtasks)
}

func TestParseStatus(t *testing.T) {
	tests := []struct {
		in   string
		want Status
	}{
		{"", StatusPending},
		{"Pending", StatusPending},
		{"In Progress", StatusInProgress},
		{"in_progress", StatusInProgress},
		{"BLOCKED", StatusBlocked},
		{"done", StatusCompleted},
		{"Completed", StatusCompleted},
		{"whenever", StatusPending},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseStatus(tt.in))
		})
	}
}
