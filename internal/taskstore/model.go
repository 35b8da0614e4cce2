// Package taskstore holds the plan of a project (tasks and their subtasks) and
// the tracked progress of each task.
//
// Plan and progress are kept apart: a Task describes what is planned, while a
// TaskState, held in a side map keyed by task ID, records what has actually
// happened. Deleting a task drops its state with it.
package taskstore

import (
	"strings"
	"time"
)

// Status is the progress status of a task or subtask.
type Status string

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in-progress"
	StatusBlocked    Status = "blocked"
	StatusCompleted  Status = "completed"
)

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusInProgress, StatusBlocked, StatusCompleted:
		return true
	}
	return false
}

// ParseStatus maps loosely written status text ("In Progress", "done",
// "in_progress") onto a Status. Unknown or empty text is StatusPending.
func ParseStatus(s string) Status {
	key := strings.ToLower(strings.TrimSpace(s))
	key = strings.NewReplacer(" ", "-", "_", "-").Replace(key)

	switch key {
	case "in-progress", "inprogress", "started", "active", "doing", "wip":
		return StatusInProgress
	case "blocked", "on-hold", "waiting":
		return StatusBlocked
	case "completed", "complete", "done", "finished", "closed":
		return StatusCompleted
	default:
		return StatusPending
	}
}

// HourMode controls where a task's estimated hours come from.
type HourMode string

const (
	// HourManual uses the task's own estimate.
	HourManual HourMode = "manual"
	// HourAuto sums the estimates of the task's subtasks.
	HourAuto HourMode = "auto"
)

// Task is one planned unit of work in a project.
type Task struct {
	ID               string    `json:"id"`
	Name             string    `json:"task"`
	Phase            string    `json:"phase"`
	PhaseTitle       string    `json:"phaseTitle"`
	Category         string    `json:"category"`
	BaseEstHours     float64   `json:"baseEstHours"`
	AdjustedEstHours float64   `json:"adjustedEstHours"`
	Notes            string    `json:"notes,omitempty"`
	CriticalPath     bool      `json:"criticalPath,omitempty"`
	HourMode         HourMode  `json:"subtaskHourMode,omitempty"`
	Subtasks         []Subtask `json:"subtasks,omitempty"`
}

// Subtask is a step inside a Task. Order defines display and iteration order
// within the parent; values need not be contiguous.
type Subtask struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Order       int        `json:"order"`
	Status      Status     `json:"status"`
	EstHours    *float64   `json:"estimatedHours,omitempty"`
	ActualHours *float64   `json:"actualHours,omitempty"`
	Notes       string     `json:"notes,omitempty"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
}

// TaskState is the mutable progress record of a task.
// ActualHours is free text as entered by the user; see ParseActualHours.
type TaskState struct {
	Status           Status   `json:"status"`
	EstHoursOverride *float64 `json:"estimatedHoursOverride,omitempty"`
	ActualHours      string   `json:"actualHours,omitempty"`
	Notes            string   `json:"notes,omitempty"`
}

// NewTaskState returns the state a freshly created task starts with.
func NewTaskState() TaskState {
	return TaskState{Status: StatusPending}
}

// TaskPatch describes a partial update of a Task. Nil fields are left alone.
type TaskPatch struct {
	Name             *string   `json:"task,omitempty"`
	Phase            *string   `json:"phase,omitempty"`
	PhaseTitle       *string   `json:"phaseTitle,omitempty"`
	Category         *string   `json:"category,omitempty"`
	BaseEstHours     *float64  `json:"baseEstHours,omitempty"`
	AdjustedEstHours *float64  `json:"adjustedEstHours,omitempty"`
	Notes            *string   `json:"notes,omitempty"`
	CriticalPath     *bool     `json:"criticalPath,omitempty"`
	HourMode         *HourMode `json:"subtaskHourMode,omitempty"`
}

// SubtaskPatch describes a partial update of a Subtask.
type SubtaskPatch struct {
	Name        *string  `json:"name,omitempty"`
	Order       *int     `json:"order,omitempty"`
	Status      *Status  `json:"status,omitempty"`
	EstHours    *float64 `json:"estimatedHours,omitempty"`
	ActualHours *float64 `json:"actualHours,omitempty"`
	Notes       *string  `json:"notes,omitempty"`
}

// StatePatch describes a partial update of a TaskState.
// ClearEstHoursOverride removes an override instead of setting one.
type StatePatch struct {
	Status                *Status  `json:"status,omitempty"`
	EstHoursOverride      *float64 `json:"estimatedHoursOverride,omitempty"`
	ClearEstHoursOverride bool     `json:"clearEstimatedHoursOverride,omitempty"`
	ActualHours           *string  `json:"actualHours,omitempty"`
	Notes                 *string  `json:"notes,omitempty"`
}

// Progress is the subtask completion of a task.
type Progress struct {
	Completed int `json:"completed"`
	Total     int `json:"total"`
	Percent   int `json:"percent"`
}

// Totals summarizes a whole plan.
type Totals struct {
	Tasks             int     `json:"tasks"`
	CriticalPath      int     `json:"criticalPath"`
	EstimatedHours    float64 `json:"estimatedHours"`
	ActualHours       float64 `json:"actualHours"`
	CompletedTasks    int     `json:"completedTasks"`
	CompletedSubtasks int     `json:"completedSubtasks"`
	TotalSubtasks     int     `json:"totalSubtasks"`
}

// cloneTask returns a deep copy of t so callers never alias store internals.
func cloneTask(t Task) Task {
	if t.Subtasks != nil {
		subs := make([]Subtask, len(t.Subtasks))
		for i, st := range t.Subtasks {
			subs[i] = cloneSubtask(st)
		}
		t.Subtasks = subs
	}
	return t
}

func cloneSubtask(st Subtask) Subtask {
	st.EstHours = cloneFloat(st.EstHours)
	st.ActualHours = cloneFloat(st.ActualHours)
	if st.CompletedAt != nil {
		ts := *st.CompletedAt
		st.CompletedAt = &ts
	}
	return st
}

func cloneState(s TaskState) TaskState {
	s.EstHoursOverride = cloneFloat(s.EstHoursOverride)
	return s
}

func cloneFloat(f *float64) *float64 {
	if f == nil {
		return nil
	}
	v := *f
	return &v
}
