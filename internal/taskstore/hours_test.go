package taskstore

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCalculateTaskHours(t *testing.T) {
	tests := []struct {
		name  string
		task  Task
		state *TaskState
		want  float64
	}{
		{
			name: "auto sums subtasks and ignores adjusted",
			task: Task{HourMode: HourAuto, AdjustedEstHours: 40, Subtasks: []Subtask{
				{EstHours: ptr(2.0)},
				{EstHours: ptr(3.5)},
			}},
			want: 5.5,
		},
		{
			name: "auto ignores state override",
			task: Task{HourMode: HourAuto, Subtasks: []Subtask{{EstHours: ptr(1.0)}, {}}},
			state: &TaskState{EstHoursOverride: ptr(9.0)},
			want:  1,
		},
		{
			name: "auto without subtasks is zero",
			task: Task{HourMode: HourAuto, AdjustedEstHours: 12},
			want: 0,
		},
		{
			name: "manual uses adjusted",
			task: Task{HourMode: HourManual, BaseEstHours: 4, AdjustedEstHours: 6},
			want: 6,
		},
		{
			name:  "manual prefers override",
			task:  Task{AdjustedEstHours: 6},
			state: &TaskState{EstHoursOverride: ptr(7.5)},
			want:  7.5,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CalculateTaskHours(tt.task, tt.state))
		})
	}
}

func TestSubtaskProgress(t *testing.T) {
	tests := []struct {
		name string
		subs []Subtask
		want Progress
	}{
		{name: "no subtasks", want: Progress{}},
		{name: "one of three", subs: []Subtask{
			{Status: StatusCompleted}, {Status: StatusPending}, {Status: StatusBlocked},
		}, want: Progress{Completed: 1, Total: 3, Percent: 33}},
		{name: "two of three rounds up", subs: []Subtask{
			{Status: StatusCompleted}, {Status: StatusCompleted}, {Status: StatusInProgress},
		}, want: Progress{Completed: 2, Total: 3, Percent: 67}},
		{name: "all done", subs: []Subtask{
			{Status: StatusCompleted}, {Status: StatusCompleted},
		}, want: Progress{Completed: 2, Total: 2, Percent: 100}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SubtaskProgress(Task{Subtasks: tt.subs}))
		})
	}
}

func TestParseHours(t *testing.T) {
	tests := []struct {
		in   string
		want float64
	}{
		{"8", 8},
		{" 2.5 ", 2.5},
		{"8h", 8},
		{"12 hrs", 12},
		{".5", 0.5},
		{"", 0},
		{"abc", 0},
		{"NaN", 0},
		{"Inf", 0},
		{"-3", -3},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseHours(tt.in))
		})
	}
}

func TestParseActualHours(t *testing.T) {
	tests := []struct {
		in     string
		want   float64
		wantOK bool
	}{
		{"3.5", 3.5, true},
		{"2h30m", 2.5, true},
		{"1h 30m", 1.5, true},
		{"4 hrs", 4, true},
		{"", 0, false},
		{"n/a", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := ParseActualHours(tt.in)
			assert.Equal(t, tt.wantOK, ok)
			assert.InDelta(t, tt.want, got, 1e-9)
		})
	}
}
