package taskstore

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// leadingNumber matches the numeric prefix of strings like "8", "8.5h" or "12 hrs".
var leadingNumber = regexp.MustCompile(`^[+-]?(\d+(\.\d*)?|\.\d+)`)

// CalculateTaskHours returns the estimated hours of a task.
//
// In auto mode the estimates of the subtasks are summed and the task's own
// estimate is ignored; subtasks without an estimate count as zero. In manual
// mode a state override wins over AdjustedEstHours. state may be nil.
func CalculateTaskHours(t Task, state *TaskState) float64 {
	if t.HourMode == HourAuto {
		var sum float64
		for _, st := range t.Subtasks {
			if st.EstHours != nil {
				sum += *st.EstHours
			}
		}
		return sum
	}

	if state != nil && state.EstHoursOverride != nil {
		return *state.EstHoursOverride
	}
	return t.AdjustedEstHours
}

// SubtaskProgress counts the completed subtasks of t.
// Percent is rounded to the nearest integer and is 0 for a task without subtasks.
func SubtaskProgress(t Task) Progress {
	p := Progress{Total: len(t.Subtasks)}
	for _, st := range t.Subtasks {
		if st.Status == StatusCompleted {
			p.Completed++
		}
	}
	if p.Total > 0 {
		p.Percent = int(math.Round(float64(p.Completed) * 100 / float64(p.Total)))
	}
	return p
}

// ParseHours reads the leading number of s, the way hour columns are typed by
// hand ("8", "8.5h", "12 hrs"). Anything unparseable, NaN or infinite is 0.
func ParseHours(s string) float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}

	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		m := leadingNumber.FindString(s)
		if m == "" {
			return 0
		}
		f, err = strconv.ParseFloat(m, 64)
		if err != nil {
			return 0
		}
	}

	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return f
}

// ParseActualHours interprets the free-text actual hours of a TaskState.
// It accepts plain numbers ("3.5"), Go durations ("2h30m") and numbers with a
// unit suffix ("4 hrs"). ok is false when nothing usable was entered.
func ParseActualHours(s string) (hours float64, ok bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}

	if f, err := strconv.ParseFloat(s, 64); err == nil && !math.IsNaN(f) && !math.IsInf(f, 0) {
		return f, true
	}
	if d, err := time.ParseDuration(strings.ReplaceAll(s, " ", "")); err == nil {
		return d.Hours(), true
	}
	if m := leadingNumber.FindString(s); m != "" {
		if f, err := strconv.ParseFloat(m, 64); err == nil {
			return f, true
		}
	}
	return 0, false
}
