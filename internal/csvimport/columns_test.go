package csvimport

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFindColumn(t *testing.T) {
	taskNames := DefaultAliases()[FieldTask]

	tests := []struct {
		name    string
		headers []string
		names   []string
		want    int
	}{
		{name: "exact", headers: []string{"Phase", "Task"}, names: taskNames, want: 1},
		{name: "exact beats earlier partial", headers: []string{"Subtask Notes", "Task"}, names: taskNames, want: 1},
		{name: "case insensitive", headers: []string{"TITLE"}, names: taskNames, want: 0},
		{name: "partial fallback", headers: []string{"Phase", "Task Name"}, names: taskNames, want: 1},
		{name: "compact exact", headers: []string{"task", "estHours"}, names: DefaultAliases()[FieldEstHours], want: 1},
		{name: "underscored", headers: []string{"est_hours"}, names: DefaultAliases()[FieldEstHours], want: 0},
		{name: "not found", headers: []string{"Phase", "Owner"}, names: taskNames, want: NotFound},
		{name: "empty headers", headers: nil, names: taskNames, want: NotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FindColumn(tt.headers, tt.names))
		})
	}
}

func TestResolveColumns(t *testing.T) {
	headers := []string{"Task", "Phase", "Category", "Estimated Hours", "Actual Hours", "Status", "Notes"}

	cols := ResolveColumns(headers, nil)

	for i, f := range Fields {
		assert.Equal(t, i, cols.Index(f), "field %s", f)
	}
}

func TestResolveColumns_ExactClaimedFirst(t *testing.T) {
	// "Task Description" partially matches both task and notes; the exact
	// "Name" column must win task, leaving the description to notes.
	headers := []string{"Task Description", "Name", "Est Hours"}

	cols := ResolveColumns(headers, DefaultAliases())

	assert.Equal(t, 1, cols.Index(FieldTask))
	assert.Equal(t, 0, cols.Index(FieldNotes))
	assert.Equal(t, 2, cols.Index(FieldEstHours))
	assert.Equal(t, NotFound, cols.Index(FieldPhase))
}

func TestResolveColumns_PartialNeverReusesColumn(t *testing.T) {
	headers := []string{"Actual Hours"}

	cols := ResolveColumns(headers, ExtendedAliases())

	assert.Equal(t, 0, cols.Index(FieldActualHours))
	assert.Equal(t, NotFound, cols.Index(FieldEstHours))
}

func TestResolveColumns_ClaimsDifferFromFindColumn(t *testing.T) {
	headers := []string{"Task", "Phase Notes"}
	aliases := DefaultAliases()

	assert.Equal(t, 1, FindColumn(headers, aliases[FieldNotes]))

	cols := ResolveColumns(headers, aliases)
	assert.Equal(t, 0, cols.Index(FieldTask))
	assert.Equal(t, 1, cols.Index(FieldPhase))
	assert.Equal(t, NotFound, cols.Index(FieldNotes))
}

func TestResolveColumns_ExtendedAliases(t *testing.T) {
	headers := []string{"Task", "Hours"}

	assert.False(t, ResolveColumns(headers, DefaultAliases()).Has(FieldEstHours))
	assert.Equal(t, 1, ResolveColumns(headers, ExtendedAliases()).Index(FieldEstHours))
}

func TestColumnMap_Value(t *testing.T) {
	cols := ColumnMap{FieldTask: 0, FieldNotes: 3, FieldPhase: NotFound}
	row := []string{" Design ", "x"}

	assert.Equal(t, "Design", cols.Value(row, FieldTask))
	assert.Equal(t, "", cols.Value(row, FieldNotes), "short row")
	assert.Equal(t, "", cols.Value(row, FieldPhase), "unresolved")
	assert.Equal(t, "", cols.Value(row, FieldStatus), "absent")
}
