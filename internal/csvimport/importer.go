// Package csvimport turns comma or tab separated task lists, as exported from
// spreadsheets, into taskstore tasks.
//
// Parsing is tolerant: only a file without a recognizable task column fails.
// Bad numbers and missing optional columns fall back to defaults, and rows
// that cannot become a task are skipped and reported in Result.Skipped.
package csvimport

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/JonMunkholm/planner/internal/taskstore"
)

// DefaultHeaderSearchRows is how many leading lines are searched for the header row.
const DefaultHeaderSearchRows = 10

const (
	defaultPhase      = "imported"
	defaultPhaseTitle = "Imported"
	defaultCategory   = "Other"
)

var (
	// ErrNoTaskColumn is returned when the header row has no task name column.
	ErrNoTaskColumn = errors.New("no task column found")
	// ErrTooFewLines is the Validate reason for input that cannot hold a
	// header and a row. Import accepts such input and returns no tasks.
	ErrTooFewLines = errors.New("fewer than 2 lines")
)

// ImportError is a structural failure tied to a line of the input.
type ImportError struct {
	Line int // 1-based
	Err  error
}

func (e *ImportError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("line %d: %v", e.Line, e.Err)
	}
	return e.Err.Error()
}

func (e *ImportError) Unwrap() error { return e.Err }

// Options configures an import run. The zero value uses the defaults.
type Options struct {
	// HeaderSearchRows bounds the header row search (default 10).
	HeaderSearchRows int
	// Aliases overrides the header names per field (default DefaultAliases).
	Aliases Aliases
	// NewID generates task IDs (default uuid.NewString).
	NewID func() string
}

func (o Options) withDefaults() Options {
	if o.HeaderSearchRows <= 0 {
		o.HeaderSearchRows = DefaultHeaderSearchRows
	}
	if o.Aliases == nil {
		o.Aliases = DefaultAliases()
	}
	if o.NewID == nil {
		o.NewID = uuid.NewString
	}
	return o
}

// SkippedRow is a data row that did not produce a task.
type SkippedRow struct {
	Line   int    `json:"line"`
	Reason string `json:"reason"`
}

// Result is the outcome of Import.
type Result struct {
	Tasks      []taskstore.Task               `json:"tasks"`
	States     map[string]taskstore.TaskState `json:"states,omitempty"`
	Meta       ProjectMeta                    `json:"meta"`
	Delimiter  string                         `json:"delimiter"`
	HeaderLine int                            `json:"headerLine"`
	Columns    ColumnMap                      `json:"columns"`
	Skipped    []SkippedRow                   `json:"skipped,omitempty"`
}

// Imported returns the number of tasks produced.
func (r *Result) Imported() int {
	return len(r.Tasks)
}

// ValidationReport is the outcome of Validate.
type ValidationReport struct {
	Valid      bool      `json:"valid"`
	Reason     string    `json:"reason,omitempty"`
	HeaderLine int       `json:"headerLine,omitempty"`
	Delimiter  string    `json:"delimiter,omitempty"`
	Columns    ColumnMap `json:"columns,omitempty"`
	Warnings   []string  `json:"warnings,omitempty"`
}

// layout is the structure shared by Validate and Import.
type layout struct {
	lines    []string
	delim    rune
	header   int // index into lines
	keyword  bool
	headers  []string
	columns  ColumnMap
	nonBlank int
}

// analyze runs the structural steps: BOM, line split, delimiter, header row
// and column map. The only failure is a missing task column, returned as an
// *ImportError together with the layout.
func analyze(text string, opts Options) (*layout, error) {
	lines := splitLines(StripBOM(text))

	l := &layout{lines: lines}
	for _, line := range lines {
		if strings.TrimSpace(line) != "" {
			l.nonBlank++
		}
	}

	l.delim = DetectDelimiter(strings.Join(lines, "\n"))
	l.header, l.keyword = findHeaderRow(lines, l.delim, opts.HeaderSearchRows)
	if l.header < len(lines) {
		l.headers = SplitLine(lines[l.header], l.delim)
	}
	l.columns = ResolveColumns(l.headers, opts.Aliases)

	if !l.columns.Has(FieldTask) {
		return l, &ImportError{
			Line: l.header + 1,
			Err:  fmt.Errorf("%w in first %d lines", ErrNoTaskColumn, opts.HeaderSearchRows),
		}
	}
	return l, nil
}

// findHeaderRow returns the first of the first n lines containing "task".
// Lines ExtractMetadata consumes ("Description: task tracker") are passed
// over. Without such a line the first non-blank, non-metadata line is the
// header.
func findHeaderRow(lines []string, delim rune, n int) (int, bool) {
	for i := 0; i < len(lines) && i < n; i++ {
		if !strings.Contains(strings.ToLower(lines[i]), "task") {
			continue
		}
		if isMetadataLine(SplitLine(lines[i], delim)[0]) {
			continue
		}
		return i, true
	}
	for i, line := range lines {
		if strings.TrimSpace(line) != "" && !isMetadataLine(SplitLine(line, delim)[0]) {
			return i, false
		}
	}
	return 0, false
}

// Validate checks that text can be imported without building any task.
// It is stricter than Import: besides a missing task column it also rejects
// input with no content or fewer than 2 lines, which Import turns into an
// empty result.
func Validate(text string, opts Options) ValidationReport {
	opts = opts.withDefaults()

	l, err := analyze(text, opts)
	switch {
	case l.nonBlank == 0:
		return ValidationReport{Reason: validationReason(ErrEmptyFile, opts)}
	case l.nonBlank < 2:
		return ValidationReport{Reason: validationReason(ErrTooFewLines, opts)}
	}

	report := ValidationReport{
		HeaderLine: l.header + 1,
		Delimiter:  delimiterName(l.delim),
		Columns:    l.columns,
	}
	if err != nil {
		report.Reason = validationReason(err, opts)
		return report
	}

	report.Valid = true
	if !l.keyword {
		report.Warnings = append(report.Warnings,
			fmt.Sprintf("no line containing \"task\" in first %d lines; using line %d as header", opts.HeaderSearchRows, l.header+1))
	}
	if !l.columns.Has(FieldEstHours) {
		report.Warnings = append(report.Warnings, "no estimated hours column; hours default to 0")
	}
	if !l.columns.Has(FieldPhase) {
		report.Warnings = append(report.Warnings, "no phase column; tasks go to phase \"Imported\"")
	}
	return report
}

func validationReason(err error, opts Options) string {
	switch {
	case errors.Is(err, ErrEmptyFile):
		return "empty file"
	case errors.Is(err, ErrTooFewLines):
		return "fewer than 2 lines"
	case errors.Is(err, ErrNoTaskColumn):
		return fmt.Sprintf("no Task column found in first %d lines", opts.HeaderSearchRows)
	default:
		return err.Error()
	}
}

// Import parses text into tasks plus any project metadata above the table.
// Tasks in the result is never nil; a header without rows gives no tasks.
func Import(text string, opts Options) (*Result, error) {
	opts = opts.withDefaults()

	l, err := analyze(text, opts)
	if err != nil {
		return nil, err
	}

	res := &Result{
		Tasks:      []taskstore.Task{},
		States:     make(map[string]taskstore.TaskState),
		Meta:       ExtractMetadata(l.lines[:l.header]),
		Delimiter:  delimiterName(l.delim),
		HeaderLine: l.header + 1,
		Columns:    l.columns,
	}

	for i := l.header + 1; i < len(l.lines); i++ {
		line := l.lines[i]
		if strings.TrimSpace(line) == "" {
			continue
		}

		row := SplitLine(line, l.delim)
		if len(row) < 2 {
			res.Skipped = append(res.Skipped, SkippedRow{Line: i + 1, Reason: "fewer than 2 fields"})
			continue
		}
		name := l.columns.Value(row, FieldTask)
		if name == "" {
			res.Skipped = append(res.Skipped, SkippedRow{Line: i + 1, Reason: "empty task name"})
			continue
		}

		task := buildTask(row, l.columns, name, opts.NewID())
		res.Tasks = append(res.Tasks, task)
		if state, ok := buildState(row, l.columns); ok {
			res.States[task.ID] = state
		}
	}

	return res, nil
}

func buildTask(row []string, cols ColumnMap, name, id string) taskstore.Task {
	phaseTitle := cols.Value(row, FieldPhase)
	phase := PhaseKey(phaseTitle)
	if phase == "" {
		phase, phaseTitle = defaultPhase, defaultPhaseTitle
	}

	category := cols.Value(row, FieldCategory)
	if category == "" {
		category = defaultCategory
	}

	hours := taskstore.ParseHours(cols.Value(row, FieldEstHours))

	return taskstore.Task{
		ID:               id,
		Name:             name,
		Phase:            phase,
		PhaseTitle:       phaseTitle,
		Category:         category,
		BaseEstHours:     hours,
		AdjustedEstHours: hours,
		HourMode:         taskstore.HourManual,
	}
}

// buildState returns the tracked state carried by a row, if any.
func buildState(row []string, cols ColumnMap) (taskstore.TaskState, bool) {
	status := cols.Value(row, FieldStatus)
	actual := cols.Value(row, FieldActualHours)
	notes := cols.Value(row, FieldNotes)
	if status == "" && actual == "" && notes == "" {
		return taskstore.TaskState{}, false
	}

	state := taskstore.NewTaskState()
	if status != "" {
		state.Status = taskstore.ParseStatus(status)
	}
	state.ActualHours = actual
	state.Notes = notes
	return state, true
}

// PhaseKey normalizes a phase title into its key: lowercased with inner
// whitespace collapsed to underscores ("Core  Build" becomes "core_build").
func PhaseKey(title string) string {
	return strings.Join(strings.Fields(strings.ToLower(title)), "_")
}
