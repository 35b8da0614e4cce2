package csvimport

import "strings"

// NotFound is the column index of a field that has no matching header.
const NotFound = -1

// Field is a semantic column the importer knows how to use.
type Field string

const (
	FieldTask        Field = "task"
	FieldPhase       Field = "phase"
	FieldCategory    Field = "category"
	FieldEstHours    Field = "estHours"
	FieldActualHours Field = "actualHours"
	FieldStatus      Field = "status"
	FieldNotes       Field = "notes"
)

// Fields lists every semantic field in resolution order.
var Fields = []Field{
	FieldTask,
	FieldPhase,
	FieldCategory,
	FieldEstHours,
	FieldActualHours,
	FieldStatus,
	FieldNotes,
}

// Aliases maps each field to the lowercase header names accepted for it.
type Aliases map[Field][]string

// DefaultAliases returns the header names understood by the standard importer.
func DefaultAliases() Aliases {
	return Aliases{
		FieldTask:        {"task", "name", "title"},
		FieldPhase:       {"phase", "stage"},
		FieldCategory:    {"category", "type"},
		FieldEstHours:    {"estimated hours", "est hours", "estimate"},
		FieldActualHours: {"actual hours", "actual"},
		FieldStatus:      {"status", "state"},
		FieldNotes:       {"notes", "note", "description"},
	}
}

// ExtendedAliases returns DefaultAliases plus the looser hour headers
// ("hours", "estimated") some exports use.
func ExtendedAliases() Aliases {
	a := DefaultAliases()
	a[FieldEstHours] = append(a[FieldEstHours], "hours", "estimated")
	return a
}

// ColumnMap maps fields to zero-based column indexes for one import run.
type ColumnMap map[Field]int

// Index returns the column of f, or NotFound.
func (m ColumnMap) Index(f Field) int {
	if i, ok := m[f]; ok {
		return i
	}
	return NotFound
}

// Has reports whether f was resolved.
func (m ColumnMap) Has(f Field) bool {
	return m.Index(f) != NotFound
}

// Value returns the trimmed value of f in row, or "" when f is unresolved or
// the row is too short.
func (m ColumnMap) Value(row []string, f Field) string {
	i := m.Index(f)
	if i == NotFound || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

// FindColumn returns the index of the header matching one of names.
//
// The first pass requires an exact case-insensitive match, so a "Task" column
// wins over "Subtask Notes". Exact matching also compares the headers with
// spaces, underscores, hyphens and dots removed ("estHours" matches
// "est hours"). Only when no header matches exactly does the second pass
// accept a header containing one of the names.
func FindColumn(headers []string, names []string) int {
	return findColumn(headers, names, nil)
}

// ResolveColumns builds the ColumnMap for all Fields.
//
// All exact matches are claimed before any substring match is tried, and a
// substring match never takes a column another field already claimed.
// Results therefore differ from calling FindColumn per field: with headers
// "Task, Phase Notes", FindColumn resolves notes to column 1, while
// ResolveColumns gives column 1 to phase (claimed first, in Fields order)
// and leaves notes NotFound. Import and Validate use ResolveColumns.
func ResolveColumns(headers []string, aliases Aliases) ColumnMap {
	if aliases == nil {
		aliases = DefaultAliases()
	}

	cols := make(ColumnMap, len(Fields))
	claimed := make(map[int]bool, len(headers))

	for _, f := range Fields {
		if i := exactMatch(headers, aliases[f], claimed); i != NotFound {
			cols[f] = i
			claimed[i] = true
		}
	}
	for _, f := range Fields {
		if cols.Has(f) {
			continue
		}
		if i := partialMatch(headers, aliases[f], claimed); i != NotFound {
			cols[f] = i
			claimed[i] = true
		}
	}

	for _, f := range Fields {
		if !cols.Has(f) {
			cols[f] = NotFound
		}
	}
	return cols
}

func findColumn(headers []string, names []string, skip map[int]bool) int {
	if i := exactMatch(headers, names, skip); i != NotFound {
		return i
	}
	return partialMatch(headers, names, skip)
}

func exactMatch(headers []string, names []string, skip map[int]bool) int {
	for i, h := range headers {
		if skip[i] {
			continue
		}
		h = normalizeHeader(h)
		if h == "" {
			continue
		}
		for _, name := range names {
			if h == name || compactHeader(h) == compactHeader(name) {
				return i
			}
		}
	}
	return NotFound
}

func partialMatch(headers []string, names []string, skip map[int]bool) int {
	for i, h := range headers {
		if skip[i] {
			continue
		}
		h = normalizeHeader(h)
		if h == "" {
			continue
		}
		for _, name := range names {
			if strings.Contains(h, name) {
				return i
			}
		}
	}
	return NotFound
}

// normalizeHeader lowercases a header and collapses its inner whitespace.
func normalizeHeader(h string) string {
	return strings.Join(strings.Fields(strings.ToLower(h)), " ")
}

var headerPunct = strings.NewReplacer(" ", "", "_", "", "-", "", ".", "")

func compactHeader(h string) string {
	return headerPunct.Replace(h)
}
