package csvimport

import (
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode"
)

// ProjectMeta is the project information found in the `key: value` block
// some exports put above the task table. Every field is optional.
type ProjectMeta struct {
	Name            string     `json:"name,omitempty"`
	Description     string     `json:"description,omitempty"`
	InitialPrompt   string     `json:"initialPrompt,omitempty"`
	ProjectType     string     `json:"projectType,omitempty"`
	ExperienceLevel string     `json:"experienceLevel,omitempty"`
	Lead            string     `json:"projectLead,omitempty"`
	Status          string     `json:"status,omitempty"`
	StartDate       *time.Time `json:"startDate,omitempty"`
	TargetEndDate   *time.Time `json:"targetEndDate,omitempty"`
	Budget          *float64   `json:"budget,omitempty"`
	Timeline        string     `json:"timeline,omitempty"`

	// Ignored lists keys that were present but not recognized.
	Ignored []string `json:"ignoredKeys,omitempty"`
}

// IsEmpty reports whether no recognized field was filled.
func (m ProjectMeta) IsEmpty() bool {
	return m.Name == "" && m.Description == "" && m.InitialPrompt == "" &&
		m.ProjectType == "" && m.ExperienceLevel == "" && m.Lead == "" &&
		m.Status == "" && m.StartDate == nil && m.TargetEndDate == nil &&
		m.Budget == nil && m.Timeline == ""
}

// titlePattern matches a title line such as "Acme Portal - Project Plan".
var titlePattern = regexp.MustCompile(`(?i)^(.+?)\s+-\s+project\b`)

// metaSetters assigns a normalized key's value into ProjectMeta.
var metaSetters = map[string]func(*ProjectMeta, string){
	"project name":     func(m *ProjectMeta, v string) { m.Name = v },
	"description":      func(m *ProjectMeta, v string) { m.Description = v },
	"initial prompt":   func(m *ProjectMeta, v string) { m.InitialPrompt = v },
	"project type":     func(m *ProjectMeta, v string) { m.ProjectType = v },
	"experience level": func(m *ProjectMeta, v string) { m.ExperienceLevel = v },
	"status":           func(m *ProjectMeta, v string) { m.Status = v },
	"timeline":         func(m *ProjectMeta, v string) { m.Timeline = v },
	"project lead": func(m *ProjectMeta, v string) {
		if !isPlaceholder(v) {
			m.Lead = v
		}
	},
	"start date": func(m *ProjectMeta, v string) {
		if t, ok := ParseDate(v); ok {
			m.StartDate = &t
		}
	},
	"target end date": func(m *ProjectMeta, v string) {
		if t, ok := ParseDate(v); ok {
			m.TargetEndDate = &t
		}
	},
	"budget": func(m *ProjectMeta, v string) {
		if b, ok := parseBudget(v); ok {
			m.Budget = &b
		}
	},
}

// ExtractMetadata reads the metadata block at the top of lines.
//
// Leading blank lines are skipped; the block ends at the first blank line
// after content or at a section marker. Lines without a colon, empty values
// and unknown keys never fail the extraction.
func ExtractMetadata(lines []string) ProjectMeta {
	var (
		meta    ProjectMeta
		started bool
	)

	for _, raw := range lines {
		line := trimMetaCell(raw)
		if line == "" {
			if started {
				break
			}
			continue
		}
		started = true

		// Title first: "ACME PORTAL - PROJECT PLAN" is not a section marker.
		if m := titlePattern.FindStringSubmatch(line); m != nil {
			if meta.Name == "" {
				meta.Name = strings.TrimSpace(m[1])
			}
			continue
		}

		if isSectionMarker(line) {
			break
		}

		key, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		key = normalizeMetaKey(key)
		value = trimMetaCell(value)
		if key == "" || value == "" {
			continue
		}

		set, known := metaSetters[key]
		if !known {
			meta.Ignored = append(meta.Ignored, key)
			continue
		}
		set(&meta, value)
	}

	return meta
}

// trimMetaCell strips whitespace, quotes and the empty trailing cells a
// spreadsheet adds when the metadata row is saved as CSV ("Budget: 5000,,,").
func trimMetaCell(s string) string {
	return strings.Trim(s, " \t\",")
}

func normalizeMetaKey(k string) string {
	return strings.Join(strings.Fields(strings.ToLower(trimMetaCell(k))), " ")
}

// isMetadataLine reports whether cell is a "key: value" line whose key
// ExtractMetadata recognizes.
func isMetadataLine(cell string) bool {
	key, _, ok := strings.Cut(trimMetaCell(cell), ":")
	if !ok {
		return false
	}
	_, known := metaSetters[normalizeMetaKey(key)]
	return known
}

// isSectionMarker reports whether line opens a new section: markdown-style
// headings and rules, or an all-caps line that carries no value.
func isSectionMarker(line string) bool {
	if strings.HasPrefix(line, "#") || strings.HasPrefix(line, "===") || strings.HasPrefix(line, "---") {
		return true
	}

	if i := strings.Index(line, ":"); i >= 0 && strings.TrimSpace(line[i+1:]) != "" {
		return false
	}

	letters := 0
	for _, r := range line {
		if unicode.IsLower(r) {
			return false
		}
		if unicode.IsLetter(r) {
			letters++
		}
	}
	return letters >= 3
}

// isPlaceholder reports template text left in place of a real value.
func isPlaceholder(v string) bool {
	if (strings.HasPrefix(v, "[") && strings.HasSuffix(v, "]")) ||
		(strings.HasPrefix(v, "<") && strings.HasSuffix(v, ">")) {
		return true
	}
	switch strings.ToLower(v) {
	case "tbd", "n/a", "na", "none", "enter name", "your name", "project lead":
		return true
	}
	return false
}

// parseBudget extracts the first run of digits, commas and dots from v.
func parseBudget(v string) (float64, bool) {
	var b strings.Builder
	for _, r := range v {
		switch {
		case unicode.IsDigit(r):
			b.WriteRune(r)
		case (r == ',' || r == '.') && b.Len() > 0:
			b.WriteRune(r)
		case b.Len() > 0:
			return finishBudget(b.String())
		}
	}
	return finishBudget(b.String())
}

func finishBudget(s string) (float64, bool) {
	s = strings.TrimRight(strings.ReplaceAll(s, ",", ""), ".")
	if s == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}
