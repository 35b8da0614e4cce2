package csvimport

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractMetadata(t *testing.T) {
	lines := []string{
		"",
		"Acme Portal - Project Plan",
		"Description: Customer self-service portal",
		"Initial Prompt: \"Build a portal for customers\"",
		"Project Type: Web App",
		"Experience Level: Intermediate",
		"Project Lead: Dana",
		"Status: Active",
		"Start Date: 2024-03-01",
		"Target End Date: 6/30/2024",
		"Budget: $12,500.00 USD",
		"Timeline: 4 months",
		"Sponsor: Finance",
		"",
		"Task,Phase",
	}

	meta := ExtractMetadata(lines)

	assert.Equal(t, "Acme Portal", meta.Name)
	assert.Equal(t, "Customer self-service portal", meta.Description)
	assert.Equal(t, "Build a portal for customers", meta.InitialPrompt)
	assert.Equal(t, "Web App", meta.ProjectType)
	assert.Equal(t, "Intermediate", meta.ExperienceLevel)
	assert.Equal(t, "Dana", meta.Lead)
	assert.Equal(t, "Active", meta.Status)
	assert.Equal(t, "4 months", meta.Timeline)

	require.NotNil(t, meta.StartDate)
	assert.Equal(t, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), *meta.StartDate)
	require.NotNil(t, meta.TargetEndDate)
	assert.Equal(t, time.Date(2024, 6, 30, 0, 0, 0, 0, time.UTC), *meta.TargetEndDate)
	require.NotNil(t, meta.Budget)
	assert.InDelta(t, 12500.0, *meta.Budget, 1e-9)

	assert.Equal(t, []string{"sponsor"}, meta.Ignored)
	assert.False(t, meta.IsEmpty())
}

func TestExtractMetadata_StopsAtSectionMarker(t *testing.T) {
	tests := []struct {
		name  string
		lines []string
	}{
		{name: "heading", lines: []string{"Status: Active", "# Tasks", "Timeline: 3 weeks"}},
		{name: "rule", lines: []string{"Status: Active", "---", "Timeline: 3 weeks"}},
		{name: "all caps", lines: []string{"Status: Active", "TASK LIST", "Timeline: 3 weeks"}},
		{name: "blank line", lines: []string{"Status: Active", "", "Timeline: 3 weeks"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			meta := ExtractMetadata(tt.lines)
			assert.Equal(t, "Active", meta.Status)
			assert.Empty(t, meta.Timeline)
		})
	}
}

func TestExtractMetadata_UpperCaseTitle(t *testing.T) {
	meta := ExtractMetadata([]string{"ACME PORTAL - PROJECT PLAN", "Budget: $5,000", "Status: Active"})

	assert.Equal(t, "ACME PORTAL", meta.Name)
	require.NotNil(t, meta.Budget)
	assert.Equal(t, 5000.0, *meta.Budget)
	assert.Equal(t, "Active", meta.Status)
}

func TestIsMetadataLine(t *testing.T) {
	tests := []struct {
		cell string
		want bool
	}{
		{"Description: task tracker", true},
		{"  Project Lead : Dana", true},
		{"Task: name", false},
		{"Task", false},
		{"Sponsor: task force", false},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, isMetadataLine(tt.cell), tt.cell)
	}
}

func TestExtractMetadata_Tolerant(t *testing.T) {
	lines := []string{
		"no colon here",
		"Description:",
		"Project Lead: [Enter name]",
		"Budget: n/a",
		"Start Date: someday",
		"Status: Planning,,,",
	}

	meta := ExtractMetadata(lines)

	assert.Empty(t, meta.Description)
	assert.Empty(t, meta.Lead)
	assert.Nil(t, meta.Budget)
	assert.Nil(t, meta.StartDate)
	assert.Equal(t, "Planning", meta.Status)
}

func TestExtractMetadata_ExplicitNameKeepsTitle(t *testing.T) {
	meta := ExtractMetadata([]string{"Alpha - Project Overview", "Project Name: Beta"})
	assert.Equal(t, "Beta", meta.Name)

	meta = ExtractMetadata([]string{"Project Name: Beta", "Alpha - Project Overview"})
	assert.Equal(t, "Beta", meta.Name)
}

func TestExtractMetadata_Empty(t *testing.T) {
	assert.True(t, ExtractMetadata(nil).IsEmpty())
	assert.True(t, ExtractMetadata([]string{"", "  "}).IsEmpty())
}

func TestIsPlaceholder(t *testing.T) {
	for _, v := range []string{"[Enter name]", "<lead>", "TBD", "n/a", "Your Name"} {
		assert.True(t, isPlaceholder(v), v)
	}
	for _, v := range []string{"Dana", "Team [B]"} {
		assert.False(t, isPlaceholder(v), v)
	}
}

func TestParseBudget(t *testing.T) {
	tests := []struct {
		in     string
		want   float64
		wantOK bool
	}{
		{in: "5000", want: 5000, wantOK: true},
		{in: "$12,500.50", want: 12500.5, wantOK: true},
		{in: "about 3,000 dollars (approx 2025)", want: 3000, wantOK: true},
		{in: "10k.", want: 10, wantOK: true},
		{in: "none", wantOK: false},
		{in: "", wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := parseBudget(tt.in)
			assert.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				assert.InDelta(t, tt.want, got, 1e-9)
			}
		})
	}
}

func TestParseDate(t *testing.T) {
	tests := []struct {
		in   string
		want time.Time
		ok   bool
	}{
		{in: "2024-03-01", want: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), ok: true},
		{in: "3/1/2024", want: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), ok: true},
		{in: "March 1, 2024", want: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), ok: true},
		{in: "1 Mar 2024", want: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), ok: true},
		{in: "3/1/24", want: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), ok: true},
		{in: "soon"},
		{in: ""},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := ParseDate(tt.in)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}
