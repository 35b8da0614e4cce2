package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

const samplePlan = `Relaunch - Project Plan
Description: New marketing site
Project Lead: Dana
Budget: 4,000

Task,Phase,Est Hours,Status
Wireframes,Design,6,completed
Build pages,Build,14
Launch,Release,2
`

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := NewRootCmd("test")
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetIn(strings.NewReader(""))
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestValidate(t *testing.T) {
	path := writeFile(t, "plan.csv", samplePlan)

	out, err := run(t, "validate", path)
	require.NoError(t, err)

	var report map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	assert.Equal(t, true, report["valid"])
	assert.Equal(t, float64(6), report["headerLine"])
	assert.Equal(t, "comma", report["delimiter"])
}

func TestValidate_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
		reason  string
	}{
		{"no task column", "Owner,Hours\nA,1\n", "task"},
		{"single line", "Task\n", "fewer than 2 lines"},
		{"empty", "\n\n", "empty file"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeFile(t, "bad.csv", tt.content)
			_, err := run(t, "validate", path)
			require.Error(t, err)
			assert.Contains(t, strings.ToLower(err.Error()), tt.reason)
		})
	}
}

func TestValidate_MissingFile(t *testing.T) {
	_, err := run(t, "validate", filepath.Join(t.TempDir(), "nope.csv"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestImport_JSON(t *testing.T) {
	path := writeFile(t, "relaunch.csv", samplePlan)

	out, err := run(t, "import", path)
	require.NoError(t, err)

	var report struct {
		Project struct {
			Name        string   `json:"name"`
			Description string   `json:"description"`
			Lead        string   `json:"projectLead"`
			Budget      *float64 `json:"budget"`
		} `json:"project"`
		Result struct {
			Imported int `json:"imported"`
		} `json:"result"`
		Plan struct {
			Totals struct {
				Tasks          int     `json:"tasks"`
				EstimatedHours float64 `json:"estimatedHours"`
				CompletedTasks int     `json:"completedTasks"`
			} `json:"totals"`
		} `json:"plan"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &report))

	assert.Equal(t, "relaunch", report.Project.Name)
	assert.Equal(t, "New marketing site", report.Project.Description)
	assert.Equal(t, "Dana", report.Project.Lead)
	require.NotNil(t, report.Project.Budget)
	assert.InDelta(t, 4000, *report.Project.Budget, 0.001)
	assert.Equal(t, 3, report.Result.Imported)
	assert.Equal(t, 3, report.Plan.Totals.Tasks)
	assert.InDelta(t, 22, report.Plan.Totals.EstimatedHours, 0.001)
	assert.Equal(t, 1, report.Plan.Totals.CompletedTasks)
}

func TestImport_YAML(t *testing.T) {
	path := writeFile(t, "plan.tsv", "Task\tHours\nWrite copy\t3\n")

	out, err := run(t, "import", path, "--format", "yaml", "--extended-aliases", "--name", "Copy")
	require.NoError(t, err)

	var report map[string]any
	require.NoError(t, yaml.Unmarshal([]byte(out), &report))

	project := report["project"].(map[string]any)
	assert.Equal(t, "Copy", project["name"])

	result := report["result"].(map[string]any)
	assert.Equal(t, 1, result["imported"])
	assert.Equal(t, "tab", result["delimiter"])

	tasks := report["plan"].(map[string]any)["tasks"].([]any)
	require.Len(t, tasks, 1)
	assert.Equal(t, 3, tasks[0].(map[string]any)["baseEstHours"])
}

func TestImport_Errors(t *testing.T) {
	path := writeFile(t, "plan.csv", samplePlan)

	_, err := run(t, "import", path, "--format", "xml")
	assert.ErrorContains(t, err, "unknown format")

	_, err = run(t, "import", path, "--max-size", "10")
	assert.ErrorContains(t, err, "FILE001")

	bad := writeFile(t, "bad.csv", "Owner,Hours\nA,1\n")
	_, err = run(t, "import", bad)
	assert.ErrorContains(t, err, "IMP001")
}

func TestGmailAuth_MissingCredentials(t *testing.T) {
	_, err := run(t, "gmail-auth", "--credentials", filepath.Join(t.TempDir(), "missing.json"))
	assert.ErrorContains(t, err, "read client secret file")
}
