package notify

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"
)

// InviteData fills the collaborator invitation.
type InviteData struct {
	To          string
	InvitedBy   string
	ProjectName string
	Role        string
	ProjectURL  string
}

// ImportSummaryData fills the import summary sent to collaborators.
type ImportSummaryData struct {
	To          []string
	ImportedBy  string
	ProjectName string
	FileName    string
	Imported    int
	Skipped     []SkippedLine
	ProjectURL  string
}

// SkippedLine is a row left out of an import.
type SkippedLine struct {
	Line   int
	Reason string
}

// maxSkippedListed caps how many skipped rows an email lists.
const maxSkippedListed = 20

var templates = template.Must(template.New("notify").Funcs(template.FuncMap{
	"orSomeone": func(s string) string {
		if s == "" {
			return "Someone"
		}
		return s
	},
}).Parse(`
{{define "invite"}}{{orSomeone .InvitedBy}} invited you to the project "{{.ProjectName}}" as {{.Role}}.

Open the project: {{.ProjectURL}}
{{end}}

{{define "import"}}{{orSomeone .ImportedBy}} imported {{.Imported}} task{{if ne .Imported 1}}s{{end}} into "{{.ProjectName}}"{{if .FileName}} from {{.FileName}}{{end}}.
{{if .SkippedTotal}}
{{.SkippedTotal}} row{{if ne .SkippedTotal 1}}s were{{else}} was{{end}} skipped:
{{range .Skipped}}  - line {{.Line}}: {{.Reason}}
{{end}}{{if .More}}  ...and {{.More}} more
{{end}}{{end}}
Open the project: {{.ProjectURL}}
{{end}}
`))

// InviteMessage renders a collaborator invitation.
func InviteMessage(d InviteData) (Message, error) {
	body, err := render("invite", d)
	if err != nil {
		return Message{}, err
	}
	return Message{
		To:      []string{d.To},
		Subject: fmt.Sprintf("You have been invited to %s", oneLine(d.ProjectName)),
		Body:    body,
	}, nil
}

// ImportSummaryMessage renders the summary of a finished import.
func ImportSummaryMessage(d ImportSummaryData) (Message, error) {
	view := struct {
		ImportSummaryData
		SkippedTotal int
		More         int
	}{ImportSummaryData: d, SkippedTotal: len(d.Skipped)}
	if len(d.Skipped) > maxSkippedListed {
		view.Skipped = d.Skipped[:maxSkippedListed]
		view.More = len(d.Skipped) - maxSkippedListed
	}

	body, err := render("import", view)
	if err != nil {
		return Message{}, err
	}
	return Message{
		To:      d.To,
		Subject: fmt.Sprintf("%d tasks imported into %s", d.Imported, oneLine(d.ProjectName)),
		Body:    body,
	}, nil
}

func render(name string, data any) (string, error) {
	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, name, data); err != nil {
		return "", fmt.Errorf("render %s: %w", name, err)
	}
	return buf.String(), nil
}

func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
