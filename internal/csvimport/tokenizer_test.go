package csvimport

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDetectDelimiter(t *testing.T) {
	tests := []struct {
		name string
		text string
		want rune
	}{
		{name: "comma", text: "task,phase,category\nA,B,C\n", want: ','},
		{name: "tab", text: "task\tphase\tcategory\nA\tB\tC\n", want: '\t'},
		{name: "tie resolves to comma", text: "a,b\tc\n", want: ','},
		{name: "neither", text: "just words\nmore words", want: ','},
		{name: "empty", text: "", want: ','},
		{name: "blank lines are not sampled", text: "\n\n\na\tb\tc\n\n", want: '\t'},
		{
			// commas in rows past the fifth non-blank line are not counted
			name: "only first five lines sampled",
			text: "a\tb\na\tb\na\tb\na\tb\na\tb\nx,y,z,w,v,u,t\n",
			want: '\t',
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DetectDelimiter(tt.text))
		})
	}
}

func TestSplitLine(t *testing.T) {
	tests := []struct {
		name  string
		line  string
		delim rune
		want  []string
	}{
		{name: "simple", line: "a,b,c", delim: ',', want: []string{"a", "b", "c"}},
		{name: "trims", line: " a , b ,c ", delim: ',', want: []string{"a", "b", "c"}},
		{name: "quoted delimiter", line: `"Design, UX",Planning`, delim: ',', want: []string{"Design, UX", "Planning"}},
		{name: "escaped quote", line: `"say ""hi""",x`, delim: ',', want: []string{`say "hi"`, "x"}},
		{name: "trailing empty field", line: "a,b,", delim: ',', want: []string{"a", "b", ""}},
		{name: "empty line", line: "", delim: ',', want: []string{""}},
		{name: "tab", line: "a\tb, c\td", delim: '\t', want: []string{"a", "b, c", "d"}},
		{name: "unterminated quote", line: `a,"b,c`, delim: ',', want: []string{"a", "b,c"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SplitLine(tt.line, tt.delim))
		})
	}
}

func TestSplitLine_RoundTrip(t *testing.T) {
	rows := [][]string{
		{"Design", "Planning", "Design", "8"},
		{"a"},
		{"", "", ""},
		{"Write docs", "Launch", "", "2.5", "in progress"},
	}

	for _, delim := range []rune{',', '\t'} {
		for _, fields := range rows {
			line := strings.Join(fields, string(delim))
			assert.Equal(t, fields, SplitLine(line, delim), "line %q", line)
		}
	}
}
