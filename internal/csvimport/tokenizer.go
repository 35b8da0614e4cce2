package csvimport

import "strings"

// delimiterSampleLines is how many non-blank lines DetectDelimiter looks at.
const delimiterSampleLines = 5

// DetectDelimiter picks tab or comma by counting both across the first
// non-blank lines of text. Ties, and text with neither, resolve to comma.
func DetectDelimiter(text string) rune {
	var commas, tabs, sampled int
	for _, line := range splitLines(text) {
		if strings.TrimSpace(line) == "" {
			continue
		}
		commas += strings.Count(line, ",")
		tabs += strings.Count(line, "\t")

		sampled++
		if sampled == delimiterSampleLines {
			break
		}
	}

	if tabs > commas {
		return '\t'
	}
	return ','
}

// SplitLine splits one line into trimmed fields.
//
// The delimiter only separates fields outside double quotes, and a doubled
// quote inside a quoted section is a literal quote. The last field is always
// emitted, even when empty. An unterminated quote swallows the rest of the line.
func SplitLine(line string, delim rune) []string {
	var (
		fields   []string
		field    strings.Builder
		inQuotes bool
	)

	runes := []rune(line)
	for i := 0; i < len(runes); i++ {
		c := runes[i]
		switch {
		case c == '"':
			if inQuotes && i+1 < len(runes) && runes[i+1] == '"' {
				field.WriteRune('"')
				i++
				continue
			}
			inQuotes = !inQuotes
		case c == delim && !inQuotes:
			fields = append(fields, strings.TrimSpace(field.String()))
			field.Reset()
		default:
			field.WriteRune(c)
		}
	}

	return append(fields, strings.TrimSpace(field.String()))
}

// delimiterName is the display name of a delimiter.
func delimiterName(d rune) string {
	if d == '\t' {
		return "tab"
	}
	return "comma"
}
