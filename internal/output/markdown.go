package output

import (
	"fmt"
	"strings"
)

// MarkdownFormatter renders results as a markdown table.
type MarkdownFormatter struct{}

// FormatTimeline renders a timeline as Markdown.
func (f *MarkdownFormatter) FormatTimeline(t *Timeline) (string, error) {
	if t == nil {
		return "", nil
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("## %s timeline\n\n", escapeMarkdownCell(t.Term)))
	sb.WriteString("| Decade | Average |\n")
	sb.WriteString("|--------|---------|\n")

	for _, d := range t.Decades {
		sb.WriteString(fmt.Sprintf("| %s | %d |\n", escapeMarkdownCell(d.Label), d.Average))
	}

	sb.WriteString(fmt.Sprintf("\n**Source**: %s\n", sourceLabel(t)))
	return sb.String(), nil
}

func escapeMarkdownCell(value string) string {
	return strings.ReplaceAll(value, "|", "\\|")
}
