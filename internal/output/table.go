package output

import (
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

// TableFormatter renders results as an ASCII table.
type TableFormatter struct{}

// FormatTimeline renders one row per decade.
func (f *TableFormatter) FormatTimeline(t *Timeline) (string, error) {
	if t == nil {
		return "", nil
	}

	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	// Footers are upper-cased by default; the source label is shown verbatim.
	tw.Style().Format.Footer = text.FormatDefault
	tw.SetTitle(t.Term)
	tw.AppendHeader(table.Row{"Decade", "Average"})

	for _, d := range t.Decades {
		tw.AppendRow(table.Row{d.Label, d.Average})
	}
	if len(t.Decades) == 0 {
		tw.AppendRow(table.Row{"-", t.Record})
	}

	tw.AppendFooter(table.Row{"", sourceLabel(t)})
	return tw.Render(), nil
}
