package output

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-runewidth"
	"golang.org/x/term"
)

const (
	terminalWidthBackup = 80
	minBarWidth         = 10
	barRune             = "█"
)

// BarsFormatter renders a horizontal bar per decade, scaled so the largest
// average fills Width columns. A zero Width uses the terminal width.
type BarsFormatter struct {
	Width int
}

// FormatTimeline renders a timeline as bars.
func (f *BarsFormatter) FormatTimeline(t *Timeline) (string, error) {
	if t == nil {
		return "", nil
	}
	if len(t.Decades) == 0 {
		return fmt.Sprintf("%s: %s (%s)", t.Term, t.Record, sourceLabel(t)), nil
	}

	labelWidth, valueWidth, maxValue := 0, 0, 0
	for _, d := range t.Decades {
		labelWidth = max(labelWidth, runewidth.StringWidth(d.Label))
		valueWidth = max(valueWidth, len(fmt.Sprint(d.Average)))
		maxValue = max(maxValue, d.Average)
	}

	total := f.Width
	if total <= 0 {
		total = terminalWidth()
	}
	// "label │ bar value"
	barWidth := max(total-labelWidth-valueWidth-4, minBarWidth)

	var sb strings.Builder
	for _, d := range t.Decades {
		n := 0
		if maxValue > 0 {
			n = d.Average * barWidth / maxValue
		}
		sb.WriteString(fmt.Sprintf("%s │ %s %d\n", runewidth.FillRight(d.Label, labelWidth), strings.Repeat(barRune, n), d.Average))
	}
	return strings.TrimSuffix(sb.String(), "\n"), nil
}

func terminalWidth() int {
	width, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || width <= 0 {
		return terminalWidthBackup
	}
	return width
}

// IsTerminal reports whether w is an interactive terminal.
func IsTerminal(w io.Writer) bool {
	file, ok := w.(*os.File)
	if !ok {
		return false
	}
	return term.IsTerminal(int(file.Fd()))
}
