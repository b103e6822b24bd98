// Package output renders timeline results for the CLI.
package output

import (
	"fmt"
	"strings"

	"github.com/newsdecades/newsdecades/internal/core/timeline"
)

// Format represents an output format.
type Format string

const (
	FormatText     Format = "text"
	FormatTable    Format = "table"
	FormatJSON     Format = "json"
	FormatYAML     Format = "yaml"
	FormatMarkdown Format = "markdown"
	FormatBars     Format = "bars"
)

// Formatter renders a timeline.
type Formatter interface {
	FormatTimeline(t *Timeline) (string, error)
}

// Decade is one averaged window of a timeline.
type Decade struct {
	Label   string `json:"label" yaml:"label"`
	Average int    `json:"average" yaml:"average"`
}

// Timeline is the presentation form of a query result.
type Timeline struct {
	Term      string   `json:"term" yaml:"term"`
	Record    string   `json:"record" yaml:"record"`
	Decades   []Decade `json:"decades,omitempty" yaml:"decades,omitempty"`
	NoData    bool     `json:"no_data,omitempty" yaml:"no_data,omitempty"`
	FromCache bool     `json:"from_cache" yaml:"from_cache"`
	ErrorKind string   `json:"error_kind,omitempty" yaml:"error_kind,omitempty"`
	Error     string   `json:"error,omitempty" yaml:"error,omitempty"`
}

// FromResult converts a query result. Windows are labelled by decade when the
// record has one value per decade, otherwise by position.
func FromResult(result timeline.Result) *Timeline {
	t := &Timeline{
		Term:      result.Term,
		Record:    result.Body,
		NoData:    result.NoData,
		FromCache: result.FromCache,
		ErrorKind: result.Kind(),
	}
	if result.Err != nil {
		t.Error = result.Err.Error()
		return t
	}

	values, err := timeline.ParseRecord(result.Body)
	if err != nil {
		t.ErrorKind = timeline.KindInternal
		t.Error = err.Error()
		return t
	}
	t.Decades = make([]Decade, len(values))
	for i, v := range values {
		t.Decades[i] = Decade{Label: windowLabel(i, len(values)), Average: v}
	}
	return t
}

func windowLabel(i, n int) string {
	if n == len(timeline.DecadeLabels) {
		return timeline.DecadeLabels[i]
	}
	return fmt.Sprintf("#%d", i+1)
}

// ParseFormat validates and normalizes a format string. An empty value
// yields "" so the caller can pick a default with Resolve.
func ParseFormat(value string) (Format, error) {
	normalized := Format(strings.ToLower(strings.TrimSpace(value)))
	switch normalized {
	case "", FormatText, FormatTable, FormatJSON, FormatYAML, FormatMarkdown, FormatBars:
		return normalized, nil
	default:
		return "", fmt.Errorf("unsupported output format: %s", value)
	}
}

// Resolve picks the table format for terminals and the raw record otherwise,
// unless a format was requested explicitly.
func Resolve(format Format, interactive bool) Format {
	if format != "" {
		return format
	}
	if interactive {
		return FormatTable
	}
	return FormatText
}

// NewFormatter returns a formatter for the requested format.
func NewFormatter(format Format) Formatter {
	switch format {
	case FormatTable:
		return &TableFormatter{}
	case FormatJSON:
		return &JSONFormatter{Indent: true}
	case FormatYAML:
		return &YAMLFormatter{}
	case FormatMarkdown:
		return &MarkdownFormatter{}
	case FormatBars:
		return &BarsFormatter{}
	default:
		return &TextFormatter{}
	}
}

// TextFormatter prints the raw response record, as served over HTTP.
type TextFormatter struct{}

// FormatTimeline renders the record.
func (f *TextFormatter) FormatTimeline(t *Timeline) (string, error) {
	if t == nil {
		return "", nil
	}
	return t.Record, nil
}

func sourceLabel(t *Timeline) string {
	switch {
	case t.ErrorKind != "":
		return "error: " + t.ErrorKind
	case t.NoData:
		return "no data"
	case t.FromCache:
		return "cached"
	default:
		return "fetched"
	}
}
