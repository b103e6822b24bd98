package output

import (
	"encoding/json"

	"gopkg.in/yaml.v3"
)

// JSONFormatter renders a timeline as one JSON document, indented when
// Indent is set.
type JSONFormatter struct {
	Indent bool
}

// FormatTimeline implements Formatter.
func (f *JSONFormatter) FormatTimeline(t *Timeline) (string, error) {
	if t == nil {
		return "", nil
	}
	marshal := json.Marshal
	if f.Indent {
		marshal = func(v any) ([]byte, error) { return json.MarshalIndent(v, "", "  ") }
	}
	data, err := marshal(t)
	return string(data), err
}

// YAMLFormatter renders a timeline as YAML, keyed by the same field names as
// the JSON output.
type YAMLFormatter struct{}

// FormatTimeline implements Formatter.
func (f *YAMLFormatter) FormatTimeline(t *Timeline) (string, error) {
	if t == nil {
		return "", nil
	}
	data, err := yaml.Marshal(t)
	return string(data), err
}
