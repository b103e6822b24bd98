package extract

import "regexp"

var timelinePattern = regexp.MustCompile(`#timelinemain[^#]*chd=e:(?P<points>[^&]+)&`)

var pointsIndex = timelinePattern.SubexpIndex("points")

// Pattern finds the payload with a regular expression over the raw page. It
// is the fastest strategy and does not need well-formed markup.
type Pattern struct{}

// Extract implements Extractor.
func (Pattern) Extract(doc []byte) (string, error) {
	match := timelinePattern.FindSubmatch(doc)
	if match == nil {
		return "", ErrNoPayload
	}
	return trim(string(match[pointsIndex]))
}
