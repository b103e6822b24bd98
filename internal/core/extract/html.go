package extract

import (
	"bytes"
	"fmt"
	"strings"

	"golang.org/x/net/html"
)

const (
	timelineID   = "timelinemain"
	chartDataKey = "chd=e:"
)

// HTML parses the page and reads the chart URL from an attribute inside the
// element whose id is "timelinemain".
type HTML struct{}

// Extract implements Extractor.
func (HTML) Extract(doc []byte) (string, error) {
	root, err := html.Parse(bytes.NewReader(doc))
	if err != nil {
		return "", fmt.Errorf("extract: parse html: %w", err)
	}

	container := findByID(root, timelineID)
	if container == nil {
		return "", ErrNoPayload
	}

	points, ok := findChartData(container)
	if !ok {
		return "", ErrNoPayload
	}
	return trim(points)
}

func findByID(n *html.Node, id string) *html.Node {
	if n.Type == html.ElementNode {
		for _, attr := range n.Attr {
			if attr.Key == "id" && attr.Val == id {
				return n
			}
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findByID(c, id); found != nil {
			return found
		}
	}
	return nil
}

// findChartData returns the first chd=e: value, depth first, that is
// terminated by another query parameter.
func findChartData(n *html.Node) (string, bool) {
	if n.Type == html.ElementNode {
		for _, attr := range n.Attr {
			_, rest, found := strings.Cut(attr.Val, chartDataKey)
			if !found {
				continue
			}
			points, _, terminated := strings.Cut(rest, "&")
			if terminated && points != "" {
				return points, true
			}
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if points, ok := findChartData(c); ok {
			return points, true
		}
	}
	return "", false
}
