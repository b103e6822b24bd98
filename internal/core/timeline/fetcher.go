package timeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// DefaultURLTemplate queries the news archive timeline for 1900-2010. The
// escaped term replaces the %s placeholder.
const DefaultURLTemplate = `http://news.google.com/archivesearch?as_user_ldate=1900&as_user_hdate=2010&scoring=t&q=%22%s%22`

const (
	defaultFetchTimeout = 10 * time.Second
	defaultMaxBodyBytes = 4 << 20
)

// Document is a fetched archive-search page.
type Document struct {
	URL        string
	StatusCode int
	Body       []byte
	Duration   time.Duration
}

// Fetcher retrieves the archive-search page for a term.
type Fetcher interface {
	Fetch(ctx context.Context, term string) (*Document, error)
}

// HTTPFetcher fetches pages over HTTP. The zero value uses DefaultURLTemplate.
type HTTPFetcher struct {
	Client       *http.Client
	URLTemplate  string
	UserAgent    string
	Timeout      time.Duration
	MaxBodyBytes int64
}

// Fetch performs one GET. Non-200 responses are returned as documents, not
// errors; only transport failures produce an error.
func (f *HTTPFetcher) Fetch(ctx context.Context, term string) (*Document, error) {
	if f == nil {
		return nil, errors.New("timeline: fetcher is not configured")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	target := f.URL(term)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("build upstream request: %w", err)
	}
	req.Header.Set("Accept", "text/html")
	if f.UserAgent != "" {
		req.Header.Set("User-Agent", f.UserAgent)
	}

	client := f.Client
	if client == nil {
		timeout := f.Timeout
		if timeout <= 0 {
			timeout = defaultFetchTimeout
		}
		client = &http.Client{Timeout: timeout}
	}

	start := time.Now()
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close() // nolint:errcheck // best-effort cleanup on HTTP response body

	limit := f.MaxBodyBytes
	if limit <= 0 {
		limit = defaultMaxBodyBytes
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, limit))
	if err != nil {
		return nil, fmt.Errorf("read upstream body: %w", err)
	}

	return &Document{
		URL:        target,
		StatusCode: resp.StatusCode,
		Body:       body,
		Duration:   time.Since(start),
	}, nil
}

// URL renders the request URL for term.
func (f *HTTPFetcher) URL(term string) string {
	tmpl := DefaultURLTemplate
	if f != nil && strings.TrimSpace(f.URLTemplate) != "" {
		tmpl = f.URLTemplate
	}
	return strings.Replace(tmpl, "%s", escapeTerm(term), 1)
}

// escapeTerm percent-encodes term for the query string, spaces as %20.
func escapeTerm(term string) string {
	return strings.ReplaceAll(url.QueryEscape(term), "+", "%20")
}
