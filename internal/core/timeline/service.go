// Package timeline answers a term query: fetch the archive timeline, extract
// and decode the chart payload, and reduce it to decade averages.
package timeline

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/newsdecades/newsdecades/internal/core/average"
	"github.com/newsdecades/newsdecades/internal/core/chartenc"
	"github.com/newsdecades/newsdecades/internal/core/extract"
)

// Response records that are not decade averages.
const (
	ErrorResponse = "-1"
	EmptyResponse = "0,0,0,0,0,0,0,0,0,0"
)

// DecadeLabels names the decade windows of a full response, in order.
var DecadeLabels = []string{
	"1910s", "1920s", "1930s", "1940s", "1950s",
	"1960s", "1970s", "1980s", "1990s", "2000s",
}

// Logger is the subset of the structured logger the service writes to.
type Logger interface {
	Debug(msg string, fields ...zap.Field)
	Warn(msg string, fields ...zap.Field)
	Error(msg string, fields ...zap.Field)
}

// Options configure a Service.
type Options struct {
	// Debug logs fetched payloads at debug level.
	Debug bool

	// CacheTTL is the lifetime of stored responses. Zero selects DefaultCacheTTL.
	CacheTTL time.Duration

	// Period is the averaging window. Zero selects average.Decade.
	Period int

	Logger Logger
}

// Result is the outcome of one query. Body is always a valid response
// record; Err carries the internal cause when Body is ErrorResponse.
type Result struct {
	Term      string
	Body      string
	Err       error
	FromCache bool
	NoData    bool

	// Upstream is the fetched page status, or zero when no fetch happened.
	Upstream      int
	FetchDuration time.Duration
}

// Kind returns the error kind of the result, or "" on success.
func (r Result) Kind() string {
	return Kind(r.Err)
}

// Service orchestrates one query end to end. It holds no per-request state
// and may be shared across requests.
type Service struct {
	fetcher   Fetcher
	cache     Cache
	extractor extract.Extractor
	opts      Options
	debug     atomic.Bool
}

// NewService wires a service. A nil cache disables caching; a nil extractor
// selects the pattern strategy.
func NewService(fetcher Fetcher, cache Cache, extractor extract.Extractor, opts Options) *Service {
	if cache == nil {
		cache = NopCache{}
	}
	if extractor == nil {
		extractor = extract.Pattern{}
	}
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = DefaultCacheTTL
	}
	if opts.Period <= 0 {
		opts.Period = average.Decade
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	s := &Service{fetcher: fetcher, cache: cache, extractor: extractor, opts: opts}
	s.debug.Store(opts.Debug)
	return s
}

// SetDebug toggles payload logging, e.g. after a config reload.
func (s *Service) SetDebug(enabled bool) {
	s.debug.Store(enabled)
}

// Query resolves term to a response record. Cached records short-circuit the
// fetch; failures collapse to ErrorResponse and are never cached.
func (s *Service) Query(ctx context.Context, term string) Result {
	if ctx == nil {
		ctx = context.Background()
	}

	result := Result{Term: term}
	if strings.TrimSpace(term) == "" {
		return s.fail(result, ErrInput)
	}

	body, ok, err := s.cache.Get(ctx, term)
	if err != nil {
		s.opts.Logger.Warn("Timeline cache lookup failed", zap.String("term", term), zap.Error(err))
	} else if ok {
		result.Body = body
		result.FromCache = true
		result.NoData = body == EmptyResponse
		return result
	}

	if s.fetcher == nil {
		return s.fail(result, errors.New("timeline: fetcher is not configured"))
	}

	s.opts.Logger.Debug("Fetching timeline", zap.String("term", term))
	doc, err := s.fetcher.Fetch(ctx, term)
	if err != nil {
		return s.fail(result, &UpstreamError{Err: err})
	}
	result.Upstream = doc.StatusCode
	result.FetchDuration = doc.Duration
	if doc.StatusCode != http.StatusOK {
		return s.fail(result, &UpstreamError{StatusCode: doc.StatusCode, URL: doc.URL})
	}

	body, err = s.reduce(term, doc.Body)
	switch {
	case errors.Is(err, extract.ErrNoPayload):
		result.Body = EmptyResponse
		result.NoData = true
	case err != nil:
		return s.fail(result, err)
	default:
		result.Body = body
	}

	if err := s.cache.Set(ctx, term, result.Body, s.opts.CacheTTL); err != nil {
		s.opts.Logger.Warn("Timeline cache store failed", zap.String("term", term), zap.Error(err))
	}
	return result
}

func (s *Service) reduce(term string, doc []byte) (string, error) {
	points, err := s.extractor.Extract(doc)
	if err != nil {
		return "", err
	}
	if s.debug.Load() {
		s.opts.Logger.Debug("Timeline dataset", zap.String("term", term), zap.String("points", points))
	}

	decoded, err := chartenc.Decode(points)
	if err != nil {
		return "", err
	}
	windows, err := average.Windows(decoded, s.opts.Period)
	if err != nil {
		return "", err
	}

	parts := make([]string, 0, len(points)/2/s.opts.Period+1)
	for avg := range windows.All() {
		parts = append(parts, strconv.Itoa(avg))
	}
	return strings.Join(parts, ","), nil
}

func (s *Service) fail(result Result, err error) Result {
	s.opts.Logger.Error("Timeline query failed",
		zap.String("term", result.Term),
		zap.String("error_kind", Kind(err)),
		zap.Int("upstream_status", result.Upstream),
		zap.Error(err))
	result.Body = ErrorResponse
	result.Err = err
	return result
}

// ParseRecord converts a response record back into its averages. The error
// sentinel yields an error.
func ParseRecord(body string) ([]int, error) {
	body = strings.TrimSpace(body)
	if body == ErrorResponse {
		return nil, errors.New("timeline: error response")
	}
	if body == "" {
		return []int{}, nil
	}

	fields := strings.Split(body, ",")
	values := make([]int, 0, len(fields))
	for i, field := range fields {
		v, err := strconv.Atoi(strings.TrimSpace(field))
		if err != nil {
			return nil, fmt.Errorf("timeline: field %d: %w", i, err)
		}
		values = append(values, v)
	}
	return values, nil
}
