package timeline

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/newsdecades/newsdecades/internal/core/chartenc"
	"github.com/newsdecades/newsdecades/internal/core/extract"
)

func timelinePage(points string) string {
	return fmt.Sprintf(`<html><head><style>#timelinemain{width:100%%}</style></head>
<body><div id="timelinemain"><img src="http://chart.apis.google.com/chart?cht=lc&amp;chd=e:%s&amp;chs=600x80"></div></body></html>`, points)
}

type upstream struct {
	server *httptest.Server
	hits   atomic.Int32
	terms  chan string
}

func newUpstream(t *testing.T, status int, body string) *upstream {
	t.Helper()
	u := &upstream{terms: make(chan string, 16)}
	u.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u.hits.Add(1)
		u.terms <- r.URL.Query().Get("q")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(u.server.Close)
	return u
}

func (u *upstream) fetcher() *HTTPFetcher {
	return &HTTPFetcher{
		Client:      u.server.Client(),
		URLTemplate: u.server.URL + "/archivesearch?scoring=t&q=%22%s%22",
	}
}

func TestQueryAllZeroPayload(t *testing.T) {
	up := newUpstream(t, http.StatusOK, timelinePage(strings.Repeat("AA", 110)))
	svc := NewService(up.fetcher(), nil, nil, Options{})

	result := svc.Query(context.Background(), "foo")
	require.NoError(t, result.Err)
	require.Equal(t, "0,0,0,0,0,0,0,0,0,0", result.Body)
	require.False(t, result.FromCache)
	require.Equal(t, http.StatusOK, result.Upstream)
	require.Equal(t, `"foo"`, <-up.terms)
}

func TestQueryDecadeAverages(t *testing.T) {
	values := make([]int, 110)
	for i := range values {
		values[i] = i * 3
	}
	payload, err := chartenc.Encode(values)
	require.NoError(t, err)

	up := newUpstream(t, http.StatusOK, timelinePage(payload))
	svc := NewService(up.fetcher(), nil, nil, Options{})

	result := svc.Query(context.Background(), "foo")
	require.NoError(t, result.Err)
	// Points 9..108 tripled, averaged per decade: 3*(9+18)/2 = 40.5 -> 40.
	require.Equal(t, "40,70,100,130,160,190,220,250,280,310", result.Body)

	averages, err := ParseRecord(result.Body)
	require.NoError(t, err)
	require.Len(t, averages, len(DecadeLabels))
}

func TestQueryUpstreamNotFound(t *testing.T) {
	up := newUpstream(t, http.StatusNotFound, "missing")
	cache := NewMemoryCache(8, time.Hour)
	svc := NewService(up.fetcher(), cache, nil, Options{})

	result := svc.Query(context.Background(), "foo")
	require.Equal(t, ErrorResponse, result.Body)
	require.ErrorIs(t, result.Err, ErrUpstream)
	require.Equal(t, KindUpstream, result.Kind())

	var upErr *UpstreamError
	require.ErrorAs(t, result.Err, &upErr)
	require.Equal(t, http.StatusNotFound, upErr.StatusCode)

	// Failures are not cached.
	require.Zero(t, cache.Len())
}

func TestQueryTransportFailure(t *testing.T) {
	up := newUpstream(t, http.StatusOK, "")
	fetcher := up.fetcher()
	up.server.Close()

	result := NewService(fetcher, nil, nil, Options{}).Query(context.Background(), "foo")
	require.Equal(t, ErrorResponse, result.Body)
	require.ErrorIs(t, result.Err, ErrUpstream)
}

func TestQueryEmptyTermSkipsFetch(t *testing.T) {
	up := newUpstream(t, http.StatusOK, timelinePage(strings.Repeat("AA", 110)))
	svc := NewService(up.fetcher(), nil, nil, Options{})

	for _, term := range []string{"", "   "} {
		result := svc.Query(context.Background(), term)
		require.Equal(t, ErrorResponse, result.Body)
		require.ErrorIs(t, result.Err, ErrInput)
	}
	require.Zero(t, up.hits.Load())
}

func TestQueryNoPayloadReturnsEmptySentinel(t *testing.T) {
	up := newUpstream(t, http.StatusOK, "<html><body>no results</body></html>")
	cache := NewMemoryCache(8, time.Hour)
	svc := NewService(up.fetcher(), cache, nil, Options{})

	result := svc.Query(context.Background(), "foo")
	require.NoError(t, result.Err)
	require.True(t, result.NoData)
	require.Equal(t, EmptyResponse, result.Body)

	cached, ok, err := cache.Get(context.Background(), "foo")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, EmptyResponse, cached)
}

func TestQueryMalformedPayload(t *testing.T) {
	t.Run("Shape", func(t *testing.T) {
		up := newUpstream(t, http.StatusOK, timelinePage(strings.Repeat("AA", 50)))
		result := NewService(up.fetcher(), nil, nil, Options{}).Query(context.Background(), "foo")
		require.Equal(t, ErrorResponse, result.Body)
		require.Equal(t, KindShape, result.Kind())
	})

	t.Run("Decode", func(t *testing.T) {
		bad := strings.Repeat("AA", 50) + "A!" + strings.Repeat("AA", 59)
		up := newUpstream(t, http.StatusOK, timelinePage(bad))
		result := NewService(up.fetcher(), nil, nil, Options{}).Query(context.Background(), "foo")
		require.Equal(t, ErrorResponse, result.Body)
		require.Equal(t, KindDecode, result.Kind())
	})
}

func TestQueryCachedWithinTTL(t *testing.T) {
	up := newUpstream(t, http.StatusOK, timelinePage(strings.Repeat("AB", 110)))
	svc := NewService(up.fetcher(), NewMemoryCache(8, DefaultCacheTTL), nil, Options{})

	first := svc.Query(context.Background(), "foo")
	second := svc.Query(context.Background(), "foo")

	require.NoError(t, first.Err)
	require.Equal(t, first.Body, second.Body)
	require.False(t, first.FromCache)
	require.True(t, second.FromCache)
	require.EqualValues(t, 1, up.hits.Load())
}

func TestQueryHTMLExtractor(t *testing.T) {
	up := newUpstream(t, http.StatusOK, timelinePage(strings.Repeat("AA", 110)))
	svc := NewService(up.fetcher(), nil, extract.HTML{}, Options{Debug: true})

	result := svc.Query(context.Background(), "foo")
	require.NoError(t, result.Err)
	require.Equal(t, EmptyResponse, result.Body)
}

type failingCache struct{}

func (failingCache) Get(context.Context, string) (string, bool, error) {
	return "", false, errors.New("cache down")
}

func (failingCache) Set(context.Context, string, string, time.Duration) error {
	return errors.New("cache down")
}

func TestQueryCacheErrorsAreNotFatal(t *testing.T) {
	up := newUpstream(t, http.StatusOK, timelinePage(strings.Repeat("AA", 110)))
	result := NewService(up.fetcher(), failingCache{}, nil, Options{}).Query(context.Background(), "foo")
	require.NoError(t, result.Err)
	require.Equal(t, EmptyResponse, result.Body)
}

func TestMemoryCacheExpiry(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	cache := NewMemoryCache(0, DefaultCacheTTL)
	cache.clock = func() time.Time { return now }

	require.NoError(t, cache.Set(context.Background(), "foo", "1,2", time.Minute))

	body, ok, err := cache.Get(context.Background(), "foo")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "1,2", body)

	now = now.Add(time.Minute)
	_, ok, err = cache.Get(context.Background(), "foo")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestFetcherURL(t *testing.T) {
	f := &HTTPFetcher{}
	assert.Equal(t,
		`http://news.google.com/archivesearch?as_user_ldate=1900&as_user_hdate=2010&scoring=t&q=%22new%20deal%26co%22`,
		f.URL("new deal&co"))
}

func TestKind(t *testing.T) {
	assert.Equal(t, "", Kind(nil))
	assert.Equal(t, KindInput, Kind(ErrInput))
	assert.Equal(t, KindUpstream, Kind(fmt.Errorf("wrap: %w", &UpstreamError{StatusCode: 500})))
	assert.Equal(t, KindShape, Kind(&extract.ShapeError{Length: 1, Want: 220}))
	assert.Equal(t, KindDecode, Kind(&chartenc.DecodeError{Reason: "x"}))
	assert.Equal(t, KindInternal, Kind(errors.New("boom")))
}

func TestParseRecord(t *testing.T) {
	values, err := ParseRecord(EmptyResponse)
	require.NoError(t, err)
	require.Equal(t, make([]int, 10), values)

	_, err = ParseRecord(ErrorResponse)
	require.Error(t, err)

	_, err = ParseRecord("1,x")
	require.Error(t, err)
}

func TestSetDebugTogglesPayloadLogging(t *testing.T) {
	up := newUpstream(t, http.StatusOK, timelinePage(strings.Repeat("AA", 110)))
	core, logs := observer.New(zap.DebugLevel)
	svc := NewService(up.fetcher(), nil, nil, Options{Logger: zap.New(core)})

	svc.Query(context.Background(), "foo")
	assert.Zero(t, logs.FilterMessage("Timeline dataset").Len())

	svc.SetDebug(true)
	svc.Query(context.Background(), "bar")
	assert.Equal(t, 1, logs.FilterMessage("Timeline dataset").Len())

	svc.SetDebug(false)
	svc.Query(context.Background(), "baz")
	assert.Equal(t, 1, logs.FilterMessage("Timeline dataset").Len())
}
