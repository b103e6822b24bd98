package handlers

import (
	"context"
	"net/http"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/newsdecades/newsdecades/internal/core/timeline"
	"github.com/newsdecades/newsdecades/internal/metrics"
	"github.com/newsdecades/newsdecades/internal/observability"
)

// QueryParam is the request parameter that carries the search term.
const QueryParam = "q"

// Querier resolves a term to a response record.
type Querier interface {
	Query(ctx context.Context, term string) timeline.Result
}

// TimelineHandler serves decade timelines as plain-text response records.
// Every outcome, including failures, is reported in the body with status 200.
type TimelineHandler struct {
	querier Querier
	debug   atomic.Bool
}

// NewTimelineHandler creates a handler backed by querier.
func NewTimelineHandler(querier Querier, debug bool) *TimelineHandler {
	h := &TimelineHandler{querier: querier}
	h.debug.Store(debug)
	return h
}

// SetDebug toggles debug mode. In debug mode the Content-Type header is left
// for net/http to sniff.
func (h *TimelineHandler) SetDebug(enabled bool) {
	h.debug.Store(enabled)
}

// Debug reports whether debug mode is on.
func (h *TimelineHandler) Debug() bool {
	return h.debug.Load()
}

func (h *TimelineHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	term := r.URL.Query().Get(QueryParam)
	result := h.querier.Query(r.Context(), term)

	recordResult(result)
	if observability.ServerLogger != nil {
		observability.ServerLogger.Debug("Timeline query served",
			zap.String("term", term),
			zap.String("body", result.Body),
			zap.Bool("from_cache", result.FromCache),
			zap.String("error_kind", result.Kind()))
	}

	if !h.debug.Load() {
		w.Header().Set("Content-Type", "text/plain")
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(result.Body))
}

func recordResult(result timeline.Result) {
	outcome := result.Kind()
	if outcome == "" {
		outcome = metrics.OutcomeOK
		if result.NoData {
			outcome = metrics.OutcomeNoData
		}
	}
	metrics.RecordQuery(outcome)

	// Blank terms never reach the cache.
	if outcome == timeline.KindInput {
		return
	}
	metrics.RecordCache(result.FromCache)

	if !result.FromCache && outcome != timeline.KindInternal {
		metrics.RecordUpstreamFetch(result.Upstream, result.FetchDuration)
	}
}
