package middleware

import (
	"encoding/json"
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/fulmenhq/gofulmen/errors"
	"go.uber.org/zap"

	"github.com/newsdecades/newsdecades/internal/metrics"
	"github.com/newsdecades/newsdecades/internal/observability"
)

// Recovery turns a handler panic into a 500 INTERNAL_ERROR response. The
// stack trace goes to the server log, never to the client.
//
// The body matches internal/errors.HTTPErrorResponse; that package imports
// this one, so the document is written here directly.
func Recovery(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			recovered := recover()
			if recovered == nil {
				return
			}
			if recovered == http.ErrAbortHandler {
				panic(recovered)
			}

			requestID := GetRequestID(r.Context())
			envelope := errors.NewErrorEnvelope("INTERNAL_ERROR", "internal server error").
				WithCorrelationID(requestID)
			envelope, _ = envelope.WithSeverity(errors.SeverityCritical)

			metrics.RecordPanic()
			if logger := observability.ServerLogger; logger != nil {
				logger.Error("Recovered from handler panic",
					zap.String("panic", fmt.Sprint(recovered)),
					zap.String("severity", string(envelope.Severity)),
					zap.String("request_id", requestID),
					zap.String("stack_trace", string(debug.Stack())))
			}

			writePanicResponse(w, envelope)
		}()

		next.ServeHTTP(w, r)
	})
}

func writePanicResponse(w http.ResponseWriter, envelope *errors.ErrorEnvelope) {
	body := map[string]map[string]string{
		"error": {
			"code":       envelope.Code,
			"message":    envelope.Message,
			"request_id": envelope.CorrelationID,
		},
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusInternalServerError)
	_ = json.NewEncoder(w).Encode(body)
}
