package errors

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"net/http"
	"net/http/httptest"
	"testing"

	gferrors "github.com/fulmenhq/gofulmen/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/newsdecades/newsdecades/internal/server/middleware"
)

func TestHTTPStatusFromCode(t *testing.T) {
	cases := map[string]int{
		"NOT_FOUND":              http.StatusNotFound,
		"METHOD_NOT_ALLOWED":     http.StatusMethodNotAllowed,
		"EXTERNAL_SERVICE_ERROR": http.StatusBadGateway,
		"SERVICE_UNAVAILABLE":    http.StatusServiceUnavailable,
		"CONFIG_INVALID":         http.StatusInternalServerError,
		"DATABASE_ERROR":         http.StatusInternalServerError,
	}
	for code, want := range cases {
		assert.Equal(t, want, HTTPStatusFromCode(code), code)
	}
	assert.Equal(t, http.StatusInternalServerError, HTTPStatusFromEnvelope(nil))
}

func TestWrapCarriesRequestID(t *testing.T) {
	ctx := middleware.WithRequestID(context.Background(), "req-123")

	envelope := WrapDatabaseError(ctx, stderrors.New("disk full"), "cache store unavailable")
	assert.Equal(t, "DATABASE_ERROR", envelope.Code)
	assert.Equal(t, "req-123", envelope.CorrelationID)
	assert.Equal(t, "disk full", envelope.Context["wrapped_error"])

	envelope = WrapConfigInvalid(context.Background(), stderrors.New("bad ttl"), "config rejected")
	assert.Equal(t, "CONFIG_INVALID", envelope.Code)
	assert.NotEmpty(t, envelope.CorrelationID)
}

func TestEnsureEnvelope(t *testing.T) {
	envelope := EnsureEnvelope(stderrors.New("boom"))
	assert.Equal(t, "INTERNAL_ERROR", envelope.Code)
	assert.Equal(t, "boom", envelope.Context["wrapped_error"])

	original := NewNotFoundError("missing")
	assert.Same(t, original, EnsureEnvelope(original))

	assert.Equal(t, "INTERNAL_ERROR", EnsureEnvelope(nil).Code)

	var typedNil *gferrors.ErrorEnvelope
	assert.Equal(t, "INTERNAL_ERROR", EnsureEnvelope(typedNil).Code)
}

func TestResponseDetailsPrefersDetails(t *testing.T) {
	assert.Nil(t, ResponseDetails(nil))
	assert.Nil(t, ResponseDetails(NewNotFoundError("missing")))

	envelope := NewServiceUnavailableError("probe failed").WithDetails(map[string]interface{}{"status": "unhealthy"})
	envelope, err := envelope.WithContext(map[string]interface{}{"status": "ignored", "probe": "ready"})
	require.NoError(t, err)

	details := ResponseDetails(envelope)
	assert.Equal(t, "unhealthy", details["status"])
	assert.Equal(t, "ready", details["probe"])
}

func TestRespondWithError(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/missing", nil)
	req = req.WithContext(middleware.WithRequestID(req.Context(), "req-456"))
	rec := httptest.NewRecorder()

	RespondWithError(rec, req, NewNotFoundError("The requested resource was not found"))

	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var body HTTPErrorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, "NOT_FOUND", body.Error.Code)
	assert.Equal(t, "req-456", body.Error.RequestID)
}

func TestRespondWithErrorWrapsForeignErrors(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()

	RespondWithError(rec, req, stderrors.New("boom"))

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	var body HTTPErrorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, CodeInternal, body.Error.Code)
	assert.NotEmpty(t, body.Error.RequestID)
	assert.Equal(t, "boom", body.Error.Details["wrapped_error"])
}
