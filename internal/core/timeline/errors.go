package timeline

import (
	"errors"
	"fmt"

	"github.com/newsdecades/newsdecades/internal/core/chartenc"
	"github.com/newsdecades/newsdecades/internal/core/extract"
)

var (
	// ErrInput reports a missing or blank query term.
	ErrInput = errors.New("timeline: query term is required")

	// ErrUpstream matches every *UpstreamError.
	ErrUpstream = errors.New("timeline: upstream request failed")
)

// UpstreamError describes a failed archive-search fetch. StatusCode is zero
// when no response was received.
type UpstreamError struct {
	StatusCode int
	URL        string
	Err        error
}

func (e *UpstreamError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("timeline: upstream returned status %d", e.StatusCode)
	}
	if e.Err != nil {
		return "timeline: upstream request failed: " + e.Err.Error()
	}
	return ErrUpstream.Error()
}

func (e *UpstreamError) Is(target error) bool {
	return target == ErrUpstream
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}

// Error kinds used in logs and metrics labels.
const (
	KindInput    = "input"
	KindUpstream = "upstream"
	KindShape    = "shape"
	KindDecode   = "decode"
	KindInternal = "internal"
)

// Kind classifies err into one of the Kind constants. It returns "" for nil.
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrInput):
		return KindInput
	case errors.Is(err, ErrUpstream):
		return KindUpstream
	case errors.Is(err, extract.ErrShape):
		return KindShape
	case errors.Is(err, chartenc.ErrDecode):
		return KindDecode
	default:
		return KindInternal
	}
}
