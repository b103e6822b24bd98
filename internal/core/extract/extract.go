// Package extract isolates the encoded timeline payload inside a fetched
// archive-search page.
package extract

import (
	"errors"
	"fmt"
	"strings"
)

const (
	// PayloadLength is the length of the captured chart data for the
	// 1900-2010 timeline.
	PayloadLength = 220

	// The first nine years (1900-1908) and the final year do not belong to a
	// whole decade and are dropped before decoding.
	leadingTrim  = 18
	trailingTrim = 2

	// TrimmedLength is the payload length handed to the decoder.
	TrimmedLength = PayloadLength - leadingTrim - trailingTrim
)

var (
	// ErrNoPayload reports a page without timeline data. It is not a failure.
	ErrNoPayload = errors.New("extract: no timeline payload")

	// ErrShape matches every *ShapeError.
	ErrShape = errors.New("extract: unexpected payload shape")
)

// ShapeError reports a captured payload of the wrong length.
type ShapeError struct {
	Length int
	Want   int
}

func (e *ShapeError) Error() string {
	return fmt.Sprintf("extract: payload length %d, want %d", e.Length, e.Want)
}

func (e *ShapeError) Is(target error) bool {
	return target == ErrShape
}

// Extractor returns the trimmed chart payload from a document.
type Extractor interface {
	Extract(doc []byte) (string, error)
}

// Strategy names accepted by New.
const (
	StrategyPattern = "pattern"
	StrategyHTML    = "html"
)

// New returns the extractor registered under name. An empty name selects the
// pattern strategy.
func New(name string) (Extractor, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", StrategyPattern:
		return Pattern{}, nil
	case StrategyHTML:
		return HTML{}, nil
	default:
		return nil, fmt.Errorf("unsupported extractor: %s", name)
	}
}

func trim(points string) (string, error) {
	if len(points) != PayloadLength {
		return "", &ShapeError{Length: len(points), Want: PayloadLength}
	}
	return points[leadingTrim : len(points)-trailingTrim], nil
}
