// Package series provides the single-pass, pull-based sequence type that the
// decode and averaging stages are composed from.
package series

import (
	"errors"
	"iter"
)

// ErrInvalidSize is returned when a chunk size or period is not positive.
var ErrInvalidSize = errors.New("series: size must be positive")

// Stream is a finite, single-pass sequence. Values are produced on demand by
// Next; once the stream reports exhaustion it stays exhausted.
type Stream[T any] struct {
	next func() (T, bool)
	done bool
}

// New wraps a pull function. The function is not called again after it
// reports false.
func New[T any](next func() (T, bool)) *Stream[T] {
	return &Stream[T]{next: next}
}

// FromSlice streams the elements of s in order. The slice is not copied.
func FromSlice[T any](s []T) *Stream[T] {
	i := 0
	return New(func() (T, bool) {
		if i >= len(s) {
			var zero T
			return zero, false
		}
		v := s[i]
		i++
		return v, true
	})
}

// Map returns a stream that applies fn to every value of src.
func Map[T, U any](src *Stream[T], fn func(T) U) *Stream[U] {
	return New(func() (U, bool) {
		v, ok := src.Next()
		if !ok {
			var zero U
			return zero, false
		}
		return fn(v), true
	})
}

// Next returns the next value, or false when the stream is exhausted.
func (s *Stream[T]) Next() (T, bool) {
	var zero T
	if s == nil || s.done || s.next == nil {
		return zero, false
	}
	v, ok := s.next()
	if !ok {
		s.done = true
		s.next = nil
		return zero, false
	}
	return v, true
}

// All drains the stream through a range-over-func iterator. Breaking out of
// the loop leaves the remaining values in the stream.
//
//	for v := range s.All() {
//	    ...
//	}
func (s *Stream[T]) All() iter.Seq[T] {
	return func(yield func(T) bool) {
		for {
			v, ok := s.Next()
			if !ok || !yield(v) {
				return
			}
		}
	}
}

// Collect drains the remaining values into a slice. It never returns nil.
func (s *Stream[T]) Collect() []T {
	out := []T{}
	for v := range s.All() {
		out = append(out, v)
	}
	return out
}

// Chunk groups src into slices of length size. The last chunk holds the
// remainder and is omitted when the remainder is zero. Each chunk is a fresh
// slice owned by the caller.
func Chunk[T any](src *Stream[T], size int) (*Stream[[]T], error) {
	if size <= 0 {
		return nil, ErrInvalidSize
	}

	return New(func() ([]T, bool) {
		chunk := make([]T, 0, size)
		for len(chunk) < size {
			v, ok := src.Next()
			if !ok {
				break
			}
			chunk = append(chunk, v)
		}
		if len(chunk) == 0 {
			return nil, false
		}
		return chunk, true
	}), nil
}
