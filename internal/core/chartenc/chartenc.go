// Package chartenc implements the chart "extended encoding": integers in
// [0, 4095] written as two characters of a fixed 64-symbol alphabet.
package chartenc

import (
	"errors"
	"fmt"
	"strings"

	"github.com/newsdecades/newsdecades/internal/core/series"
)

// Alphabet lists the symbols in value order; a symbol's index is its digit value.
const Alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789-."

const (
	base = len(Alphabet)

	// MaxValue is the largest value a character pair can hold.
	MaxValue = base*base - 1
)

// ErrDecode matches every *DecodeError.
var ErrDecode = errors.New("chartenc: invalid payload")

// DecodeError describes why a payload could not be decoded.
type DecodeError struct {
	Reason string
	Char   rune
	Pos    int
}

func (e *DecodeError) Error() string {
	if e.Char != 0 {
		return fmt.Sprintf("chartenc: %s %q at position %d", e.Reason, e.Char, e.Pos)
	}
	return "chartenc: " + e.Reason
}

func (e *DecodeError) Is(target error) bool {
	return target == ErrDecode
}

var digits = func() [256]int8 {
	var table [256]int8
	for i := range table {
		table[i] = -1
	}
	for i := 0; i < len(Alphabet); i++ {
		table[Alphabet[i]] = int8(i)
	}
	return table
}()

// Decode validates datapoints and returns a stream yielding one value per
// character pair, in input order. Odd-length input and characters outside
// the alphabet fail before any value is produced.
func Decode(datapoints string) (*series.Stream[int], error) {
	if len(datapoints)%2 != 0 {
		return nil, &DecodeError{Reason: fmt.Sprintf("odd payload length %d", len(datapoints))}
	}
	for pos, r := range datapoints {
		if r >= 0x80 || digits[r] < 0 {
			return nil, &DecodeError{Reason: "invalid character", Char: r, Pos: pos}
		}
	}

	pairs, err := series.Chunk(series.FromSlice([]byte(datapoints)), 2)
	if err != nil {
		return nil, err
	}

	return series.Map(pairs, func(pair []byte) int {
		return int(digits[pair[0]])*base + int(digits[pair[1]])
	}), nil
}

// Encode writes values in the extended encoding.
func Encode(values []int) (string, error) {
	var b strings.Builder
	b.Grow(len(values) * 2)
	for i, v := range values {
		if v < 0 || v > MaxValue {
			return "", fmt.Errorf("chartenc: value %d at index %d out of range [0, %d]", v, i, MaxValue)
		}
		b.WriteByte(Alphabet[v/base])
		b.WriteByte(Alphabet[v%base])
	}
	return b.String(), nil
}
