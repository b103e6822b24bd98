package average

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/newsdecades/newsdecades/internal/core/chartenc"
	"github.com/newsdecades/newsdecades/internal/core/series"
)

func averages(t *testing.T, values []int, period int) []int {
	t.Helper()
	s, err := Windows(series.FromSlice(values), period)
	require.NoError(t, err)
	return s.Collect()
}

func TestWindowsTruncatingMean(t *testing.T) {
	require.Equal(t, []int{4}, averages(t, []int{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}, 10))
}

// The short final window is divided by the full period, not by its length.
func TestWindowsShortTailDividedByPeriod(t *testing.T) {
	require.Equal(t, []int{15, 15}, averages(t, []int{10, 20, 30}, 2))
	require.Equal(t, []int{2, 5, 2}, averages(t, []int{1, 2, 3, 4, 5, 6, 7}, 3))
}

func TestWindowsEmpty(t *testing.T) {
	require.Empty(t, averages(t, nil, Decade))
}

func TestWindowsInvalidPeriod(t *testing.T) {
	_, err := Windows(series.FromSlice([]int{1}), 0)
	require.ErrorIs(t, err, series.ErrInvalidSize)
}

func TestWindowsOverDecodedPayload(t *testing.T) {
	values := make([]int, 100)
	for i := range values {
		values[i] = i
	}
	payload, err := chartenc.Encode(values)
	require.NoError(t, err)

	points, err := chartenc.Decode(payload)
	require.NoError(t, err)

	decades, err := Windows(points, Decade)
	require.NoError(t, err)
	require.Equal(t, []int{4, 14, 24, 34, 44, 54, 64, 74, 84, 94}, decades.Collect())
}
