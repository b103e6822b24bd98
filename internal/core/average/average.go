// Package average reduces a stream of points into per-window averages.
package average

import (
	"github.com/newsdecades/newsdecades/internal/core/series"
)

// Decade is the window size used for per-year data.
const Decade = 10

// Windows splits dataset into windows of period values and yields
// sum/period for each, truncating toward zero.
//
// A trailing window shorter than period is still divided by period, so its
// average reads low. Callers relying on full windows must size the input to a
// multiple of period.
func Windows(dataset *series.Stream[int], period int) (*series.Stream[int], error) {
	windows, err := series.Chunk(dataset, period)
	if err != nil {
		return nil, err
	}

	return series.Map(windows, func(window []int) int {
		sum := 0
		for _, v := range window {
			sum += v
		}
		return sum / period
	}), nil
}
