package domain

import (
	"math"

	"github.com/gammazero/deque"
)

// windowEntry is a present value admitted to the sliding window, tagged with
// its position so it can be evicted once it falls behind the window start.
type windowEntry struct {
	pos   int
	value float64
}

// Smooth returns a new series where every field in fields is replaced by the
// centered moving average of its present values. The window around position i
// spans [i-k/2, i+k/2], clipped to the series bounds. Positions whose window
// holds no present value get an absent reading.
//
// A window size of 1 or less returns a deep copy of the input. Fields not named
// in fields are copied unchanged. The input series is never modified and must
// be sorted by year with no duplicates.
func Smooth(series Series, fields []FieldName, k int) Series {
	out := series.Clone()
	if k <= 1 || len(series) == 0 {
		return out
	}

	half := k / 2
	for _, f := range fields {
		smoothed := smoothField(series, f, half)
		for i := range out {
			if out[i].Values == nil {
				out[i].Values = make(map[FieldName]Reading, len(fields))
			}
			out[i].Values[f] = smoothed[i]
		}
	}
	return out
}

// smoothField computes the clipped centered mean of field f for every position.
func smoothField(series Series, f FieldName, half int) []Reading {
	n := len(series)
	out := make([]Reading, n)

	var window deque.Deque[windowEntry]
	next := 0
	for i := 0; i < n; i++ {
		hi := min(n-1, i+half)
		for ; next <= hi; next++ {
			if r := series[next].Get(f); r.Present {
				window.PushBack(windowEntry{pos: next, value: r.Value})
			}
		}

		lo := max(0, i-half)
		for window.Len() > 0 && window.Front().pos < lo {
			window.PopFront()
		}

		out[i] = windowMean(&window)
	}
	return out
}

// windowMean averages the window in positional order. Deviations are summed
// relative to the first value so a constant window averages to that exact value.
func windowMean(window *deque.Deque[windowEntry]) Reading {
	count := window.Len()
	if count == 0 {
		return Absent()
	}

	base := window.At(0).value
	var dev float64
	for i := 1; i < count; i++ {
		dev += window.At(i).value - base
	}
	if mean := base + dev/float64(count); !math.IsInf(mean, 0) && !math.IsNaN(mean) {
		return Present(mean)
	}

	// Deviations overflowed; scale each value first so the sum stays finite.
	var mean float64
	for i := 0; i < count; i++ {
		mean += window.At(i).value / float64(count)
	}
	return Present(mean)
}
