package mcprice

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// ReduceMean returns the mean of values[:w], accumulated in float64.
// Elements past w are ignored.
func ReduceMean(values []float32, w int) (float64, error) {
	if w <= 0 {
		return 0, ErrZeroWorkgroup
	}
	if len(values) < w {
		return 0, ErrShortBuffer
	}

	var sum float64
	for _, v := range values[:w] {
		sum += float64(v)
	}
	return sum / float64(w), nil
}

// Summary describes the spread of per-lane estimates.
type Summary struct {
	Lanes  int
	Mean   float64
	StdDev float64
	StdErr float64
	Min    float64
	Max    float64
}

// Summarize computes lane statistics. StdDev and StdErr are zero for fewer
// than two lanes.
func Summarize(values []float32) Summary {
	if len(values) == 0 {
		return Summary{}
	}

	xs := make([]float64, len(values))
	s := Summary{Lanes: len(values), Min: math.Inf(1), Max: math.Inf(-1)}
	for i, v := range values {
		x := float64(v)
		xs[i] = x
		s.Min = math.Min(s.Min, x)
		s.Max = math.Max(s.Max, x)
	}

	if len(xs) < 2 {
		s.Mean = xs[0]
		return s
	}

	s.Mean, s.StdDev = stat.MeanStdDev(xs, nil)
	s.StdErr = stat.StdErr(s.StdDev, float64(len(xs)))
	return s
}
