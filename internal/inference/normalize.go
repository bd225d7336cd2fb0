package inference

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// L2Normalize returns v scaled to unit Euclidean length. The second result is
// false when v is empty, has zero norm, or contains non-finite values.
func L2Normalize(v []float32) ([]float32, bool) {
	if len(v) == 0 {
		return nil, false
	}
	wide := make([]float64, len(v))
	for i, x := range v {
		wide[i] = float64(x)
	}
	norm := floats.Norm(wide, 2)
	if norm == 0 || math.IsNaN(norm) || math.IsInf(norm, 0) {
		return nil, false
	}
	floats.Scale(1/norm, wide)
	out := make([]float32, len(v))
	for i, x := range wide {
		out[i] = float32(x)
	}
	return out, true
}
