package ai

import "math"

// NormalizeVector scales v to unit length so that a dot product is a cosine
// similarity. It returns a new slice; a zero vector stays zero.
func NormalizeVector(v []float32) []float32 {
	if len(v) == 0 {
		return v
	}

	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	result := make([]float32, len(v))
	if sum == 0 {
		return result
	}

	magnitude := math.Sqrt(sum)
	for i, x := range v {
		result[i] = float32(float64(x) / magnitude)
	}
	return result
}

// NormalizeVectors normalizes every vector in place.
func NormalizeVectors(vs [][]float32) {
	for i := range vs {
		vs[i] = NormalizeVector(vs[i])
	}
}
