// Package distance provides the vector similarity math used by the local
// document stores. The hosted store computes similarity server-side; these
// helpers keep the local stores on the same cosine metric.
package distance

import "math"

// Dot calculates the dot product of two vectors.
// Assumes vectors are the same length (caller's responsibility).
func Dot(a, b []float32) float64 {
	var sum float64
	for i := range a {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}

// Cosine returns the cosine similarity of a and b in [-1,1].
// Returns 0 when either vector has zero norm or lengths differ.
func Cosine(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	dot := Dot(a, b)
	na := math.Sqrt(Dot(a, a))
	nb := math.Sqrt(Dot(b, b))
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (na * nb)
}

// NormalizeL2InPlace L2-normalises v in place.
// Returns false if v has zero L2 norm.
func NormalizeL2InPlace(v []float32) bool {
	if len(v) == 0 {
		return false
	}
	norm := math.Sqrt(Dot(v, v))
	if norm == 0 {
		return false
	}
	inv := float32(1 / norm)
	for i := range v {
		v[i] *= inv
	}
	return true
}
