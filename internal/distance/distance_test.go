package distance

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDot(t *testing.T) {
	assert.InDelta(t, 32, Dot([]float32{1, 2, 3}, []float32{4, 5, 6}), 1e-6)
	assert.InDelta(t, 0, Dot(nil, nil), 1e-6)
}

func TestCosine_Identical(t *testing.T) {
	v := []float32{0.3, 0.4, 0.5}
	assert.InDelta(t, 1.0, Cosine(v, v), 1e-6)
}

func TestCosine_Orthogonal(t *testing.T) {
	assert.InDelta(t, 0, Cosine([]float32{1, 0}, []float32{0, 1}), 1e-6)
}

func TestCosine_Opposite(t *testing.T) {
	assert.InDelta(t, -1.0, Cosine([]float32{1, 2}, []float32{-1, -2}), 1e-6)
}

func TestCosine_ScaleInvariant(t *testing.T) {
	a := []float32{1, 2, 3}
	b := []float32{10, 20, 30}
	assert.InDelta(t, 1.0, Cosine(a, b), 1e-6)
}

func TestCosine_DegenerateInputs(t *testing.T) {
	assert.Zero(t, Cosine([]float32{1, 2}, []float32{1, 2, 3}))
	assert.Zero(t, Cosine(nil, nil))
	assert.Zero(t, Cosine([]float32{0, 0}, []float32{1, 1}))
}

func TestNormalizeL2InPlace(t *testing.T) {
	v := []float32{3, 4}

	ok := NormalizeL2InPlace(v)

	assert.True(t, ok)
	assert.InDelta(t, 0.6, v[0], 1e-6)
	assert.InDelta(t, 0.8, v[1], 1e-6)
	assert.InDelta(t, 1.0, math.Sqrt(Dot(v, v)), 1e-6)
}

func TestNormalizeL2InPlace_ZeroVector(t *testing.T) {
	assert.False(t, NormalizeL2InPlace([]float32{0, 0, 0}))
	assert.False(t, NormalizeL2InPlace(nil))
}
