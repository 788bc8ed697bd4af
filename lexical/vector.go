package lexical

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// Vector is a sparse term-weight vector. Indices are strictly increasing
// vocabulary positions; Values holds the matching weights.
type Vector struct {
	Indices []int
	Values  []float64
}

// Len returns the number of stored (non-zero) weights.
func (v Vector) Len() int {
	return len(v.Indices)
}

// IsZero reports whether the vector has no non-zero weight.
func (v Vector) IsZero() bool {
	for _, x := range v.Values {
		if x != 0 {
			return false
		}
	}
	return true
}

// Norm returns the Euclidean norm.
func (v Vector) Norm() float64 {
	if len(v.Values) == 0 {
		return 0
	}
	return floats.Norm(v.Values, 2)
}

// Dot returns the inner product of two sparse vectors.
func (v Vector) Dot(o Vector) float64 {
	var sum float64
	i, j := 0, 0
	for i < len(v.Indices) && j < len(o.Indices) {
		switch {
		case v.Indices[i] == o.Indices[j]:
			sum += v.Values[i] * o.Values[j]
			i++
			j++
		case v.Indices[i] < o.Indices[j]:
			i++
		default:
			j++
		}
	}
	return sum
}

// Cosine returns the cosine similarity of v and o. A zero vector on
// either side yields 0.
func (v Vector) Cosine(o Vector) float64 {
	nv, no := v.Norm(), o.Norm()
	if nv == 0 || no == 0 {
		return 0
	}
	return v.Dot(o) / (nv * no)
}

// Get returns the weight stored for a vocabulary index.
func (v Vector) Get(index int) float64 {
	lo, hi := 0, len(v.Indices)
	for lo < hi {
		mid := int(uint(lo+hi) >> 1)
		if v.Indices[mid] < index {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	if lo < len(v.Indices) && v.Indices[lo] == index {
		return v.Values[lo]
	}
	return 0
}

// normalize scales v to unit length in place. Zero vectors are left alone.
func (v Vector) normalize() {
	n := v.Norm()
	if n == 0 || math.IsNaN(n) {
		return
	}
	floats.Scale(1/n, v.Values)
}
