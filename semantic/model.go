// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package semantic

import (
	"fmt"
	"math"
	"slices"

	"github.com/viterin/vek/vek32"
)

// Model maps vocabulary words to dense vectors. It is immutable once
// built and safe for concurrent reads.
type Model struct {
	words []string
	index map[string]int
	dim   int
	// flat row-major storage, len(words)*dim
	vectors []float32
}

// NewModel assembles a model from words and their vectors. Every vector
// must have the same non-zero length.
func NewModel(words []string, vectors [][]float32) (*Model, error) {
	if len(words) != len(vectors) {
		return nil, fmt.Errorf("%w: %d words, %d vectors", ErrDimensionMismatch, len(words), len(vectors))
	}
	dim := 0
	if len(vectors) > 0 {
		dim = len(vectors[0])
	}
	m := &Model{
		words:   slices.Clone(words),
		index:   make(map[string]int, len(words)),
		dim:     dim,
		vectors: make([]float32, 0, len(words)*dim),
	}
	for i, w := range words {
		if len(vectors[i]) != dim || dim == 0 {
			return nil, fmt.Errorf("%w: %q has %d components, want %d", ErrDimensionMismatch, w, len(vectors[i]), dim)
		}
		if _, dup := m.index[w]; dup {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateWord, w)
		}
		m.index[w] = i
		m.vectors = append(m.vectors, vectors[i]...)
	}
	return m, nil
}

// Words returns the vocabulary in model order.
func (m *Model) Words() []string {
	return slices.Clone(m.words)
}

// Len returns the vocabulary size.
func (m *Model) Len() int {
	return len(m.words)
}

// Dimension returns the vector length.
func (m *Model) Dimension() int {
	return m.dim
}

// Contains reports whether word is in the vocabulary.
func (m *Model) Contains(word string) bool {
	_, ok := m.index[word]
	return ok
}

// Vector returns a copy of the vector for word.
func (m *Model) Vector(word string) ([]float32, bool) {
	i, ok := m.index[word]
	if !ok {
		return nil, false
	}
	return slices.Clone(m.row(i)), true
}

func (m *Model) row(i int) []float32 {
	return m.vectors[i*m.dim : (i+1)*m.dim]
}

// SentenceVector averages the vectors of the in-vocabulary tokens.
// Repeated tokens count each time they occur. If no token is known the
// zero vector is returned.
func (m *Model) SentenceVector(tokens []string) []float32 {
	sum := make([]float32, m.dim)
	n := 0
	for _, t := range tokens {
		i, ok := m.index[t]
		if !ok {
			continue
		}
		vek32.Add_Inplace(sum, m.row(i))
		n++
	}
	if n > 0 {
		vek32.MulNumber_Inplace(sum, 1/float32(n))
	}
	return sum
}

// WeightedSentenceVector averages token vectors weighted by weight.
// Tokens unknown to either the model or weight are skipped, as are
// tokens whose weight is not positive.
func (m *Model) WeightedSentenceVector(tokens []string, weight func(string) (float64, bool)) []float32 {
	sum := make([]float32, m.dim)
	var total float64
	for _, t := range tokens {
		i, ok := m.index[t]
		if !ok {
			continue
		}
		w, ok := weight(t)
		if !ok || w <= 0 {
			continue
		}
		vek32.Add_Inplace(sum, vek32.MulNumber(m.row(i), float32(w)))
		total += w
	}
	if total > 0 {
		vek32.MulNumber_Inplace(sum, float32(1/total))
	}
	return sum
}

// IsZero reports whether every component of v is zero.
func IsZero(v []float32) bool {
	for _, x := range v {
		if x != 0 {
			return false
		}
	}
	return true
}

// Cosine returns the cosine similarity of a and b, or 0 when either is
// the zero vector.
func Cosine(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	na := math.Sqrt(float64(vek32.Dot(a, a)))
	nb := math.Sqrt(float64(vek32.Dot(b, b)))
	if na == 0 || nb == 0 {
		return 0
	}
	return float64(vek32.Dot(a, b)) / (na * nb)
}
