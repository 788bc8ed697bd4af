package lexical

import "fmt"

// Space is a fitted model plus its row-aligned matrix. Row i belongs to
// corpus entry i.
type Space struct {
	model *Model
	rows  []Vector
}

// NewSpace pairs a model with persisted rows, checking that every row
// only references vocabulary positions the model knows.
func NewSpace(model *Model, rows []Vector) (*Space, error) {
	if model == nil {
		return nil, fmt.Errorf("%w: nil model", ErrMisaligned)
	}
	for r, row := range rows {
		if len(row.Indices) != len(row.Values) {
			return nil, fmt.Errorf("%w: row %d has %d indices and %d values", ErrMisaligned, r, len(row.Indices), len(row.Values))
		}
		for k, idx := range row.Indices {
			if idx < 0 || idx >= model.Size() || (k > 0 && row.Indices[k-1] >= idx) {
				return nil, fmt.Errorf("%w: row %d has invalid index %d", ErrMisaligned, r, idx)
			}
		}
	}
	return &Space{model: model, rows: rows}, nil
}

// Model returns the fitted model.
func (s *Space) Model() *Model {
	return s.model
}

// Len returns the number of rows.
func (s *Space) Len() int {
	return len(s.rows)
}

// Row returns row i.
func (s *Space) Row(i int) Vector {
	return s.rows[i]
}

// Rows returns every row, in corpus order. Callers must not modify them.
func (s *Space) Rows() []Vector {
	return s.rows
}

// Similarities returns the cosine similarity of v against every row.
func (s *Space) Similarities(v Vector) []float64 {
	sims := make([]float64, len(s.rows))
	nv := v.Norm()
	if nv == 0 {
		return sims
	}
	for j, row := range s.rows {
		nr := row.Norm()
		if nr == 0 {
			continue
		}
		sims[j] = v.Dot(row) / (nv * nr)
	}
	return sims
}
