package flowsig

import "fmt"

// Matrix is a batch of feature vectors, one row per flow.
type Matrix [][]float64

// Rows returns the number of rows.
func (m Matrix) Rows() int { return len(m) }

// Validate checks that every row has the width of the first row and
// returns that width.
//
// A matrix without rows, or whose rows have no features, is invalid.
func (m Matrix) Validate() (int, error) {
	if len(m) == 0 {
		return 0, fmt.Errorf("%w: matrix has no rows", ErrInvalidInput)
	}
	features := len(m[0])
	if features == 0 {
		return 0, fmt.Errorf("%w: matrix has no columns", ErrInvalidInput)
	}
	for i, row := range m[1:] {
		if len(row) != features {
			return 0, &RaggedRowError{Row: i + 1, Expected: features, Actual: len(row)}
		}
	}
	return features, nil
}
