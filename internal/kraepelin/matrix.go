package kraepelin

import "fmt"

// Matrix is the stimulus grid shown to the test-taker. Rows are read top to
// bottom; every row except the last is a working row.
type Matrix [][]int

// Rows returns the number of stimulus rows.
func (m Matrix) Rows() int {
	return len(m)
}

// Columns returns the number of stimulus columns.
func (m Matrix) Columns() int {
	if len(m) == 0 {
		return 0
	}
	return len(m[0])
}

// WorkingRows returns the number of rows that receive answers.
func (m Matrix) WorkingRows() int {
	if len(m) == 0 {
		return 0
	}
	return len(m) - 1
}

// TotalQuestions is the number of answerable cells, (R-1)*C.
func (m Matrix) TotalQuestions() int {
	return m.WorkingRows() * m.Columns()
}

// Validate checks that the matrix is rectangular, has at least one working
// row and holds single digits only.
func (m Matrix) Validate() error {
	if len(m) < 2 {
		return fmt.Errorf("%w: need at least 2 rows, got %d", ErrMalformedMatrix, len(m))
	}
	cols := len(m[0])
	if cols == 0 {
		return fmt.Errorf("%w: matrix has no columns", ErrMalformedMatrix)
	}
	for r, row := range m {
		if len(row) != cols {
			return fmt.Errorf("%w: row %d has %d columns, want %d", ErrMalformedMatrix, r, len(row), cols)
		}
		for c, v := range row {
			if v < 0 || v > 9 {
				return fmt.Errorf("%w: cell (%d,%d) holds %d", ErrMalformedMatrix, r, c, v)
			}
		}
	}
	return nil
}
