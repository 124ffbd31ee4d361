package kraepelin

import (
	"fmt"

	"github.com/volatiletech/null/v8"
)

// AnswerGrid holds one optional digit per working cell, (R-1) rows by C columns.
// A null cell is unanswered.
type AnswerGrid [][]null.Int8

// NewAnswerGrid returns an empty grid sized for m.
func NewAnswerGrid(m Matrix) AnswerGrid {
	g := make(AnswerGrid, m.WorkingRows())
	for r := range g {
		g[r] = make([]null.Int8, m.Columns())
	}
	return g
}

// At returns the digit stored at (row, col). Missing rows or columns read as unanswered.
func (g AnswerGrid) At(row, col int) (int, bool) {
	if row < 0 || row >= len(g) || col < 0 || col >= len(g[row]) {
		return 0, false
	}
	cell := g[row][col]
	if !cell.Valid {
		return 0, false
	}
	return int(cell.Int8), true
}

// Set stores digit at (row, col).
func (g AnswerGrid) Set(row, col, digit int) {
	g[row][col] = null.Int8From(int8(digit))
}

// Clear marks (row, col) unanswered.
func (g AnswerGrid) Clear(row, col int) {
	g[row][col] = null.Int8{}
}

// Validate checks that the grid has exactly the working shape of m and only
// digits in [0,9].
func (g AnswerGrid) Validate(m Matrix) error {
	if len(g) != m.WorkingRows() {
		return fmt.Errorf("%w: %d answer rows, want %d", ErrMalformedAnswers, len(g), m.WorkingRows())
	}
	for r, row := range g {
		if len(row) != m.Columns() {
			return fmt.Errorf("%w: answer row %d has %d columns, want %d", ErrMalformedAnswers, r, len(row), m.Columns())
		}
		for c, cell := range row {
			if !cell.Valid {
				continue
			}
			if err := ValidateDigit(int(cell.Int8)); err != nil {
				return fmt.Errorf("cell (%d,%d): %w", r, c, err)
			}
		}
	}
	return nil
}

// Clone returns a deep copy of the grid.
func (g AnswerGrid) Clone() AnswerGrid {
	out := make(AnswerGrid, len(g))
	for r, row := range g {
		out[r] = append([]null.Int8(nil), row...)
	}
	return out
}

// ValidateDigit rejects answers outside [0,9].
func ValidateDigit(digit int) error {
	if digit < 0 || digit > 9 {
		return fmt.Errorf("%w: %d", ErrOutOfRangeDigit, digit)
	}
	return nil
}

// CellStatus is the verdict for one working cell.
type CellStatus string

const (
	CellCorrect    CellStatus = "correct"
	CellWrong      CellStatus = "wrong"
	CellUnanswered CellStatus = "unanswered"
)

// CellResult is the derived verdict for a single working cell.
type CellResult struct {
	Status        CellStatus `json:"status"`
	UserAnswer    null.Int8  `json:"user_answer"`
	CorrectAnswer int        `json:"correct_answer"`
}

// ExpectedAnswer is the last decimal digit of the cell plus the cell below it.
func ExpectedAnswer(m Matrix, row, col int) int {
	return (m[row][col] + m[row+1][col]) % 10
}

// Classify grades the answer at (row, col) against m. It depends only on its
// inputs, so replaying a persisted matrix and grid reproduces the verdict.
func Classify(m Matrix, answers AnswerGrid, row, col int) CellResult {
	result := CellResult{
		Status:        CellUnanswered,
		CorrectAnswer: ExpectedAnswer(m, row, col),
	}
	digit, ok := answers.At(row, col)
	if !ok {
		return result
	}
	result.UserAnswer = null.Int8From(int8(digit))
	if digit == result.CorrectAnswer {
		result.Status = CellCorrect
	} else {
		result.Status = CellWrong
	}
	return result
}

// ClassifyAll grades every working cell, indexed [row][col].
func ClassifyAll(m Matrix, answers AnswerGrid) [][]CellResult {
	out := make([][]CellResult, m.WorkingRows())
	for r := range out {
		out[r] = make([]CellResult, m.Columns())
		for c := range out[r] {
			out[r][c] = Classify(m, answers, r, c)
		}
	}
	return out
}
