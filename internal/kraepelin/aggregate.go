package kraepelin

// Score counts verdicts over a whole test.
type Score struct {
	Correct    int `json:"correct"`
	Wrong      int `json:"wrong"`
	Unanswered int `json:"unanswered"`
}

// Answered is Correct + Wrong.
func (s Score) Answered() int {
	return s.Correct + s.Wrong
}

// ColumnAccuracy is the correct/answered pair for one column. Column is 1-indexed.
type ColumnAccuracy struct {
	Column  int `json:"column"`
	Correct int `json:"correct"`
	Total   int `json:"total"`
}

// PerformanceVectors summarize where answers were given.
type PerformanceVectors struct {
	RowCounts      []int            `json:"row_counts"`
	ColumnCounts   []int            `json:"column_counts"`
	ColumnAccuracy []ColumnAccuracy `json:"column_accuracy"`
}

// ScoreAnswers classifies every working cell of m.
func ScoreAnswers(m Matrix, answers AnswerGrid) Score {
	var s Score
	for r := 0; r < m.WorkingRows(); r++ {
		for c := 0; c < m.Columns(); c++ {
			switch Classify(m, answers, r, c).Status {
			case CellCorrect:
				s.Correct++
			case CellWrong:
				s.Wrong++
			default:
				s.Unanswered++
			}
		}
	}
	return s
}

// Aggregate builds the row, column and per-column accuracy vectors. Partial
// grids are fine: missing cells simply do not count.
func Aggregate(m Matrix, answers AnswerGrid) PerformanceVectors {
	v := PerformanceVectors{
		RowCounts:      make([]int, m.WorkingRows()),
		ColumnCounts:   make([]int, m.Columns()),
		ColumnAccuracy: []ColumnAccuracy{},
	}
	for c := 0; c < m.Columns(); c++ {
		acc := columnAccuracy(m, answers, c)
		v.ColumnCounts[c] = acc.Total
		if acc.Total > 0 {
			v.ColumnAccuracy = append(v.ColumnAccuracy, acc)
		}
	}
	for r := 0; r < m.WorkingRows(); r++ {
		for c := 0; c < m.Columns(); c++ {
			if _, ok := answers.At(r, c); ok {
				v.RowCounts[r]++
			}
		}
	}
	return v
}

func columnAccuracy(m Matrix, answers AnswerGrid, col int) ColumnAccuracy {
	acc := ColumnAccuracy{Column: col + 1}
	for r := 0; r < m.WorkingRows(); r++ {
		switch Classify(m, answers, r, col).Status {
		case CellCorrect:
			acc.Correct++
			acc.Total++
		case CellWrong:
			acc.Total++
		}
	}
	return acc
}
