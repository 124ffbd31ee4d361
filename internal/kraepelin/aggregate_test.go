package kraepelin

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/volatiletech/null/v8"
)

// fourByTwo has three working rows and two columns.
// Expected answers: column 0 -> 3, 5, 7; column 1 -> 1, 1, 1.
func fourByTwo() Matrix {
	return Matrix{
		{1, 5},
		{2, 6},
		{3, 5},
		{4, 6},
	}
}

func TestAggregate_FirstColumnOnly(t *testing.T) {
	m := fourByTwo()
	answers := NewAnswerGrid(m)
	answers.Set(0, 0, 3)
	answers.Set(1, 0, 5)
	answers.Set(2, 0, 7)

	v := Aggregate(m, answers)
	assert.Equal(t, []int{1, 1, 1}, v.RowCounts)
	assert.Equal(t, []int{3, 0}, v.ColumnCounts)
	assert.Equal(t, []ColumnAccuracy{{Column: 1, Correct: 3, Total: 3}}, v.ColumnAccuracy)
	assert.Equal(t, 100.0, ConsistencyScore(v.RowCounts))

	score := ScoreAnswers(m, answers)
	assert.Equal(t, Score{Correct: 3, Wrong: 0, Unanswered: 3}, score)
}

func TestAggregate_TotalExcludesUnanswered(t *testing.T) {
	m := fourByTwo()
	answers := NewAnswerGrid(m)
	answers.Set(2, 1, 1)
	answers.Set(1, 1, 4)

	v := Aggregate(m, answers)
	assert.Equal(t, []int{0, 1, 1}, v.RowCounts)
	assert.Equal(t, []int{0, 2}, v.ColumnCounts)
	assert.Equal(t, []ColumnAccuracy{{Column: 2, Correct: 1, Total: 2}}, v.ColumnAccuracy)
}

func TestAggregate_EmptyAndSparseGrids(t *testing.T) {
	m := fourByTwo()

	v := Aggregate(m, nil)
	assert.Equal(t, []int{0, 0, 0}, v.RowCounts)
	assert.Equal(t, []int{0, 0}, v.ColumnCounts)
	assert.Empty(t, v.ColumnAccuracy)

	// abandoned mid-column: only the bottom row was sent
	partial := AnswerGrid{nil, nil, {null.Int8From(7)}}
	v = Aggregate(m, partial)
	assert.Equal(t, []int{0, 0, 1}, v.RowCounts)
	assert.Equal(t, []int{1, 0}, v.ColumnCounts)
	assert.Equal(t, Score{Correct: 1, Unanswered: 5}, ScoreAnswers(m, partial))
}

func TestAggregate_Idempotent(t *testing.T) {
	m := fourByTwo()
	answers := NewAnswerGrid(m)
	answers.Set(0, 0, 3)
	answers.Set(0, 1, 9)

	assert.Equal(t, Aggregate(m, answers), Aggregate(m, answers))
}

func TestScoreAnswers_CountsCoverEveryCell(t *testing.T) {
	m := fourByTwo()
	answers := NewAnswerGrid(m)
	answers.Set(0, 0, 3)
	answers.Set(1, 1, 0)

	s := ScoreAnswers(m, answers)
	assert.Equal(t, m.TotalQuestions(), s.Correct+s.Wrong+s.Unanswered)
	assert.Equal(t, 2, s.Answered())
}
