package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"

	"github.com/SAP-F-2025/psychotest-service/internal/kraepelin"
)

func TestNewKraepelinResult_RoundTrip(t *testing.T) {
	m := kraepelin.Matrix{{1, 5}, {2, 6}, {3, 5}, {4, 6}}
	answers := kraepelin.NewAnswerGrid(m)
	answers.Set(0, 0, 3)
	answers.Set(1, 0, 5)
	answers.Set(2, 0, 9)
	answers.Set(0, 1, 1)

	result := kraepelin.Evaluate(m, answers)
	row, err := NewKraepelinResult(m, answers, result)
	require.NoError(t, err)

	assert.Equal(t, 4, row.Rows)
	assert.Equal(t, 2, row.Columns)
	assert.Equal(t, result.Score, row.Score())
	assert.Equal(t, result.Metrics, row.Metrics())
	assert.JSONEq(t, `[[3,1],[5,null],[9,null]]`, string(row.Answers))

	decodedMatrix, err := row.Matrix()
	require.NoError(t, err)
	assert.Equal(t, m, decodedMatrix)

	decodedAnswers, err := row.AnswerGrid()
	require.NoError(t, err)
	assert.Equal(t, result.Score, kraepelin.ScoreAnswers(decodedMatrix, decodedAnswers))

	vectors, err := row.Vectors()
	require.NoError(t, err)
	assert.Equal(t, result.Vectors, vectors)
}

func TestKraepelinResult_MalformedJSON(t *testing.T) {
	row := &KraepelinResult{
		TestData: datatypes.JSON(`{"not":"a matrix"}`),
		Answers:  datatypes.JSON(`[[1,"x"]]`),
	}

	_, err := row.Matrix()
	assert.ErrorIs(t, err, kraepelin.ErrMalformedMatrix)

	_, err = row.AnswerGrid()
	assert.ErrorIs(t, err, kraepelin.ErrMalformedAnswers)
}

func TestKraepelinResult_EmptyVectors(t *testing.T) {
	row := &KraepelinResult{}
	vectors, err := row.Vectors()
	require.NoError(t, err)
	assert.Empty(t, vectors.RowCounts)
	assert.Empty(t, vectors.ColumnCounts)
	assert.Empty(t, vectors.ColumnAccuracy)
}
