package models

import (
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/SAP-F-2025/psychotest-service/internal/kraepelin"
)

// KraepelinResult is a completed and scored Kraepelin test
type KraepelinResult struct {
	ID           uint    `json:"id" gorm:"primaryKey"`
	UserID       uint    `json:"user_id" gorm:"not null;index"`
	AssignmentID *uint   `json:"assignment_id" gorm:"index"`
	SessionID    *string `json:"session_id" gorm:"size:64;uniqueIndex"`

	// Test configuration
	Rows          int                  `json:"rows" gorm:"not null"`
	Columns       int                  `json:"columns" gorm:"not null"`
	Difficulty    kraepelin.Difficulty `json:"difficulty" gorm:"size:10;not null;index"`
	TimePerColumn int                  `json:"time_per_column" gorm:"not null"` // seconds
	TimeElapsed   int                  `json:"time_elapsed" gorm:"not null"`    // seconds

	// Raw test data
	TestData datatypes.JSON `json:"test_data" gorm:"type:jsonb;not null"` // [][]int
	Answers  datatypes.JSON `json:"answers" gorm:"type:jsonb;not null"`   // [][]*int

	// Derived vectors
	RowPerformance    datatypes.JSON `json:"row_performance" gorm:"type:jsonb"`    // []int
	ColumnPerformance datatypes.JSON `json:"column_performance" gorm:"type:jsonb"` // []int
	ColumnAccuracy    datatypes.JSON `json:"column_accuracy" gorm:"type:jsonb"`    // []kraepelin.ColumnAccuracy

	// Scores
	CorrectAnswers   int     `json:"correct_answers" gorm:"not null"`
	WrongAnswers     int     `json:"wrong_answers" gorm:"not null"`
	Unanswered       int     `json:"unanswered" gorm:"not null"`
	TotalQuestions   int     `json:"total_questions" gorm:"not null"`
	AccuracyRate     float64 `json:"accuracy_rate"`
	CompletionRate   float64 `json:"completion_rate"`
	ConsistencyScore float64 `json:"consistency_score"`
	FatigueIndex     float64 `json:"fatigue_index"`
	OverallScore     float64 `json:"overall_score" gorm:"index"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`
}

func (KraepelinResult) TableName() string {
	return "kraepelin_results"
}

// NewKraepelinResult builds a row from a scored test
func NewKraepelinResult(m kraepelin.Matrix, answers kraepelin.AnswerGrid, result kraepelin.Result) (*KraepelinResult, error) {
	row := &KraepelinResult{
		Rows:           m.Rows(),
		Columns:        m.Columns(),
		CorrectAnswers: result.Score.Correct,
		WrongAnswers:   result.Score.Wrong,
		Unanswered:     result.Score.Unanswered,
		TotalQuestions: result.TotalQuestions,
	}
	row.applyMetrics(result.Metrics)

	var err error
	if row.TestData, err = marshalJSON(m); err != nil {
		return nil, fmt.Errorf("test_data: %w", err)
	}
	if row.Answers, err = marshalJSON(answers); err != nil {
		return nil, fmt.Errorf("answers: %w", err)
	}
	if row.RowPerformance, err = marshalJSON(result.Vectors.RowCounts); err != nil {
		return nil, fmt.Errorf("row_performance: %w", err)
	}
	if row.ColumnPerformance, err = marshalJSON(result.Vectors.ColumnCounts); err != nil {
		return nil, fmt.Errorf("column_performance: %w", err)
	}
	if row.ColumnAccuracy, err = marshalJSON(result.Vectors.ColumnAccuracy); err != nil {
		return nil, fmt.Errorf("column_accuracy: %w", err)
	}
	return row, nil
}

func (r *KraepelinResult) applyMetrics(m kraepelin.Metrics) {
	r.AccuracyRate = m.Accuracy
	r.CompletionRate = m.Completion
	r.ConsistencyScore = m.Consistency
	r.FatigueIndex = m.Fatigue
	r.OverallScore = m.Overall
}

// Matrix decodes the stored number matrix
func (r *KraepelinResult) Matrix() (kraepelin.Matrix, error) {
	var m kraepelin.Matrix
	if err := json.Unmarshal(r.TestData, &m); err != nil {
		return nil, fmt.Errorf("%w: %v", kraepelin.ErrMalformedMatrix, err)
	}
	return m, nil
}

// AnswerGrid decodes the stored answers, null cells stay unanswered
func (r *KraepelinResult) AnswerGrid() (kraepelin.AnswerGrid, error) {
	var g kraepelin.AnswerGrid
	if err := json.Unmarshal(r.Answers, &g); err != nil {
		return nil, fmt.Errorf("%w: %v", kraepelin.ErrMalformedAnswers, err)
	}
	return g, nil
}

// Score returns the stored counts
func (r *KraepelinResult) Score() kraepelin.Score {
	return kraepelin.Score{
		Correct:    r.CorrectAnswers,
		Wrong:      r.WrongAnswers,
		Unanswered: r.Unanswered,
	}
}

// Metrics returns the stored indices
func (r *KraepelinResult) Metrics() kraepelin.Metrics {
	return kraepelin.Metrics{
		Accuracy:    r.AccuracyRate,
		Completion:  r.CompletionRate,
		Consistency: r.ConsistencyScore,
		Fatigue:     r.FatigueIndex,
		Overall:     r.OverallScore,
	}
}

// Vectors decodes the stored row and column performance
func (r *KraepelinResult) Vectors() (kraepelin.PerformanceVectors, error) {
	v := kraepelin.PerformanceVectors{
		RowCounts:      []int{},
		ColumnCounts:   []int{},
		ColumnAccuracy: []kraepelin.ColumnAccuracy{},
	}
	if len(r.RowPerformance) > 0 {
		if err := json.Unmarshal(r.RowPerformance, &v.RowCounts); err != nil {
			return v, err
		}
	}
	if len(r.ColumnPerformance) > 0 {
		if err := json.Unmarshal(r.ColumnPerformance, &v.ColumnCounts); err != nil {
			return v, err
		}
	}
	if len(r.ColumnAccuracy) > 0 {
		if err := json.Unmarshal(r.ColumnAccuracy, &v.ColumnAccuracy); err != nil {
			return v, err
		}
	}
	return v, nil
}

func marshalJSON(v interface{}) (datatypes.JSON, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return datatypes.JSON(b), nil
}
