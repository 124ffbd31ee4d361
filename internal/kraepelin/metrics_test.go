package kraepelin

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFatigueIndex(t *testing.T) {
	cases := []struct {
		name   string
		counts []int
		want   float64
	}{
		{"halving drop", []int{10, 10, 2, 2}, 80},
		{"odd length puts middle in first half", []int{6, 4, 2}, 60},
		{"no drop", []int{5, 5, 5, 5}, 0},
		{"improvement clamps to zero", []int{2, 2, 10, 10}, 0},
		{"empty first half", []int{0, 0, 3, 3}, 0},
		{"single column", []int{7}, 0},
		{"empty", nil, 0},
		{"everything stopped", []int{4, 4, 0, 0}, 100},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.InDelta(t, tc.want, FatigueIndex(tc.counts), 1e-9)
		})
	}
}

func TestConsistencyScore(t *testing.T) {
	cases := []struct {
		name   string
		counts []int
		want   float64
	}{
		{"flat", []int{2, 2, 2}, 100},
		{"std dev one", []int{1, 3}, 80},
		{"floored at zero", []int{0, 10}, 0},
		{"empty", nil, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.InDelta(t, tc.want, ConsistencyScore(tc.counts), 1e-9)
		})
	}
}

func TestOverallScore(t *testing.T) {
	score := Score{Correct: 8, Wrong: 2, Unanswered: 10}
	// 0.5*80 + 0.3*50 + 0.2*100
	assert.InDelta(t, 75.0, OverallScore(score, 20, 100), 1e-9)

	assert.Equal(t, 0.0, OverallScore(Score{Unanswered: 20}, 20, 0))
	assert.InDelta(t, 100.0, OverallScore(Score{Correct: 20}, 20, 100), 1e-9)
}

func TestOverallWeights_Custom(t *testing.T) {
	w := OverallWeights{Accuracy: 0.6, Completion: 0.4}
	score := Score{Correct: 5, Wrong: 5, Unanswered: 10}
	// 0.6*50 + 0.4*50
	assert.InDelta(t, 50.0, w.Overall(score, 20, 100), 1e-9)
}

func TestAccuracyAndCompletion(t *testing.T) {
	assert.Equal(t, 0.0, Accuracy(Score{}))
	assert.InDelta(t, 75.0, Accuracy(Score{Correct: 3, Wrong: 1}), 1e-9)
	assert.Equal(t, 0.0, Completion(Score{Correct: 3}, 0))
	assert.InDelta(t, 40.0, Completion(Score{Correct: 3, Wrong: 1}, 10), 1e-9)
}

func TestEvaluate(t *testing.T) {
	m := fourByTwo()
	answers := NewAnswerGrid(m)
	answers.Set(0, 0, 3)
	answers.Set(1, 0, 5)
	answers.Set(2, 0, 7)

	res := Evaluate(m, answers)
	assert.Equal(t, 6, res.TotalQuestions)
	assert.Equal(t, Score{Correct: 3, Unanswered: 3}, res.Score)
	assert.InDelta(t, 100.0, res.Metrics.Accuracy, 1e-9)
	assert.InDelta(t, 50.0, res.Metrics.Completion, 1e-9)
	assert.InDelta(t, 100.0, res.Metrics.Consistency, 1e-9)
	assert.InDelta(t, 100.0, res.Metrics.Fatigue, 1e-9)
	assert.InDelta(t, 85.0, res.Metrics.Overall, 1e-9)
}
