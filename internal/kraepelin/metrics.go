package kraepelin

import "math"

// ConsistencyPenalty scales the row-count standard deviation into score points.
const ConsistencyPenalty = 20.0

// OverallWeights blend accuracy, completion and consistency into one score.
// The weights must sum to 1.
type OverallWeights struct {
	Accuracy    float64
	Completion  float64
	Consistency float64
}

// DefaultOverallWeights is the 50/30/20 blend.
var DefaultOverallWeights = OverallWeights{Accuracy: 0.5, Completion: 0.3, Consistency: 0.2}

// Metrics are the derived indices of a finished test, each in [0,100].
type Metrics struct {
	Accuracy    float64 `json:"accuracy"`
	Completion  float64 `json:"completion"`
	Consistency float64 `json:"consistency"`
	Fatigue     float64 `json:"fatigue"`
	Overall     float64 `json:"overall"`
}

// ConsistencyScore is max(0, 100 - stdDev*20) over the per-row answered counts.
// Lower variance means a higher score; the scale carries no further meaning.
func ConsistencyScore(rowCounts []int) float64 {
	if len(rowCounts) == 0 {
		return 0
	}
	return clamp(100-stdDev(rowCounts)*ConsistencyPenalty, 0, 100)
}

// FatigueIndex is the percentage drop of the mean answered count from the
// first half of the columns to the second. The first half takes the middle
// column when the count is odd.
func FatigueIndex(columnCounts []int) float64 {
	if len(columnCounts) < 2 {
		return 0
	}
	split := (len(columnCounts) + 1) / 2
	first := mean(columnCounts[:split])
	second := mean(columnCounts[split:])
	if first == 0 {
		return 0
	}
	return clamp((first-second)/first*100, 0, 100)
}

// OverallScore blends accuracy, completion and consistency with DefaultOverallWeights.
func OverallScore(score Score, totalQuestions int, consistency float64) float64 {
	return DefaultOverallWeights.Overall(score, totalQuestions, consistency)
}

// Overall blends accuracy, completion and consistency with w.
func (w OverallWeights) Overall(score Score, totalQuestions int, consistency float64) float64 {
	overall := w.Accuracy*Accuracy(score) +
		w.Completion*Completion(score, totalQuestions) +
		w.Consistency*clamp(consistency, 0, 100)
	return clamp(overall, 0, 100)
}

// Accuracy is correct over answered, as a percentage.
func Accuracy(score Score) float64 {
	answered := score.Answered()
	if answered == 0 {
		return 0
	}
	return float64(score.Correct) / float64(answered) * 100
}

// Completion is answered over totalQuestions, as a percentage.
func Completion(score Score, totalQuestions int) float64 {
	if totalQuestions <= 0 {
		return 0
	}
	return clamp(float64(score.Answered())/float64(totalQuestions)*100, 0, 100)
}

// ComputeMetrics derives all indices from already-aggregated data.
func ComputeMetrics(score Score, vectors PerformanceVectors, totalQuestions int) Metrics {
	consistency := ConsistencyScore(vectors.RowCounts)
	return Metrics{
		Accuracy:    Accuracy(score),
		Completion:  Completion(score, totalQuestions),
		Consistency: consistency,
		Fatigue:     FatigueIndex(vectors.ColumnCounts),
		Overall:     OverallScore(score, totalQuestions, consistency),
	}
}

// Result bundles everything computed for a finished test.
type Result struct {
	Score          Score              `json:"score"`
	Vectors        PerformanceVectors `json:"vectors"`
	Metrics        Metrics            `json:"metrics"`
	TotalQuestions int                `json:"total_questions"`
}

// Evaluate scores answers against m from scratch.
func Evaluate(m Matrix, answers AnswerGrid) Result {
	score := ScoreAnswers(m, answers)
	vectors := Aggregate(m, answers)
	total := m.TotalQuestions()
	return Result{
		Score:          score,
		Vectors:        vectors,
		Metrics:        ComputeMetrics(score, vectors, total),
		TotalQuestions: total,
	}
}

func mean(values []int) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0
	for _, v := range values {
		sum += v
	}
	return float64(sum) / float64(len(values))
}

// stdDev is the population standard deviation.
func stdDev(values []int) float64 {
	if len(values) == 0 {
		return 0
	}
	m := mean(values)
	var sum float64
	for _, v := range values {
		d := float64(v) - m
		sum += d * d
	}
	return math.Sqrt(sum / float64(len(values)))
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
