package repositories

import (
	"time"

	"github.com/SAP-F-2025/psychotest-service/internal/kraepelin"
)

// ===== SHARED FILTER STRUCTS =====

// Page size bounds applied to ResultFilters
const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

type ResultFilters struct {
	UserID       *uint                 `json:"user_id"`
	AssignmentID *uint                 `json:"assignment_id"`
	Difficulty   *kraepelin.Difficulty `json:"difficulty"`
	MinScore     *float64              `json:"min_score"`
	DateFrom     *time.Time            `json:"date_from"`
	DateTo       *time.Time            `json:"date_to"`
	Limit        int                   `json:"limit"`
	Offset       int                   `json:"offset"`
	SortBy       string                `json:"sort_by"`    // "created_at", "overall_score", "correct_answers", "fatigue_index"
	SortOrder    string                `json:"sort_order"` // "asc", "desc"
}

// Paginate returns the limit and offset a query will actually use: a missing
// limit becomes DefaultPageSize, larger ones are capped at MaxPageSize and a
// negative offset becomes 0
func (f ResultFilters) Paginate() (limit, offset int) {
	limit, offset = f.Limit, f.Offset
	if limit <= 0 {
		limit = DefaultPageSize
	}
	if limit > MaxPageSize {
		limit = MaxPageSize
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

// ===== SHARED STATISTICS STRUCTS =====

type ResultStats struct {
	TotalResults        int                          `json:"total_results"`
	DifficultyBreakdown map[kraepelin.Difficulty]int `json:"difficulty_breakdown"`
	AverageOverall      float64                      `json:"average_overall"`
	BestOverall         float64                      `json:"best_overall"`
	AverageAccuracy     float64                      `json:"average_accuracy"`
	AverageConsistency  float64                      `json:"average_consistency"`
	AverageFatigue      float64                      `json:"average_fatigue"`
	AverageTimeElapsed  int                          `json:"average_time_elapsed"`
}
