package postgres

import (
	"strings"

	"github.com/SAP-F-2025/psychotest-service/internal/repositories"
	"gorm.io/gorm"
)

// resultSortColumns whitelists the columns a caller may sort by
var resultSortColumns = map[string]bool{
	"created_at":        true,
	"overall_score":     true,
	"correct_answers":   true,
	"fatigue_index":     true,
	"consistency_score": true,
	"time_elapsed":      true,
}

// SharedHelpers holds query building used across repositories
type SharedHelpers struct {
	db *gorm.DB
}

func NewSharedHelpers(db *gorm.DB) *SharedHelpers {
	return &SharedHelpers{db: db}
}

// ApplyResultFilters narrows a kraepelin_results query
func (h *SharedHelpers) ApplyResultFilters(query *gorm.DB, filters repositories.ResultFilters) *gorm.DB {
	if filters.UserID != nil {
		query = query.Where("user_id = ?", *filters.UserID)
	}
	if filters.AssignmentID != nil {
		query = query.Where("assignment_id = ?", *filters.AssignmentID)
	}
	if filters.Difficulty != nil {
		query = query.Where("difficulty = ?", *filters.Difficulty)
	}
	if filters.MinScore != nil {
		query = query.Where("overall_score >= ?", *filters.MinScore)
	}
	if filters.DateFrom != nil {
		query = query.Where("created_at >= ?", *filters.DateFrom)
	}
	if filters.DateTo != nil {
		query = query.Where("created_at <= ?", *filters.DateTo)
	}
	return query
}

// ApplyPaginationAndSort orders and pages a query. Unknown sort columns fall
// back to created_at so user input never reaches ORDER BY unchecked.
func (h *SharedHelpers) ApplyPaginationAndSort(query *gorm.DB, filters repositories.ResultFilters) *gorm.DB {
	sortBy, sortOrder := filters.SortBy, filters.SortOrder
	if !resultSortColumns[sortBy] {
		sortBy = "created_at"
	}
	if strings.ToLower(sortOrder) == "asc" {
		sortOrder = "ASC"
	} else {
		sortOrder = "DESC"
	}
	query = query.Order(sortBy + " " + sortOrder).Order("id " + sortOrder)

	limit, offset := filters.Paginate()
	return query.Limit(limit).Offset(offset)
}
