package postgres

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/SAP-F-2025/psychotest-service/internal/kraepelin"
	"github.com/SAP-F-2025/psychotest-service/internal/models"
	"github.com/SAP-F-2025/psychotest-service/internal/repositories"
)

// dryRunDB builds statements without a live server
func dryRunDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(postgres.New(postgres.Config{
		DSN: "host=localhost user=test dbname=test sslmode=disable",
	}), &gorm.Config{
		DryRun:               true,
		DisableAutomaticPing: true,
	})
	require.NoError(t, err)
	return db
}

func TestSharedHelpers_ApplyResultFilters(t *testing.T) {
	db := dryRunDB(t)
	helpers := NewSharedHelpers(db)

	userID := uint(7)
	difficulty := kraepelin.DifficultyHard
	minScore := 60.0
	from := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	sql := db.ToSQL(func(tx *gorm.DB) *gorm.DB {
		query := tx.Model(&models.KraepelinResult{})
		query = helpers.ApplyResultFilters(query, repositories.ResultFilters{
			UserID:     &userID,
			Difficulty: &difficulty,
			MinScore:   &minScore,
			DateFrom:   &from,
		})
		var results []*models.KraepelinResult
		return query.Find(&results)
	})

	assert.Contains(t, sql, `"kraepelin_results"`)
	assert.Contains(t, sql, "user_id = 7")
	assert.Contains(t, sql, "difficulty = 'sulit'")
	assert.Contains(t, sql, "overall_score >= 60")
	assert.Contains(t, sql, "created_at >=")
	assert.NotContains(t, sql, "assignment_id")
}

func TestSharedHelpers_ApplyPaginationAndSort(t *testing.T) {
	db := dryRunDB(t)
	helpers := NewSharedHelpers(db)

	tests := []struct {
		name      string
		sortBy    string
		sortOrder string
		limit     int
		offset    int
		wantOrder string
		wantLimit string
	}{
		{name: "defaults", wantOrder: "ORDER BY created_at DESC,id DESC", wantLimit: "LIMIT 20"},
		{name: "score ascending", sortBy: "overall_score", sortOrder: "ASC", limit: 5, offset: 10,
			wantOrder: "ORDER BY overall_score ASC,id ASC", wantLimit: "LIMIT 5 OFFSET 10"},
		{name: "unknown column rejected", sortBy: "1; DROP TABLE x", sortOrder: "desc", limit: 500,
			wantOrder: "ORDER BY created_at DESC,id DESC", wantLimit: "LIMIT 100"},
		{name: "negative offset dropped", limit: 10, offset: -5,
			wantOrder: "ORDER BY created_at DESC,id DESC", wantLimit: "LIMIT 10"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sql := db.ToSQL(func(tx *gorm.DB) *gorm.DB {
				query := helpers.ApplyPaginationAndSort(tx.Model(&models.KraepelinResult{}), repositories.ResultFilters{
					SortBy: tt.sortBy, SortOrder: tt.sortOrder, Limit: tt.limit, Offset: tt.offset,
				})
				var results []*models.KraepelinResult
				return query.Find(&results)
			})
			assert.Contains(t, sql, tt.wantOrder)
			assert.Contains(t, sql, tt.wantLimit)
			assert.NotContains(t, sql, "DROP")
		})
	}
}
