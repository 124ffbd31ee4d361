package postgres

import (
	"context"

	"github.com/SAP-F-2025/psychotest-service/internal/kraepelin"
	"github.com/SAP-F-2025/psychotest-service/internal/models"
	"github.com/SAP-F-2025/psychotest-service/internal/repositories"
	"gorm.io/gorm"
)

type KraepelinResultPostgreSQL struct {
	db      *gorm.DB
	helpers *SharedHelpers
}

func NewKraepelinResultPostgreSQL(db *gorm.DB) repositories.KraepelinResultRepository {
	return &KraepelinResultPostgreSQL{
		db:      db,
		helpers: NewSharedHelpers(db),
	}
}

func (r *KraepelinResultPostgreSQL) Create(ctx context.Context, tx *gorm.DB, result *models.KraepelinResult) error {
	db := r.getDB(tx)
	return db.WithContext(ctx).Create(result).Error
}

func (r *KraepelinResultPostgreSQL) GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.KraepelinResult, error) {
	db := r.getDB(tx)
	var result models.KraepelinResult
	if err := db.WithContext(ctx).First(&result, id).Error; err != nil {
		return nil, err
	}
	return &result, nil
}

func (r *KraepelinResultPostgreSQL) GetBySessionID(ctx context.Context, tx *gorm.DB, sessionID string) (*models.KraepelinResult, error) {
	db := r.getDB(tx)
	var result models.KraepelinResult
	if err := db.WithContext(ctx).Where("session_id = ?", sessionID).First(&result).Error; err != nil {
		return nil, err
	}
	return &result, nil
}

func (r *KraepelinResultPostgreSQL) List(ctx context.Context, tx *gorm.DB, filters repositories.ResultFilters) ([]*models.KraepelinResult, int64, error) {
	db := r.getDB(tx)
	var results []*models.KraepelinResult
	var total int64

	// apply filter first
	query := db.WithContext(ctx).Model(&models.KraepelinResult{})
	query = r.applyFilters(query, filters)

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	// then apply pagination and sorting
	query = r.applyPaginationAndSort(query, filters)

	if err := query.Find(&results).Error; err != nil {
		return nil, 0, err
	}

	return results, total, nil
}

func (r *KraepelinResultPostgreSQL) GetUserStats(ctx context.Context, tx *gorm.DB, userID uint) (*repositories.ResultStats, error) {
	db := r.getDB(tx)
	stats := repositories.ResultStats{
		DifficultyBreakdown: make(map[kraepelin.Difficulty]int),
	}

	// Aggregate stats in single query
	var total int64
	var avgOverall, bestOverall, avgAccuracy, avgConsistency, avgFatigue, avgTime float64
	if err := db.WithContext(ctx).
		Model(&models.KraepelinResult{}).
		Where("user_id = ?", userID).
		Select("COUNT(*), COALESCE(AVG(overall_score), 0), COALESCE(MAX(overall_score), 0), "+
			"COALESCE(AVG(accuracy_rate), 0), COALESCE(AVG(consistency_score), 0), "+
			"COALESCE(AVG(fatigue_index), 0), COALESCE(AVG(time_elapsed), 0)").
		Row().Scan(&total, &avgOverall, &bestOverall, &avgAccuracy, &avgConsistency, &avgFatigue, &avgTime); err != nil {
		return nil, err
	}

	// Difficulty breakdown
	var breakdown []struct {
		Difficulty kraepelin.Difficulty
		Count      int
	}
	if err := db.WithContext(ctx).
		Model(&models.KraepelinResult{}).
		Where("user_id = ?", userID).
		Select("difficulty, COUNT(*) AS count").
		Group("difficulty").
		Scan(&breakdown).Error; err != nil {
		return nil, err
	}
	for _, b := range breakdown {
		stats.DifficultyBreakdown[b.Difficulty] = b.Count
	}

	stats.TotalResults = int(total)
	stats.AverageOverall = avgOverall
	stats.BestOverall = bestOverall
	stats.AverageAccuracy = avgAccuracy
	stats.AverageConsistency = avgConsistency
	stats.AverageFatigue = avgFatigue
	stats.AverageTimeElapsed = int(avgTime)

	return &stats, nil
}

// applyFilters applies common filters to a query
func (r *KraepelinResultPostgreSQL) applyFilters(query *gorm.DB, filters repositories.ResultFilters) *gorm.DB {
	return r.helpers.ApplyResultFilters(query, filters)
}

// applyPaginationAndSort applies pagination and sorting to a query
func (r *KraepelinResultPostgreSQL) applyPaginationAndSort(query *gorm.DB, filters repositories.ResultFilters) *gorm.DB {
	return r.helpers.ApplyPaginationAndSort(query, filters)
}

func (r *KraepelinResultPostgreSQL) getDB(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return r.db
}
