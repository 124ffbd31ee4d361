package repositories

import (
	"context"

	"github.com/SAP-F-2025/psychotest-service/internal/models"
	"gorm.io/gorm"
)

// KraepelinResultRepository interface for stored test results
type KraepelinResultRepository interface {
	// Basic CRUD operations
	Create(ctx context.Context, tx *gorm.DB, result *models.KraepelinResult) error
	GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.KraepelinResult, error)
	GetBySessionID(ctx context.Context, tx *gorm.DB, sessionID string) (*models.KraepelinResult, error)

	// Query operations
	List(ctx context.Context, tx *gorm.DB, filters ResultFilters) ([]*models.KraepelinResult, int64, error)

	// Statistics
	GetUserStats(ctx context.Context, tx *gorm.DB, userID uint) (*ResultStats, error)
}
