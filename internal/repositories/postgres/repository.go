package postgres

import (
	"context"

	"github.com/SAP-F-2025/psychotest-service/internal/repositories"
	"gorm.io/gorm"
)

type repository struct {
	db              *gorm.DB
	kraepelinResult repositories.KraepelinResultRepository
}

// NewRepository wires every PostgreSQL repository onto one connection
func NewRepository(db *gorm.DB) repositories.Repository {
	return &repository{
		db:              db,
		kraepelinResult: NewKraepelinResultPostgreSQL(db),
	}
}

func (r *repository) KraepelinResult() repositories.KraepelinResultRepository {
	return r.kraepelinResult
}

func (r *repository) Transaction(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return r.db.WithContext(ctx).Transaction(fn)
}
