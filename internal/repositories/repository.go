package repositories

import (
	"context"
	"errors"

	"gorm.io/gorm"
)

// Repository groups the repositories used by the services
type Repository interface {
	KraepelinResult() KraepelinResultRepository

	// Transaction runs fn inside a database transaction, passing the tx handle
	// to be forwarded to repository calls
	Transaction(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// IsNotFoundError reports whether err means the record does not exist
func IsNotFoundError(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}
