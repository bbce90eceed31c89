package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/greenify/greenify/models"
	"github.com/greenify/greenify/services"
)

// UserStore checks account rows on behalf of the entry service.
type UserStore struct {
	db *gorm.DB
}

// NewUserStore binds a UserStore to db, which may be a transaction.
func NewUserStore(db *gorm.DB) *UserStore {
	return &UserStore{db: db}
}

// LockUser holds the user row until the surrounding transaction ends, so an
// account delete in another process waits for in-flight upserts.
func (s *UserStore) LockUser(ctx context.Context, userID uint) error {
	q := s.db.WithContext(ctx).Select("id")
	if s.db.Dialector.Name() != "sqlite" {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}

	var user models.User
	err := q.Take(&user, userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return services.ErrUserNotFound
	}
	return err
}
