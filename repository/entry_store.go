package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/greenify/greenify/models"
)

// EntryStore reads and writes daily entries through gorm.
type EntryStore struct {
	db *gorm.DB
}

// NewEntryStore binds an EntryStore to db, which may be a transaction.
func NewEntryStore(db *gorm.DB) *EntryStore {
	return &EntryStore{db: db}
}

func (s *EntryStore) FindEntry(ctx context.Context, userID uint, date models.Date) (*models.DailyEntry, error) {
	var entry models.DailyEntry
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND entry_date = ?", userID, date).
		Take(&entry).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

// SaveEntry inserts a new entry or overwrites every column of an existing one.
func (s *EntryStore) SaveEntry(ctx context.Context, entry *models.DailyEntry) error {
	return s.db.WithContext(ctx).Save(entry).Error
}

// DeleteUserEntries removes all entries of a user.
func (s *EntryStore) DeleteUserEntries(ctx context.Context, userID uint) error {
	return s.db.WithContext(ctx).Where("user_id = ?", userID).Delete(&models.DailyEntry{}).Error
}
