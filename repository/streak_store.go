package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/greenify/greenify/models"
	"github.com/greenify/greenify/services"
)

// StreakStore reads and writes the per-user streak row.
// Updates are conditional on the row's version so a concurrent writer
// in another process surfaces as services.ErrStreakConflict instead of a lost update.
type StreakStore struct {
	db *gorm.DB
}

// NewStreakStore binds a StreakStore to db, which may be a transaction.
func NewStreakStore(db *gorm.DB) *StreakStore {
	return &StreakStore{db: db}
}

func (s *StreakStore) FindStreak(ctx context.Context, userID uint, forUpdate bool) (*models.Streak, error) {
	q := s.db.WithContext(ctx).Where("user_id = ?", userID)
	// sqlite has no row locks; its single writer connection already serializes
	if forUpdate && s.db.Dialector.Name() != "sqlite" {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}

	var st models.Streak
	err := q.Take(&st).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &st, nil
}

func (s *StreakStore) SaveStreak(ctx context.Context, st *models.Streak) error {
	db := s.db.WithContext(ctx)
	if !st.Persisted() {
		st.Version = 1
		if err := db.Create(st).Error; err != nil {
			st.Version = 0
			return err
		}
		return nil
	}

	res := db.Model(&models.Streak{}).
		Where("user_id = ? AND version = ?", st.UserID, st.Version).
		Updates(map[string]interface{}{
			"current_streak":       st.CurrentStreak,
			"highest_streak":       st.HighestStreak,
			"last_qualifying_date": st.LastQualifyingDate,
			"goal_points":          st.GoalPoints,
			"version":              gorm.Expr("version + 1"),
			"updated_at":           time.Now(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return services.ErrStreakConflict
	}
	st.Version++
	return nil
}

// DeleteStreak removes the user's streak row, if any.
func (s *StreakStore) DeleteStreak(ctx context.Context, userID uint) error {
	return s.db.WithContext(ctx).Where("user_id = ?", userID).Delete(&models.Streak{}).Error
}
