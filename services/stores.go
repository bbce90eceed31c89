package services

import (
	"context"

	"github.com/greenify/greenify/models"
)

// EntryStore persists daily entries.
type EntryStore interface {
	// FindEntry returns (nil, nil) when the user has no entry for date.
	FindEntry(ctx context.Context, userID uint, date models.Date) (*models.DailyEntry, error)
	SaveEntry(ctx context.Context, entry *models.DailyEntry) error
}

// StreakStore persists the per-user streak record.
type StreakStore interface {
	// FindStreak returns (nil, nil) when the user has no record yet.
	// forUpdate asks the store to hold a row lock until the surrounding transaction ends.
	FindStreak(ctx context.Context, userID uint, forUpdate bool) (*models.Streak, error)
	// SaveStreak inserts a new record or updates an existing one if its Version is unchanged,
	// returning ErrStreakConflict otherwise. On success Version holds the stored value.
	SaveStreak(ctx context.Context, streak *models.Streak) error
}

// UserStore guards writes against deleted accounts.
type UserStore interface {
	// LockUser returns ErrUserNotFound when the account is gone. Inside a
	// transaction the user row stays locked until it ends.
	LockUser(ctx context.Context, userID uint) error
}

// Stores groups the stores that share one transaction.
type Stores struct {
	Users   UserStore
	Entries EntryStore
	Streaks StreakStore
}

// UnitOfWork runs fn inside a single transaction: everything fn writes commits
// together when fn returns nil and rolls back otherwise.
type UnitOfWork interface {
	Do(ctx context.Context, fn func(Stores) error) error
	// Stores returns non-transactional stores for read paths.
	Stores() Stores
}
