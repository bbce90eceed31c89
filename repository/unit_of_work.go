package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/greenify/greenify/services"
)

var (
	_ services.UnitOfWork  = (*UnitOfWork)(nil)
	_ services.UserStore   = (*UserStore)(nil)
	_ services.EntryStore  = (*EntryStore)(nil)
	_ services.StreakStore = (*StreakStore)(nil)
)

// UnitOfWork runs service code inside one gorm transaction.
type UnitOfWork struct {
	db *gorm.DB
}

// NewUnitOfWork creates a UnitOfWork over db.
func NewUnitOfWork(db *gorm.DB) *UnitOfWork {
	return &UnitOfWork{db: db}
}

// Do commits when fn returns nil and rolls back on error or panic.
func (u *UnitOfWork) Do(ctx context.Context, fn func(services.Stores) error) error {
	return u.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(storesFor(tx))
	})
}

// Stores returns stores bound to the plain connection pool.
func (u *UnitOfWork) Stores() services.Stores {
	return storesFor(u.db)
}

func storesFor(db *gorm.DB) services.Stores {
	return services.Stores{
		Users:   NewUserStore(db),
		Entries: NewEntryStore(db),
		Streaks: NewStreakStore(db),
	}
}
