package repository

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/greenify/greenify/config"
	"github.com/greenify/greenify/models"
	"github.com/greenify/greenify/services"
	"github.com/greenify/greenify/utils"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := config.OpenDatabase(config.AppConfig{
		DBDriver: "sqlite",
		DBName:   filepath.Join(t.TempDir(), "greenify"),
		LogLevel: "silent",
	})
	require.NoError(t, err)
	require.NoError(t, config.Migrate(db, models.AllModels()...))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

func march(day int) models.Date {
	return models.NewDate(2024, time.March, day)
}

func TestEntryStoreFindAndSave(t *testing.T) {
	ctx := context.Background()
	store := NewEntryStore(openTestDB(t))

	got, err := store.FindEntry(ctx, 1, march(1))
	require.NoError(t, err)
	assert.Nil(t, got)

	entry := &models.DailyEntry{UserID: 1, Date: march(1), RecycleCount: 5, ReusableBag: true, PointsTotal: 13}
	require.NoError(t, store.SaveEntry(ctx, entry))
	require.NotZero(t, entry.ID)

	got, err = store.FindEntry(ctx, 1, march(1))
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, entry.ID, got.ID)
	assert.Equal(t, march(1), got.Date)
	assert.Equal(t, 13, got.PointsTotal)
	assert.True(t, got.ReusableBag)

	got.ReusableBag = false
	got.PointsTotal = 10
	require.NoError(t, store.SaveEntry(ctx, got))

	again, err := store.FindEntry(ctx, 1, march(1))
	require.NoError(t, err)
	assert.Equal(t, entry.ID, again.ID)
	assert.False(t, again.ReusableBag)
	assert.Equal(t, 10, again.PointsTotal)

	other, err := store.FindEntry(ctx, 2, march(1))
	require.NoError(t, err)
	assert.Nil(t, other)
}

func TestEntryStoreUniquePerUserAndDate(t *testing.T) {
	ctx := context.Background()
	store := NewEntryStore(openTestDB(t))

	require.NoError(t, store.SaveEntry(ctx, &models.DailyEntry{UserID: 1, Date: march(1)}))
	assert.Error(t, store.SaveEntry(ctx, &models.DailyEntry{UserID: 1, Date: march(1)}))
	assert.NoError(t, store.SaveEntry(ctx, &models.DailyEntry{UserID: 1, Date: march(2)}))
	assert.NoError(t, store.SaveEntry(ctx, &models.DailyEntry{UserID: 2, Date: march(1)}))
}

func TestStreakStoreVersioning(t *testing.T) {
	ctx := context.Background()
	store := NewStreakStore(openTestDB(t))

	got, err := store.FindStreak(ctx, 5, true)
	require.NoError(t, err)
	assert.Nil(t, got)

	rec := models.NewStreak(5)
	rec.CurrentStreak = 1
	rec.HighestStreak = 1
	last := march(3)
	rec.LastQualifyingDate = &last
	require.NoError(t, store.SaveStreak(ctx, rec))
	assert.Equal(t, 1, rec.Version)

	loaded, err := store.FindStreak(ctx, 5, true)
	require.NoError(t, err)
	require.NotNil(t, loaded)
	require.NotNil(t, loaded.LastQualifyingDate)
	assert.Equal(t, march(3), *loaded.LastQualifyingDate)
	assert.Equal(t, models.DefaultGoalPoints, loaded.GoalPoints)

	stale := *loaded
	loaded.CurrentStreak = 2
	loaded.HighestStreak = 2
	require.NoError(t, store.SaveStreak(ctx, loaded))
	assert.Equal(t, 2, loaded.Version)

	stale.CurrentStreak = 9
	err = store.SaveStreak(ctx, &stale)
	assert.ErrorIs(t, err, services.ErrStreakConflict)

	final, err := store.FindStreak(ctx, 5, false)
	require.NoError(t, err)
	assert.Equal(t, 2, final.CurrentStreak)
	assert.Equal(t, 2, final.Version)
}

func TestStreakStoreClearsLastDate(t *testing.T) {
	ctx := context.Background()
	store := NewStreakStore(openTestDB(t))

	rec := models.NewStreak(1)
	d := march(1)
	rec.LastQualifyingDate = &d
	require.NoError(t, store.SaveStreak(ctx, rec))

	rec.LastQualifyingDate = nil
	require.NoError(t, store.SaveStreak(ctx, rec))

	loaded, err := store.FindStreak(ctx, 1, false)
	require.NoError(t, err)
	assert.Nil(t, loaded.LastQualifyingDate)
}

func TestUnitOfWorkRollsBack(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	uow := NewUnitOfWork(db)
	boom := errors.New("boom")

	err := uow.Do(ctx, func(st services.Stores) error {
		require.NoError(t, st.Entries.SaveEntry(ctx, &models.DailyEntry{UserID: 1, Date: march(1)}))
		require.NoError(t, st.Streaks.SaveStreak(ctx, models.NewStreak(1)))
		return boom
	})
	assert.ErrorIs(t, err, boom)

	entry, err := uow.Stores().Entries.FindEntry(ctx, 1, march(1))
	require.NoError(t, err)
	assert.Nil(t, entry)
	streak, err := uow.Stores().Streaks.FindStreak(ctx, 1, false)
	require.NoError(t, err)
	assert.Nil(t, streak)
}

func TestDeleteUserData(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	entries, streaks := NewEntryStore(db), NewStreakStore(db)

	require.NoError(t, entries.SaveEntry(ctx, &models.DailyEntry{UserID: 1, Date: march(1)}))
	require.NoError(t, entries.SaveEntry(ctx, &models.DailyEntry{UserID: 1, Date: march(2)}))
	require.NoError(t, entries.SaveEntry(ctx, &models.DailyEntry{UserID: 2, Date: march(1)}))
	require.NoError(t, streaks.SaveStreak(ctx, models.NewStreak(1)))

	require.NoError(t, entries.DeleteUserEntries(ctx, 1))
	require.NoError(t, streaks.DeleteStreak(ctx, 1))

	var n int64
	require.NoError(t, db.Model(&models.DailyEntry{}).Count(&n).Error)
	assert.EqualValues(t, 1, n)
	st, err := streaks.FindStreak(ctx, 1, false)
	require.NoError(t, err)
	assert.Nil(t, st)
}

func TestRedisStreakCache(t *testing.T) {
	mr := miniredis.RunT(t)
	utils.SetRedis(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	t.Cleanup(func() { utils.SetRedis(nil) })

	ctx := context.Background()
	cache := NewRedisStreakCache(time.Minute)

	_, ok := cache.Get(ctx, 1)
	assert.False(t, ok)

	last := "2024-03-01"
	require.NoError(t, cache.Set(ctx, 1, services.StreakView{Current: 2, Longest: 3, Goal: 10, LastDate: &last}))
	require.NoError(t, cache.Set(ctx, 10, services.StreakView{Current: 7}))

	view, ok := cache.Get(ctx, 1)
	require.True(t, ok)
	assert.Equal(t, 2, view.Current)
	require.NotNil(t, view.LastDate)
	assert.Equal(t, last, *view.LastDate)

	require.NoError(t, cache.Invalidate(ctx, 1))
	_, ok = cache.Get(ctx, 1)
	assert.False(t, ok)
	_, ok = cache.Get(ctx, 10)
	assert.True(t, ok, "invalidating user 1 leaves user 10 alone")

	mr.FastForward(2 * time.Minute)
	_, ok = cache.Get(ctx, 10)
	assert.False(t, ok)

	mr.Close()
	assert.Error(t, cache.Set(ctx, 1, services.StreakView{}))
	assert.Error(t, cache.Invalidate(ctx, 1))
}

func TestLockUser(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	user := models.User{Username: "erin", Email: "erin@example.com", PasswordHash: "x"}
	require.NoError(t, db.Create(&user).Error)

	uow := NewUnitOfWork(db)
	err := uow.Do(ctx, func(st services.Stores) error {
		return st.Users.LockUser(ctx, user.ID)
	})
	assert.NoError(t, err)

	require.NoError(t, db.Delete(&models.User{}, user.ID).Error)
	err = uow.Do(ctx, func(st services.Stores) error {
		return st.Users.LockUser(ctx, user.ID)
	})
	assert.ErrorIs(t, err, services.ErrUserNotFound)
	assert.ErrorIs(t, uow.Stores().Users.LockUser(ctx, 404), services.ErrUserNotFound)
}
