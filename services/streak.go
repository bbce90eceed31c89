package services

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/greenify/greenify/models"
)

// StreakEngine applies daily results to a user's streak record.
type StreakEngine struct {
	logger *zap.Logger
}

// NewStreakEngine creates a StreakEngine. A nil logger disables logging.
func NewStreakEngine(logger *zap.Logger) *StreakEngine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StreakEngine{logger: logger}
}

// ApplyDailyResult loads the user's record (locking it), advances it with the
// day's points and saves it. Store errors are returned unchanged in the chain.
func (e *StreakEngine) ApplyDailyResult(ctx context.Context, store StreakStore, userID uint, date models.Date, points int) (*models.Streak, error) {
	rec, err := store.FindStreak(ctx, userID, true)
	if err != nil {
		return nil, fmt.Errorf("load streak for user %d: %w", userID, err)
	}
	if rec == nil {
		rec = models.NewStreak(userID)
	}

	before := rec.CurrentStreak
	Advance(rec, date, points)

	if err := store.SaveStreak(ctx, rec); err != nil {
		return nil, fmt.Errorf("save streak for user %d: %w", userID, err)
	}

	e.logger.Debug("streak updated",
		zap.Uint("user_id", userID),
		zap.String("date", date.String()),
		zap.Int("points", points),
		zap.Int("from", before),
		zap.Int("to", rec.CurrentStreak),
		zap.Int("highest", rec.HighestStreak),
	)
	return rec, nil
}

// Advance applies one day's points to rec in place.
//
// A qualifying day extends the run when it is the day after the last qualifying
// date, is ignored when it is that same date, and starts a new run otherwise.
// A non-qualifying day only breaks the run when it is later than the last
// qualifying date; earlier days are backfill and leave the run alone.
func Advance(rec *models.Streak, date models.Date, points int) {
	goal := rec.GoalPoints
	if goal <= 0 {
		goal = models.DefaultGoalPoints
		rec.GoalPoints = goal
	}
	last := rec.LastQualifyingDate

	if points >= goal {
		switch {
		case last != nil && date.Equal(last.AddDays(1)):
			rec.CurrentStreak++
		case last == nil || !date.Equal(*last):
			rec.CurrentStreak = 1
		}
		d := date
		rec.LastQualifyingDate = &d
		if rec.CurrentStreak > rec.HighestStreak {
			rec.HighestStreak = rec.CurrentStreak
		}
		return
	}

	if last == nil || date.After(*last) {
		rec.CurrentStreak = 0
	}
}
