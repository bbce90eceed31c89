package models

import "time"

// DefaultGoalPoints is the daily score a user must reach for the day to count toward a streak.
const DefaultGoalPoints = 10

// Streak is the single per-user streak record.
// Version is bumped on every save and guards against lost updates.
type Streak struct {
	UserID             uint      `gorm:"primaryKey;autoIncrement:false" json:"user_id"`
	CurrentStreak      int       `gorm:"not null;default:0" json:"current_streak"`
	HighestStreak      int       `gorm:"not null;default:0" json:"highest_streak"`
	LastQualifyingDate *Date     `gorm:"column:last_qualifying_date" json:"last_qualifying_date"`
	GoalPoints         int       `gorm:"not null;default:10" json:"goal_points"`
	Version            int       `gorm:"not null;default:0" json:"-"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

// NewStreak returns the initial, not yet persisted record for a user.
func NewStreak(userID uint) *Streak {
	return &Streak{UserID: userID, GoalPoints: DefaultGoalPoints}
}

// Persisted reports whether the record has been saved at least once.
func (s *Streak) Persisted() bool {
	return s.Version > 0
}
