package models

import "time"

// DailyEntry stores one eco-activity submission per user and calendar day.
// Upserts for the same (user, day) overwrite the row in place.
type DailyEntry struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	UserID         uint      `gorm:"not null;uniqueIndex:idx_daily_entries_user_date" json:"user_id"`
	Date           Date      `gorm:"column:entry_date;not null;uniqueIndex:idx_daily_entries_user_date" json:"date"`
	MilesDriven    int       `gorm:"not null;default:0" json:"miles_driven"`
	TrashCount     int       `gorm:"not null;default:0" json:"trash_count"`
	RecycleCount   int       `gorm:"not null;default:0" json:"recycle_count"`
	ReusableBag    bool      `gorm:"not null;default:false" json:"reusable_bag"`
	ReusableBottle bool      `gorm:"not null;default:false" json:"reusable_bottle"`
	PointsTotal    int       `gorm:"not null;default:0" json:"points_total"` // derived, never client input
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}
