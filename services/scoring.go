package services

import "math"

// Activity is the raw input of one day.
type Activity struct {
	MilesDriven    int  `json:"milesDriven"`
	TrashCount     int  `json:"trashCount"`
	RecycleCount   int  `json:"recycleCount"`
	ReusableBag    bool `json:"reusableBag"`
	ReusableBottle bool `json:"reusableBottle"`
}

// Scoring weights. Fixed policy.
const (
	recyclePoints  = 2
	trashPenalty   = 1
	reusableBonus  = 3
	mileTenthsCost = 2 // each mile costs 0.2 points
)

// MaxCount bounds every numeric activity field so scoring cannot overflow.
const MaxCount = math.MaxInt32

// Validate rejects negative or oversized counts.
func (a Activity) Validate() error {
	for _, f := range []struct {
		name  string
		value int
	}{
		{"milesDriven", a.MilesDriven},
		{"trashCount", a.TrashCount},
		{"recycleCount", a.RecycleCount},
	} {
		switch {
		case f.value < 0:
			return invalid(f.name, "must not be negative")
		case f.value > MaxCount:
			return invalid(f.name, "must not exceed %d", MaxCount)
		}
	}
	return nil
}

// ComputePoints scores a day:
//
//	recycle*2 - trash - round(miles*0.2) + 3 per reusable item
//
// clamped at zero after the whole formula is applied.
func ComputePoints(a Activity) int {
	points := a.RecycleCount*recyclePoints - a.TrashCount*trashPenalty - mileagePenalty(a.MilesDriven)
	if a.ReusableBag {
		points += reusableBonus
	}
	if a.ReusableBottle {
		points += reusableBonus
	}
	if points < 0 {
		return 0
	}
	return points
}

// mileagePenalty is round-half-up(miles*0.2), computed in tenths to stay exact.
// miles is non-negative and at most MaxCount.
func mileagePenalty(miles int) int {
	return (miles*mileTenthsCost + 5) / 10
}
