package models

import "time"

// DateLayout is the civil-date layout used for streak bookkeeping.
const DateLayout = "2006-01-02"

// StreakStateKey is the storage key of the single streak record.
const StreakStateKey = "streak"

// StreakState tracks how many consecutive days the same store has ranked first.
type StreakState struct {
	Key             string `json:"-" badgerhold:"key"`
	CurrentTopStore string `json:"currentTopStore"`
	StreakDays      int    `json:"streakDays"`
	LastUpdate      string `json:"lastUpdate"`
}

// CivilDate formats t as YYYY-MM-DD in loc (UTC when loc is nil).
func CivilDate(t time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.UTC
	}
	return t.In(loc).Format(DateLayout)
}
