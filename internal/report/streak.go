package report

import "github.com/bobmcallan/storetally/internal/models"

// UpdateStreak advances state for today's leader. today is a civil date
// (YYYY-MM-DD). A second call on the same date returns the state unchanged, and
// an empty top leaves it untouched. The bool reports whether anything changed.
func UpdateStreak(state models.StreakState, top, today string) (models.StreakState, bool) {
	if top == "" || state.LastUpdate == today {
		return state, false
	}

	next := state
	if top == state.CurrentTopStore && state.StreakDays > 0 {
		next.StreakDays++
	} else {
		next.CurrentTopStore = top
		next.StreakDays = 1
	}
	next.LastUpdate = today
	return next, true
}
