package goals

import "time"

// cadenceUnit maps a timestamp to an integer index of its cadence period in
// the given location: day index for daily habits, ISO week index for weekly,
// month index for monthly. Two timestamps fall in the same period iff their
// indexes are equal, and consecutive periods differ by exactly 1.
func cadenceUnit(t time.Time, freq HabitFrequency, loc *time.Location) int {
	t = t.In(loc)
	switch freq {
	case FrequencyWeekly:
		// shift so that the ISO week boundary (Monday) aligns with index steps
		weekday := int(t.Weekday())
		if weekday == 0 {
			weekday = 7
		}
		monday := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc).
			AddDate(0, 0, -(weekday - 1))
		return dayIndex(monday) / 7
	case FrequencyMonthly:
		return t.Year()*12 + int(t.Month()) - 1
	default:
		return dayIndex(time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc))
	}
}

func dayIndex(midnight time.Time) int {
	return int(midnight.Unix() / 86400)
}

// applyCheckIn advances the goal's streak counters for a check-in at ts.
// Returns false when the check-in lands in an already-counted (or earlier)
// cadence period and the streak is left untouched.
func (g *Goal) applyCheckIn(ts time.Time, loc *time.Location) bool {
	unit := cadenceUnit(ts, g.HabitFrequency, loc)

	if g.LastCheckin != nil {
		lastUnit := cadenceUnit(*g.LastCheckin, g.HabitFrequency, loc)
		switch {
		case unit <= lastUnit:
			// same period already counted, or an out-of-order event
			return false
		case unit == lastUnit+1:
			g.CurrentStreak++
		default:
			// gap, the chain is broken and this check-in starts a new one
			g.CurrentStreak = 1
		}
	} else {
		g.CurrentStreak = 1
	}

	if g.CurrentStreak > g.BestStreak {
		g.BestStreak = g.CurrentStreak
	}

	checkin := ts
	g.LastCheckin = &checkin
	return true
}
