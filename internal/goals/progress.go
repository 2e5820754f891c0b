package goals

import "math"

// ProgressPercentage computes the completion percentage for the given values,
// rounded to the nearest integer. Overshoot past the target is preserved,
// 150/100 gives 150. A zero target means there is nothing to measure against,
// such goals stay at 0 until completed manually.
func ProgressPercentage(current, target float64) int {
	if target == 0 {
		return 0
	}
	return int(math.Round(current / target * 100))
}

// RecalcProgress refreshes the goal's progress percentage from its current
// state. Habit goals measure streak length against the target, value goals
// measure accumulated value.
func (g *Goal) RecalcProgress() {
	if g.IsHabit {
		g.ProgressPercentage = ProgressPercentage(float64(g.CurrentStreak), g.TargetValue)
		return
	}
	g.ProgressPercentage = ProgressPercentage(g.CurrentValue, g.TargetValue)
}
