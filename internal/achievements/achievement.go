package achievements

import (
	"time"

	"github.com/google/uuid"
)

type Category string

const (
	CategoryTraining    Category = "training"
	CategorySleep       Category = "sleep"
	CategoryRecovery    Category = "recovery"
	CategoryConsistency Category = "consistency"
	CategoryMilestones  Category = "milestones"
)

func (c Category) IsValid() bool {
	switch c {
	case CategoryTraining, CategorySleep, CategoryRecovery, CategoryConsistency, CategoryMilestones:
		return true
	}
	return false
}

// Definition describes an earnable achievement. Metric names the counter the
// achievement tracks ("session_count", "streak_days", "completed_goals", ...),
// MaxProgress is the value at which it is earned.
type Definition struct {
	ID          uuid.UUID `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	Icon        string    `json:"icon,omitempty"`
	Category    Category  `json:"category"`
	Metric      string    `json:"metric"`
	MaxProgress int       `json:"maxProgress"`
	Points      int       `json:"points"`
	Active      bool      `json:"active"`
}

// UserAchievement is a user's progress towards one definition.
type UserAchievement struct {
	ID           uuid.UUID  `json:"id"`
	UserID       uuid.UUID  `json:"userId"`
	DefinitionID uuid.UUID  `json:"definitionId"`
	Progress     int        `json:"progress"`
	Earned       bool       `json:"earned"`
	EarnedDate   *time.Time `json:"earnedDate,omitempty"`
}

// Event carries the metric values produced by some activity (a finished
// training, a streak advancing, a goal completing). The evaluator matches
// active definitions against the Metrics map by metric name.
type Event struct {
	Category  Category
	Metrics   map[string]int
	Timestamp time.Time
}
