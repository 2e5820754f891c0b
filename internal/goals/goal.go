package goals

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

type Category string

const (
	CategoryTraining    Category = "training"
	CategorySleep       Category = "sleep"
	CategoryRecovery    Category = "recovery"
	CategoryNutrition   Category = "nutrition"
	CategorySupplements Category = "supplements"
	CategoryPerformance Category = "performance"
	CategoryLifestyle   Category = "lifestyle"
	CategoryOther       Category = "other"
)

func (c Category) IsValid() bool {
	switch c {
	case CategoryTraining, CategorySleep, CategoryRecovery, CategoryNutrition,
		CategorySupplements, CategoryPerformance, CategoryLifestyle, CategoryOther:
		return true
	}
	return false
}

type Priority string

const (
	PriorityLow      Priority = "low"
	PriorityMedium   Priority = "medium"
	PriorityHigh     Priority = "high"
	PriorityCritical Priority = "critical"
)

func (p Priority) IsValid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityCritical:
		return true
	}
	return false
}

type Status string

const (
	StatusActive    Status = "active"
	StatusCompleted Status = "completed"
	StatusPaused    Status = "paused"
	StatusAbandoned Status = "abandoned"
)

func (s Status) IsValid() bool {
	switch s {
	case StatusActive, StatusCompleted, StatusPaused, StatusAbandoned:
		return true
	}
	return false
}

type HabitFrequency string

const (
	FrequencyDaily   HabitFrequency = "daily"
	FrequencyWeekly  HabitFrequency = "weekly"
	FrequencyMonthly HabitFrequency = "monthly"
)

func (f HabitFrequency) IsValid() bool {
	switch f {
	case FrequencyDaily, FrequencyWeekly, FrequencyMonthly:
		return true
	}
	return false
}

type EventSource string

const (
	SourceManual EventSource = "manual"
	// SourceDerived - the value was derived from a logged activity
	// (training, sleep, recovery) rather than typed in by hand
	SourceDerived EventSource = "derived"
)

func (s EventSource) IsValid() bool {
	switch s {
	case SourceManual, SourceDerived:
		return true
	}
	return false
}

type Goal struct {
	ID                 uuid.UUID      `json:"id"`
	UserID             uuid.UUID      `json:"userId"`
	Title              string         `json:"title"`
	Description        string         `json:"description,omitempty"`
	Specific           string         `json:"specific"`
	Measurable         string         `json:"measurable"`
	Achievable         string         `json:"achievable"`
	Relevant           string         `json:"relevant"`
	Category           Category       `json:"category"`
	Priority           Priority       `json:"priority"`
	Status             Status         `json:"status"`
	TargetValue        float64        `json:"targetValue"`
	CurrentValue       float64        `json:"currentValue"`
	Unit               string         `json:"unit,omitempty"`
	ProgressPercentage int            `json:"progressPercentage"`
	IsHabit            bool           `json:"isHabit"`
	HabitFrequency     HabitFrequency `json:"habitFrequency,omitempty"`
	CurrentStreak      int            `json:"currentStreak"`
	BestStreak         int            `json:"bestStreak"`
	LastCheckin        *time.Time     `json:"lastCheckin,omitempty"`
	StartDate          time.Time      `json:"startDate"`
	TargetDate         *time.Time     `json:"targetDate,omitempty"`
	CompletionDate     *time.Time     `json:"completionDate,omitempty"`
	MotivationNote     string         `json:"motivationNote,omitempty"`
	Version            int            `json:"version"`
	CreatedAt          time.Time      `json:"createdAt"`
	UpdatedAt          time.Time      `json:"updatedAt"`
}

type ProgressEvent struct {
	ID        uuid.UUID   `json:"id"`
	GoalID    uuid.UUID   `json:"goalId"`
	Value     float64     `json:"value"`
	Note      string      `json:"note,omitempty"`
	Source    EventSource `json:"source"`
	Timestamp time.Time   `json:"timestamp"`
}

type ValidationError struct {
	Field  string
	Reason string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func (g *Goal) Validate() error {
	if strings.TrimSpace(g.Title) == "" {
		return ValidationError{Field: "title", Reason: "must not be empty"}
	}
	smartFields := []struct {
		field string
		value string
	}{
		{"specific", g.Specific},
		{"measurable", g.Measurable},
		{"achievable", g.Achievable},
		{"relevant", g.Relevant},
	}
	for _, f := range smartFields {
		if strings.TrimSpace(f.value) == "" {
			return ValidationError{Field: f.field, Reason: "must not be empty"}
		}
	}
	if !g.Category.IsValid() {
		return ValidationError{Field: "category", Reason: fmt.Sprintf("unknown category %q", g.Category)}
	}
	if !g.Priority.IsValid() {
		return ValidationError{Field: "priority", Reason: fmt.Sprintf("unknown priority %q", g.Priority)}
	}
	if !g.Status.IsValid() {
		return ValidationError{Field: "status", Reason: fmt.Sprintf("unknown status %q", g.Status)}
	}
	if g.TargetValue < 0 {
		return ValidationError{Field: "targetValue", Reason: "must not be negative"}
	}
	if g.IsHabit && !g.HabitFrequency.IsValid() {
		return ValidationError{Field: "habitFrequency", Reason: fmt.Sprintf("unknown frequency %q", g.HabitFrequency)}
	}
	if g.TargetDate != nil && g.TargetDate.Before(g.StartDate) {
		return ValidationError{Field: "targetDate", Reason: "must not be before start date"}
	}
	return nil
}

func (e *ProgressEvent) Validate() error {
	if e.ID == uuid.Nil {
		return ValidationError{Field: "id", Reason: "must be set"}
	}
	if e.GoalID == uuid.Nil {
		return ValidationError{Field: "goalId", Reason: "must be set"}
	}
	if e.Value < 0 {
		return ValidationError{Field: "value", Reason: "must not be negative"}
	}
	if !e.Source.IsValid() {
		return ValidationError{Field: "source", Reason: fmt.Sprintf("unknown source %q", e.Source)}
	}
	if e.Timestamp.IsZero() {
		return ValidationError{Field: "timestamp", Reason: "must be set"}
	}
	return nil
}
