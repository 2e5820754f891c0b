package training

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

type SessionType string

const (
	TypeStrength  SessionType = "strength"
	TypeEndurance SessionType = "endurance"
	TypeMixed     SessionType = "mixed"
	TypeRecovery  SessionType = "recovery"
)

func (t SessionType) IsValid() bool {
	switch t {
	case TypeStrength, TypeEndurance, TypeMixed, TypeRecovery:
		return true
	}
	return false
}

type Session struct {
	ID              uuid.UUID   `json:"id"`
	UserID          uuid.UUID   `json:"userId"`
	Type            SessionType `json:"type"`
	DurationMinutes int         `json:"durationMinutes"`
	Intensity       int         `json:"intensity"` // 1 to 10
	FastedState     bool        `json:"fastedState"`
	MuscleGroups    []string    `json:"muscleGroups,omitempty"`
	Notes           string      `json:"notes,omitempty"`
	StartedAt       time.Time   `json:"startedAt"`
	CreatedAt       time.Time   `json:"createdAt"`
}

func (s *Session) Validate() error {
	if !s.Type.IsValid() {
		return fmt.Errorf("invalid session type %q", s.Type)
	}
	if s.DurationMinutes <= 0 {
		return fmt.Errorf("duration must be positive")
	}
	if s.Intensity < 1 || s.Intensity > 10 {
		return fmt.Errorf("intensity must be between 1 and 10")
	}
	if strings.TrimSpace(s.Notes) != s.Notes {
		s.Notes = strings.TrimSpace(s.Notes)
	}
	return nil
}
