package goals

import (
	"time"

	"github.com/google/uuid"
)

// Template is a reusable goal blueprint. TemplateData holds the goal fields
// to prefill (target value, unit, habit cadence) as raw JSON.
type Template struct {
	ID           uuid.UUID `json:"id"`
	Title        string    `json:"title"`
	Description  string    `json:"description,omitempty"`
	Specific     string    `json:"specific"`
	Measurable   string    `json:"measurable"`
	Achievable   string    `json:"achievable"`
	Relevant     string    `json:"relevant"`
	Category     Category  `json:"category"`
	IsPublic     bool      `json:"isPublic"`
	UsageCount   int       `json:"usageCount"`
	TemplateData []byte    `json:"templateData,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
}
