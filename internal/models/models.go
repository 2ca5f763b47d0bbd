package models

import (
	"strings"
	"time"
)

// Task represents a single tracked task
type Task struct {
	ID          int64     `json:"id"`
	Title       string    `json:"title"`
	Description *string   `json:"description"`
	DueDate     *Date     `json:"due_date"`
	Completed   bool      `json:"completed"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// TaskDraft carries the user-settable fields for creating a task.
// The store assigns ID and timestamps.
type TaskDraft struct {
	Title       string  `json:"title"`
	Description *string `json:"description"`
	DueDate     *Date   `json:"due_date"`
	Completed   bool    `json:"completed"`
}

// TaskPatch is a partial update. A nil pointer leaves the field
// unchanged; the Clear flags set a nullable field back to NULL.
type TaskPatch struct {
	Title            *string
	Description      *string
	ClearDescription bool
	DueDate          *Date
	ClearDueDate     bool
	Completed        *bool
}

// IsZero reports whether the patch touches no fields
func (p TaskPatch) IsZero() bool {
	return p.Title == nil && p.Description == nil && !p.ClearDescription &&
		p.DueDate == nil && !p.ClearDueDate && p.Completed == nil
}

// ValidateTitle trims the title and rejects an empty result
func ValidateTitle(title string) (string, error) {
	trimmed := strings.TrimSpace(title)
	if trimmed == "" {
		return "", &ValidationError{Field: "title", Reason: "must not be empty"}
	}
	return trimmed, nil
}
