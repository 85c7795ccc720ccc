package models

import (
	"strings"
	"time"

	"taskdeck/internal/taskerr"
)

// DefaultColor is applied to tasks created without an explicit display color.
const DefaultColor = "#3b82f6"

// TaskFile is an attachment descriptor owned by exactly one task. DataRef is
// an opaque reference into the blob store and is never interpreted here.
type TaskFile struct {
	ID         int64     `json:"id"`
	TaskID     int64     `json:"task_id"`
	Name       string    `json:"name"`
	Size       int64     `json:"size"`
	MimeType   string    `json:"mime_type"`
	DataRef    string    `json:"data_ref"`
	UploadedAt time.Time `json:"uploaded_at"`
}

// Task represents a single task owned by one user.
//
// A task is always in exactly one lifecycle state: active (IsDeleted false),
// trashed (IsDeleted true, DeletedAt set), or purged (row removed, terminal).
// SortOrder is only meaningful among one owner's active tasks.
type Task struct {
	ID          int64      `json:"id"`
	OwnerID     string     `json:"-"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	StartDate   time.Time  `json:"start_date"`
	EndDate     time.Time  `json:"end_date"`
	Priority    string     `json:"priority"` // "high", "medium", "low"
	Color       string     `json:"color"`
	Files       []TaskFile `json:"files,omitempty"`
	Completed   bool       `json:"completed"`
	IsDeleted   bool       `json:"is_deleted"`
	DeletedAt   *time.Time `json:"deleted_at,omitempty"`
	SortOrder   int        `json:"sort_order"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// TaskPatch is a partial update. Nil fields are left untouched.
type TaskPatch struct {
	Title       *string    `json:"title,omitempty"`
	Description *string    `json:"description,omitempty"`
	StartDate   *time.Time `json:"start_date,omitempty"`
	EndDate     *time.Time `json:"end_date,omitempty"`
	Priority    *string    `json:"priority,omitempty"`
	Color       *string    `json:"color,omitempty"`
	Completed   *bool      `json:"completed,omitempty"`
}

// Validate checks that the task has valid field values.
func (t *Task) Validate() error {
	if strings.TrimSpace(t.Title) == "" {
		return taskerr.New(taskerr.Validation, "title is required")
	}

	if t.OwnerID == "" {
		return taskerr.New(taskerr.Validation, "owner_id is required")
	}

	if !ValidPriority(t.Priority) {
		return taskerr.New(taskerr.Validation, "priority must be 'high', 'medium', or 'low'")
	}

	return nil
}

// Apply merges the patch into the task. Start/end dates are not required to
// be ordered; the original behavior allows end before start.
func (t *Task) Apply(p TaskPatch) {
	if p.Title != nil {
		t.Title = *p.Title
	}
	if p.Description != nil {
		t.Description = *p.Description
	}
	if p.StartDate != nil {
		t.StartDate = *p.StartDate
	}
	if p.EndDate != nil {
		t.EndDate = *p.EndDate
	}
	if p.Priority != nil {
		t.Priority = *p.Priority
	}
	if p.Color != nil {
		t.Color = *p.Color
	}
	if p.Completed != nil {
		t.Completed = *p.Completed
	}
}

// Validate checks that all supplied patch fields are acceptable before the
// patch reaches the store.
func (p TaskPatch) Validate() error {
	if p.Title != nil && strings.TrimSpace(*p.Title) == "" {
		return taskerr.New(taskerr.Validation, "title is required")
	}
	if p.Priority != nil && !ValidPriority(*p.Priority) {
		return taskerr.New(taskerr.Validation, "priority must be 'high', 'medium', or 'low'")
	}
	return nil
}

// ValidPriority reports whether s is one of the three recognized priorities.
func ValidPriority(s string) bool {
	return s == "high" || s == "medium" || s == "low"
}

// PriorityOrder returns a numeric value for sorting by priority.
// Lower numbers indicate higher priority.
func (t *Task) PriorityOrder() int {
	switch t.Priority {
	case "high":
		return 1
	case "medium":
		return 2
	case "low":
		return 3
	default:
		return 99
	}
}
