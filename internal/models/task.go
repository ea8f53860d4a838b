package models

import (
	"sort"
	"strings"
	"time"
	"unicode/utf8"
)

const (
	maxTitleLength       = 200
	maxDescriptionLength = 2000
)

// Status is the board column a task belongs to.
type Status string

const (
	StatusNotStarted Status = "NOT_STARTED"
	StatusInProgress Status = "IN_PROGRESS"
	StatusComplete   Status = "COMPLETE"
)

// Statuses lists every status in board order.
var Statuses = []Status{StatusNotStarted, StatusInProgress, StatusComplete}

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusNotStarted, StatusInProgress, StatusComplete:
		return true
	default:
		return false
	}
}

// Label returns the column heading for the status.
func (s Status) Label() string {
	switch s {
	case StatusNotStarted:
		return "To Do"
	case StatusInProgress:
		return "In Progress"
	case StatusComplete:
		return "Done"
	default:
		return string(s)
	}
}

// Task represents a single card on an owner's board.
type Task struct {
	ID          int64     `json:"id"`
	OwnerID     string    `json:"ownerId"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	Status      Status    `json:"status"`
	Position    float64   `json:"position"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Validate checks that the task has valid field values.
func (t *Task) Validate() error {
	var issues []FieldIssue

	if strings.TrimSpace(t.OwnerID) == "" {
		issues = append(issues, FieldIssue{Field: "ownerId", Message: "owner is required"})
	}
	issues = append(issues, validateTitle(t.Title)...)
	issues = append(issues, validateDescription(t.Description)...)
	if !t.Status.Valid() {
		issues = append(issues, FieldIssue{Field: "status", Message: "status must be one of NOT_STARTED, IN_PROGRESS, COMPLETE"})
	}

	return newValidationError(issues)
}

// SortTasks orders tasks by position ascending, breaking ties by id.
func SortTasks(tasks []Task) {
	sort.SliceStable(tasks, func(i, j int) bool {
		if tasks[i].Position != tasks[j].Position {
			return tasks[i].Position < tasks[j].Position
		}
		return tasks[i].ID < tasks[j].ID
	})
}

func validateTitle(title string) []FieldIssue {
	trimmed := strings.TrimSpace(title)
	if trimmed == "" {
		return []FieldIssue{{Field: "title", Message: "title is required"}}
	}
	if utf8.RuneCountInString(trimmed) > maxTitleLength {
		return []FieldIssue{{Field: "title", Message: "title must be 200 characters or fewer"}}
	}
	return nil
}

func validateDescription(description string) []FieldIssue {
	if utf8.RuneCountInString(description) > maxDescriptionLength {
		return []FieldIssue{{Field: "description", Message: "description must be 2000 characters or fewer"}}
	}
	return nil
}
