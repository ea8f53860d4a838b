package models

import "strings"

// CreateTaskInput is the request body for creating a task.
type CreateTaskInput struct {
	Title       string  `json:"title"`
	Description *string `json:"description,omitempty"`
}

// Validate checks the create payload.
func (in *CreateTaskInput) Validate() error {
	issues := validateTitle(in.Title)
	if in.Description != nil {
		issues = append(issues, validateDescription(*in.Description)...)
	}
	return newValidationError(issues)
}

// UpdateTaskInput is the request body for editing a task. Absent fields are left unchanged.
type UpdateTaskInput struct {
	Title       *string `json:"title,omitempty"`
	Description *string `json:"description,omitempty"`
}

// Validate checks the update payload.
func (in *UpdateTaskInput) Validate() error {
	var issues []FieldIssue
	if in.Title == nil && in.Description == nil {
		issues = append(issues, FieldIssue{Field: "title", Message: "title or description is required"})
	}
	if in.Title != nil {
		issues = append(issues, validateTitle(*in.Title)...)
	}
	if in.Description != nil {
		issues = append(issues, validateDescription(*in.Description)...)
	}
	return newValidationError(issues)
}

// Apply copies the present fields onto t.
func (in *UpdateTaskInput) Apply(t *Task) {
	if in.Title != nil {
		t.Title = strings.TrimSpace(*in.Title)
	}
	if in.Description != nil {
		t.Description = *in.Description
	}
}

// ChangeStatusInput is the request body for a status-only change.
type ChangeStatusInput struct {
	Status Status `json:"status"`
}

// Validate checks the status payload.
func (in *ChangeStatusInput) Validate() error {
	if !in.Status.Valid() {
		return NewFieldError("status", "invalid status")
	}
	return nil
}

// MoveTaskInput is the request body for a drag-and-drop move. BeforeID names the
// task that should precede the moved task, AfterID the one that should follow it.
type MoveTaskInput struct {
	ToStatus Status `json:"toStatus"`
	BeforeID *int64 `json:"beforeId,omitempty"`
	AfterID  *int64 `json:"afterId,omitempty"`
}

// Validate checks the move payload.
func (in *MoveTaskInput) Validate() error {
	var issues []FieldIssue
	if !in.ToStatus.Valid() {
		issues = append(issues, FieldIssue{Field: "toStatus", Message: "invalid status"})
	}
	if in.BeforeID != nil && *in.BeforeID <= 0 {
		issues = append(issues, FieldIssue{Field: "beforeId", Message: "beforeId must be a positive id"})
	}
	if in.AfterID != nil && *in.AfterID <= 0 {
		issues = append(issues, FieldIssue{Field: "afterId", Message: "afterId must be a positive id"})
	}
	return newValidationError(issues)
}

// UpdateUserInput is the request body for editing the current user.
type UpdateUserInput struct {
	Name  *string `json:"name,omitempty"`
	Email *string `json:"email,omitempty"`
}

// Validate checks the user payload.
func (in *UpdateUserInput) Validate() error {
	var issues []FieldIssue
	if in.Name == nil && in.Email == nil {
		issues = append(issues, FieldIssue{Field: "name", Message: "name or email is required"})
	}
	if in.Email != nil && !strings.Contains(*in.Email, "@") {
		issues = append(issues, FieldIssue{Field: "email", Message: "email is invalid"})
	}
	return newValidationError(issues)
}
