package service

import (
	"errors"

	"taskboard/internal/models"
)

var (
	ErrNotFoundOrForbidden = errors.New("task not found or forbidden")
	ErrUserNotFound        = errors.New("user not found")
	ErrStoreNil            = errors.New("task store is nil")

	// ErrInvalidStatus is also a *models.ValidationError, so callers may treat it either way.
	ErrInvalidStatus error = &models.ValidationError{Issues: []models.FieldIssue{{Field: "status", Message: "invalid status"}}}
)
