package store

import (
	"context"
	"errors"

	"taskboard/internal/models"
)

var (
	// ErrNotFound is returned when a row does not exist or is not visible to the owner.
	ErrNotFound = errors.New("not found")
	// ErrForbidden is returned by MoveTask when the task exists but belongs to another owner.
	ErrForbidden = errors.New("forbidden")
	// ErrStoreNil is returned by wrappers constructed without a base store.
	ErrStoreNil = errors.New("base store is nil")
)

// Store defines the interface for data persistence operations.
// Every task operation is scoped to an owner.
type Store interface {
	// Task operations
	CreateTask(ctx context.Context, task *models.Task) error
	GetTask(ctx context.Context, ownerID string, id int64) (*models.Task, error)
	ListTasks(ctx context.Context, ownerID string) ([]models.Task, error)
	ListTasksByStatus(ctx context.Context, ownerID string, status models.Status) ([]models.Task, error)
	TailPosition(ctx context.Context, ownerID string, status models.Status) (*float64, error)
	UpdateTask(ctx context.Context, task *models.Task) error
	UpdateTaskStatus(ctx context.Context, ownerID string, id int64, status models.Status) (*models.Task, error)
	MoveTask(ctx context.Context, ownerID string, id int64, status models.Status, position float64) (*models.Task, error)
	RespaceGroup(ctx context.Context, ownerID string, status models.Status) error
	DeleteTask(ctx context.Context, ownerID string, id int64) error
	CountTasksByStatus(ctx context.Context, ownerID string) (models.StatusCounts, error)

	// User operations
	UpsertUser(ctx context.Context, user *models.User) error
	GetUser(ctx context.Context, id string) (*models.User, error)
	UpdateUser(ctx context.Context, user *models.User) error
	DeleteUser(ctx context.Context, id string) error

	// Lifecycle
	Close() error
}
