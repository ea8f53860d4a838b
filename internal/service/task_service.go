package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	log "github.com/sirupsen/logrus"

	"taskboard/internal/models"
	"taskboard/internal/position"
	"taskboard/internal/store"
)

// TaskService implements the owner-scoped task operations, including the
// drag-and-drop move.
type TaskService struct {
	store store.Store
	log   log.FieldLogger
}

// NewTaskService creates a TaskService backed by s.
func NewTaskService(s store.Store, logger log.FieldLogger) (*TaskService, error) {
	if s == nil {
		return nil, ErrStoreNil
	}
	if logger == nil {
		logger = log.StandardLogger()
	}
	return &TaskService{store: s, log: logger}, nil
}

// Create adds a task for actorID at the end of the NOT_STARTED group.
func (s *TaskService) Create(ctx context.Context, actorID string, in models.CreateTaskInput) (*models.Task, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	tail, err := s.store.TailPosition(ctx, actorID, models.StatusNotStarted)
	if err != nil {
		return nil, err
	}

	task := &models.Task{
		OwnerID:  actorID,
		Title:    strings.TrimSpace(in.Title),
		Status:   models.StatusNotStarted,
		Position: position.Between(tail, nil),
	}
	if in.Description != nil {
		task.Description = *in.Description
	}
	if err := task.Validate(); err != nil {
		return nil, err
	}

	if err := s.store.CreateTask(ctx, task); err != nil {
		return nil, err
	}
	return task, nil
}

// Edit changes a task's title and/or description. Status and position are not touched.
func (s *TaskService) Edit(ctx context.Context, actorID string, id int64, in models.UpdateTaskInput) (*models.Task, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	task, err := s.store.GetTask(ctx, actorID, id)
	if err != nil {
		return nil, notFoundOrForbidden(err)
	}

	in.Apply(task)
	if err := s.store.UpdateTask(ctx, task); err != nil {
		return nil, notFoundOrForbidden(err)
	}
	return task, nil
}

// ChangeStatus sets a task's status without reassigning its position. The kept
// position may collide with or fall outside the destination group's range;
// Move is the operation that keeps ordering consistent.
func (s *TaskService) ChangeStatus(ctx context.Context, actorID string, id int64, status models.Status) (*models.Task, error) {
	if !status.Valid() {
		return nil, ErrInvalidStatus
	}

	task, err := s.store.UpdateTaskStatus(ctx, actorID, id, status)
	if err != nil {
		return nil, notFoundOrForbidden(err)
	}
	return task, nil
}

// Move places a task in destination between the tasks identified by beforeID
// (the one that should precede it) and afterID (the one that should follow it).
// Either neighbor may be nil. Neighbors that cannot be resolved in the
// destination group are ignored.
func (s *TaskService) Move(ctx context.Context, actorID string, taskID int64, destination models.Status, beforeID, afterID *int64) (*models.Task, error) {
	if _, err := s.store.GetTask(ctx, actorID, taskID); err != nil {
		return nil, notFoundOrForbidden(err)
	}
	if !destination.Valid() {
		return nil, ErrInvalidStatus
	}

	left, right, err := s.neighborPositions(ctx, actorID, taskID, destination, beforeID, afterID)
	if err != nil {
		return nil, err
	}
	pos := position.Between(left, right)

	if needsRespace(left, right, pos) {
		s.log.WithFields(log.Fields{
			"owner_id": actorID,
			"status":   destination,
			"task_id":  taskID,
		}).Info("position gap exhausted; respacing group")

		if err := s.store.RespaceGroup(ctx, actorID, destination); err != nil {
			return nil, fmt.Errorf("respace group: %w", err)
		}
		left, right, err = s.neighborPositions(ctx, actorID, taskID, destination, beforeID, afterID)
		if err != nil {
			return nil, err
		}
		pos = position.Between(left, right)
	}

	task, err := s.store.MoveTask(ctx, actorID, taskID, destination, pos)
	if err != nil {
		return nil, notFoundOrForbidden(err)
	}
	return task, nil
}

// Delete removes a task permanently.
func (s *TaskService) Delete(ctx context.Context, actorID string, id int64) error {
	if err := s.store.DeleteTask(ctx, actorID, id); err != nil {
		return notFoundOrForbidden(err)
	}
	return nil
}

// GetByID returns the task, or nil when it does not exist or is not owned by actorID.
func (s *TaskService) GetByID(ctx context.Context, actorID string, id int64) (*models.Task, error) {
	task, err := s.store.GetTask(ctx, actorID, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return task, nil
}

// ListGroupedByStatus returns the actor's tasks in three position-ordered lists.
func (s *TaskService) ListGroupedByStatus(ctx context.Context, actorID string) (models.GroupedTasks, error) {
	tasks, err := s.store.ListTasks(ctx, actorID)
	if err != nil {
		return models.GroupedTasks{}, err
	}
	return models.NewGroupedTasks(tasks), nil
}

// CountByStatus returns the number of tasks per status.
func (s *TaskService) CountByStatus(ctx context.Context, actorID string) (models.StatusCounts, error) {
	return s.store.CountTasksByStatus(ctx, actorID)
}

func (s *TaskService) neighborPositions(ctx context.Context, actorID string, taskID int64, destination models.Status, beforeID, afterID *int64) (left, right *float64, err error) {
	if left, err = s.neighborPosition(ctx, actorID, taskID, destination, beforeID); err != nil {
		return nil, nil, err
	}
	if right, err = s.neighborPosition(ctx, actorID, taskID, destination, afterID); err != nil {
		return nil, nil, err
	}
	return left, right, nil
}

func (s *TaskService) neighborPosition(ctx context.Context, actorID string, taskID int64, destination models.Status, id *int64) (*float64, error) {
	if id == nil || *id == taskID {
		return nil, nil
	}
	neighbor, err := s.store.GetTask(ctx, actorID, *id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	if neighbor.Status != destination {
		return nil, nil
	}
	p := neighbor.Position
	return &p, nil
}

// needsRespace reports whether a degenerate position came from exhausted
// precision rather than from neighbors given in the wrong order.
func needsRespace(left, right *float64, p float64) bool {
	if !position.Degenerate(left, right, p) {
		return false
	}
	return left == nil || right == nil || *left <= *right
}

func notFoundOrForbidden(err error) error {
	if errors.Is(err, store.ErrNotFound) || errors.Is(err, store.ErrForbidden) {
		return ErrNotFoundOrForbidden
	}
	return err
}
