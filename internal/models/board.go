package models

import "time"

// GroupedTasks holds an owner's tasks split by status, each list ordered by position.
// Every list is non-nil so an empty column encodes as [] rather than null.
type GroupedTasks struct {
	NotStarted []Task `json:"NOT_STARTED"`
	InProgress []Task `json:"IN_PROGRESS"`
	Complete   []Task `json:"COMPLETE"`
}

// NewGroupedTasks splits tasks by status and orders each group.
func NewGroupedTasks(tasks []Task) GroupedTasks {
	g := GroupedTasks{
		NotStarted: []Task{},
		InProgress: []Task{},
		Complete:   []Task{},
	}
	for _, t := range tasks {
		switch t.Status {
		case StatusNotStarted:
			g.NotStarted = append(g.NotStarted, t)
		case StatusInProgress:
			g.InProgress = append(g.InProgress, t)
		case StatusComplete:
			g.Complete = append(g.Complete, t)
		}
	}
	SortTasks(g.NotStarted)
	SortTasks(g.InProgress)
	SortTasks(g.Complete)
	return g
}

// Group returns the list for status.
func (g GroupedTasks) Group(status Status) []Task {
	switch status {
	case StatusNotStarted:
		return g.NotStarted
	case StatusInProgress:
		return g.InProgress
	case StatusComplete:
		return g.Complete
	default:
		return nil
	}
}

// All flattens the groups in board order.
func (g GroupedTasks) All() []Task {
	all := make([]Task, 0, len(g.NotStarted)+len(g.InProgress)+len(g.Complete))
	all = append(all, g.NotStarted...)
	all = append(all, g.InProgress...)
	return append(all, g.Complete...)
}

// StatusCounts holds the number of tasks per status.
type StatusCounts struct {
	NotStarted int `json:"NOT_STARTED"`
	InProgress int `json:"IN_PROGRESS"`
	Complete   int `json:"COMPLETE"`
}

// Set records n tasks for status.
func (c *StatusCounts) Set(status Status, n int) {
	switch status {
	case StatusNotStarted:
		c.NotStarted = n
	case StatusInProgress:
		c.InProgress = n
	case StatusComplete:
		c.Complete = n
	}
}

// Get returns the count for status.
func (c StatusCounts) Get(status Status) int {
	switch status {
	case StatusNotStarted:
		return c.NotStarted
	case StatusInProgress:
		return c.InProgress
	case StatusComplete:
		return c.Complete
	default:
		return 0
	}
}

// User is a principal synced from the identity provider.
type User struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}
