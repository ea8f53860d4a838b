package client

import (
	"context"
	"errors"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"taskboard/internal/models"
	"taskboard/internal/position"
)

var (
	ErrPending     = errors.New("task is still being saved")
	ErrUnknownTask = errors.New("unknown task")
)

// Cache holds the board state. Every transition goes through reduce under mu;
// optimistic changes are visible before the remote call is issued.
type Cache struct {
	remote    Remote
	newTempID func() string

	mu    sync.Mutex
	state State
}

// NewCache creates an empty cache backed by remote.
func NewCache(remote Remote) *Cache {
	return &Cache{
		remote:    remote,
		newTempID: uuid.NewString,
	}
}

func (c *Cache) dispatch(a action) {
	c.mu.Lock()
	c.state = reduce(c.state, a)
	c.mu.Unlock()
}

// Load replaces the persisted entries with the server's board. Pending
// entries are kept.
func (c *Cache) Load(ctx context.Context) error {
	c.dispatch(loadStarted{})

	grouped, err := c.remote.List(ctx)
	if err != nil {
		c.dispatch(loadFailed{err: err})
		return err
	}
	c.dispatch(loadSucceeded{tasks: grouped.All()})
	return nil
}

// Create adds a pending placeholder at the end of NOT_STARTED and swaps it
// for the server's task once the call succeeds.
func (c *Cache) Create(ctx context.Context, in models.CreateTaskInput) (*models.Task, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	tempID := c.newTempID()
	now := time.Now().UTC()

	c.mu.Lock()
	placeholder := models.Task{
		Title:     strings.TrimSpace(in.Title),
		Status:    models.StatusNotStarted,
		Position:  position.Between(tailPosition(c.state.Entries, models.StatusNotStarted), nil),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if in.Description != nil {
		placeholder.Description = *in.Description
	}
	c.state = reduce(c.state, pendingAdded{entry: Entry{Task: placeholder, Tag: Pending, TempID: tempID}})
	c.mu.Unlock()

	task, err := c.remote.Create(ctx, in)
	if err != nil {
		c.dispatch(pendingDropped{tempID: tempID, err: err})
		return nil, err
	}
	c.dispatch(pendingConfirmed{tempID: tempID, task: *task})
	return task, nil
}

// Update edits title and/or description in place.
func (c *Cache) Update(ctx context.Context, id int64, in models.UpdateTaskInput) (*models.Task, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	prior, err := c.patch(id, func(t *models.Task) { in.Apply(t) })
	if err != nil {
		return nil, err
	}

	task, err := c.remote.Update(ctx, id, in)
	return c.settle(prior, task, err)
}

// ChangeStatus sets the status only; the position is kept as is.
func (c *Cache) ChangeStatus(ctx context.Context, id int64, status models.Status) (*models.Task, error) {
	in := models.ChangeStatusInput{Status: status}
	if err := in.Validate(); err != nil {
		return nil, err
	}

	prior, err := c.patch(id, func(t *models.Task) { t.Status = status })
	if err != nil {
		return nil, err
	}

	task, err := c.remote.ChangeStatus(ctx, id, status)
	return c.settle(prior, task, err)
}

// Move places the task between beforeID and afterID in status. The optimistic
// position comes from the cached neighbors; the server's answer replaces it.
func (c *Cache) Move(ctx context.Context, id int64, status models.Status, beforeID, afterID *int64) (*models.Task, error) {
	in := models.MoveTaskInput{ToStatus: status, BeforeID: beforeID, AfterID: afterID}
	if err := in.Validate(); err != nil {
		return nil, err
	}

	c.mu.Lock()
	i := indexOfID(c.state.Entries, id)
	if i < 0 {
		c.mu.Unlock()
		return nil, ErrUnknownTask
	}
	prior := c.state.Entries[i].Task
	next := prior
	next.Status = status
	next.Position = position.Between(
		neighborPosition(c.state.Entries, id, status, beforeID),
		neighborPosition(c.state.Entries, id, status, afterID),
	)
	c.state = reduce(c.state, taskPatched{task: next})
	c.mu.Unlock()

	task, err := c.remote.Move(ctx, id, in)
	return c.settle(prior, task, err)
}

// Delete removes the task immediately and puts it back at its old index if
// the server refuses.
func (c *Cache) Delete(ctx context.Context, id int64) error {
	c.mu.Lock()
	i := indexOfID(c.state.Entries, id)
	if i < 0 {
		c.mu.Unlock()
		return ErrUnknownTask
	}
	removed := c.state.Entries[i]
	c.state = reduce(c.state, taskRemoved{id: id})
	c.mu.Unlock()

	if err := c.remote.Delete(ctx, id); err != nil {
		c.dispatch(taskRestored{entry: removed, index: i, err: err})
		return err
	}
	return nil
}

// Resolve finds an entry by Key. Pending entries yield ErrPending since no
// server operation can address them yet.
func (c *Cache) Resolve(key string) (Entry, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, e := range c.state.Entries {
		if e.Key() != key {
			continue
		}
		if e.Tag == Pending {
			return e, ErrPending
		}
		return e, nil
	}
	if id, err := strconv.ParseInt(key, 10, 64); err == nil {
		if i := indexOfID(c.state.Entries, id); i >= 0 {
			return c.state.Entries[i], nil
		}
	}
	return Entry{}, ErrUnknownTask
}

// Snapshot returns a copy of the current state.
func (c *Cache) Snapshot() State {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := c.state
	s.Entries = append([]Entry(nil), c.state.Entries...)
	return s
}

// Err returns the last recorded failure.
func (c *Cache) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.Err
}

// ClearErr empties the last-error slot.
func (c *Cache) ClearErr() {
	c.dispatch(errCleared{})
}

// Column returns the entries of one status ordered by position, then id.
func (c *Cache) Column(status models.Status) []Entry {
	c.mu.Lock()
	defer c.mu.Unlock()
	return column(c.state.Entries, status)
}

// Counts returns the number of entries per status, pending ones included.
func (c *Cache) Counts() models.StatusCounts {
	c.mu.Lock()
	defer c.mu.Unlock()

	var counts models.StatusCounts
	for _, e := range c.state.Entries {
		counts.Set(e.Task.Status, counts.Get(e.Task.Status)+1)
	}
	return counts
}

// patch applies fn to a copy of the task and returns the task as it was.
func (c *Cache) patch(id int64, fn func(*models.Task)) (models.Task, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	i := indexOfID(c.state.Entries, id)
	if i < 0 {
		return models.Task{}, ErrUnknownTask
	}
	prior := c.state.Entries[i].Task
	next := prior
	fn(&next)
	c.state = reduce(c.state, taskPatched{task: next})
	return prior, nil
}

// settle reconciles a patched task with the remote answer, or restores prior.
func (c *Cache) settle(prior models.Task, task *models.Task, err error) (*models.Task, error) {
	if err != nil {
		c.dispatch(taskReverted{task: prior, err: err})
		return nil, err
	}
	c.dispatch(taskPatched{task: *task})
	return task, nil
}

func column(entries []Entry, status models.Status) []Entry {
	out := []Entry{}
	for _, e := range entries {
		if e.Task.Status == status {
			out = append(out, e)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Task.Position != out[j].Task.Position {
			return out[i].Task.Position < out[j].Task.Position
		}
		return out[i].Task.ID < out[j].Task.ID
	})
	return out
}

func tailPosition(entries []Entry, status models.Status) *float64 {
	var tail *float64
	for _, e := range entries {
		if e.Task.Status != status {
			continue
		}
		if tail == nil || e.Task.Position > *tail {
			p := e.Task.Position
			tail = &p
		}
	}
	return tail
}

func neighborPosition(entries []Entry, movingID int64, status models.Status, id *int64) *float64 {
	if id == nil || *id == movingID {
		return nil
	}
	i := indexOfID(entries, *id)
	if i < 0 || entries[i].Task.Status != status {
		return nil
	}
	p := entries[i].Task.Position
	return &p
}
