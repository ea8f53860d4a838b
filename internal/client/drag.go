package client

import (
	"context"
	"sync"

	"taskboard/internal/models"
)

// Location is a slot on the board: a status column and an index within it.
type Location struct {
	Status models.Status
	Index  int
}

// DropResult describes a finished drag. Destination is nil when the card was
// dropped outside every column. Destination.Index is the slot the card should
// occupy once it has been lifted out of its source column.
type DropResult struct {
	Key         string
	Source      Location
	Destination *Location
}

// Board is what the drag layer reads from and moves through.
type Board interface {
	Resolve(key string) (Entry, error)
	Column(status models.Status) []Entry
	Move(ctx context.Context, id int64, status models.Status, beforeID, afterID *int64) (*models.Task, error)
}

// DragHandler turns drops into move calls. Drag is disabled while a search
// query is active because the rendered columns are then filtered.
type DragHandler struct {
	board Board

	mu    sync.RWMutex
	query string
}

func NewDragHandler(board Board) *DragHandler {
	return &DragHandler{board: board}
}

// SetQuery records the current search query.
func (d *DragHandler) SetQuery(query string) {
	d.mu.Lock()
	d.query = query
	d.mu.Unlock()
}

// Enabled reports whether drops are currently interpreted.
func (d *DragHandler) Enabled() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return !SearchActive(d.query)
}

// HandleDrop issues at most one move. It reports whether a move was sent.
func (d *DragHandler) HandleDrop(ctx context.Context, drop DropResult) (bool, error) {
	if !d.Enabled() || drop.Destination == nil {
		return false, nil
	}
	dest := *drop.Destination
	if dest.Status == drop.Source.Status && dest.Index == drop.Source.Index {
		return false, nil
	}

	entry, err := d.board.Resolve(drop.Key)
	if err != nil {
		return false, err
	}

	col := withoutKey(d.board.Column(dest.Status), drop.Key)
	before := persistedID(col, dest.Index-1)
	after := persistedID(col, dest.Index)

	if _, err := d.board.Move(ctx, entry.Task.ID, dest.Status, before, after); err != nil {
		return false, err
	}
	return true, nil
}

func withoutKey(entries []Entry, key string) []Entry {
	out := make([]Entry, 0, len(entries))
	for _, e := range entries {
		if e.Key() != key {
			out = append(out, e)
		}
	}
	return out
}

func persistedID(entries []Entry, i int) *int64 {
	if i < 0 || i >= len(entries) || entries[i].Tag != Persisted {
		return nil
	}
	id := entries[i].Task.ID
	return &id
}
