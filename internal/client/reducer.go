package client

import (
	"strconv"

	"taskboard/internal/models"
)

// Tag tells whether an entry exists on the server yet.
type Tag int

const (
	Persisted Tag = iota
	Pending
)

func (t Tag) String() string {
	if t == Pending {
		return "pending"
	}
	return "persisted"
}

// Entry is one cached task. Pending entries have no server id; they are
// addressed by TempID until the create call returns.
type Entry struct {
	Task   models.Task
	Tag    Tag
	TempID string
}

// Key identifies the entry in views and drag results.
func (e Entry) Key() string {
	if e.Tag == Pending {
		return "tmp-" + e.TempID
	}
	return strconv.FormatInt(e.Task.ID, 10)
}

// State is the visible cache content.
type State struct {
	Entries []Entry
	Loading bool
	Err     error
}

type action interface{}

type (
	loadStarted   struct{}
	loadSucceeded struct{ tasks []models.Task }
	loadFailed    struct{ err error }

	pendingAdded     struct{ entry Entry }
	pendingConfirmed struct {
		tempID string
		task   models.Task
	}
	pendingDropped struct {
		tempID string
		err    error
	}

	taskPatched  struct{ task models.Task }
	taskReverted struct {
		task models.Task
		err  error
	}
	taskRemoved  struct{ id int64 }
	taskRestored struct {
		entry Entry
		index int
		err   error
	}

	errCleared struct{}
)

// reduce derives the next state from s. It never mutates s.Entries.
func reduce(s State, a action) State {
	next := s

	switch a := a.(type) {
	case loadStarted:
		next.Loading = true

	case loadSucceeded:
		entries := make([]Entry, 0, len(a.tasks))
		for _, t := range a.tasks {
			entries = append(entries, Entry{Task: t, Tag: Persisted})
		}
		for _, e := range s.Entries {
			if e.Tag == Pending {
				entries = append(entries, e)
			}
		}
		next.Entries = entries
		next.Loading = false
		next.Err = nil

	case loadFailed:
		next.Loading = false
		next.Err = a.err

	case pendingAdded:
		next.Entries = append(cloneEntries(s.Entries), a.entry)

	case pendingConfirmed:
		i := indexOfTemp(s.Entries, a.tempID)
		if i < 0 {
			break
		}
		if indexOfID(s.Entries, a.task.ID) >= 0 {
			// A reload already brought the task in.
			next.Entries = removeAt(s.Entries, i)
			break
		}
		next.Entries = cloneEntries(s.Entries)
		next.Entries[i] = Entry{Task: a.task, Tag: Persisted}

	case pendingDropped:
		if i := indexOfTemp(s.Entries, a.tempID); i >= 0 {
			next.Entries = removeAt(s.Entries, i)
		}
		next.Err = a.err

	case taskPatched:
		if i := indexOfID(s.Entries, a.task.ID); i >= 0 {
			next.Entries = cloneEntries(s.Entries)
			next.Entries[i].Task = a.task
		}

	case taskReverted:
		if i := indexOfID(s.Entries, a.task.ID); i >= 0 {
			next.Entries = cloneEntries(s.Entries)
			next.Entries[i].Task = a.task
		}
		next.Err = a.err

	case taskRemoved:
		if i := indexOfID(s.Entries, a.id); i >= 0 {
			next.Entries = removeAt(s.Entries, i)
		}

	case taskRestored:
		if indexOfID(s.Entries, a.entry.Task.ID) < 0 {
			next.Entries = insertAt(s.Entries, a.index, a.entry)
		}
		next.Err = a.err

	case errCleared:
		next.Err = nil
	}

	return next
}

func indexOfID(entries []Entry, id int64) int {
	for i, e := range entries {
		if e.Tag == Persisted && e.Task.ID == id {
			return i
		}
	}
	return -1
}

func indexOfTemp(entries []Entry, tempID string) int {
	for i, e := range entries {
		if e.Tag == Pending && e.TempID == tempID {
			return i
		}
	}
	return -1
}

func cloneEntries(entries []Entry) []Entry {
	out := make([]Entry, len(entries), len(entries)+1)
	copy(out, entries)
	return out
}

func removeAt(entries []Entry, i int) []Entry {
	out := make([]Entry, 0, len(entries)-1)
	out = append(out, entries[:i]...)
	return append(out, entries[i+1:]...)
}

func insertAt(entries []Entry, i int, e Entry) []Entry {
	if i < 0 {
		i = 0
	}
	if i > len(entries) {
		i = len(entries)
	}
	out := make([]Entry, 0, len(entries)+1)
	out = append(out, entries[:i]...)
	out = append(out, e)
	return append(out, entries[i:]...)
}
