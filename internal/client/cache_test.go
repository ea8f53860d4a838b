package client

import (
	"context"
	"errors"
	"net/http"
	"reflect"
	"sync"
	"testing"
	"time"

	"taskboard/internal/models"
	"taskboard/internal/position"
)

// fakeRemote keeps a server-side copy of the tasks. When gate is set, every
// mutating call announces itself on started and waits for gate.
type fakeRemote struct {
	mu      sync.Mutex
	tasks   map[int64]models.Task
	nextID  int64
	calls   []string
	fail    map[int64]error
	failAll error

	started chan string
	gate    chan struct{}
}

func newFakeRemote(tasks ...models.Task) *fakeRemote {
	f := &fakeRemote{tasks: map[int64]models.Task{}, nextID: 100, fail: map[int64]error{}}
	for _, t := range tasks {
		f.tasks[t.ID] = t
	}
	return f
}

func (f *fakeRemote) block() {
	f.started = make(chan string, 16)
	f.gate = make(chan struct{})
}

func (f *fakeRemote) enter(op string, id int64) error {
	f.mu.Lock()
	f.calls = append(f.calls, op)
	started, gate := f.started, f.gate
	f.mu.Unlock()

	if started != nil {
		started <- op
		<-gate
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failAll != nil {
		return f.failAll
	}
	return f.fail[id]
}

func (f *fakeRemote) callCount(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if c == op {
			n++
		}
	}
	return n
}

func (f *fakeRemote) List(ctx context.Context) (models.GroupedTasks, error) {
	if err := f.enter("list", 0); err != nil {
		return models.GroupedTasks{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	tasks := make([]models.Task, 0, len(f.tasks))
	for _, t := range f.tasks {
		tasks = append(tasks, t)
	}
	return models.NewGroupedTasks(tasks), nil
}

func (f *fakeRemote) Count(ctx context.Context) (models.StatusCounts, error) {
	grouped, err := f.List(ctx)
	if err != nil {
		return models.StatusCounts{}, err
	}
	return models.StatusCounts{
		NotStarted: len(grouped.NotStarted),
		InProgress: len(grouped.InProgress),
		Complete:   len(grouped.Complete),
	}, nil
}

func (f *fakeRemote) Create(ctx context.Context, in models.CreateTaskInput) (*models.Task, error) {
	if err := f.enter("create", 0); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	t := models.Task{ID: f.nextID, OwnerID: "alice", Title: in.Title, Status: models.StatusNotStarted, Position: 10}
	if in.Description != nil {
		t.Description = *in.Description
	}
	f.tasks[t.ID] = t
	return &t, nil
}

func (f *fakeRemote) Update(ctx context.Context, id int64, in models.UpdateTaskInput) (*models.Task, error) {
	if err := f.enter("update", id); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	t := f.tasks[id]
	in.Apply(&t)
	f.tasks[id] = t
	return &t, nil
}

func (f *fakeRemote) ChangeStatus(ctx context.Context, id int64, status models.Status) (*models.Task, error) {
	if err := f.enter("status", id); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	t := f.tasks[id]
	t.Status = status
	f.tasks[id] = t
	return &t, nil
}

func (f *fakeRemote) Move(ctx context.Context, id int64, in models.MoveTaskInput) (*models.Task, error) {
	if err := f.enter("move", id); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	lookup := func(ref *int64) *float64 {
		if ref == nil {
			return nil
		}
		n, ok := f.tasks[*ref]
		if !ok || n.Status != in.ToStatus {
			return nil
		}
		return &n.Position
	}
	t := f.tasks[id]
	t.Status = in.ToStatus
	t.Position = position.Between(lookup(in.BeforeID), lookup(in.AfterID))
	f.tasks[id] = t
	return &t, nil
}

func (f *fakeRemote) Delete(ctx context.Context, id int64) error {
	if err := f.enter("delete", id); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.tasks, id)
	return nil
}

func boardTasks() []models.Task {
	return []models.Task{
		{ID: 1, OwnerID: "alice", Title: "Write tests", Status: models.StatusNotStarted, Position: 0},
		{ID: 2, OwnerID: "alice", Title: "Fix bug", Description: "the flaky one", Status: models.StatusInProgress, Position: 1},
		{ID: 3, OwnerID: "alice", Title: "Ship", Status: models.StatusInProgress, Position: 3},
		{ID: 4, OwnerID: "alice", Title: "Plan", Status: models.StatusComplete, Position: 0},
	}
}

func loadedCache(t *testing.T) (*Cache, *fakeRemote) {
	t.Helper()
	remote := newFakeRemote(boardTasks()...)
	cache := NewCache(remote)
	if err := cache.Load(context.Background()); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	return cache, remote
}

func remoteErr(op string, status int) *RemoteError {
	return &RemoteError{Op: op, Status: status, Message: http.StatusText(status)}
}

func TestLoad(t *testing.T) {
	cache, _ := loadedCache(t)

	snap := cache.Snapshot()
	if snap.Loading || snap.Err != nil {
		t.Fatalf("unexpected state flags: %+v", snap)
	}
	if len(snap.Entries) != 4 {
		t.Fatalf("expected 4 entries, got %d", len(snap.Entries))
	}
	for _, e := range snap.Entries {
		if e.Tag != Persisted {
			t.Fatalf("expected persisted entries, got %v", e.Tag)
		}
	}

	col := cache.Column(models.StatusInProgress)
	if len(col) != 2 || col[0].Task.ID != 2 || col[1].Task.ID != 3 {
		t.Fatalf("unexpected column: %+v", col)
	}
	if counts := cache.Counts(); counts != (models.StatusCounts{NotStarted: 1, InProgress: 2, Complete: 1}) {
		t.Fatalf("unexpected counts: %+v", counts)
	}
}

func TestLoadFailureKeepsEntries(t *testing.T) {
	cache, remote := loadedCache(t)
	remote.failAll = remoteErr("list", http.StatusBadGateway)

	err := cache.Load(context.Background())
	var re *RemoteError
	if !errors.As(err, &re) || re.Status != http.StatusBadGateway {
		t.Fatalf("expected RemoteError, got %v", err)
	}
	snap := cache.Snapshot()
	if snap.Loading || len(snap.Entries) != 4 || snap.Err != err {
		t.Fatalf("unexpected state after failed load: %+v", snap)
	}
}

func TestCreateIsOptimisticThenReconciled(t *testing.T) {
	cache, remote := loadedCache(t)
	remote.block()

	desc := "details"
	var (
		created *models.Task
		err     error
		done    = make(chan struct{})
	)
	go func() {
		created, err = cache.Create(context.Background(), models.CreateTaskInput{Title: "New card", Description: &desc})
		close(done)
	}()

	<-remote.started
	snap := cache.Snapshot()
	if len(snap.Entries) != 5 {
		t.Fatalf("expected placeholder to be visible before the remote call returns, got %d entries", len(snap.Entries))
	}
	pending := snap.Entries[4]
	if pending.Tag != Pending || pending.TempID == "" || pending.Task.ID != 0 {
		t.Fatalf("unexpected placeholder: %+v", pending)
	}
	if pending.Task.Title != "New card" || pending.Task.Status != models.StatusNotStarted || pending.Task.Position != 1 {
		t.Fatalf("unexpected placeholder task: %+v", pending.Task)
	}
	if _, err := cache.Resolve(pending.Key()); !errors.Is(err, ErrPending) {
		t.Fatalf("expected ErrPending while saving, got %v", err)
	}

	close(remote.gate)
	<-done

	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	snap = cache.Snapshot()
	if len(snap.Entries) != 5 {
		t.Fatalf("expected 5 entries, got %d", len(snap.Entries))
	}
	swapped := snap.Entries[4]
	if swapped.Tag != Persisted || swapped.Task.ID != created.ID || swapped.TempID != "" {
		t.Fatalf("expected placeholder swapped for server task, got %+v", swapped)
	}
	if swapped.Task.Title != "New card" || swapped.Task.Description != "details" {
		t.Fatalf("unexpected reconciled task: %+v", swapped.Task)
	}
}

func TestCreateFailureRemovesPlaceholder(t *testing.T) {
	cache, remote := loadedCache(t)
	before := cache.Snapshot()
	boom := remoteErr("create", http.StatusInternalServerError)
	remote.failAll = boom

	_, err := cache.Create(context.Background(), models.CreateTaskInput{Title: "Doomed"})
	if err != boom {
		t.Fatalf("expected remote error to be returned, got %v", err)
	}
	after := cache.Snapshot()
	if !reflect.DeepEqual(before.Entries, after.Entries) {
		t.Fatalf("expected entries to be unchanged after rollback")
	}
	if after.Err != boom || cache.Err() != boom {
		t.Fatalf("expected error to be recorded, got %v", after.Err)
	}

	cache.ClearErr()
	if cache.Err() != nil {
		t.Fatal("expected error slot to be cleared")
	}
}

func TestCreateValidatesLocally(t *testing.T) {
	cache, remote := loadedCache(t)

	if _, err := cache.Create(context.Background(), models.CreateTaskInput{Title: " "}); !models.IsValidationError(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if remote.callCount("create") != 0 {
		t.Fatal("expected no remote call for invalid input")
	}
	if len(cache.Snapshot().Entries) != 4 {
		t.Fatal("expected no placeholder for invalid input")
	}
}

func TestDeleteIsOptimistic(t *testing.T) {
	cache, remote := loadedCache(t)
	remote.block()

	done := make(chan error)
	go func() { done <- cache.Delete(context.Background(), 2) }()

	<-remote.started
	if _, err := cache.Resolve("2"); !errors.Is(err, ErrUnknownTask) {
		t.Fatalf("expected task to be gone before the remote call returns, got %v", err)
	}
	close(remote.gate)

	if err := <-done; err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if len(cache.Snapshot().Entries) != 3 {
		t.Fatal("expected 3 entries after delete")
	}
}

func TestDeleteFailureRestoresExactEntity(t *testing.T) {
	cache, remote := loadedCache(t)
	before := cache.Snapshot()
	boom := remoteErr("delete", http.StatusForbidden)
	remote.fail[2] = boom

	if err := cache.Delete(context.Background(), 2); err != boom {
		t.Fatalf("expected remote error, got %v", err)
	}
	after := cache.Snapshot()
	if !reflect.DeepEqual(before.Entries, after.Entries) {
		t.Fatalf("expected exact restoration:\nbefore %+v\nafter  %+v", before.Entries, after.Entries)
	}
	if after.Err != boom {
		t.Fatalf("expected error recorded, got %v", after.Err)
	}
}

func TestMoveIsOptimisticThenCanonical(t *testing.T) {
	cache, remote := loadedCache(t)
	remote.block()

	before, after := int64(2), int64(3)
	done := make(chan error)
	go func() {
		_, err := cache.Move(context.Background(), 1, models.StatusInProgress, &before, &after)
		done <- err
	}()

	<-remote.started
	entry, _ := cache.Resolve("1")
	if entry.Task.Status != models.StatusInProgress || entry.Task.Position != 2 {
		t.Fatalf("expected optimistic move to position 2, got %+v", entry.Task)
	}
	col := cache.Column(models.StatusInProgress)
	if len(col) != 3 || col[1].Task.ID != 1 {
		t.Fatalf("expected moved task in the middle of the column, got %+v", col)
	}

	close(remote.gate)
	if err := <-done; err != nil {
		t.Fatalf("Move failed: %v", err)
	}
	entry, _ = cache.Resolve("1")
	if entry.Task.Title != "Write tests" || entry.Task.Position != 2 {
		t.Fatalf("unexpected reconciled task: %+v", entry.Task)
	}
}

func TestMoveFailureRestoresPriorFields(t *testing.T) {
	cache, remote := loadedCache(t)
	boom := remoteErr("move", http.StatusForbidden)
	remote.fail[1] = boom

	_, err := cache.Move(context.Background(), 1, models.StatusComplete, nil, nil)
	var re *RemoteError
	if !errors.As(err, &re) || !re.Forbidden() {
		t.Fatalf("expected forbidden RemoteError, got %v", err)
	}
	entry, _ := cache.Resolve("1")
	if entry.Task.Status != models.StatusNotStarted || entry.Task.Position != 0 {
		t.Fatalf("expected prior fields restored, got %+v", entry.Task)
	}
}

func TestMoveRejectsUnknownAndInvalid(t *testing.T) {
	cache, remote := loadedCache(t)

	if _, err := cache.Move(context.Background(), 99, models.StatusComplete, nil, nil); !errors.Is(err, ErrUnknownTask) {
		t.Fatalf("expected ErrUnknownTask, got %v", err)
	}
	if _, err := cache.Move(context.Background(), 1, "LATER", nil, nil); !models.IsValidationError(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if remote.callCount("move") != 0 {
		t.Fatal("expected no remote move calls")
	}
}

func TestConcurrentMovesOfDifferentTasksKeepTheirPatches(t *testing.T) {
	cache, remote := loadedCache(t)
	remote.block()
	remote.fail[2] = remoteErr("move", http.StatusInternalServerError)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		cache.Move(context.Background(), 1, models.StatusComplete, nil, nil)
	}()
	go func() {
		defer wg.Done()
		cache.Move(context.Background(), 2, models.StatusComplete, nil, nil)
	}()

	<-remote.started
	<-remote.started
	close(remote.gate)
	wg.Wait()

	one, _ := cache.Resolve("1")
	two, _ := cache.Resolve("2")
	if one.Task.Status != models.StatusComplete {
		t.Fatalf("expected task 1 to keep its move, got %s", one.Task.Status)
	}
	if two.Task.Status != models.StatusInProgress || two.Task.Position != 1 {
		t.Fatalf("expected task 2 to be rolled back, got %+v", two.Task)
	}
}

func TestUpdateAndChangeStatus(t *testing.T) {
	cache, remote := loadedCache(t)

	title := "Write more tests"
	got, err := cache.Update(context.Background(), 1, models.UpdateTaskInput{Title: &title})
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	if got.Title != title {
		t.Fatalf("unexpected task: %+v", got)
	}

	got, err = cache.ChangeStatus(context.Background(), 3, models.StatusComplete)
	if err != nil {
		t.Fatalf("ChangeStatus failed: %v", err)
	}
	if got.Status != models.StatusComplete || got.Position != 3 {
		t.Fatalf("expected status change without repositioning, got %+v", got)
	}

	boom := remoteErr("update", http.StatusInternalServerError)
	remote.fail[1] = boom
	other := "Never saved"
	if _, err := cache.Update(context.Background(), 1, models.UpdateTaskInput{Title: &other}); err != boom {
		t.Fatalf("expected remote error, got %v", err)
	}
	entry, _ := cache.Resolve("1")
	if entry.Task.Title != title {
		t.Fatalf("expected prior title restored, got %q", entry.Task.Title)
	}
}

func TestPendingConfirmedAfterReloadDoesNotDuplicate(t *testing.T) {
	s := State{Entries: []Entry{{Tag: Pending, TempID: "t1", Task: models.Task{Title: "x"}}}}
	s = reduce(s, loadSucceeded{tasks: []models.Task{{ID: 7, Title: "x"}}})
	if len(s.Entries) != 2 {
		t.Fatalf("expected reload to keep the pending entry, got %d", len(s.Entries))
	}

	s = reduce(s, pendingConfirmed{tempID: "t1", task: models.Task{ID: 7, Title: "x"}})
	if len(s.Entries) != 1 || s.Entries[0].Task.ID != 7 {
		t.Fatalf("expected a single persisted entry, got %+v", s.Entries)
	}
}

func TestReduceDoesNotMutateInput(t *testing.T) {
	original := []Entry{
		{Tag: Persisted, Task: models.Task{ID: 1, Title: "a"}},
		{Tag: Persisted, Task: models.Task{ID: 2, Title: "b"}},
	}
	s := State{Entries: original}

	reduce(s, taskPatched{task: models.Task{ID: 1, Title: "changed"}})
	reduce(s, taskRemoved{id: 2})

	if original[0].Task.Title != "a" || len(original) != 2 || original[1].Task.ID != 2 {
		t.Fatalf("reduce mutated its input: %+v", original)
	}
}

func TestRestoreIndexIsClamped(t *testing.T) {
	s := State{Entries: []Entry{{Tag: Persisted, Task: models.Task{ID: 1}}}}
	s = reduce(s, taskRestored{entry: Entry{Tag: Persisted, Task: models.Task{ID: 2}}, index: 5})
	if len(s.Entries) != 2 || s.Entries[1].Task.ID != 2 {
		t.Fatalf("unexpected entries: %+v", s.Entries)
	}
}

func TestCreateUsesInjectedTempID(t *testing.T) {
	remote := newFakeRemote()
	remote.block()
	cache := NewCache(remote)
	cache.newTempID = func() string { return "fixed" }

	go cache.Create(context.Background(), models.CreateTaskInput{Title: "t"})
	select {
	case <-remote.started:
	case <-time.After(time.Second):
		t.Fatal("remote create was not called")
	}
	if _, err := cache.Resolve("tmp-fixed"); !errors.Is(err, ErrPending) {
		t.Fatalf("expected pending entry under tmp-fixed, got %v", err)
	}
	close(remote.gate)
}
