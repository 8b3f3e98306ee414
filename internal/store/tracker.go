package store

import (
	"context"
	"sync"

	"github.com/Joseda-hg/tasktracker/internal/model"
	"github.com/Joseda-hg/tasktracker/internal/tracker"
)

// Tracker is a Manager whose state is written to a Backend after every change,
// including reads that move an entity in the view history.
//
// The mutation result is always returned, also when the save that follows it
// fails; the in-memory state then runs ahead of the backend until the next
// successful save.
type Tracker struct {
	manager *tracker.Manager
	backend Backend

	// saveMu orders export+write pairs so an older snapshot never overwrites
	// a newer one.
	saveMu sync.Mutex
}

// Open restores the backend's snapshot into a fresh manager.
func Open(ctx context.Context, backend Backend) (*Tracker, error) {
	snapshot, err := backend.Load(ctx)
	if err != nil {
		return nil, &LoadError{Err: err}
	}
	manager, err := tracker.FromSnapshot(snapshot)
	if err != nil {
		return nil, &LoadError{Err: err}
	}
	return &Tracker{manager: manager, backend: backend}, nil
}

func (t *Tracker) Close() error {
	return t.backend.Close()
}

// Save writes the current state to the backend.
func (t *Tracker) Save(ctx context.Context) error {
	t.saveMu.Lock()
	defer t.saveMu.Unlock()
	if err := t.backend.Save(ctx, t.manager.Export()); err != nil {
		return &SaveError{Err: err}
	}
	return nil
}

func (t *Tracker) saveIf(ctx context.Context, changed bool) error {
	if !changed {
		return nil
	}
	return t.Save(ctx)
}

func (t *Tracker) Tasks() []model.Task {
	return t.manager.Tasks()
}

func (t *Tracker) Epics() []model.Epic {
	return t.manager.Epics()
}

func (t *Tracker) Subtasks() []model.Subtask {
	return t.manager.Subtasks()
}

func (t *Tracker) EpicSubtasks(epicID int64) ([]model.Subtask, bool) {
	return t.manager.EpicSubtasks(epicID)
}

func (t *Tracker) KindOf(id int64) (model.Kind, bool) {
	return t.manager.KindOf(id)
}

func (t *Tracker) History() []model.Entity {
	return t.manager.History()
}

func (t *Tracker) Prioritized() []model.Scheduled {
	return t.manager.Prioritized()
}

func (t *Tracker) Export() model.Snapshot {
	return t.manager.Export()
}

// Import replaces the whole state with snapshot and saves it. A snapshot the
// manager rejects leaves the state and the backend untouched.
func (t *Tracker) Import(ctx context.Context, snapshot model.Snapshot) error {
	if err := t.manager.Load(snapshot); err != nil {
		return err
	}
	return t.Save(ctx)
}

func (t *Tracker) Task(ctx context.Context, id int64) (model.Task, bool, error) {
	task, ok := t.manager.Task(id)
	return task, ok, t.saveIf(ctx, ok)
}

func (t *Tracker) Epic(ctx context.Context, id int64) (model.Epic, bool, error) {
	epic, ok := t.manager.Epic(id)
	return epic, ok, t.saveIf(ctx, ok)
}

func (t *Tracker) Subtask(ctx context.Context, id int64) (model.Subtask, bool, error) {
	subtask, ok := t.manager.Subtask(id)
	return subtask, ok, t.saveIf(ctx, ok)
}

func (t *Tracker) Get(ctx context.Context, id int64) (model.Entity, bool, error) {
	entity, ok := t.manager.Get(id)
	return entity, ok, t.saveIf(ctx, ok)
}

func (t *Tracker) Add(ctx context.Context, entity model.Entity) (int64, error) {
	id := t.manager.Add(entity)
	return id, t.saveIf(ctx, id != model.NoID)
}

func (t *Tracker) AddTask(ctx context.Context, task model.Task) (int64, error) {
	return t.Add(ctx, task)
}

func (t *Tracker) AddEpic(ctx context.Context, epic model.Epic) (int64, error) {
	return t.Add(ctx, epic)
}

func (t *Tracker) AddSubtask(ctx context.Context, subtask model.Subtask) (int64, error) {
	return t.Add(ctx, subtask)
}

func (t *Tracker) Replace(ctx context.Context, entity model.Entity) (bool, error) {
	ok := t.manager.Replace(entity)
	return ok, t.saveIf(ctx, ok)
}

func (t *Tracker) Remove(ctx context.Context, id int64) (bool, error) {
	ok := t.manager.Remove(id)
	return ok, t.saveIf(ctx, ok)
}

func (t *Tracker) RemoveAllTasks(ctx context.Context) error {
	t.manager.RemoveAllTasks()
	return t.Save(ctx)
}

func (t *Tracker) RemoveAllEpics(ctx context.Context) error {
	t.manager.RemoveAllEpics()
	return t.Save(ctx)
}

func (t *Tracker) RemoveAllSubtasks(ctx context.Context) error {
	t.manager.RemoveAllSubtasks()
	return t.Save(ctx)
}
