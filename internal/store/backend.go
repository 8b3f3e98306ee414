package store

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/Joseda-hg/tasktracker/internal/config"
	"github.com/Joseda-hg/tasktracker/internal/csvfile"
	"github.com/Joseda-hg/tasktracker/internal/db"
	"github.com/Joseda-hg/tasktracker/internal/kv"
	"github.com/Joseda-hg/tasktracker/internal/model"
	"github.com/Joseda-hg/tasktracker/internal/pg"
)

// Backend persists whole snapshots. Load on a backend that holds nothing yet
// returns an empty snapshot.
type Backend interface {
	Save(ctx context.Context, snapshot model.Snapshot) error
	Load(ctx context.Context) (model.Snapshot, error)
	Close() error
}

// OpenBackend builds the backend named by cfg.
func OpenBackend(ctx context.Context, cfg config.Storage) (Backend, error) {
	switch cfg.Backend {
	case config.BackendMemory:
		return NewMemory(), nil
	case config.BackendCSV:
		return csvfile.New(cfg.Path), nil
	case config.BackendSQLite:
		return opened(db.Open(ctx, cfg.Path))
	case config.BackendPostgres:
		return opened(pg.Open(ctx, cfg.DSN))
	case config.BackendKV:
		return opened(kv.NewBackend(ctx, cfg.KVURL))
	}
	return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
}

// opened keeps a failed constructor from leaking a typed nil into Backend.
func opened[B Backend](backend B, err error) (Backend, error) {
	if err != nil {
		return nil, fmt.Errorf("open storage: %w", err)
	}
	return backend, nil
}

// Memory keeps the last saved snapshot in process.
type Memory struct {
	mu       sync.Mutex
	snapshot model.Snapshot
	saves    int
}

func NewMemory() *Memory {
	return &Memory{}
}

func (m *Memory) Save(_ context.Context, snapshot model.Snapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.snapshot = cloneSnapshot(snapshot)
	m.saves++
	return nil
}

func (m *Memory) Load(context.Context) (model.Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return cloneSnapshot(m.snapshot), nil
}

func (m *Memory) Close() error {
	return nil
}

// Saves counts successful saves.
func (m *Memory) Saves() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saves
}

func cloneSnapshot(snapshot model.Snapshot) model.Snapshot {
	return model.Snapshot{
		Tasks:    slices.Clone(snapshot.Tasks),
		Epics:    slices.Clone(snapshot.Epics),
		Subtasks: slices.Clone(snapshot.Subtasks),
		History:  slices.Clone(snapshot.History),
		NextID:   snapshot.NextID,
	}
}
