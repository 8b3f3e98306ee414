package pg

import (
	"context"
	"os"
	"reflect"
	"testing"
	"time"

	"github.com/Joseda-hg/tasktracker/internal/model"
	"github.com/Joseda-hg/tasktracker/internal/tracker"
)

// newTestStore connects to the database named by TASKTRACKER_PG_DSN. The
// tables are cleared, so point it at a scratch database.
func newTestStore(t *testing.T) *Store {
	t.Helper()
	dsn := os.Getenv("TASKTRACKER_PG_DSN")
	if dsn == "" {
		t.Skip("TASKTRACKER_PG_DSN not set")
	}
	store, err := Open(context.Background(), dsn)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	if err := store.Save(context.Background(), model.Snapshot{}); err != nil {
		t.Fatalf("reset: %v", err)
	}
	return store
}

func TestSaveLoadRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	start := time.Date(2022, 6, 10, 9, 0, 0, 0, time.UTC)
	m := tracker.NewManager()
	epicID := m.AddEpic(model.NewEpic(model.NoID, "Epic", "Epic description"))
	m.AddSubtask(model.NewSubtask(epicID, "Subtask", model.StatusDone, "", &start, 90))
	m.AddTask(model.NewTask("Task", model.StatusNew, "", nil, 5))
	m.Get(epicID)
	want := m.Export()

	if err := store.Save(ctx, want); err != nil {
		t.Fatalf("save: %v", err)
	}
	loaded, err := store.Load(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	restored, err := tracker.FromSnapshot(loaded)
	if err != nil {
		t.Fatalf("restore: %v", err)
	}
	if got := restored.Export(); !reflect.DeepEqual(got, want) {
		t.Fatalf("round trip mismatch:\nwant %+v\ngot  %+v", want, got)
	}
}

func TestLoadEmpty(t *testing.T) {
	store := newTestStore(t)
	snapshot, err := store.Load(context.Background())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !snapshot.Empty() {
		t.Fatalf("expected empty snapshot, got %+v", snapshot)
	}
}

func TestOpenRequiresDSN(t *testing.T) {
	if _, err := Open(context.Background(), ""); err == nil {
		t.Fatalf("expected error for empty dsn")
	}
}
