package model

import (
	"testing"
	"time"
)

func TestRowsFlattenInKindOrder(t *testing.T) {
	start := time.Date(2022, 6, 10, 9, 0, 0, 0, time.UTC)
	subtask := NewSubtask(2, "Subtask", StatusDone, "", &start, 30)
	subtask.ID = 3
	task := NewTask("Task", StatusNew, "", nil, 5)
	task.ID = 1
	snapshot := Snapshot{
		Tasks:    []Task{task},
		Epics:    []Epic{Rebuild(NewEpic(2, "Epic", ""), []Subtask{subtask})},
		Subtasks: []Subtask{subtask},
	}

	rows := snapshot.Rows()
	if len(rows) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(rows))
	}
	kinds := []Kind{rows[0].Kind, rows[1].Kind, rows[2].Kind}
	if kinds[0] != KindTask || kinds[1] != KindEpic || kinds[2] != KindSubtask {
		t.Fatalf("unexpected kind order %v", kinds)
	}
	epic := rows[1]
	if epic.Status != StatusDone || epic.Duration != 30 || epic.StartTime == nil || !epic.StartTime.Equal(start) {
		t.Fatalf("expected derived epic columns, got %+v", epic)
	}
	if rows[2].EpicID != 2 {
		t.Fatalf("expected subtask row to carry its epic, got %d", rows[2].EpicID)
	}
}

func TestSnapshotFromRowsIgnoresEpicColumns(t *testing.T) {
	rows := []Row{
		{ID: 1, Kind: KindEpic, Name: "Epic", Status: StatusDone, Duration: 99},
		{ID: 2, Kind: KindSubtask, Name: "Subtask", Status: StatusNew, Duration: -5, EpicID: 1},
	}
	snapshot, err := SnapshotFromRows(rows, []int64{2}, 3)
	if err != nil {
		t.Fatalf("from rows: %v", err)
	}
	if snapshot.Epics[0].Status() != StatusNew || snapshot.Epics[0].Duration() != 0 {
		t.Fatalf("stored epic columns must be ignored, got %+v", snapshot.Epics[0])
	}
	if snapshot.Subtasks[0].Duration != 0 {
		t.Fatalf("expected duration clamped, got %d", snapshot.Subtasks[0].Duration)
	}
	if snapshot.NextID != 3 || len(snapshot.History) != 1 {
		t.Fatalf("unexpected snapshot %+v", snapshot)
	}
}

func TestSnapshotFromRowsRejectsBadRows(t *testing.T) {
	if _, err := SnapshotFromRows([]Row{{ID: 1, Kind: KindSubtask}}, nil, 0); err == nil {
		t.Fatalf("expected error for subtask without epic")
	}
	if _, err := SnapshotFromRows([]Row{{ID: 1, Kind: "STORY"}}, nil, 0); err == nil {
		t.Fatalf("expected error for unknown kind")
	}
}
