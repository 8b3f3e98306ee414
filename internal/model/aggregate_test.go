package model

import (
	"testing"
	"time"
)

func at(hour, minute int) *time.Time {
	value := time.Date(2022, 6, 10, hour, minute, 0, 0, time.UTC)
	return &value
}

func subtaskWithStatus(id int64, status Status) Subtask {
	subtask := NewSubtask(1, "Subtask", status, "", nil, 0)
	subtask.ID = id
	return subtask
}

func TestAggregateStatus(t *testing.T) {
	tests := []struct {
		name     string
		statuses []Status
		want     Status
	}{
		{name: "empty", statuses: nil, want: StatusNew},
		{name: "all new", statuses: []Status{StatusNew, StatusNew, StatusNew}, want: StatusNew},
		{name: "all done", statuses: []Status{StatusDone, StatusDone, StatusDone}, want: StatusDone},
		{name: "new and done", statuses: []Status{StatusNew, StatusNew, StatusDone}, want: StatusInProgress},
		{name: "done then new", statuses: []Status{StatusDone, StatusNew}, want: StatusInProgress},
		{name: "one in progress", statuses: []Status{StatusNew, StatusInProgress, StatusNew}, want: StatusInProgress},
		{name: "all in progress", statuses: []Status{StatusInProgress, StatusInProgress}, want: StatusInProgress},
		{name: "single done", statuses: []Status{StatusDone}, want: StatusDone},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			subtasks := make([]Subtask, 0, len(tc.statuses))
			for i, status := range tc.statuses {
				subtasks = append(subtasks, subtaskWithStatus(int64(i+2), status))
			}
			if got := Aggregate(subtasks).Status; got != tc.want {
				t.Fatalf("expected status %s, got %s", tc.want, got)
			}
		})
	}
}

func TestAggregateSchedule(t *testing.T) {
	first := NewSubtask(1, "A", StatusNew, "", at(12, 45), 15)
	unscheduled := NewSubtask(1, "B", StatusNew, "", nil, 45)
	last := NewSubtask(1, "C", StatusNew, "", at(15, 15), 20)

	derived := Aggregate([]Subtask{first, unscheduled, last})
	if derived.Duration != 80 {
		t.Fatalf("expected duration 80, got %d", derived.Duration)
	}
	if derived.StartTime == nil || !derived.StartTime.Equal(*at(12, 45)) {
		t.Fatalf("expected start 12:45, got %v", derived.StartTime)
	}
	if derived.EndTime == nil || !derived.EndTime.Equal(*at(15, 35)) {
		t.Fatalf("expected end 15:35, got %v", derived.EndTime)
	}
}

func TestAggregateWithoutScheduledSubtasks(t *testing.T) {
	derived := Aggregate([]Subtask{
		NewSubtask(1, "A", StatusNew, "", nil, 10),
		NewSubtask(1, "B", StatusNew, "", nil, 25),
	})
	if derived.StartTime != nil || derived.EndTime != nil {
		t.Fatalf("expected no start or end, got %v / %v", derived.StartTime, derived.EndTime)
	}
	if derived.Duration != 35 {
		t.Fatalf("expected duration 35, got %d", derived.Duration)
	}
}

func TestAggregateEmpty(t *testing.T) {
	derived := Aggregate(nil)
	if derived.Status != StatusNew || derived.StartTime != nil || derived.Duration != 0 || derived.EndTime != nil {
		t.Fatalf("unexpected derived state for empty epic: %+v", derived)
	}
}

func TestRebuildTracksSubtasks(t *testing.T) {
	epic := NewEpic(1, "Epic", "")
	a := NewSubtask(1, "A", StatusDone, "", at(10, 0), 30)
	a.ID = 2
	b := NewSubtask(1, "B", StatusDone, "", nil, 10)
	b.ID = 3

	rebuilt := Rebuild(epic, []Subtask{a, b})
	if rebuilt.Status() != StatusDone {
		t.Fatalf("expected DONE, got %s", rebuilt.Status())
	}
	ids := rebuilt.SubtaskIDs()
	if len(ids) != 2 || ids[0] != 2 || ids[1] != 3 {
		t.Fatalf("unexpected subtask ids %v", ids)
	}
	if !rebuilt.HasSubtask(3) || rebuilt.HasSubtask(4) {
		t.Fatalf("HasSubtask disagrees with SubtaskIDs %v", ids)
	}
	if epic.Duration() != 0 || len(epic.SubtaskIDs()) != 0 {
		t.Fatalf("rebuild must not modify the original epic")
	}

	ids[0] = 99
	if rebuilt.SubtaskIDs()[0] != 2 {
		t.Fatalf("SubtaskIDs must return a copy")
	}
}

func TestNormalizedClampsDuration(t *testing.T) {
	task := NewTask("Task", "", "", nil, -5)
	if task.Duration != 0 {
		t.Fatalf("expected duration clamped to 0, got %d", task.Duration)
	}
	if task.Status != StatusNew {
		t.Fatalf("expected default status NEW, got %s", task.Status)
	}
	if task.EndTime() != nil {
		t.Fatalf("expected no end time for unscheduled task")
	}
}

func TestEndTime(t *testing.T) {
	task := NewTask("Task", StatusNew, "", at(10, 30), 30)
	end := task.EndTime()
	if end == nil || !end.Equal(*at(11, 0)) {
		t.Fatalf("expected end 11:00, got %v", end)
	}
}

func TestParseStatus(t *testing.T) {
	tests := map[string]Status{
		"":            StatusNew,
		"new":         StatusNew,
		"In_Progress": StatusInProgress,
		"in-progress": StatusInProgress,
		"DONE":        StatusDone,
	}
	for input, want := range tests {
		got, err := ParseStatus(input)
		if err != nil {
			t.Fatalf("parse %q: %v", input, err)
		}
		if got != want {
			t.Fatalf("parse %q: expected %s, got %s", input, want, got)
		}
	}
	if _, err := ParseStatus("blocked"); err == nil {
		t.Fatalf("expected error for unknown status")
	}
}
