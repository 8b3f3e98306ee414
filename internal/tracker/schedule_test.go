package tracker

import (
	"testing"
	"time"

	"github.com/Joseda-hg/tasktracker/internal/model"
)

func at(hour, minute int) *time.Time {
	value := time.Date(2022, 6, 10, hour, minute, 0, 0, time.UTC)
	return &value
}

func scheduled(id int64, start *time.Time, duration int) model.Task {
	task := model.NewTask("Task", model.StatusNew, "", start, duration)
	task.ID = id
	return task
}

func TestScheduleOverlapBoundaries(t *testing.T) {
	tests := []struct {
		name      string
		candidate model.Task
		want      bool
	}{
		{name: "ends inside", candidate: scheduled(2, at(10, 29), 2), want: true},
		{name: "back to back after", candidate: scheduled(2, at(11, 0), 1), want: false},
		{name: "back to back before", candidate: scheduled(2, at(10, 0), 30), want: false},
		{name: "same start", candidate: scheduled(2, at(10, 30), 5), want: true},
		{name: "contains", candidate: scheduled(2, at(10, 0), 120), want: true},
		{name: "inside", candidate: scheduled(2, at(10, 40), 5), want: true},
		{name: "unscheduled", candidate: scheduled(2, nil, 500), want: false},
		{name: "zero length at start", candidate: scheduled(2, at(10, 30), 0), want: true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			schedule := NewSchedule()
			schedule.Add(scheduled(1, at(10, 30), 30))
			if got := schedule.Overlaps(tc.candidate); got != tc.want {
				t.Fatalf("expected overlap %v, got %v", tc.want, got)
			}
		})
	}
}

func TestScheduleOverlapIgnoresOwnEntry(t *testing.T) {
	schedule := NewSchedule()
	schedule.Add(scheduled(1, at(9, 0), 60))
	schedule.Add(scheduled(2, at(10, 30), 30))
	schedule.Add(scheduled(3, at(12, 0), 30))

	if schedule.Overlaps(scheduled(2, at(10, 45), 30)) {
		t.Fatalf("moving a task within its own slot must not conflict with itself")
	}
	if !schedule.Overlaps(scheduled(2, at(11, 45), 30)) {
		t.Fatalf("moving a task onto its neighbour must conflict")
	}
	if !schedule.Overlaps(scheduled(3, at(9, 30), 10)) {
		t.Fatalf("moving a task onto a distant entry must conflict")
	}
}

func TestScheduleOrdersByStartThenID(t *testing.T) {
	schedule := NewSchedule()
	schedule.Add(scheduled(5, nil, 10))
	schedule.Add(scheduled(4, at(12, 0), 10))
	schedule.Add(scheduled(3, nil, 10))
	schedule.Add(scheduled(2, at(9, 0), 0))
	schedule.Add(scheduled(1, at(9, 0), 0))

	var ids []int64
	for _, entity := range schedule.Entities() {
		ids = append(ids, entity.Ref().ID)
	}
	assertIDs(t, ids, 1, 2, 4, 3, 5)
}

func TestScheduleAddReplacesSameID(t *testing.T) {
	schedule := NewSchedule()
	schedule.Add(scheduled(1, at(9, 0), 10))
	schedule.Add(scheduled(1, at(14, 0), 10))
	if schedule.Len() != 1 {
		t.Fatalf("expected one entry, got %d", schedule.Len())
	}
	if schedule.Overlaps(scheduled(2, at(9, 0), 10)) {
		t.Fatalf("old interval must be gone after re-adding")
	}
}

func TestScheduleRemove(t *testing.T) {
	schedule := NewSchedule()
	schedule.Add(scheduled(1, at(9, 0), 60))
	schedule.Remove(1)
	schedule.Remove(42)
	if schedule.Len() != 0 {
		t.Fatalf("expected empty schedule, got %d", schedule.Len())
	}
	if schedule.Overlaps(scheduled(2, at(9, 30), 10)) {
		t.Fatalf("removed entry must not conflict")
	}
}

func TestScheduleSubtasksShareTimeline(t *testing.T) {
	schedule := NewSchedule()
	subtask := model.NewSubtask(1, "Subtask", model.StatusNew, "", at(10, 0), 60)
	subtask.ID = 2
	schedule.Add(subtask)
	if !schedule.Overlaps(scheduled(3, at(10, 30), 10)) {
		t.Fatalf("tasks must conflict with scheduled subtasks")
	}
}
