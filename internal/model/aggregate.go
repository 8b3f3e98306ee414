package model

import "time"

// Derived is the part of an epic computed from its subtasks.
type Derived struct {
	Status    Status
	StartTime *time.Time
	Duration  int
	EndTime   *time.Time
}

// Aggregate computes an epic's status and schedule from its subtasks.
//
// The status is the status shared by every subtask, or IN_PROGRESS as soon as
// one subtask is in progress or two subtasks disagree. The duration sums every
// subtask, scheduled or not, while the start and end only consider subtasks
// with a start time.
func Aggregate(subtasks []Subtask) Derived {
	if len(subtasks) == 0 {
		return Derived{Status: StatusNew}
	}
	return Derived{
		Status:    aggregateStatus(subtasks),
		StartTime: earliestStart(subtasks),
		Duration:  totalDuration(subtasks),
		EndTime:   latestEnd(subtasks),
	}
}

func aggregateStatus(subtasks []Subtask) Status {
	candidate := subtasks[0].Status
	for _, subtask := range subtasks {
		if subtask.Status == StatusInProgress || subtask.Status != candidate {
			return StatusInProgress
		}
	}
	return candidate
}

func totalDuration(subtasks []Subtask) int {
	total := 0
	for _, subtask := range subtasks {
		total += subtask.Duration
	}
	return total
}

func earliestStart(subtasks []Subtask) *time.Time {
	var earliest *time.Time
	for _, subtask := range subtasks {
		if subtask.StartTime == nil {
			continue
		}
		if earliest == nil || subtask.StartTime.Before(*earliest) {
			earliest = subtask.StartTime
		}
	}
	return copyTime(earliest)
}

func latestEnd(subtasks []Subtask) *time.Time {
	var latest *time.Time
	for _, subtask := range subtasks {
		end := subtask.EndTime()
		if end == nil {
			continue
		}
		if latest == nil || end.After(*latest) {
			latest = end
		}
	}
	return latest
}
