package model

import (
	"fmt"
	"strings"
	"time"
)

type Status string

const (
	StatusNew        Status = "NEW"
	StatusInProgress Status = "IN_PROGRESS"
	StatusDone       Status = "DONE"
)

// ParseStatus accepts any letter case; an empty value means NEW.
func ParseStatus(value string) (Status, error) {
	normalized := strings.ToUpper(strings.TrimSpace(value))
	normalized = strings.ReplaceAll(normalized, "-", "_")
	switch Status(normalized) {
	case "":
		return StatusNew, nil
	case StatusNew, StatusInProgress, StatusDone:
		return Status(normalized), nil
	}
	return "", fmt.Errorf("unknown status %q", value)
}

type Kind string

const (
	KindTask    Kind = "TASK"
	KindEpic    Kind = "EPIC"
	KindSubtask Kind = "SUBTASK"
)

func ParseKind(value string) (Kind, error) {
	switch Kind(strings.ToUpper(strings.TrimSpace(value))) {
	case KindTask:
		return KindTask, nil
	case KindEpic:
		return KindEpic, nil
	case KindSubtask:
		return KindSubtask, nil
	}
	return "", fmt.Errorf("unknown task type %q", value)
}

// Ref identifies a stored entity.
type Ref struct {
	ID   int64
	Kind Kind
}

// Entity is implemented by Task, Epic and Subtask.
type Entity interface {
	Ref() Ref
}

// Scheduled is implemented by Task and Subtask, the entities that occupy
// time on the schedule.
type Scheduled interface {
	Entity
	Interval() (start, end *time.Time)
}

// NoID marks an entity that has not been assigned an id yet.
const NoID int64 = 0

type Task struct {
	ID          int64
	Name        string
	Status      Status
	Description string
	StartTime   *time.Time
	Duration    int // minutes
}

func NewTask(name string, status Status, description string, start *time.Time, duration int) Task {
	return Task{
		Name:        name,
		Status:      status,
		Description: description,
		StartTime:   start,
		Duration:    duration,
	}.Normalized()
}

func (t Task) Ref() Ref {
	return Ref{ID: t.ID, Kind: KindTask}
}

// EndTime is nil for unscheduled tasks.
func (t Task) EndTime() *time.Time {
	if t.StartTime == nil {
		return nil
	}
	end := t.StartTime.Add(time.Duration(t.Duration) * time.Minute)
	return &end
}

func (t Task) Interval() (start, end *time.Time) {
	return copyTime(t.StartTime), t.EndTime()
}

// Normalized clamps the duration, defaults the status and truncates the start
// time to whole minutes. The start time is copied so callers cannot alias it.
func (t Task) Normalized() Task {
	if t.Duration < 0 {
		t.Duration = 0
	}
	if t.Status == "" {
		t.Status = StatusNew
	}
	if t.StartTime != nil {
		start := t.StartTime.Truncate(time.Minute)
		t.StartTime = &start
	}
	return t
}

type Subtask struct {
	Task
	EpicID int64
}

func NewSubtask(epicID int64, name string, status Status, description string, start *time.Time, duration int) Subtask {
	return Subtask{Task: NewTask(name, status, description, start, duration), EpicID: epicID}
}

func (s Subtask) Ref() Ref {
	return Ref{ID: s.ID, Kind: KindSubtask}
}

func (s Subtask) Normalized() Subtask {
	s.Task = s.Task.Normalized()
	return s
}

// Epic groups subtasks. Its status and schedule are produced by Rebuild and
// cannot be set directly.
type Epic struct {
	ID          int64
	Name        string
	Description string

	derived    Derived
	subtaskIDs []int64
}

func NewEpic(id int64, name, description string) Epic {
	return Epic{ID: id, Name: name, Description: description, derived: Aggregate(nil)}
}

func (e Epic) Ref() Ref {
	return Ref{ID: e.ID, Kind: KindEpic}
}

func (e Epic) Status() Status {
	if e.derived.Status == "" {
		return StatusNew
	}
	return e.derived.Status
}

func (e Epic) StartTime() *time.Time {
	return copyTime(e.derived.StartTime)
}

func (e Epic) Duration() int {
	return e.derived.Duration
}

func (e Epic) EndTime() *time.Time {
	return copyTime(e.derived.EndTime)
}

// SubtaskIDs returns the epic's subtasks in the order they were added.
func (e Epic) SubtaskIDs() []int64 {
	ids := make([]int64, len(e.subtaskIDs))
	copy(ids, e.subtaskIDs)
	return ids
}

func (e Epic) HasSubtask(id int64) bool {
	for _, subtaskID := range e.subtaskIDs {
		if subtaskID == id {
			return true
		}
	}
	return false
}

// Rebuild returns a copy of epic owning exactly subtasks, with status and
// schedule recomputed from them.
func Rebuild(epic Epic, subtasks []Subtask) Epic {
	ids := make([]int64, 0, len(subtasks))
	for _, subtask := range subtasks {
		ids = append(ids, subtask.ID)
	}
	epic.subtaskIDs = ids
	epic.derived = Aggregate(subtasks)
	return epic
}

// Snapshot is everything a persistence layer must round-trip.
type Snapshot struct {
	Tasks    []Task    `json:"tasks"`
	Epics    []Epic    `json:"epics"`
	Subtasks []Subtask `json:"subtasks"`
	History  []int64   `json:"history"`
	NextID   int64     `json:"nextId"`
}

func (s Snapshot) Empty() bool {
	return len(s.Tasks) == 0 && len(s.Epics) == 0 && len(s.Subtasks) == 0 && len(s.History) == 0
}

func copyTime(value *time.Time) *time.Time {
	if value == nil {
		return nil
	}
	copied := *value
	return &copied
}
