package model

import (
	"fmt"
	"time"
)

// Row is the flat form every table and file backend stores an entity in. For
// epics the status and schedule columns carry the derived values; they are
// ignored when the row is read back.
type Row struct {
	ID          int64
	Kind        Kind
	Name        string
	Status      Status
	Description string
	StartTime   *time.Time
	Duration    int
	EpicID      int64
}

// Rows flattens the snapshot's entities: tasks, then epics, then subtasks.
func (s Snapshot) Rows() []Row {
	rows := make([]Row, 0, len(s.Tasks)+len(s.Epics)+len(s.Subtasks))
	for _, task := range s.Tasks {
		rows = append(rows, taskRow(task, KindTask))
	}
	for _, epic := range s.Epics {
		rows = append(rows, Row{
			ID:          epic.ID,
			Kind:        KindEpic,
			Name:        epic.Name,
			Status:      epic.Status(),
			Description: epic.Description,
			StartTime:   epic.StartTime(),
			Duration:    epic.Duration(),
		})
	}
	for _, subtask := range s.Subtasks {
		row := taskRow(subtask.Task, KindSubtask)
		row.EpicID = subtask.EpicID
		rows = append(rows, row)
	}
	return rows
}

func taskRow(task Task, kind Kind) Row {
	return Row{
		ID:          task.ID,
		Kind:        kind,
		Name:        task.Name,
		Status:      task.Status,
		Description: task.Description,
		StartTime:   copyTime(task.StartTime),
		Duration:    task.Duration,
	}
}

func (r Row) task() Task {
	return Task{
		ID:          r.ID,
		Name:        r.Name,
		Status:      r.Status,
		Description: r.Description,
		StartTime:   copyTime(r.StartTime),
		Duration:    r.Duration,
	}.Normalized()
}

// SnapshotFromRows groups rows back into a snapshot, keeping their order
// within each kind.
func SnapshotFromRows(rows []Row, history []int64, nextID int64) (Snapshot, error) {
	snapshot := Snapshot{History: history, NextID: nextID}
	for _, row := range rows {
		switch row.Kind {
		case KindTask:
			snapshot.Tasks = append(snapshot.Tasks, row.task())
		case KindEpic:
			snapshot.Epics = append(snapshot.Epics, NewEpic(row.ID, row.Name, row.Description))
		case KindSubtask:
			if row.EpicID <= 0 {
				return Snapshot{}, fmt.Errorf("subtask %d has no epic", row.ID)
			}
			snapshot.Subtasks = append(snapshot.Subtasks, Subtask{Task: row.task(), EpicID: row.EpicID})
		default:
			return Snapshot{}, fmt.Errorf("entity %d: unknown task type %q", row.ID, row.Kind)
		}
	}
	return snapshot, nil
}
