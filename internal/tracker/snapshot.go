package tracker

import (
	"errors"
	"fmt"

	"github.com/Joseda-hg/tasktracker/internal/model"
)

var ErrInvalidSnapshot = errors.New("invalid snapshot")

// Export captures the manager's full state.
func (m *Manager) Export() model.Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	return model.Snapshot{
		Tasks:    sortedValues(m.tasks),
		Epics:    sortedValues(m.epics),
		Subtasks: m.orderedSubtasks(),
		History:  m.history.IDs(),
		NextID:   m.nextID,
	}
}

// Load replaces the manager's state with snapshot.
//
// Entities are replayed through the same checks as the Add methods, epics
// first so subtasks always find their owner. If any entity is rejected the
// manager is left untouched and ErrInvalidSnapshot is returned. History ids
// that name no restored entity are skipped.
func (m *Manager) Load(snapshot model.Snapshot) error {
	restored, err := FromSnapshot(snapshot)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID = restored.nextID
	m.tasks = restored.tasks
	m.epics = restored.epics
	m.subtasks = restored.subtasks
	m.history = restored.history
	m.schedule = restored.schedule
	return nil
}

// FromSnapshot builds a new manager from snapshot. See Load.
func FromSnapshot(snapshot model.Snapshot) (*Manager, error) {
	m := NewManager()

	for _, epic := range snapshot.Epics {
		if epic.ID <= 0 || m.addEpic(epic) != epic.ID {
			return nil, fmt.Errorf("%w: epic %d rejected", ErrInvalidSnapshot, epic.ID)
		}
	}
	for _, task := range snapshot.Tasks {
		if task.ID <= 0 || m.addTask(task) != task.ID {
			return nil, fmt.Errorf("%w: task %d rejected", ErrInvalidSnapshot, task.ID)
		}
	}
	for _, subtask := range snapshot.Subtasks {
		if subtask.ID <= 0 || m.addSubtask(subtask) != subtask.ID {
			return nil, fmt.Errorf("%w: subtask %d of epic %d rejected", ErrInvalidSnapshot, subtask.ID, subtask.EpicID)
		}
	}

	for _, id := range snapshot.History {
		if task, ok := m.tasks[id]; ok {
			m.history.Touch(task)
		} else if epic, ok := m.epics[id]; ok {
			m.history.Touch(epic)
		} else if subtask, ok := m.subtasks[id]; ok {
			m.history.Touch(subtask)
		}
	}

	if snapshot.NextID > m.nextID {
		m.nextID = snapshot.NextID
	}
	return m, nil
}

// orderedSubtasks lists subtasks epic by epic, each in insertion order, so a
// replay reproduces every epic's subtask order.
func (m *Manager) orderedSubtasks() []model.Subtask {
	subtasks := make([]model.Subtask, 0, len(m.subtasks))
	for _, epic := range sortedValues(m.epics) {
		subtasks = append(subtasks, m.subtasksOf(epic)...)
	}
	return subtasks
}
