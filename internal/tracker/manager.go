package tracker

import (
	"fmt"
	"sort"
	"sync"

	"github.com/Joseda-hg/tasktracker/internal/model"
)

// Manager owns tasks, epics and subtasks together with their view history and
// schedule. Every public method runs under one mutex, so each call is applied
// as a single transaction.
//
// Rejected mutations are reported through the return value (id 0 or false),
// never through an error.
type Manager struct {
	mu       sync.Mutex
	nextID   int64
	tasks    map[int64]model.Task
	epics    map[int64]model.Epic
	subtasks map[int64]model.Subtask
	history  *History
	schedule *Schedule
}

func NewManager() *Manager {
	return &Manager{
		nextID:   1,
		tasks:    make(map[int64]model.Task),
		epics:    make(map[int64]model.Epic),
		subtasks: make(map[int64]model.Subtask),
		history:  NewHistory(),
		schedule: NewSchedule(),
	}
}

// NextID is the id the next unassigned entity will receive.
func (m *Manager) NextID() int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.nextID
}

func (m *Manager) Tasks() []model.Task {
	m.mu.Lock()
	defer m.mu.Unlock()
	return sortedValues(m.tasks)
}

func (m *Manager) Epics() []model.Epic {
	m.mu.Lock()
	defer m.mu.Unlock()
	return sortedValues(m.epics)
}

func (m *Manager) Subtasks() []model.Subtask {
	m.mu.Lock()
	defer m.mu.Unlock()
	return sortedValues(m.subtasks)
}

// EpicSubtasks lists an epic's subtasks in the order they were added. It does
// not record a view.
func (m *Manager) EpicSubtasks(epicID int64) ([]model.Subtask, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	epic, ok := m.epics[epicID]
	if !ok {
		return nil, false
	}
	return m.subtasksOf(epic), true
}

// KindOf reports which collection holds id without recording a view.
func (m *Manager) KindOf(id int64) (model.Kind, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	switch {
	case hasKey(m.tasks, id):
		return model.KindTask, true
	case hasKey(m.epics, id):
		return model.KindEpic, true
	case hasKey(m.subtasks, id):
		return model.KindSubtask, true
	}
	return "", false
}

// Task returns a task and records the view in the history.
func (m *Manager) Task(id int64) (model.Task, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return view(m.history, m.tasks, id)
}

func (m *Manager) Epic(id int64) (model.Epic, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return view(m.history, m.epics, id)
}

func (m *Manager) Subtask(id int64) (model.Subtask, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return view(m.history, m.subtasks, id)
}

// Get looks an id up in every collection and records the view.
func (m *Manager) Get(id int64) (model.Entity, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if task, ok := view(m.history, m.tasks, id); ok {
		return task, true
	}
	if epic, ok := view(m.history, m.epics, id); ok {
		return epic, true
	}
	if subtask, ok := view(m.history, m.subtasks, id); ok {
		return subtask, true
	}
	return nil, false
}

// History returns the viewed entities, oldest view first.
func (m *Manager) History() []model.Entity {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.history.Entities()
}

// Prioritized returns tasks and subtasks ordered by start time, unscheduled
// ones last.
func (m *Manager) Prioritized() []model.Scheduled {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.schedule.Entities()
}

// AddTask stores task and returns its id, or 0 when the task was rejected.
func (m *Manager) AddTask(task model.Task) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.addTask(task)
}

// AddEpic stores epic without subtasks and returns its id, or 0.
func (m *Manager) AddEpic(epic model.Epic) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.addEpic(epic)
}

// AddSubtask stores subtask under its epic and returns its id, or 0 when the
// epic is unknown, the id is taken or the subtask collides with the schedule.
func (m *Manager) AddSubtask(subtask model.Subtask) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.addSubtask(subtask)
}

// Add dispatches on the entity's kind.
func (m *Manager) Add(entity model.Entity) int64 {
	switch value := entity.(type) {
	case model.Task:
		return m.AddTask(value)
	case model.Epic:
		return m.AddEpic(value)
	case model.Subtask:
		return m.AddSubtask(value)
	}
	return model.NoID
}

func (m *Manager) ReplaceTask(task model.Task) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	task = task.Normalized()
	if _, ok := m.tasks[task.ID]; !ok {
		return false
	}
	if m.schedule.Overlaps(task) {
		return false
	}
	m.tasks[task.ID] = task
	m.schedule.Add(task)
	m.history.Update(task)
	return true
}

// ReplaceEpic swaps the epic's own fields. Its subtasks and derived state are
// kept.
func (m *Manager) ReplaceEpic(epic model.Epic) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	current, ok := m.epics[epic.ID]
	if !ok {
		return false
	}
	current.Name = epic.Name
	current.Description = epic.Description
	m.putEpic(model.Rebuild(current, m.subtasksOf(current)))
	return true
}

// ReplaceSubtask swaps a subtask in place. The replacement must name the same
// epic as the stored subtask.
func (m *Manager) ReplaceSubtask(subtask model.Subtask) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	subtask = subtask.Normalized()
	current, ok := m.subtasks[subtask.ID]
	if !ok || current.EpicID != subtask.EpicID {
		return false
	}
	epic, ok := m.epics[subtask.EpicID]
	if !ok || !epic.HasSubtask(subtask.ID) {
		return false
	}
	if m.schedule.Overlaps(subtask) {
		return false
	}
	m.subtasks[subtask.ID] = subtask
	m.schedule.Add(subtask)
	m.history.Update(subtask)
	m.putEpic(model.Rebuild(epic, m.subtasksOf(epic)))
	return true
}

// Replace dispatches on the entity's kind.
func (m *Manager) Replace(entity model.Entity) bool {
	switch value := entity.(type) {
	case model.Task:
		return m.ReplaceTask(value)
	case model.Epic:
		return m.ReplaceEpic(value)
	case model.Subtask:
		return m.ReplaceSubtask(value)
	}
	return false
}

// Remove deletes the entity with id from whichever collection holds it.
// Removing an epic removes its subtasks too. It reports whether anything was
// removed.
func (m *Manager) Remove(id int64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.tasks[id]; ok {
		delete(m.tasks, id)
		m.schedule.Remove(id)
		m.history.Remove(id)
		return true
	}
	if epic, ok := m.epics[id]; ok {
		for _, subtaskID := range epic.SubtaskIDs() {
			delete(m.subtasks, subtaskID)
			m.schedule.Remove(subtaskID)
			m.history.Remove(subtaskID)
		}
		delete(m.epics, id)
		m.history.Remove(id)
		return true
	}
	if subtask, ok := m.subtasks[id]; ok {
		epic := m.mustEpic(subtask)
		remaining := make([]model.Subtask, 0, len(epic.SubtaskIDs()))
		for _, sibling := range m.subtasksOf(epic) {
			if sibling.ID != id {
				remaining = append(remaining, sibling)
			}
		}
		delete(m.subtasks, id)
		m.schedule.Remove(id)
		m.history.Remove(id)
		m.putEpic(model.Rebuild(epic, remaining))
		return true
	}
	return false
}

func (m *Manager) RemoveAllTasks() {
	m.mu.Lock()
	defer m.mu.Unlock()

	for id := range m.tasks {
		m.schedule.Remove(id)
		m.history.Remove(id)
	}
	clear(m.tasks)
}

// RemoveAllEpics removes every epic and, with them, every subtask.
func (m *Manager) RemoveAllEpics() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.dropSubtasks()
	for id := range m.epics {
		m.history.Remove(id)
	}
	clear(m.epics)
}

// RemoveAllSubtasks removes every subtask and resets each epic to its empty
// state.
func (m *Manager) RemoveAllSubtasks() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.dropSubtasks()
	for id, epic := range m.epics {
		m.epics[id] = model.Rebuild(epic, nil)
		m.history.Update(m.epics[id])
	}
}

func (m *Manager) addTask(task model.Task) int64 {
	task = task.Normalized()
	id, ok := m.admit(task.ID)
	if !ok {
		return model.NoID
	}
	task.ID = id
	if m.schedule.Overlaps(task) {
		return model.NoID
	}
	m.tasks[id] = task
	m.schedule.Add(task)
	m.commitID(id)
	return id
}

func (m *Manager) addEpic(epic model.Epic) int64 {
	id, ok := m.admit(epic.ID)
	if !ok {
		return model.NoID
	}
	epic.ID = id
	m.epics[id] = model.Rebuild(epic, nil)
	m.commitID(id)
	return id
}

func (m *Manager) addSubtask(subtask model.Subtask) int64 {
	subtask = subtask.Normalized()
	epic, ok := m.epics[subtask.EpicID]
	if !ok {
		return model.NoID
	}
	id, ok := m.admit(subtask.ID)
	if !ok {
		return model.NoID
	}
	subtask.ID = id
	if m.schedule.Overlaps(subtask) {
		return model.NoID
	}
	m.subtasks[id] = subtask
	m.schedule.Add(subtask)
	m.putEpic(model.Rebuild(epic, append(m.subtasksOf(epic), subtask)))
	m.commitID(id)
	return id
}

// admit resolves the id an incoming entity will be stored under.
func (m *Manager) admit(id int64) (int64, bool) {
	if id == model.NoID {
		id = m.nextID
	}
	if id <= 0 || m.taken(id) {
		return model.NoID, false
	}
	return id, true
}

func (m *Manager) commitID(id int64) {
	if id >= m.nextID {
		m.nextID = id + 1
	}
}

func (m *Manager) taken(id int64) bool {
	return hasKey(m.tasks, id) || hasKey(m.epics, id) || hasKey(m.subtasks, id)
}

func hasKey[T any](collection map[int64]T, id int64) bool {
	_, ok := collection[id]
	return ok
}

func (m *Manager) putEpic(epic model.Epic) {
	m.epics[epic.ID] = epic
	m.history.Update(epic)
}

func (m *Manager) subtasksOf(epic model.Epic) []model.Subtask {
	ids := epic.SubtaskIDs()
	subtasks := make([]model.Subtask, 0, len(ids))
	for _, id := range ids {
		subtask, ok := m.subtasks[id]
		if !ok {
			panic(fmt.Sprintf("tracker: epic %d lists missing subtask %d", epic.ID, id))
		}
		subtasks = append(subtasks, subtask)
	}
	return subtasks
}

func (m *Manager) mustEpic(subtask model.Subtask) model.Epic {
	epic, ok := m.epics[subtask.EpicID]
	if !ok {
		panic(fmt.Sprintf("tracker: subtask %d references missing epic %d", subtask.ID, subtask.EpicID))
	}
	return epic
}

func (m *Manager) dropSubtasks() {
	for id := range m.subtasks {
		m.schedule.Remove(id)
		m.history.Remove(id)
	}
	clear(m.subtasks)
}

func view[T model.Entity](history *History, collection map[int64]T, id int64) (T, bool) {
	value, ok := collection[id]
	if ok {
		history.Touch(value)
	}
	return value, ok
}

func sortedValues[T model.Entity](collection map[int64]T) []T {
	values := make([]T, 0, len(collection))
	for _, value := range collection {
		values = append(values, value)
	}
	sort.Slice(values, func(i, j int) bool {
		return values[i].Ref().ID < values[j].Ref().ID
	})
	return values
}
