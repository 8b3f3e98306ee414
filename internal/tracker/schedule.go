package tracker

import (
	"time"

	"github.com/google/btree"

	"github.com/Joseda-hg/tasktracker/internal/model"
)

type scheduleItem struct {
	id     int64
	start  *time.Time
	end    *time.Time
	entity model.Scheduled
}

func newScheduleItem(entity model.Scheduled) scheduleItem {
	start, end := entity.Interval()
	return scheduleItem{id: entity.Ref().ID, start: start, end: end, entity: entity}
}

// lessSchedule orders by start time with unscheduled entries last, then by id.
func lessSchedule(a, b scheduleItem) bool {
	switch {
	case a.start == nil && b.start == nil:
		return a.id < b.id
	case a.start == nil:
		return false
	case b.start == nil:
		return true
	case !a.start.Equal(*b.start):
		return a.start.Before(*b.start)
	}
	return a.id < b.id
}

// Schedule keeps tasks and subtasks in start-time order and answers whether a
// candidate interval collides with one already scheduled. Intervals are
// half-open: a task ending at 11:00 does not collide with one starting at 11:00.
type Schedule struct {
	tree  *btree.BTreeG[scheduleItem]
	items map[int64]scheduleItem
}

func NewSchedule() *Schedule {
	return &Schedule{
		tree:  btree.NewG(16, lessSchedule),
		items: make(map[int64]scheduleItem),
	}
}

// Add inserts entity, replacing any entry with the same id.
func (s *Schedule) Add(entity model.Scheduled) {
	s.Remove(entity.Ref().ID)
	item := newScheduleItem(entity)
	s.tree.ReplaceOrInsert(item)
	s.items[item.id] = item
}

func (s *Schedule) Remove(id int64) {
	item, ok := s.items[id]
	if !ok {
		return
	}
	s.tree.Delete(item)
	delete(s.items, id)
}

func (s *Schedule) Len() int {
	return s.tree.Len()
}

// Overlaps reports whether candidate's interval intersects an entry other
// than candidate's own. Unscheduled candidates never overlap.
//
// Only the nearest neighbours in start order are inspected: every insertion
// goes through this check, so the stored intervals never overlap each other
// and nothing further away can reach the candidate.
func (s *Schedule) Overlaps(candidate model.Scheduled) bool {
	pivot := newScheduleItem(candidate)
	if pivot.start == nil {
		return false
	}

	var before, after *scheduleItem
	s.tree.DescendLessOrEqual(pivot, func(item scheduleItem) bool {
		if item.id == pivot.id {
			return true
		}
		before = &item
		return false
	})
	s.tree.AscendGreaterOrEqual(pivot, func(item scheduleItem) bool {
		if item.id == pivot.id {
			return true
		}
		after = &item
		return false
	})

	if before != nil && before.end != nil && before.end.After(*pivot.start) {
		return true
	}
	if after != nil && after.start != nil && after.start.Before(*pivot.end) {
		return true
	}
	return false
}

// Entities returns every entry in schedule order.
func (s *Schedule) Entities() []model.Scheduled {
	entities := make([]model.Scheduled, 0, s.tree.Len())
	s.tree.Ascend(func(item scheduleItem) bool {
		entities = append(entities, item.entity)
		return true
	})
	return entities
}
