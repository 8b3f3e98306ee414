package tracker

import "github.com/Joseda-hg/tasktracker/internal/model"

const nilSlot = -1

type historyNode struct {
	entity model.Entity
	prev   int
	next   int
}

// History records the order in which entities were last viewed, oldest
// first. It never evicts; entries leave only through Remove.
//
// Nodes live in an arena addressed by slot index, with freed slots reused.
type History struct {
	nodes []historyNode
	free  []int
	index map[int64]int
	head  int
	tail  int
}

func NewHistory() *History {
	return &History{
		index: make(map[int64]int),
		head:  nilSlot,
		tail:  nilSlot,
	}
}

// Touch moves entity to the tail, adding it if needed. A nil entity is ignored.
func (h *History) Touch(entity model.Entity) {
	if entity == nil {
		return
	}
	id := entity.Ref().ID
	if slot, ok := h.index[id]; ok {
		h.unlink(slot)
		h.nodes[slot].entity = entity
		h.linkTail(slot)
		return
	}
	slot := h.alloc(entity)
	h.index[id] = slot
	h.linkTail(slot)
}

// Update replaces the stored value for an entity already in the history
// without changing its position.
func (h *History) Update(entity model.Entity) {
	if entity == nil {
		return
	}
	if slot, ok := h.index[entity.Ref().ID]; ok {
		h.nodes[slot].entity = entity
	}
}

func (h *History) Remove(id int64) {
	slot, ok := h.index[id]
	if !ok {
		return
	}
	h.unlink(slot)
	delete(h.index, id)
	h.nodes[slot] = historyNode{prev: nilSlot, next: nilSlot}
	h.free = append(h.free, slot)
}

func (h *History) Len() int {
	return len(h.index)
}

// Entities returns a copy of the history, oldest view first.
func (h *History) Entities() []model.Entity {
	entities := make([]model.Entity, 0, len(h.index))
	for slot := h.head; slot != nilSlot; slot = h.nodes[slot].next {
		entities = append(entities, h.nodes[slot].entity)
	}
	return entities
}

// IDs returns the ids in history order.
func (h *History) IDs() []int64 {
	ids := make([]int64, 0, len(h.index))
	for slot := h.head; slot != nilSlot; slot = h.nodes[slot].next {
		ids = append(ids, h.nodes[slot].entity.Ref().ID)
	}
	return ids
}

func (h *History) alloc(entity model.Entity) int {
	node := historyNode{entity: entity, prev: nilSlot, next: nilSlot}
	if n := len(h.free); n > 0 {
		slot := h.free[n-1]
		h.free = h.free[:n-1]
		h.nodes[slot] = node
		return slot
	}
	h.nodes = append(h.nodes, node)
	return len(h.nodes) - 1
}

func (h *History) linkTail(slot int) {
	h.nodes[slot].prev = h.tail
	h.nodes[slot].next = nilSlot
	if h.tail == nilSlot {
		h.head = slot
	} else {
		h.nodes[h.tail].next = slot
	}
	h.tail = slot
}

func (h *History) unlink(slot int) {
	node := h.nodes[slot]
	if node.prev == nilSlot {
		h.head = node.next
	} else {
		h.nodes[node.prev].next = node.next
	}
	if node.next == nilSlot {
		h.tail = node.prev
	} else {
		h.nodes[node.next].prev = node.prev
	}
	h.nodes[slot].prev = nilSlot
	h.nodes[slot].next = nilSlot
}
