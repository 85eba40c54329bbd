package silo

import (
	"github.com/TheBitDrifter/mask"
)

// chunk is one fixed-capacity row-group of an archetype: one column per
// component type (in the archetype's key order) plus two reserved columns,
// the entity-id column and the per-row presence mask. The presence mask
// records which components have actually been written since the row was
// created, so a freshly added entity reads as having no values yet.
type chunk struct {
	columns  []column
	entities *typedColumn[EntityID]
	presence *typedColumn[mask.Mask]
	capacity int
	free     int
}

func newChunk(entries []componentEntry, capacity int) *chunk {
	columns := make([]column, len(entries))
	for i, entry := range entries {
		columns[i] = entry.make(capacity)
	}
	return &chunk{
		columns:  columns,
		entities: &typedColumn[EntityID]{cells: make([]EntityID, 0, capacity)},
		presence: &typedColumn[mask.Mask]{cells: make([]mask.Mask, 0, capacity)},
		capacity: capacity,
		free:     capacity,
	}
}

func (c *chunk) available() int {
	return c.free
}

func (c *chunk) rowCount() int {
	return c.entities.length()
}

// add appends an empty slot to every column and records the entity id.
// Chunk selection happens in the archetype storage, so a full chunk here is
// a bookkeeping bug.
func (c *chunk) add(id EntityID) int {
	if c.free <= 0 {
		panic("silo: add on a full chunk")
	}
	for _, col := range c.columns {
		col.addEmptySlot()
	}
	c.presence.appendValue(mask.Mask{})
	row := c.entities.appendValue(id)
	c.free--
	return row
}

func (c *chunk) entityAt(row int) (EntityID, bool) {
	if row < 0 || row >= c.entities.length() {
		return 0, false
	}
	var id EntityID
	c.entities.read(row, func(v *EntityID) { id = *v })
	return id, true
}

func (c *chunk) isPresent(key typeKey, row int) bool {
	var want mask.Mask
	want.Mark(uint32(key))
	var present bool
	c.presence.read(row, func(m *mask.Mask) { present = m.ContainsAll(want) })
	return present
}

func (c *chunk) markPresent(key typeKey, row int) {
	c.presence.update(row, func(m *mask.Mask) { m.Mark(uint32(key)) })
}

// remove swap-removes the row from every column and reports the entity that
// was moved into the vacated slot, if any.
func (c *chunk) remove(row int) (EntityID, bool) {
	last := c.entities.length() - 1
	var swapped EntityID
	hasSwap := row != last
	if hasSwap {
		swapped, _ = c.entityAt(last)
	}
	for _, col := range c.columns {
		col.removeSlot(row)
	}
	c.presence.removeSlot(row)
	c.entities.removeSlot(row)
	c.free++
	return swapped, hasSwap
}

// moveTo relocates the row into dst, whose archetype may gain or drop
// columns relative to this one. Shared columns move their cell, columns
// missing from dst drop theirs, and dst-only columns gain a zero cell that
// the caller overwrites afterwards. Returns the destination row plus the
// entity swapped into the vacated source slot, if any.
func (c *chunk) moveTo(row int, dst *chunk, srcEntries, dstEntries []componentEntry) (int, EntityID, bool) {
	last := c.entities.length() - 1
	var swapped EntityID
	hasSwap := row != last
	if hasSwap {
		swapped, _ = c.entityAt(last)
	}
	id, _ := c.entityAt(row)

	// Entries are key-sorted on both sides, so one merge walk pairs the
	// columns up.
	i, j := 0, 0
	for i < len(srcEntries) {
		for j < len(dstEntries) && dstEntries[j].key < srcEntries[i].key {
			dst.columns[j].addEmptySlot()
			j++
		}
		if j < len(dstEntries) && dstEntries[j].key == srcEntries[i].key {
			c.columns[i].moveSlot(row, dst.columns[j])
			j++
		} else {
			c.columns[i].removeSlot(row)
		}
		i++
	}
	for j < len(dstEntries) {
		dst.columns[j].addEmptySlot()
		j++
	}

	c.presence.moveSlot(row, dst.presence)
	newRow := dst.entities.appendValue(id)
	c.entities.removeSlot(row)
	c.free++
	dst.free--
	return newRow, swapped, hasSwap
}
