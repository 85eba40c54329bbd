package silo

import (
	"iter"
	"reflect"
	"slices"

	"github.com/TheBitDrifter/mask"
)

// location is where an entity's row currently lives. Locations are plain
// indices, never pointers; swap-removal and migration fix them up explicitly.
type location struct {
	archetype ArchetypeID
	chunk     int
	row       int
}

// archetypeStorage owns every chunk of one exact component-type set. The set
// is immutable once created; adding or removing a component always migrates
// the row to a different archetype storage.
type archetypeStorage struct {
	id       ArchetypeID
	mask     mask.Mask
	entries  []componentEntry // ascending key order
	rowBytes uintptr
	capacity int // rows per chunk, fixed at construction
	chunks   []*chunk
}

// rowBytesFor sums the per-row footprint of an entry set, including the
// reserved entity-id and presence columns every chunk carries.
func rowBytesFor(entries []componentEntry) uintptr {
	total := reflect.TypeFor[EntityID]().Size() + reflect.TypeFor[mask.Mask]().Size()
	for _, entry := range entries {
		total += entry.size
	}
	return total
}

func newArchetypeStorage(id ArchetypeID, entries []componentEntry, chunkByteBudget int) *archetypeStorage {
	sorted := make([]componentEntry, len(entries))
	copy(sorted, entries)
	slices.SortFunc(sorted, func(a, b componentEntry) int {
		return int(a.key) - int(b.key)
	})
	var m mask.Mask
	for _, entry := range sorted {
		m.Mark(uint32(entry.key))
	}
	rowBytes := rowBytesFor(sorted)
	return &archetypeStorage{
		id:       id,
		mask:     m,
		entries:  sorted,
		rowBytes: rowBytes,
		capacity: max(1, chunkByteBudget/int(rowBytes)),
	}
}

func (a *archetypeStorage) contains(key typeKey) bool {
	var want mask.Mask
	want.Mark(uint32(key))
	return a.mask.ContainsAll(want)
}

func (a *archetypeStorage) columnIndex(key typeKey) (int, bool) {
	for i, entry := range a.entries {
		if entry.key == key {
			return i, true
		}
	}
	return 0, false
}

func (a *archetypeStorage) chunkAt(index int) (*chunk, error) {
	if index < 0 || index >= len(a.chunks) {
		return nil, LocationOutOfBoundsError{Archetype: a.id, Chunk: index, Chunks: len(a.chunks)}
	}
	return a.chunks[index], nil
}

// chunkWithSpace scans chunks in order and returns the first with a free
// row, allocating a new chunk only when none qualifies. Free counters are
// independent per chunk; a later chunk is never assumed emptier.
func (a *archetypeStorage) chunkWithSpace() int {
	for i, ch := range a.chunks {
		if ch.available() > 0 {
			return i
		}
	}
	a.chunks = append(a.chunks, newChunk(a.entries, a.capacity))
	return len(a.chunks) - 1
}

func (a *archetypeStorage) add(id EntityID) location {
	index := a.chunkWithSpace()
	return location{
		archetype: a.id,
		chunk:     index,
		row:       a.chunks[index].add(id),
	}
}

func (a *archetypeStorage) remove(loc location) (EntityID, bool, error) {
	ch, err := a.chunkAt(loc.chunk)
	if err != nil {
		return 0, false, err
	}
	swapped, hasSwap := ch.remove(loc.row)
	return swapped, hasSwap, nil
}

// moveTo migrates the row at loc into dst, selecting a destination chunk
// with capacity first. Per-column locks are taken destination-first inside
// moveSlot, consistently, so opposing migrations between the same two
// archetypes cannot deadlock.
func (a *archetypeStorage) moveTo(dst *archetypeStorage, loc location) (location, EntityID, bool, error) {
	src, err := a.chunkAt(loc.chunk)
	if err != nil {
		return location{}, 0, false, err
	}
	dstIndex := dst.chunkWithSpace()
	newRow, swapped, hasSwap := src.moveTo(loc.row, dst.chunks[dstIndex], a.entries, dst.entries)
	newLoc := location{archetype: dst.id, chunk: dstIndex, row: newRow}
	return newLoc, swapped, hasSwap, nil
}

func (a *archetypeStorage) rowCount() int {
	total := 0
	for _, ch := range a.chunks {
		total += ch.rowCount()
	}
	return total
}

// clear drops all chunks and their rows; the registration itself survives.
func (a *archetypeStorage) clear() {
	a.chunks = nil
}

// componentEntries yields the archetype's entries in key order.
func (a *archetypeStorage) componentEntries() iter.Seq[componentEntry] {
	return func(yield func(componentEntry) bool) {
		for _, entry := range a.entries {
			if !yield(entry) {
				return
			}
		}
	}
}
