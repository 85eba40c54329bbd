package silo

import (
	"reflect"

	"github.com/rotisserie/eris"
)

// Get resolves the entity's component of type T and hands it to consume: a
// pointer into the column when the value has been set, nil when the entity's
// archetype lacks T or the value was never set. The pointer is only valid
// for the duration of the call and must not be written through; use Set.
func Get[T any](s Storage, id EntityID, consume func(*T)) error {
	sto := s.(*storage)
	sto.mu.RLock()
	defer sto.mu.RUnlock()

	loc, found := sto.locations[id]
	if !found {
		return EntityNotFoundError{Entity: id}
	}
	arch, err := sto.archetypeByID(loc.archetype)
	if err != nil {
		return eris.Wrap(err, "location index references an unknown archetype")
	}
	entry, registered := sto.schema.lookup(reflect.TypeFor[T]())
	if !registered || !arch.contains(entry.key) {
		consume(nil)
		return nil
	}
	ch, err := arch.chunkAt(loc.chunk)
	if err != nil {
		return eris.Wrap(err, "location index is out of bounds")
	}
	if !ch.isPresent(entry.key, loc.row) {
		consume(nil)
		return nil
	}
	index, _ := arch.columnIndex(entry.key)
	columnOf[T](ch.columns[index]).read(loc.row, consume)
	return nil
}

// Set writes the entity's component of type T. When the entity's archetype
// already has a column for T the cell is overwritten in place under the
// storage read lock; otherwise the row migrates to the archetype for the
// current set plus T, registering that archetype on first use.
func Set[T any](s Storage, id EntityID, value T) error {
	sto := s.(*storage)

	// Fast path: T already present, overwrite in place.
	sto.mu.RLock()
	loc, found := sto.locations[id]
	if !found {
		sto.mu.RUnlock()
		return EntityNotFoundError{Entity: id}
	}
	if entry, registered := sto.schema.lookup(reflect.TypeFor[T]()); registered {
		arch, err := sto.archetypeByID(loc.archetype)
		if err != nil {
			sto.mu.RUnlock()
			return eris.Wrap(err, "location index references an unknown archetype")
		}
		if arch.contains(entry.key) {
			ch, err := arch.chunkAt(loc.chunk)
			if err != nil {
				sto.mu.RUnlock()
				return eris.Wrap(err, "location index is out of bounds")
			}
			index, _ := arch.columnIndex(entry.key)
			columnOf[T](ch.columns[index]).setAt(loc.row, value)
			ch.markPresent(entry.key, loc.row)
			sto.mu.RUnlock()
			return nil
		}
	}
	sto.mu.RUnlock()

	// Slow path: migrate. The state may have moved between the two locks,
	// so everything is re-resolved under the write lock.
	sto.mu.Lock()
	defer sto.mu.Unlock()
	return setLocked(sto, id, value)
}

// setLocked performs the full set operation under the storage write lock.
// Deferred sets from the operation queue land here as well.
func setLocked[T any](sto *storage, id EntityID, value T) error {
	loc, found := sto.locations[id]
	if !found {
		return EntityNotFoundError{Entity: id}
	}
	entry := sto.schema.register(componentType[T]{})
	src, err := sto.archetypeByID(loc.archetype)
	if err != nil {
		return eris.Wrap(err, "location index references an unknown archetype")
	}

	if src.contains(entry.key) {
		ch, err := src.chunkAt(loc.chunk)
		if err != nil {
			return eris.Wrap(err, "location index is out of bounds")
		}
		index, _ := src.columnIndex(entry.key)
		columnOf[T](ch.columns[index]).setAt(loc.row, value)
		ch.markPresent(entry.key, loc.row)
		return nil
	}

	destMask := src.mask
	destMask.Mark(uint32(entry.key))
	dst, err := sto.archetypeForMaskLocked(destMask, src, entry)
	if err != nil {
		return eris.Wrap(err, "failed to resolve destination archetype")
	}
	newLoc, swapped, hasSwap, err := src.moveTo(dst, loc)
	if err != nil {
		return eris.Wrap(err, "failed to migrate entity row")
	}
	sto.locations[id] = newLoc
	if hasSwap {
		sto.locations[swapped] = loc
	}

	ch, err := dst.chunkAt(newLoc.chunk)
	if err != nil {
		return eris.Wrap(err, "migration produced an out-of-bounds location")
	}
	index, _ := dst.columnIndex(entry.key)
	columnOf[T](ch.columns[index]).setAt(newLoc.row, value)
	ch.markPresent(entry.key, newLoc.row)

	sto.log.Debug().
		Uint64("entity", uint64(id)).
		Uint32("from", uint32(loc.archetype)).
		Uint32("to", uint32(newLoc.archetype)).
		Msg("migrated entity")
	return nil
}

// Unset removes the component of type T from the entity, migrating its row
// to the archetype for the current set minus T. Returns
// ComponentNotFoundError when the entity does not carry T.
func Unset[T any](s Storage, id EntityID) error {
	sto := s.(*storage)
	sto.mu.Lock()
	defer sto.mu.Unlock()

	loc, found := sto.locations[id]
	if !found {
		return EntityNotFoundError{Entity: id}
	}
	entry, registered := sto.schema.lookup(reflect.TypeFor[T]())
	src, err := sto.archetypeByID(loc.archetype)
	if err != nil {
		return eris.Wrap(err, "location index references an unknown archetype")
	}
	if !registered || !src.contains(entry.key) {
		return ComponentNotFoundError{Type: reflect.TypeFor[T]()}
	}

	destMask := src.mask
	destMask.Unmark(uint32(entry.key))
	var dst *archetypeStorage
	if destID, known := sto.archetypes.idsGroupedByMask[destMask]; known {
		dst, err = sto.archetypeByID(destID)
		if err != nil {
			return eris.Wrap(err, "failed to resolve destination archetype")
		}
	} else {
		entries := make([]componentEntry, 0, len(src.entries)-1)
		for candidate := range src.componentEntries() {
			if candidate.key != entry.key {
				entries = append(entries, candidate)
			}
		}
		dst, err = sto.archetypeByID(sto.registerArchetypeLocked(entries))
		if err != nil {
			return eris.Wrap(err, "failed to resolve destination archetype")
		}
	}

	newLoc, swapped, hasSwap, err := src.moveTo(dst, loc)
	if err != nil {
		return eris.Wrap(err, "failed to migrate entity row")
	}
	sto.locations[id] = newLoc
	if hasSwap {
		sto.locations[swapped] = loc
	}
	return nil
}
