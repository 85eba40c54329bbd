package silo

import (
	"reflect"
	"slices"

	"github.com/TheBitDrifter/mask"
)

// visitChunks walks every chunk of every archetype whose type-set contains
// all of types, handing the requested columns (in types order) to body. The
// storage read lock is held for the whole walk; column locking is body's
// responsibility. A false return from body stops the walk early. Deferred
// operations queued during the walk drain when the last active visit ends.
func (sto *storage) visitChunks(types []reflect.Type, body func(keys []typeKey, ids *typedColumn[EntityID], rows int, cols []column) bool) VisitStats {
	var stats VisitStats
	sto.mu.RLock()
	sto.activeVisits.Add(1)

	keys := make([]typeKey, len(types))
	resolved := true
	for i, t := range types {
		entry, found := sto.schema.lookup(t)
		if !found {
			// An unregistered type cannot appear in any archetype.
			resolved = false
			break
		}
		keys[i] = entry.key
	}

	if resolved {
		var requested mask.Mask
		for _, key := range keys {
			requested.Mark(uint32(key))
		}
		cols := make([]column, len(keys))
	scan:
		for _, arch := range sto.archetypes.asSlice {
			if !arch.mask.ContainsAll(requested) {
				continue
			}
			stats.ArchetypesMatched++
			for _, ch := range arch.chunks {
				stats.ChunksVisited++
				for i, key := range keys {
					index, _ := arch.columnIndex(key)
					cols[i] = ch.columns[index]
				}
				rows := ch.rowCount()
				stats.RowsVisited += rows
				if !body(keys, ch.entities, rows, cols) {
					break scan
				}
			}
		}
	}

	sto.mu.RUnlock()
	sto.finishVisit()
	return stats
}

// lockInKeyOrder acquires the requested column locks in ascending key order
// so concurrent visits over overlapping sets cannot deadlock, deduplicating
// repeated columns. The returned func releases in reverse order.
func lockInKeyOrder(keys []typeKey, cols []column, write bool) (release func()) {
	order := make([]int, len(keys))
	for i := range order {
		order[i] = i
	}
	slices.SortFunc(order, func(a, b int) int {
		return int(keys[a]) - int(keys[b])
	})
	locked := make([]column, 0, len(order))
	for _, i := range order {
		if len(locked) > 0 && locked[len(locked)-1] == cols[i] {
			continue
		}
		if write {
			cols[i].lock()
		} else {
			cols[i].rlock()
		}
		locked = append(locked, cols[i])
	}
	return func() {
		for i := len(locked) - 1; i >= 0; i-- {
			if write {
				locked[i].unlock()
			} else {
				locked[i].runlock()
			}
		}
	}
}

// Visit1 invokes fn once per row of every archetype containing A, with
// exclusive access to the A column while each chunk is walked. Structural
// mutation from inside fn must go through the Enqueue operations.
func Visit1[A any](s Storage, fn func(EntityID, *A)) VisitStats {
	sto := s.(*storage)
	types := []reflect.Type{reflect.TypeFor[A]()}
	return sto.visitChunks(types, func(keys []typeKey, ids *typedColumn[EntityID], rows int, cols []column) bool {
		ca := columnOf[A](cols[0])
		release := lockInKeyOrder(keys, cols, true)
		defer release()
		for i := 0; i < rows; i++ {
			fn(ids.cells[i], &ca.cells[i])
		}
		return true
	})
}

// Visit2 is Visit1 over archetypes containing both A and B.
func Visit2[A, B any](s Storage, fn func(EntityID, *A, *B)) VisitStats {
	sto := s.(*storage)
	types := []reflect.Type{reflect.TypeFor[A](), reflect.TypeFor[B]()}
	return sto.visitChunks(types, func(keys []typeKey, ids *typedColumn[EntityID], rows int, cols []column) bool {
		ca := columnOf[A](cols[0])
		cb := columnOf[B](cols[1])
		release := lockInKeyOrder(keys, cols, true)
		defer release()
		for i := 0; i < rows; i++ {
			fn(ids.cells[i], &ca.cells[i], &cb.cells[i])
		}
		return true
	})
}

// Visit3 is Visit1 over archetypes containing A, B and C.
func Visit3[A, B, C any](s Storage, fn func(EntityID, *A, *B, *C)) VisitStats {
	sto := s.(*storage)
	types := []reflect.Type{reflect.TypeFor[A](), reflect.TypeFor[B](), reflect.TypeFor[C]()}
	return sto.visitChunks(types, func(keys []typeKey, ids *typedColumn[EntityID], rows int, cols []column) bool {
		ca := columnOf[A](cols[0])
		cb := columnOf[B](cols[1])
		cc := columnOf[C](cols[2])
		release := lockInKeyOrder(keys, cols, true)
		defer release()
		for i := 0; i < rows; i++ {
			fn(ids.cells[i], &ca.cells[i], &cb.cells[i], &cc.cells[i])
		}
		return true
	})
}

// View1 is the read-only counterpart of Visit1: fn receives value copies
// under column read locks, so overlapping View calls run concurrently.
func View1[A any](s Storage, fn func(EntityID, A)) VisitStats {
	sto := s.(*storage)
	types := []reflect.Type{reflect.TypeFor[A]()}
	return sto.visitChunks(types, func(keys []typeKey, ids *typedColumn[EntityID], rows int, cols []column) bool {
		ca := columnOf[A](cols[0])
		release := lockInKeyOrder(keys, cols, false)
		defer release()
		for i := 0; i < rows; i++ {
			fn(ids.cells[i], ca.cells[i])
		}
		return true
	})
}

// View2 is the read-only counterpart of Visit2.
func View2[A, B any](s Storage, fn func(EntityID, A, B)) VisitStats {
	sto := s.(*storage)
	types := []reflect.Type{reflect.TypeFor[A](), reflect.TypeFor[B]()}
	return sto.visitChunks(types, func(keys []typeKey, ids *typedColumn[EntityID], rows int, cols []column) bool {
		ca := columnOf[A](cols[0])
		cb := columnOf[B](cols[1])
		release := lockInKeyOrder(keys, cols, false)
		defer release()
		for i := 0; i < rows; i++ {
			fn(ids.cells[i], ca.cells[i], cb.cells[i])
		}
		return true
	})
}
