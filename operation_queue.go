package silo

import (
	"errors"
	"sync"
)

type operationType int

const (
	opCreate operationType = iota
	opSet
	opRemove
)

// operation is one structural mutation deferred until no visit is active.
// The typed payload of a Set is captured in the apply closure.
type operation struct {
	typ    operationType
	entity EntityID
	apply  func(*storage) error
}

type opQueue struct {
	mu            sync.Mutex
	ops           []operation
	pendingRemove map[EntityID]struct{}
}

func newOpQueue() opQueue {
	return opQueue{pendingRemove: make(map[EntityID]struct{})}
}

// enqueue defers op while a visit window is open. It reports false when no
// visit is active, in which case the caller applies the operation directly.
func (sto *storage) enqueue(op operation) bool {
	sto.opQueue.mu.Lock()
	defer sto.opQueue.mu.Unlock()
	if sto.activeVisits.Load() == 0 {
		return false
	}
	if _, doomed := sto.opQueue.pendingRemove[op.entity]; doomed {
		// A queued removal supersedes later operations on the same entity.
		return true
	}
	if op.typ == opRemove {
		sto.opQueue.pendingRemove[op.entity] = struct{}{}
	}
	sto.opQueue.ops = append(sto.opQueue.ops, op)
	return true
}

// finishVisit closes one visit window; the last one out drains the queue
// under the storage write lock.
func (sto *storage) finishVisit() {
	if sto.activeVisits.Add(-1) != 0 {
		return
	}
	sto.opQueue.mu.Lock()
	ops := sto.opQueue.ops
	sto.opQueue.ops = nil
	clear(sto.opQueue.pendingRemove)
	sto.opQueue.mu.Unlock()
	if len(ops) == 0 {
		return
	}

	sto.mu.Lock()
	defer sto.mu.Unlock()
	for _, op := range ops {
		if err := op.apply(sto); err != nil {
			var notFound EntityNotFoundError
			if errors.As(err, &notFound) {
				// A queued write lost a race with a removal of the same
				// entity; that is expected.
				sto.log.Debug().Err(err).Msg("skipped deferred operation")
				continue
			}
			sto.log.Error().Err(err).Msg("failed to apply deferred operation")
		}
	}
}

func (sto *storage) EnqueueRemove(id EntityID) error {
	deferred := sto.enqueue(operation{
		typ:    opRemove,
		entity: id,
		apply: func(s *storage) error {
			return s.removeLocked(id)
		},
	})
	if deferred {
		return nil
	}
	return sto.Remove(id)
}

func (sto *storage) EnqueueNewEntity(archetype ...ArchetypeID) (EntityID, error) {
	target := sto.defaultArchetype
	if len(archetype) > 0 {
		target = archetype[0]
	}
	id := EntityID(sto.nextEntity.Add(1))
	deferred := sto.enqueue(operation{
		typ:    opCreate,
		entity: id,
		apply: func(s *storage) error {
			return s.addLocked(id, target)
		},
	})
	if deferred {
		return id, nil
	}
	sto.mu.Lock()
	defer sto.mu.Unlock()
	return id, sto.addLocked(id, target)
}

// EnqueueSet behaves like Set, but defers the write while any visit is
// active. Immediate application errors are returned; deferred application
// errors are logged when the queue drains.
func EnqueueSet[T any](s Storage, id EntityID, value T) error {
	sto := s.(*storage)
	deferred := sto.enqueue(operation{
		typ:    opSet,
		entity: id,
		apply: func(st *storage) error {
			return setLocked(st, id, value)
		},
	})
	if deferred {
		return nil
	}
	return Set(s, id, value)
}
