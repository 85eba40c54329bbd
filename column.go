package silo

import (
	"fmt"
	"reflect"
	"sync"
)

// column is the type-erased structural surface of one component column.
// The chunk/archetype layer manipulates columns through it without knowing
// the concrete type; typed consumers reach the cells through columnOf.
type column interface {
	addEmptySlot() int
	removeSlot(row int)
	moveSlot(row int, dst column)
	length() int

	lock()
	unlock()
	rlock()
	runlock()
}

var _ column = &typedColumn[int]{}

// typedColumn stores the cells for one component type within one chunk. The
// embedded lock guards the cells independently of the storage-level lock, so
// visits over disjoint column sets never contend with each other.
type typedColumn[T any] struct {
	mu    sync.RWMutex
	cells []T
}

func (c *typedColumn[T]) addEmptySlot() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	var zero T
	c.cells = append(c.cells, zero)
	return len(c.cells) - 1
}

func (c *typedColumn[T]) appendValue(v T) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cells = append(c.cells, v)
	return len(c.cells) - 1
}

func (c *typedColumn[T]) removeSlot(row int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.removeSlotLocked(row)
}

// removeSlotLocked swap-removes: the last cell overwrites row and the column
// shrinks by one. Out-of-range rows are a bookkeeping bug, not a caller error.
func (c *typedColumn[T]) removeSlotLocked(row int) {
	last := len(c.cells) - 1
	if row < 0 || row > last {
		panic(fmt.Sprintf("silo: column remove out of range: row %d, length %d", row, last+1))
	}
	c.cells[row] = c.cells[last]
	var zero T
	c.cells[last] = zero
	c.cells = c.cells[:last]
}

// moveSlot appends the cell at row to dst, then swap-removes it locally.
// dst must be a column of the same concrete type. The destination lock is
// acquired before the source is touched; every migration path shares this
// ordering so opposing migrations cannot wait on each other in a cycle.
func (c *typedColumn[T]) moveSlot(row int, dst column) {
	target, found := dst.(*typedColumn[T])
	if !found {
		panic(fmt.Sprintf("silo: column type mismatch: %T cannot receive from %T", dst, c))
	}
	target.mu.Lock()
	c.mu.Lock()
	target.cells = append(target.cells, c.cells[row])
	c.removeSlotLocked(row)
	c.mu.Unlock()
	target.mu.Unlock()
}

func (c *typedColumn[T]) length() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.cells)
}

func (c *typedColumn[T]) setAt(row int, v T) {
	c.mu.Lock()
	c.cells[row] = v
	c.mu.Unlock()
}

// read passes a pointer to the cell to consume while holding the read lock.
func (c *typedColumn[T]) read(row int, consume func(*T)) {
	c.mu.RLock()
	consume(&c.cells[row])
	c.mu.RUnlock()
}

// update passes a pointer to the cell to fn while holding the write lock.
func (c *typedColumn[T]) update(row int, fn func(*T)) {
	c.mu.Lock()
	fn(&c.cells[row])
	c.mu.Unlock()
}

func (c *typedColumn[T]) lock()    { c.mu.Lock() }
func (c *typedColumn[T]) unlock()  { c.mu.Unlock() }
func (c *typedColumn[T]) rlock()   { c.mu.RLock() }
func (c *typedColumn[T]) runlock() { c.mu.RUnlock() }

// columnOf is the checked downcast from the erased column to the typed one.
// Callers derive the column's presence from the archetype's own type-set, so
// a failure here can only be a logic error.
func columnOf[T any](c column) *typedColumn[T] {
	tc, found := c.(*typedColumn[T])
	if !found {
		panic(fmt.Sprintf("silo: column downcast to %v failed on %T", reflect.TypeFor[T](), c))
	}
	return tc
}
