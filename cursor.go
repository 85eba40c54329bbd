package silo

import (
	"iter"
	"reflect"
)

// Cursor iterates the ids of every entity whose archetype contains all of
// the cursor's component types. The storage read lock is held for the
// duration of one Entities loop; structural mutation from inside the loop
// must go through the Enqueue operations.
type Cursor struct {
	sto   *storage
	types []reflect.Type
}

func newCursor(sto *storage, components ...Component) *Cursor {
	types := make([]reflect.Type, len(components))
	for i, component := range components {
		types[i] = component.componentType()
	}
	return &Cursor{sto: sto, types: types}
}

func (c *Cursor) Entities() iter.Seq[EntityID] {
	return func(yield func(EntityID) bool) {
		c.sto.visitChunks(c.types, func(_ []typeKey, ids *typedColumn[EntityID], rows int, _ []column) bool {
			for i := 0; i < rows; i++ {
				if !yield(ids.cells[i]) {
					return false
				}
			}
			return true
		})
	}
}

// TotalMatched counts the rows a full Entities loop would yield right now.
func (c *Cursor) TotalMatched() int {
	stats := c.sto.visitChunks(c.types, func(_ []typeKey, _ *typedColumn[EntityID], _ int, _ []column) bool {
		return true
	})
	return stats.RowsVisited
}
