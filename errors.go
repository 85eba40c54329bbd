package silo

import (
	"fmt"
	"reflect"
)

type EntityNotFoundError struct {
	Entity EntityID
}

func (e EntityNotFoundError) Error() string {
	return fmt.Sprintf("entity %d does not exist", e.Entity)
}

type ArchetypeNotFoundError struct {
	Archetype ArchetypeID
}

func (e ArchetypeNotFoundError) Error() string {
	return fmt.Sprintf("archetype %d is not registered", e.Archetype)
}

type ComponentNotFoundError struct {
	Type reflect.Type
}

func (e ComponentNotFoundError) Error() string {
	return fmt.Sprintf("component does not exist on entity: %v", e.Type)
}

// LocationOutOfBoundsError means the location index referenced a chunk the
// archetype storage does not have. It indicates a bookkeeping bug, not a
// caller error, and should be treated as non-recoverable.
type LocationOutOfBoundsError struct {
	Archetype ArchetypeID
	Chunk     int
	Chunks    int
}

func (e LocationOutOfBoundsError) Error() string {
	return fmt.Sprintf("location references chunk %d of archetype %d, which has %d chunks",
		e.Chunk, e.Archetype, e.Chunks)
}

type NameInUseError struct {
	Name string
}

func (e NameInUseError) Error() string {
	return fmt.Sprintf("archetype name already registered: %q", e.Name)
}
