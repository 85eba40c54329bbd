package silo

import "reflect"

// EntityID is a caller-visible reference to a logical entity. Ids are
// allocated monotonically starting at 1 and are never recycled, not even
// after Remove. Zero is never a valid id.
type EntityID uint64

// ArchetypeID identifies one registered archetype storage. Ids start at 1.
type ArchetypeID uint32

// Storage is the top-level authority over entities, archetypes and the
// entity-location index. Typed access goes through the package-level generic
// functions (Get, Set, Unset, Visit1..3, View1..2, EnqueueSet) since Go does
// not allow generic methods.
type Storage interface {
	// AddArchetype registers a new archetype storage for the exact set of
	// component types given. No dedup is performed; registering the same set
	// twice yields two storages, and the first registration of a set remains
	// the migration target for that set.
	AddArchetype(components ...Component) ArchetypeID

	// AddNamedArchetype registers an archetype and indexes it under name.
	AddNamedArchetype(name string, components ...Component) (ArchetypeID, error)

	// ArchetypeByName resolves a name registered via AddNamedArchetype.
	ArchetypeByName(name string) (ArchetypeID, bool)

	// NewEntity allocates a fresh entity id and adds a row for it to the
	// given archetype, or to the built-in empty archetype when none is given.
	NewEntity(archetype ...ArchetypeID) (EntityID, error)

	// Remove deletes the entity's row and its location-index entry.
	Remove(EntityID) error

	// Contains reports whether the entity id refers to a live entity.
	Contains(EntityID) bool

	// EntityArchetype returns the archetype the entity currently lives in.
	EntityArchetype(EntityID) (ArchetypeID, error)

	// RowCount sums the occupied rows of every archetype storage. It always
	// equals the number of live entities.
	RowCount() int

	// ArchetypeCount reports how many archetypes have been registered.
	ArchetypeCount() int

	// Clear drops every row and the whole location index. Archetype
	// registrations (and the schema) are retained, and entity ids keep
	// counting up from where they were.
	Clear()

	// EnqueueRemove behaves like Remove, but defers the removal while any
	// visit is active. See the package documentation.
	EnqueueRemove(EntityID) error

	// EnqueueNewEntity behaves like NewEntity with deferral; the returned id
	// is assigned immediately but the row appears once the operation applies.
	EnqueueNewEntity(archetype ...ArchetypeID) (EntityID, error)
}

// Component identifies a concrete component type to the storage. Values are
// cheap, stateless handles created with FactoryNewComponent.
type Component interface {
	componentType() reflect.Type
	rowBytes() uintptr
	newColumn(capacity int) column
}

// VisitStats aggregates what one visit traversed.
type VisitStats struct {
	ArchetypesMatched int
	ChunksVisited     int
	RowsVisited       int
}
