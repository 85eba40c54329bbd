/*
Package silo provides a chunked, archetype-based entity/component storage engine.

Silo groups entities by their exact component-type set (their archetype) and
stores each archetype's data in fixed-capacity columnar chunks, one column per
component type plus a reserved entity-id column. Entities with the same
components live next to each other, so traversal touches contiguous memory.

Core Concepts:

  - EntityID: an opaque, never-recycled handle for one logical entity.
  - Component: a plain Go struct attached to entities, identified by its type.
  - Archetype: an exact set of component types; adding or removing a
    component migrates the entity's row to a different archetype.
  - Chunk: a fixed-capacity row-group sized by a byte budget, so wide
    archetypes get proportionally fewer rows per chunk.
  - Visit: typed traversal over every row of every archetype containing the
    requested component types.

Basic Usage:

	// Create storage
	sto := silo.Factory.NewStorage(silo.DefaultChunkByteBudget)

	// Define components
	position := silo.FactoryNewComponent[Position]()
	velocity := silo.FactoryNewComponent[Velocity]()

	// Register an archetype and create entities in it
	moving := sto.AddArchetype(position, velocity)
	id, _ := sto.NewEntity(moving)
	silo.Set(sto, id, Position{X: 1, Y: 2})
	silo.Set(sto, id, Velocity{X: 3, Y: 4})

	// Traverse all entities that have both components
	silo.Visit2(sto, func(_ silo.EntityID, pos *Position, vel *Velocity) {
		pos.X += vel.X
		pos.Y += vel.Y
	})

Structural mutation (NewEntity, Set of a new component type, Remove) is
serialized against traversal by a storage-level readers-writer lock. Inside a
visitor callback use the Enqueue variants (EnqueueSet, EnqueueRemove,
EnqueueNewEntity); they defer the mutation until the last active visit
finishes instead of deadlocking on the storage lock.

Silo is a sibling of the warehouse/table libraries but stands alone; it has no
persistence, no query language, and no opinion about how callers schedule work.
*/
package silo
