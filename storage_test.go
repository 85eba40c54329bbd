package silo

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Shared test components.
type Position struct{ X, Y float64 }

type Velocity struct{ X, Y float64 }

type Health struct{ Amount int }

type Counter struct{ Value int64 }

type Label struct{ Text string }

func TestNewEntityDefaultArchetype(t *testing.T) {
	sto := Factory.NewStorage(DefaultChunkByteBudget)

	id, err := sto.NewEntity()
	require.NoError(t, err)
	require.Equal(t, EntityID(1), id)
	assert.True(t, sto.Contains(id))
	assert.Equal(t, 1, sto.RowCount())

	arch, err := sto.EntityArchetype(id)
	require.NoError(t, err)
	assert.Equal(t, ArchetypeID(1), arch, "default entities live in the built-in empty archetype")
}

func TestNewEntityUnknownArchetype(t *testing.T) {
	sto := Factory.NewStorage(DefaultChunkByteBudget)

	_, err := sto.NewEntity(ArchetypeID(42))
	var notFound ArchetypeNotFoundError
	require.ErrorAs(t, err, &notFound)
	assert.Equal(t, ArchetypeID(42), notFound.Archetype)
}

func TestAddArchetypeNoDedup(t *testing.T) {
	sto := Factory.NewStorage(DefaultChunkByteBudget)
	position := FactoryNewComponent[Position]()

	first := sto.AddArchetype(position)
	second := sto.AddArchetype(position)
	assert.NotEqual(t, first, second, "AddArchetype must not dedup; idempotency is the caller's job")
	assert.Equal(t, 3, sto.ArchetypeCount()) // plus the built-in empty archetype
}

func TestGetBeforeSetReturnsNil(t *testing.T) {
	sto := Factory.NewStorage(DefaultChunkByteBudget)
	arch := sto.AddArchetype(FactoryNewComponent[Position]())
	id, err := sto.NewEntity(arch)
	require.NoError(t, err)

	called := false
	err = Get(sto, id, func(p *Position) {
		called = true
		assert.Nil(t, p, "declared but never-set component must read as absent")
	})
	require.NoError(t, err)
	assert.True(t, called)
}

func TestSetGetRoundTrip(t *testing.T) {
	sto := Factory.NewStorage(DefaultChunkByteBudget)
	arch := sto.AddArchetype(FactoryNewComponent[Position]())
	id, err := sto.NewEntity(arch)
	require.NoError(t, err)

	want := Position{X: 3, Y: 4}
	require.NoError(t, Set(sto, id, want))

	var got Position
	err = Get(sto, id, func(p *Position) {
		require.NotNil(t, p)
		got = *p
	})
	require.NoError(t, err)
	assert.Equal(t, want, got)

	// A type outside the archetype reads as absent.
	err = Get(sto, id, func(h *Health) { assert.Nil(t, h) })
	require.NoError(t, err)
}

func TestInPlaceSetKeepsArchetype(t *testing.T) {
	sto := Factory.NewStorage(DefaultChunkByteBudget)
	arch := sto.AddArchetype(FactoryNewComponent[Counter]())
	id, err := sto.NewEntity(arch)
	require.NoError(t, err)

	require.NoError(t, Set(sto, id, Counter{Value: 1}))
	before, err := sto.EntityArchetype(id)
	require.NoError(t, err)

	require.NoError(t, Set(sto, id, Counter{Value: 2}))
	after, err := sto.EntityArchetype(id)
	require.NoError(t, err)
	assert.Equal(t, before, after)

	var got int64
	require.NoError(t, Get(sto, id, func(c *Counter) { got = c.Value }))
	assert.Equal(t, int64(2), got)
}

func TestSetMigration(t *testing.T) {
	sto := Factory.NewStorage(DefaultChunkByteBudget)
	arch := sto.AddArchetype(FactoryNewComponent[Position]())

	id, err := sto.NewEntity(arch)
	require.NoError(t, err)
	require.NoError(t, Set(sto, id, Position{X: 1, Y: 2}))

	require.NoError(t, Set(sto, id, Velocity{X: 5, Y: 6}))

	migrated, err := sto.EntityArchetype(id)
	require.NoError(t, err)
	assert.NotEqual(t, arch, migrated, "adding a component must move the entity to another archetype")

	var pos Position
	require.NoError(t, Get(sto, id, func(p *Position) {
		require.NotNil(t, p)
		pos = *p
	}))
	assert.Equal(t, Position{X: 1, Y: 2}, pos, "existing values must survive migration")

	var vel Velocity
	require.NoError(t, Get(sto, id, func(v *Velocity) {
		require.NotNil(t, v)
		vel = *v
	}))
	assert.Equal(t, Velocity{X: 5, Y: 6}, vel)

	// A second entity taking the same transition lands in the same archetype.
	other, err := sto.NewEntity(arch)
	require.NoError(t, err)
	require.NoError(t, Set(sto, other, Velocity{X: 1, Y: 1}))
	otherArch, err := sto.EntityArchetype(other)
	require.NoError(t, err)
	assert.Equal(t, migrated, otherArch)
}

func TestUnset(t *testing.T) {
	sto := Factory.NewStorage(DefaultChunkByteBudget)
	arch := sto.AddArchetype(FactoryNewComponent[Position]())
	id, err := sto.NewEntity(arch)
	require.NoError(t, err)
	require.NoError(t, Set(sto, id, Position{X: 1, Y: 1}))
	require.NoError(t, Set(sto, id, Velocity{X: 2, Y: 2}))

	require.NoError(t, Unset[Velocity](sto, id))

	back, err := sto.EntityArchetype(id)
	require.NoError(t, err)
	assert.Equal(t, arch, back, "removing the added component returns the entity to its original archetype")

	require.NoError(t, Get(sto, id, func(v *Velocity) { assert.Nil(t, v) }))
	var pos Position
	require.NoError(t, Get(sto, id, func(p *Position) {
		require.NotNil(t, p)
		pos = *p
	}))
	assert.Equal(t, Position{X: 1, Y: 1}, pos)

	var missing ComponentNotFoundError
	require.ErrorAs(t, Unset[Velocity](sto, id), &missing)
}

// TestChunkedRemoveScenario forces two chunks of two rows and checks that
// swap-removal stays chunk-local, keeps values with their entities, and
// fixes up the displaced entity's location.
func TestChunkedRemoveScenario(t *testing.T) {
	sch := newSchema()
	entries := []componentEntry{
		sch.register(componentType[Counter]{}),
		sch.register(componentType[Label]{}),
	}
	budget := 2 * int(rowBytesFor(entries))
	sto := Factory.NewStorage(budget)

	arch := sto.AddArchetype(FactoryNewComponent[Counter](), FactoryNewComponent[Label]())
	inner := sto.(*storage)
	archSto := inner.archetypes.asSlice[arch-1]
	require.Equal(t, 2, archSto.capacity)

	e1, err := sto.NewEntity(arch)
	require.NoError(t, err)
	e2, err := sto.NewEntity(arch)
	require.NoError(t, err)
	e3, err := sto.NewEntity(arch)
	require.NoError(t, err)
	require.Len(t, archSto.chunks, 2, "three entities at two rows per chunk need two chunks")

	require.NoError(t, Set(sto, e1, Counter{Value: 10}))
	require.NoError(t, Set(sto, e2, Counter{Value: 20}))
	require.NoError(t, Set(sto, e3, Counter{Value: 30}))

	require.NoError(t, sto.Remove(e1))
	assert.Equal(t, 2, sto.RowCount())
	assert.False(t, sto.Contains(e1))

	// e2 was chunk 0's last row; the swap moved it into the vacated slot
	// with its values intact.
	loc := inner.locations[e2]
	assert.Equal(t, 0, loc.chunk)
	assert.Equal(t, 0, loc.row)
	var got int64
	require.NoError(t, Get(sto, e2, func(c *Counter) {
		require.NotNil(t, c)
		got = c.Value
	}))
	assert.Equal(t, int64(20), got)

	// e3 lives in chunk 1 and is untouched.
	require.NoError(t, Get(sto, e3, func(c *Counter) {
		require.NotNil(t, c)
		got = c.Value
	}))
	assert.Equal(t, int64(30), got)
}

func TestRowCountConservation(t *testing.T) {
	sto := Factory.NewStorage(256)
	arch := sto.AddArchetype(FactoryNewComponent[Counter]())

	live := make(map[EntityID]struct{})
	for i := 0; i < 20; i++ {
		id, err := sto.NewEntity(arch)
		require.NoError(t, err)
		live[id] = struct{}{}
		require.NoError(t, Set(sto, id, Counter{Value: int64(i)}))
		if i%3 == 0 {
			// Migrate a third of them to a wider archetype.
			require.NoError(t, Set(sto, id, Label{Text: "x"}))
		}
	}
	removed := 0
	for id := range live {
		if removed == 7 {
			break
		}
		require.NoError(t, sto.Remove(id))
		delete(live, id)
		removed++
	}
	assert.Equal(t, len(live), sto.RowCount())
}

func TestClearRetainsRegistrations(t *testing.T) {
	sto := Factory.NewStorage(DefaultChunkByteBudget)
	arch := sto.AddArchetype(FactoryNewComponent[Position]())
	first, err := sto.NewEntity(arch)
	require.NoError(t, err)

	archetypesBefore := sto.ArchetypeCount()
	sto.Clear()

	assert.Equal(t, 0, sto.RowCount())
	assert.False(t, sto.Contains(first))
	assert.Equal(t, archetypesBefore, sto.ArchetypeCount())

	second, err := sto.NewEntity(arch)
	require.NoError(t, err)
	assert.Greater(t, second, first, "ids keep counting up after Clear")
}

func TestRemoveNotFound(t *testing.T) {
	sto := Factory.NewStorage(DefaultChunkByteBudget)
	id, err := sto.NewEntity()
	require.NoError(t, err)
	require.NoError(t, sto.Remove(id))

	var notFound EntityNotFoundError
	require.ErrorAs(t, sto.Remove(id), &notFound)
	assert.Equal(t, id, notFound.Entity)
}

func TestNamedArchetypes(t *testing.T) {
	sto := Factory.NewStorage(DefaultChunkByteBudget)
	position := FactoryNewComponent[Position]()

	id, err := sto.AddNamedArchetype("player", position)
	require.NoError(t, err)

	got, found := sto.ArchetypeByName("player")
	require.True(t, found)
	assert.Equal(t, id, got)

	_, found = sto.ArchetypeByName("monster")
	assert.False(t, found)

	var taken NameInUseError
	_, err = sto.AddNamedArchetype("player", position)
	require.ErrorAs(t, err, &taken)
}
