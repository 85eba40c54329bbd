package silo

import (
	"sync"
	"sync/atomic"

	"github.com/TheBitDrifter/mask"
	iter_util "github.com/TheBitDrifter/util/iter"
	"github.com/rotisserie/eris"
	"github.com/rs/zerolog"
)

var _ Storage = &storage{}

// storage owns the schema, the archetype registry and the entity-location
// index. One readers-writer lock serializes structural mutation against
// lookup and traversal; per-column locks inside the chunks handle the rest.
type storage struct {
	mu              sync.RWMutex
	schema          schema
	chunkByteBudget int
	archetypes      archetypeRegistry
	locations       map[EntityID]location

	nextEntity   atomic.Uint64
	activeVisits atomic.Int32
	opQueue      opQueue

	defaultArchetype ArchetypeID
	log              zerolog.Logger
}

type archetypeRegistry struct {
	nextID           ArchetypeID
	asSlice          []*archetypeStorage
	idsGroupedByMask map[mask.Mask]ArchetypeID
	idsGroupedByName map[string]ArchetypeID
}

func newStorage(chunkByteBudget int, log zerolog.Logger) *storage {
	if chunkByteBudget <= 0 {
		chunkByteBudget = DefaultChunkByteBudget
	}
	sto := &storage{
		schema:          newSchema(),
		chunkByteBudget: chunkByteBudget,
		archetypes: archetypeRegistry{
			nextID:           1,
			idsGroupedByMask: make(map[mask.Mask]ArchetypeID),
			idsGroupedByName: make(map[string]ArchetypeID),
		},
		locations: make(map[EntityID]location),
		opQueue:   newOpQueue(),
		log:       log,
	}
	// The empty archetype backs NewEntity calls that name no archetype.
	sto.defaultArchetype = sto.registerArchetypeLocked(nil)
	return sto
}

func (sto *storage) registerArchetypeLocked(entries []componentEntry) ArchetypeID {
	id := sto.archetypes.nextID
	arch := newArchetypeStorage(id, entries, sto.chunkByteBudget)
	sto.archetypes.asSlice = append(sto.archetypes.asSlice, arch)
	sto.archetypes.nextID++
	// The first registration of a type-set stays the migration target.
	if _, exists := sto.archetypes.idsGroupedByMask[arch.mask]; !exists {
		sto.archetypes.idsGroupedByMask[arch.mask] = id
	}
	sto.log.Debug().
		Uint32("archetype", uint32(id)).
		Int("components", len(arch.entries)).
		Int("chunk_rows", arch.capacity).
		Msg("registered archetype")
	return id
}

func (sto *storage) archetypeByID(id ArchetypeID) (*archetypeStorage, error) {
	if id == 0 || int(id) > len(sto.archetypes.asSlice) {
		return nil, ArchetypeNotFoundError{Archetype: id}
	}
	return sto.archetypes.asSlice[id-1], nil
}

func (sto *storage) addArchetypeLocked(components []Component) ArchetypeID {
	entries := make([]componentEntry, 0, len(components))
	seen := make(map[typeKey]struct{}, len(components))
	for _, component := range components {
		entry := sto.schema.register(component)
		if _, dup := seen[entry.key]; dup {
			continue
		}
		seen[entry.key] = struct{}{}
		entries = append(entries, entry)
	}
	return sto.registerArchetypeLocked(entries)
}

func (sto *storage) AddArchetype(components ...Component) ArchetypeID {
	sto.mu.Lock()
	defer sto.mu.Unlock()
	return sto.addArchetypeLocked(components)
}

func (sto *storage) AddNamedArchetype(name string, components ...Component) (ArchetypeID, error) {
	sto.mu.Lock()
	defer sto.mu.Unlock()
	if _, taken := sto.archetypes.idsGroupedByName[name]; taken {
		return 0, NameInUseError{Name: name}
	}
	id := sto.addArchetypeLocked(components)
	sto.archetypes.idsGroupedByName[name] = id
	return id, nil
}

func (sto *storage) ArchetypeByName(name string) (ArchetypeID, bool) {
	sto.mu.RLock()
	defer sto.mu.RUnlock()
	id, found := sto.archetypes.idsGroupedByName[name]
	return id, found
}

func (sto *storage) NewEntity(archetype ...ArchetypeID) (EntityID, error) {
	target := sto.defaultArchetype
	if len(archetype) > 0 {
		target = archetype[0]
	}
	id := EntityID(sto.nextEntity.Add(1))
	sto.mu.Lock()
	defer sto.mu.Unlock()
	return id, sto.addLocked(id, target)
}

func (sto *storage) addLocked(id EntityID, target ArchetypeID) error {
	arch, err := sto.archetypeByID(target)
	if err != nil {
		return err
	}
	sto.locations[id] = arch.add(id)
	return nil
}

func (sto *storage) Remove(id EntityID) error {
	sto.mu.Lock()
	defer sto.mu.Unlock()
	return sto.removeLocked(id)
}

func (sto *storage) removeLocked(id EntityID) error {
	loc, found := sto.locations[id]
	if !found {
		return EntityNotFoundError{Entity: id}
	}
	arch, err := sto.archetypeByID(loc.archetype)
	if err != nil {
		return eris.Wrap(err, "location index references an unknown archetype")
	}
	swapped, hasSwap, err := arch.remove(loc)
	if err != nil {
		return eris.Wrap(err, "failed to remove entity row")
	}
	delete(sto.locations, id)
	if hasSwap {
		// The chunk's last row moved into the vacated slot.
		sto.locations[swapped] = loc
	}
	return nil
}

func (sto *storage) Contains(id EntityID) bool {
	sto.mu.RLock()
	defer sto.mu.RUnlock()
	_, found := sto.locations[id]
	return found
}

func (sto *storage) EntityArchetype(id EntityID) (ArchetypeID, error) {
	sto.mu.RLock()
	defer sto.mu.RUnlock()
	loc, found := sto.locations[id]
	if !found {
		return 0, EntityNotFoundError{Entity: id}
	}
	return loc.archetype, nil
}

func (sto *storage) RowCount() int {
	sto.mu.RLock()
	defer sto.mu.RUnlock()
	total := 0
	for _, arch := range sto.archetypes.asSlice {
		total += arch.rowCount()
	}
	return total
}

func (sto *storage) ArchetypeCount() int {
	sto.mu.RLock()
	defer sto.mu.RUnlock()
	return len(sto.archetypes.asSlice)
}

func (sto *storage) Clear() {
	sto.mu.Lock()
	defer sto.mu.Unlock()
	for _, arch := range sto.archetypes.asSlice {
		arch.clear()
	}
	clear(sto.locations)
	sto.log.Debug().Msg("storage cleared")
}

// archetypeForMaskLocked resolves the migration target for a type-set,
// registering a new archetype built from src's entries plus extra when the
// set has never been seen.
func (sto *storage) archetypeForMaskLocked(m mask.Mask, src *archetypeStorage, extra ...componentEntry) (*archetypeStorage, error) {
	if id, found := sto.archetypes.idsGroupedByMask[m]; found {
		return sto.archetypeByID(id)
	}
	entries := iter_util.Collect(src.componentEntries())
	entries = append(entries, extra...)
	return sto.archetypeByID(sto.registerArchetypeLocked(entries))
}
