package silo

import "reflect"

// typeKey is the stable identity of one component type within a storage.
// Keys are assigned sequentially at registration, which makes them
// collision-free by construction and usable directly as mask bit positions.
type typeKey uint32

type componentEntry struct {
	key  typeKey
	typ  reflect.Type
	size uintptr
	make func(capacity int) column
}

// schema maps concrete component types to their keys. One schema is owned by
// each storage instance; there is no process-wide registry.
type schema struct {
	keys    map[reflect.Type]typeKey
	entries []componentEntry
}

func newSchema() schema {
	return schema{keys: make(map[reflect.Type]typeKey)}
}

// register assigns the next sequential key to the component's type, or
// returns the existing entry when the type is already known.
func (s *schema) register(c Component) componentEntry {
	t := c.componentType()
	if key, found := s.keys[t]; found {
		return s.entries[key]
	}
	key := typeKey(len(s.entries))
	entry := componentEntry{
		key:  key,
		typ:  t,
		size: c.rowBytes(),
		make: c.newColumn,
	}
	s.keys[t] = key
	s.entries = append(s.entries, entry)
	return entry
}

func (s *schema) lookup(t reflect.Type) (componentEntry, bool) {
	key, found := s.keys[t]
	if !found {
		return componentEntry{}, false
	}
	return s.entries[key], true
}
