package silo

import "reflect"

var _ Component = componentType[int]{}

// componentType is the zero-size concrete handle behind the Component
// interface. It knows how to build the typed column for T, which is the only
// place the storage needs the concrete type during archetype construction.
type componentType[T any] struct{}

func (componentType[T]) componentType() reflect.Type {
	return reflect.TypeFor[T]()
}

func (componentType[T]) rowBytes() uintptr {
	return reflect.TypeFor[T]().Size()
}

func (componentType[T]) newColumn(capacity int) column {
	return &typedColumn[T]{cells: make([]T, 0, capacity)}
}
