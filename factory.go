package silo

type factory struct{}

var Factory factory

// NewStorage creates a storage whose chunks are sized by chunkByteBudget:
// each archetype holds max(1, chunkByteBudget/rowBytes) rows per chunk.
func (f factory) NewStorage(chunkByteBudget int) Storage {
	return newStorage(chunkByteBudget, Config.logger)
}

// NewStorageDefault creates a storage with the Config chunk byte budget.
func (f factory) NewStorageDefault() Storage {
	return newStorage(Config.chunkByteBudget, Config.logger)
}

// NewCursor creates a cursor over every entity whose archetype contains all
// of the given component types.
func (f factory) NewCursor(sto Storage, components ...Component) *Cursor {
	return newCursor(sto.(*storage), components...)
}

// FactoryNewComponent creates the component handle for T. Handles are
// stateless; two handles for the same T are interchangeable.
func FactoryNewComponent[T any]() Component {
	return componentType[T]{}
}
