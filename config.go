package silo

import "github.com/rs/zerolog"

// DefaultChunkByteBudget bounds the memory footprint of a single chunk.
// Wider archetypes get proportionally fewer rows per chunk.
const DefaultChunkByteBudget = 16 * 1024

// Config holds global defaults applied to storages at construction
var Config config = config{
	chunkByteBudget: DefaultChunkByteBudget,
	logger:          zerolog.Nop(),
}

type config struct {
	chunkByteBudget int
	logger          zerolog.Logger
}

// SetChunkByteBudget changes the budget used by Factory.NewStorageDefault
func (c *config) SetChunkByteBudget(bytes int) {
	if bytes > 0 {
		c.chunkByteBudget = bytes
	}
}

// SetLogger configures the logger handed to storages created afterwards
func (c *config) SetLogger(logger zerolog.Logger) {
	c.logger = logger
}
