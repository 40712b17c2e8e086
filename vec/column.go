package vec

import (
	"fmt"

	"github.com/go-sif/segments"
	errors "github.com/go-sif/segments/errors"
)

// Column is an in-memory, partitioned column of nullable strings
type Column struct {
	key    segments.Key
	layout segments.Layout
	chunks []*chunk
}

// New creates a Column from values split according to layout. na may be nil,
// otherwise it must be as long as values and marks missing values.
func New(key segments.Key, layout segments.Layout, values []string, na []bool) (*Column, error) {
	if int64(len(values)) != layout.NumRows() {
		return nil, fmt.Errorf("Layout describes %d rows but %d values were supplied", layout.NumRows(), len(values))
	}
	if na != nil && len(na) != len(values) {
		return nil, fmt.Errorf("Missing-value mask has %d entries, expected %d", len(na), len(values))
	}
	b := NewBuilder(layout)
	for i := 0; i < layout.NumChunks(); i++ {
		cb := b.Chunk(i)
		for row := layout.ChunkStart(i); row < layout.ChunkStart(i+1); row++ {
			if na != nil && na[row] {
				cb.AddNA()
			} else {
				cb.AddStr(values[row])
			}
		}
	}
	return b.Close(key)
}

// FromStrings creates a Column from values, with no missing values, divided into chunks of chunkSize rows
func FromStrings(key segments.Key, values []string, chunkSize int) *Column {
	col, err := New(key, segments.UniformLayout(int64(len(values)), chunkSize), values, nil)
	if err != nil {
		// the layout is derived from values, so this cannot happen
		panic(err)
	}
	return col
}

// Key returns the Key of this Column
func (c *Column) Key() segments.Key {
	return c.key
}

// Layout returns the chunk boundaries of this Column
func (c *Column) Layout() segments.Layout {
	return c.layout
}

// Len returns the number of rows in this Column
func (c *Column) Len() int64 {
	return c.layout.NumRows()
}

// Chunk retrieves a specific Chunk from this Column
func (c *Column) Chunk(idx int) segments.Chunk {
	return c.chunks[idx]
}

// IsNA returns true iff the value in a row is missing. Rows out of range are reported as missing.
func (c *Column) IsNA(row int64) bool {
	cidx, off, ok := c.layout.Find(row)
	if !ok {
		return true
	}
	return c.chunks[cidx].IsNA(off)
}

// AtStr returns the value in a row
func (c *Column) AtStr(row int64) (string, error) {
	cidx, off, ok := c.layout.Find(row)
	if !ok {
		return "", errors.RowOutOfRangeError{Row: row, Len: c.Len()}
	}
	return c.chunks[cidx].AtStr(off), nil
}

// Values returns every value in this Column, in order, alongside a missing-value mask
func (c *Column) Values() ([]string, []bool) {
	values := make([]string, 0, c.Len())
	na := make([]bool, 0, c.Len())
	for _, ch := range c.chunks {
		for i := 0; i < ch.Len(); i++ {
			values = append(values, ch.AtStr(i))
			na = append(na, ch.IsNA(i))
		}
	}
	return values, na
}

// Builder constructs a new Column, one chunk at a time. Distinct chunks
// may be built concurrently.
type Builder struct {
	layout   segments.Layout
	builders []*chunkBuilder
}

// NewBuilder creates a Builder for a Column with the given Layout
func NewBuilder(layout segments.Layout) *Builder {
	builders := make([]*chunkBuilder, layout.NumChunks())
	for i := range builders {
		builders[i] = newChunkBuilder(layout.ChunkLen(i))
	}
	return &Builder{layout: layout, builders: builders}
}

// Chunk returns the ChunkBuilder for a chunk
func (b *Builder) Chunk(idx int) segments.ChunkBuilder {
	return b.builders[idx]
}

// Close finishes the Column, verifying that every chunk received exactly as many rows as the Layout requires
func (b *Builder) Close(key segments.Key) (*Column, error) {
	chunks := make([]*chunk, len(b.builders))
	for i, cb := range b.builders {
		if cb.Len() != b.layout.ChunkLen(i) {
			return nil, fmt.Errorf("Chunk %d received %d rows, expected %d", i, cb.Len(), b.layout.ChunkLen(i))
		}
		chunks[i] = cb.build(i, b.layout.ChunkStart(i))
	}
	return &Column{key: key, layout: b.layout, chunks: chunks}, nil
}
