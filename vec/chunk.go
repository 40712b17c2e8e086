package vec

import (
	"github.com/RoaringBitmap/roaring/v2"
)

// chunk is an immutable portion of a Column
type chunk struct {
	idx    int
	start  int64
	values []string
	na     *roaring.Bitmap
}

// Index returns the position of this chunk within its Column
func (c *chunk) Index() int {
	return c.idx
}

// Start returns the row number of the first row in this chunk
func (c *chunk) Start() int64 {
	return c.start
}

// Len returns the number of rows in this chunk
func (c *chunk) Len() int {
	return len(c.values)
}

// IsNA returns true iff the value at offset i is missing
func (c *chunk) IsNA(i int) bool {
	return c.na.Contains(uint32(i))
}

// AtStr returns the value at offset i
func (c *chunk) AtStr(i int) string {
	return c.values[i]
}

// chunkBuilder accumulates the rows of a new chunk
type chunkBuilder struct {
	values []string
	na     *roaring.Bitmap
}

func newChunkBuilder(capacity int) *chunkBuilder {
	return &chunkBuilder{
		values: make([]string, 0, capacity),
		na:     roaring.New(),
	}
}

// AddStr appends a value
func (b *chunkBuilder) AddStr(s string) {
	b.values = append(b.values, s)
}

// AddNA appends a missing value
func (b *chunkBuilder) AddNA() {
	b.na.Add(uint32(len(b.values)))
	b.values = append(b.values, "")
}

// Len returns the number of rows appended so far
func (b *chunkBuilder) Len() int {
	return len(b.values)
}

func (b *chunkBuilder) build(idx int, start int64) *chunk {
	b.na.RunOptimize()
	return &chunk{idx: idx, start: start, values: b.values, na: b.na}
}
