package segments

import "sort"

// Layout describes how the rows of a Column are divided into Chunks. Entry i is
// the first row of chunk i, and the final entry is the total number of rows, so a
// Layout for N rows in k chunks has k+1 entries, starting at 0 and ending at N.
type Layout []int64

// UniformLayout produces a Layout of rows divided into chunks of (at most) chunkSize rows
func UniformLayout(rows int64, chunkSize int) Layout {
	if chunkSize <= 0 {
		chunkSize = 1
	}
	layout := Layout{0}
	for start := int64(0); start < rows; {
		end := start + int64(chunkSize)
		if end > rows {
			end = rows
		}
		layout = append(layout, end)
		start = end
	}
	return layout
}

// NumChunks returns the number of chunks in this Layout
func (l Layout) NumChunks() int {
	if len(l) == 0 {
		return 0
	}
	return len(l) - 1
}

// NumRows returns the total number of rows described by this Layout
func (l Layout) NumRows() int64 {
	if len(l) == 0 {
		return 0
	}
	return l[len(l)-1]
}

// ChunkStart returns the first row of a chunk
func (l Layout) ChunkStart(idx int) int64 {
	return l[idx]
}

// ChunkLen returns the number of rows in a chunk
func (l Layout) ChunkLen(idx int) int {
	return int(l[idx+1] - l[idx])
}

// Find locates the chunk holding a row, and the row's offset within that chunk.
// Returns ok == false if the row is out of range.
func (l Layout) Find(row int64) (chunk int, offset int, ok bool) {
	if row < 0 || row >= l.NumRows() {
		return 0, 0, false
	}
	// first boundary strictly greater than row, minus one
	chunk = sort.Search(len(l), func(i int) bool { return l[i] > row }) - 1
	return chunk, int(row - l[chunk]), true
}

// Equals returns true iff two Layouts describe the same chunk boundaries
func (l Layout) Equals(o Layout) bool {
	if l.NumChunks() != o.NumChunks() {
		return false
	}
	if l.NumChunks() == 0 {
		return true
	}
	for i := range l {
		if l[i] != o[i] {
			return false
		}
	}
	return true
}

// A Column is a keyed sequence of nullable string values, divided
// into ordered, disjoint Chunks which can be processed in parallel.
type Column interface {
	Keyed
	Layout() Layout                  // Layout returns the chunk boundaries of this Column
	Len() int64                      // Len returns the number of rows in this Column
	Chunk(idx int) Chunk             // Chunk retrieves a specific Chunk from this Column
	IsNA(row int64) bool             // IsNA returns true iff the value in a row is missing
	AtStr(row int64) (string, error) // AtStr returns the value in a row, or an error if the row is out of range. Missing values are "".
}

// A Chunk is a contiguous portion of a Column, processed atomically by one worker
type Chunk interface {
	Index() int         // Index returns the position of this Chunk within its Column
	Start() int64       // Start returns the row number of the first row in this Chunk
	Len() int           // Len returns the number of rows in this Chunk
	IsNA(i int) bool    // IsNA returns true iff the value at offset i is missing
	AtStr(i int) string // AtStr returns the value at offset i. Missing values are "".
}

// A ChunkBuilder accumulates the rows of a new Chunk
type ChunkBuilder interface {
	AddStr(s string) // AddStr appends a value
	AddNA()          // AddNA appends a missing value
	Len() int        // Len returns the number of rows appended so far
}
