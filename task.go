package segments

import "context"

// A Partition is the unit of work handed to a Task: the Chunk at the same
// index from every input Column, plus one ChunkBuilder per output Column.
type Partition struct {
	Index  int            // Index is the position of this Partition within the Job's Layout
	Start  int64          // Start is the row number of the first row in this Partition
	Len    int            // Len is the number of rows in this Partition
	Chunks []Chunk        // Chunks holds one Chunk per input Column
	Out    []ChunkBuilder // Out holds one ChunkBuilder per output Column
}

// A Task is work applied independently to each Partition of a Job.
// ProcessPartition must append exactly Len rows to each output ChunkBuilder.
type Task interface {
	ProcessPartition(ctx context.Context, p *Partition) error
}

// A PostGlobalTask has an additional step which runs exactly once,
// after every Partition has been processed successfully
type PostGlobalTask interface {
	Task
	AfterAll(ctx context.Context, inputs []Column) error
}
