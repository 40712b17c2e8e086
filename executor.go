package segments

import "context"

// A Job describes the data a Task is run against
type Job struct {
	Inputs     []Column // Inputs are the aligned Columns whose Chunks are handed to the Task
	Layout     Layout   // Layout to iterate over. Defaults to the Layout of the first input.
	NumOutputs int      // NumOutputs is the number of Columns the Task produces
	OutputKeys []Key    // OutputKeys optionally names the produced Columns. Fresh hidden Keys are generated otherwise.
}

// An Executor runs Tasks over all partitions of a Job, potentially in parallel
type Executor interface {
	// Do runs a Task to completion, returning its output Columns
	Do(ctx context.Context, task Task, job *Job) ([]Column, error)
	// Fork starts running a Task in the background
	Fork(ctx context.Context, task Task, job *Job) Pending
	// Stats returns statistics about the Tasks run so far
	Stats() RuntimeStatistics
}

// Pending is a forked Task which can be joined later
type Pending interface {
	// Join blocks until the forked Task completes, returning its output Columns
	Join() ([]Column, error)
}
