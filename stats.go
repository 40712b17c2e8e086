package segments

import "time"

// RuntimeStatistics facilitates the retrieval of statistics about an Executor
type RuntimeStatistics interface {
	// GetStartTime returns the time at which the Executor was created
	GetStartTime() time.Time
	// GetNumTasks returns the number of Tasks which have been run so far
	GetNumTasks() int64
	// GetNumRowsProcessed returns the number of rows which have been processed so far
	GetNumRowsProcessed() int64
	// GetNumPartitionsProcessed returns the number of partitions which have been processed so far
	GetNumPartitionsProcessed() int64
	// GetCurrentPartitionProcessingTime returns a rolling average of partition processing time
	GetCurrentPartitionProcessingTime() time.Duration
	// GetTaskRuntimes returns the most recently recorded Task runtimes
	GetTaskRuntimes() []time.Duration
}
