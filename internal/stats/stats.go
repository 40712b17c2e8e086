package stats

import (
	"sync"
	"time"
)

const statisticRollingWindows = 5

// RunStatistics contains statistics about the Tasks run by an Executor.
// It is safe for concurrent use.
type RunStatistics struct {
	lock                        sync.Mutex
	startTime                   time.Time
	tasksRun                    int64
	rowsProcessed               int64
	partitionsProcessed         int64
	recentPartitionRuntimes     []time.Duration // for rolling average of recent partition processing times
	recentPartitionRuntimesHead int
	taskRuntimes                []time.Duration // most recent task runtimes
	taskRuntimesHead            int
}

// New produces a RunStatistics, started immediately
func New() *RunStatistics {
	return &RunStatistics{
		startTime:               time.Now(),
		recentPartitionRuntimes: make([]time.Duration, statisticRollingWindows),
		taskRuntimes:            make([]time.Duration, 0, statisticRollingWindows),
	}
}

// EndTask tracks the end of a Task which began at start
func (rs *RunStatistics) EndTask(start time.Time) {
	rs.lock.Lock()
	defer rs.lock.Unlock()
	rs.tasksRun++
	d := time.Since(start)
	if len(rs.taskRuntimes) < statisticRollingWindows {
		rs.taskRuntimes = append(rs.taskRuntimes, d)
		return
	}
	rs.taskRuntimes[rs.taskRuntimesHead] = d
	rs.taskRuntimesHead = (rs.taskRuntimesHead + 1) % statisticRollingWindows
}

// EndPartition tracks the end of the processing of a partition which began at start
func (rs *RunStatistics) EndPartition(start time.Time, numRows int) {
	rs.lock.Lock()
	defer rs.lock.Unlock()
	rs.recentPartitionRuntimes[rs.recentPartitionRuntimesHead] = time.Since(start)
	rs.recentPartitionRuntimesHead = (rs.recentPartitionRuntimesHead + 1) % len(rs.recentPartitionRuntimes)
	rs.rowsProcessed += int64(numRows)
	rs.partitionsProcessed++
}

// GetStartTime returns the time at which statistics tracking began
func (rs *RunStatistics) GetStartTime() time.Time {
	return rs.startTime
}

// GetNumTasks returns the number of Tasks which have been run so far
func (rs *RunStatistics) GetNumTasks() int64 {
	rs.lock.Lock()
	defer rs.lock.Unlock()
	return rs.tasksRun
}

// GetNumRowsProcessed returns the number of rows which have been processed so far
func (rs *RunStatistics) GetNumRowsProcessed() int64 {
	rs.lock.Lock()
	defer rs.lock.Unlock()
	return rs.rowsProcessed
}

// GetNumPartitionsProcessed returns the number of partitions which have been processed so far
func (rs *RunStatistics) GetNumPartitionsProcessed() int64 {
	rs.lock.Lock()
	defer rs.lock.Unlock()
	return rs.partitionsProcessed
}

// GetCurrentPartitionProcessingTime returns a rolling average of partition processing time
func (rs *RunStatistics) GetCurrentPartitionProcessingTime() time.Duration {
	rs.lock.Lock()
	defer rs.lock.Unlock()
	var total time.Duration
	for _, d := range rs.recentPartitionRuntimes {
		total += d
	}
	return total / statisticRollingWindows
}

// GetTaskRuntimes returns the most recently recorded Task runtimes
func (rs *RunStatistics) GetTaskRuntimes() []time.Duration {
	rs.lock.Lock()
	defer rs.lock.Unlock()
	res := make([]time.Duration, len(rs.taskRuntimes))
	copy(res, rs.taskRuntimes)
	return res
}
