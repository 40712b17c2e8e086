package util

import (
	"context"
	"fmt"

	"github.com/go-sif/segments"
)

// PartitionFunc processes a single Partition of a Task
type PartitionFunc func(ctx context.Context, p *segments.Partition) error

// SafeTask wraps a Task's ProcessPartition such that panics are recovered and nice error messages are constructed
func SafeTask(task segments.Task) PartitionFunc {
	return func(ctx context.Context, p *segments.Partition) (err error) {
		defer func() {
			if r := recover(); r != nil {
				if anErr, ok := r.(error); ok {
					err = fmt.Errorf("Partition Panic: %w\nPartition: %s\n%s", anErr, describe(p), GetTrace())
				} else {
					err = fmt.Errorf("Partition Panic: %v\nPartition: %s\n%s", r, describe(p), GetTrace())
				}
			} else if err != nil {
				err = fmt.Errorf("Partition Error: %w\nPartition: %s", err, describe(p))
			}
		}()
		err = task.ProcessPartition(ctx, p)
		return
	}
}

// SafeAfterAll wraps a PostGlobalTask's AfterAll such that panics are recovered
func SafeAfterAll(task segments.PostGlobalTask) func(ctx context.Context, inputs []segments.Column) error {
	return func(ctx context.Context, inputs []segments.Column) (err error) {
		defer func() {
			if r := recover(); r != nil {
				if anErr, ok := r.(error); ok {
					err = fmt.Errorf("PostGlobal Panic: %w\n%s", anErr, GetTrace())
				} else {
					err = fmt.Errorf("PostGlobal Panic: %v\n%s", r, GetTrace())
				}
			} else if err != nil {
				err = fmt.Errorf("PostGlobal Error: %w", err)
			}
		}()
		err = task.AfterAll(ctx, inputs)
		return
	}
}

func describe(p *segments.Partition) string {
	if p == nil {
		return "<nil>"
	}
	return fmt.Sprintf("%d [%d, %d)", p.Index, p.Start, p.Start+int64(p.Len))
}
