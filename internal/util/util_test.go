package util

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-sif/segments"
	"github.com/hashicorp/go-multierror"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestFuturesBlocksForAll(t *testing.T) {
	fs := NewFutures(0)
	var done int32
	for i := 0; i < 50; i++ {
		fs.Add(context.Background(), func(ctx context.Context) error {
			time.Sleep(time.Millisecond)
			atomic.AddInt32(&done, 1)
			return nil
		})
	}
	require.Nil(t, fs.BlockForPending())
	require.Equal(t, int32(50), atomic.LoadInt32(&done))
}

func TestFuturesCollectsErrors(t *testing.T) {
	fs := NewFutures(2)
	for i := 0; i < 6; i++ {
		i := i
		fs.Add(context.Background(), func(ctx context.Context) error {
			if i%2 == 1 {
				return fmt.Errorf("odd %d", i)
			}
			return nil
		})
	}
	err := fs.BlockForPending()
	require.NotNil(t, err)
	merr, ok := err.(*multierror.Error)
	require.True(t, ok)
	require.Len(t, merr.Errors, 3)
	// errors are cleared once reported
	require.Nil(t, fs.BlockForPending())
}

func TestFuturesRespectsLimit(t *testing.T) {
	fs := NewFutures(3)
	var inFlight, maxInFlight int32
	for i := 0; i < 20; i++ {
		fs.Add(context.Background(), func(ctx context.Context) error {
			n := atomic.AddInt32(&inFlight, 1)
			for {
				m := atomic.LoadInt32(&maxInFlight)
				if n <= m || atomic.CompareAndSwapInt32(&maxInFlight, m, n) {
					break
				}
			}
			time.Sleep(time.Millisecond)
			atomic.AddInt32(&inFlight, -1)
			return nil
		})
	}
	require.Nil(t, fs.BlockForPending())
	require.LessOrEqual(t, atomic.LoadInt32(&maxInFlight), int32(3))
}

type panickyTask struct{}

func (panickyTask) ProcessPartition(ctx context.Context, p *segments.Partition) error {
	panic(fmt.Errorf("boom"))
}

type failingTask struct{}

func (failingTask) ProcessPartition(ctx context.Context, p *segments.Partition) error {
	return fmt.Errorf("nope")
}

func TestSafeTask(t *testing.T) {
	err := SafeTask(panickyTask{})(context.Background(), &segments.Partition{})
	require.NotNil(t, err)
	require.Contains(t, err.Error(), "Partition Panic: boom")
	err = SafeTask(failingTask{})(context.Background(), &segments.Partition{Index: 2, Start: 10, Len: 5})
	require.NotNil(t, err)
	require.Contains(t, err.Error(), "Partition Error: nope")
	require.Contains(t, err.Error(), "2 [10, 15)")
}
