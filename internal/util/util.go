package util

import (
	"context"
	"fmt"
	"runtime"
	"strings"
	"sync"

	"github.com/hashicorp/go-multierror"
	"golang.org/x/sync/semaphore"
)

// Futures is a join-all barrier over asynchronously issued operations.
// Operations are added with Add, and BlockForPending waits for every
// operation added so far.
type Futures struct {
	wg      sync.WaitGroup
	limit   *semaphore.Weighted
	errLock sync.Mutex
	errs    *multierror.Error
}

// NewFutures produces a Futures which runs at most limit operations
// at once. A limit <= 0 means unbounded.
func NewFutures(limit int64) *Futures {
	fs := &Futures{}
	if limit > 0 {
		fs.limit = semaphore.NewWeighted(limit)
	}
	return fs
}

// Add starts fn in a goroutine. If the Futures is bounded, Add blocks
// until a slot is available or ctx is done.
func (fs *Futures) Add(ctx context.Context, fn func(ctx context.Context) error) {
	if fs.limit != nil {
		if err := fs.limit.Acquire(ctx, 1); err != nil {
			fs.appendError(err)
			return
		}
	}
	fs.wg.Add(1)
	go func() {
		defer fs.wg.Done()
		if fs.limit != nil {
			defer fs.limit.Release(1)
		}
		if err := fn(ctx); err != nil {
			fs.appendError(err)
		}
	}()
}

func (fs *Futures) appendError(err error) {
	fs.errLock.Lock()
	defer fs.errLock.Unlock()
	fs.errs = multierror.Append(fs.errs, err)
}

// BlockForPending waits for all added operations to complete, returning
// every error they produced. The error set is cleared afterwards, so the
// Futures may be reused.
func (fs *Futures) BlockForPending() error {
	fs.wg.Wait()
	fs.errLock.Lock()
	defer fs.errLock.Unlock()
	err := fs.errs.ErrorOrNil()
	fs.errs = nil
	return err
}

// GetTrace produces the string representation of a stack trace
func GetTrace() string {
	var name, file string
	var line int
	var pc [16]uintptr
	var res strings.Builder
	n := runtime.Callers(3, pc[:])
	for _, pc := range pc[:n] {
		fn := runtime.FuncForPC(pc)
		if fn == nil {
			continue
		}
		file, line = fn.FileLine(pc)
		name = fn.Name()
		if !strings.HasPrefix(name, "runtime.") {
			fmt.Fprintf(&res, "%s\n\t%s:%d\n", name, file, line)
		}
	}
	return res.String()
}

// FormatMultiError formats multierrors for logging
func FormatMultiError(merrs []error) string {
	var res strings.Builder
	for i := 0; i < len(merrs); i++ {
		fmt.Fprintf(&res, "%+v\n", merrs[i])
	}
	return res.String()
}
