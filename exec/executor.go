package exec

import (
	"context"
	"fmt"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/go-sif/segments"
	errors "github.com/go-sif/segments/errors"
	"github.com/go-sif/segments/internal/stats"
	iutil "github.com/go-sif/segments/internal/util"
	"github.com/go-sif/segments/logging"
	"github.com/go-sif/segments/vec"
	"github.com/hashicorp/go-multierror"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"
)

// Options configures an Executor
type Options struct {
	Parallelism int                   // the maximum number of partitions processed at once. Defaults to GOMAXPROCS.
	Logger      log.Logger            // destination for log messages. Defaults to a no-op Logger.
	Registerer  prometheus.Registerer // metrics are registered here, if non-nil
}

// Executor runs Tasks over the partitions of a Job using a bounded pool of goroutines
type Executor struct {
	parallelism int
	logger      log.Logger
	stats       *stats.RunStatistics
	metrics     *metrics
}

// New creates an Executor
func New(opts *Options) *Executor {
	if opts == nil {
		opts = &Options{}
	}
	parallelism := opts.Parallelism
	if parallelism <= 0 {
		parallelism = runtime.GOMAXPROCS(0)
	}
	return &Executor{
		parallelism: parallelism,
		logger:      logging.OrNop(opts.Logger),
		stats:       stats.New(),
		metrics:     newMetrics(opts.Registerer),
	}
}

// Stats returns statistics about the Tasks run so far
func (e *Executor) Stats() segments.RuntimeStatistics {
	return e.stats
}

// Do runs a Task across every partition of a Job, blocking until completion.
// Partitions are independent: a failing partition does not stop the others,
// and all partition errors are returned together. AfterAll only runs if every
// partition succeeded.
func (e *Executor) Do(ctx context.Context, task segments.Task, job *segments.Job) ([]segments.Column, error) {
	start := time.Now()
	name := taskName(task)
	layout, err := resolveLayout(job)
	if err != nil {
		return nil, err
	}
	level.Debug(e.logger).Log("msg", "running task", "task", name, "partitions", layout.NumChunks(), "rows", layout.NumRows())

	builders := make([]*vec.Builder, job.NumOutputs)
	for i := range builders {
		builders[i] = vec.NewBuilder(layout)
	}
	var (
		merr     *multierror.Error
		merrLock sync.Mutex
	)
	run := iutil.SafeTask(task)
	var g errgroup.Group
	g.SetLimit(e.parallelism)
	for i := 0; i < layout.NumChunks(); i++ {
		cidx := i
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				merrLock.Lock()
				merr = multierror.Append(merr, err)
				merrLock.Unlock()
				return nil
			}
			p := &segments.Partition{
				Index:  cidx,
				Start:  layout.ChunkStart(cidx),
				Len:    layout.ChunkLen(cidx),
				Chunks: make([]segments.Chunk, len(job.Inputs)),
				Out:    make([]segments.ChunkBuilder, len(builders)),
			}
			for j, in := range job.Inputs {
				p.Chunks[j] = in.Chunk(cidx)
			}
			for j, b := range builders {
				p.Out[j] = b.Chunk(cidx)
			}
			pstart := time.Now()
			if err := run(ctx, p); err != nil {
				merrLock.Lock()
				merr = multierror.Append(merr, err)
				merrLock.Unlock()
				return nil
			}
			e.stats.EndPartition(pstart, p.Len)
			e.metrics.partitions.WithLabelValues(name).Inc()
			e.metrics.rows.WithLabelValues(name).Add(float64(p.Len))
			return nil
		})
	}
	g.Wait()
	defer func() {
		e.stats.EndTask(start)
		e.metrics.taskDuration.WithLabelValues(name).Observe(time.Since(start).Seconds())
	}()
	if err := merr.ErrorOrNil(); err != nil {
		e.metrics.taskFailures.WithLabelValues(name).Inc()
		level.Warn(e.logger).Log("msg", "task failed", "task", name, "failures", len(merr.Errors), "err", iutil.FormatMultiError(merr.Errors))
		return nil, err
	}

	outputs := make([]segments.Column, len(builders))
	for i, b := range builders {
		var key segments.Key
		if i < len(job.OutputKeys) && job.OutputKeys[i] != "" {
			key = job.OutputKeys[i]
		} else if key, err = segments.MakeHiddenKey(); err != nil {
			return nil, err
		}
		col, err := b.Close(key)
		if err != nil {
			return nil, fmt.Errorf("Task %s produced a malformed output column: %w", name, err)
		}
		outputs[i] = col
	}

	if pg, ok := task.(segments.PostGlobalTask); ok {
		if err := iutil.SafeAfterAll(pg)(ctx, job.Inputs); err != nil {
			e.metrics.taskFailures.WithLabelValues(name).Inc()
			return nil, err
		}
	}
	level.Debug(e.logger).Log("msg", "finished task", "task", name, "duration", time.Since(start))
	return outputs, nil
}

// Fork starts running a Task in the background. The result is retrieved with Join.
func (e *Executor) Fork(ctx context.Context, task segments.Task, job *segments.Job) segments.Pending {
	p := &pending{done: make(chan struct{})}
	go func() {
		defer close(p.done)
		p.cols, p.err = e.Do(ctx, task, job)
	}()
	return p
}

// pending is a forked Task
type pending struct {
	done chan struct{}
	cols []segments.Column
	err  error
}

// Join blocks until the forked Task completes. Join may be called more than once.
func (p *pending) Join() ([]segments.Column, error) {
	<-p.done
	return p.cols, p.err
}

// resolveLayout determines the Layout of a Job, verifying that all inputs are aligned
func resolveLayout(job *segments.Job) (segments.Layout, error) {
	if job == nil {
		return nil, fmt.Errorf("Job cannot be nil")
	}
	layout := job.Layout
	if layout == nil {
		if len(job.Inputs) == 0 {
			return nil, fmt.Errorf("Job must specify either inputs or a layout")
		}
		layout = job.Inputs[0].Layout()
	}
	for _, in := range job.Inputs {
		if !in.Layout().Equals(layout) {
			return nil, errors.IncompatibleLayoutError{}
		}
	}
	return layout, nil
}

// taskName produces a short label for a Task, for logging and metrics
func taskName(task segments.Task) string {
	name := fmt.Sprintf("%T", task)
	name = strings.TrimPrefix(name, "*")
	if idx := strings.LastIndex(name, "."); idx >= 0 {
		name = name[idx+1:]
	}
	return name
}
