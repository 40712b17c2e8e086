package models

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/go-sif/segments"
	errors "github.com/go-sif/segments/errors"
	"github.com/go-sif/segments/frame"
	"github.com/go-sif/segments/logging"
	"github.com/hashicorp/go-multierror"
)

const defaultRemovalConcurrency = 64

// Options configures a Container
type Options struct {
	RemovalConcurrency int64      // the number of Record removals in flight per partition during cleanup. Defaults to 64.
	Logger             log.Logger // destination for log messages. Defaults to a no-op Logger.
}

func ensureDefaultOptionsValues(opts *Options) *Options {
	if opts == nil {
		opts = &Options{}
	}
	res := *opts
	if res.RemovalConcurrency <= 0 {
		res.RemovalConcurrency = defaultRemovalConcurrency
	}
	res.Logger = logging.OrNop(res.Logger)
	return &res
}

// Container holds the results of a per-segment computation. Every row of the
// segments Frame owns a pre-allocated result Key, under which AddResult stores
// a Record.
type Container struct {
	key      segments.Key
	segments segments.Frame
	results  segments.Column
	store    segments.Store
	exec     segments.Executor
	opts     *Options
	removed  atomic.Bool
}

// Make creates a Container over a segments Frame and registers it in store under key.
// The Container keeps its own copy of the segments. If any step fails, everything
// written so far is removed again.
func Make(ctx context.Context, store segments.Store, exec segments.Executor, key segments.Key, segs segments.Frame, opts *Options) (*Container, error) {
	opts = ensureDefaultOptionsValues(opts)
	resultsKey, err := segments.MakeHiddenKey()
	if err != nil {
		return nil, err
	}
	out, err := exec.Do(ctx, &makeResultKeys{}, &segments.Job{
		Layout:     segs.Layout(),
		NumOutputs: 1,
		OutputKeys: []segments.Key{resultsKey},
	})
	if err != nil {
		return nil, fmt.Errorf("Unable to allocate result keys: %w", err)
	}
	results := out[0]
	segsKey, err := segments.MakeHiddenKey()
	if err != nil {
		return nil, err
	}
	copied, err := frame.DeepCopy(ctx, exec, segs, segsKey)
	if err != nil {
		return nil, fmt.Errorf("Unable to copy segments: %w", err)
	}
	c := &Container{
		key:      key,
		segments: copied,
		results:  results,
		store:    store,
		exec:     exec,
		opts:     opts,
	}
	if err := c.register(ctx); err != nil {
		rerr := c.rollback(context.WithoutCancel(ctx))
		if rerr != nil {
			level.Warn(opts.Logger).Log("msg", "rollback of partially created container failed", "key", key, "err", rerr)
		}
		return nil, err
	}
	level.Info(opts.Logger).Log("msg", "created segment results container", "key", key, "segments", results.Len())
	return c, nil
}

func (c *Container) register(ctx context.Context) error {
	if err := c.store.Put(ctx, c.results.Key(), c.results); err != nil {
		return err
	}
	if err := frame.Put(ctx, c.store, c.segments); err != nil {
		return err
	}
	return c.store.Put(ctx, c.key, c)
}

// rollback removes the hidden values written by a failed register. The Key
// under which the Container would have been registered is left alone: register
// only fails before writing it, and it may hold a value Make does not own.
func (c *Container) rollback(ctx context.Context) error {
	var errs *multierror.Error
	if err := c.store.Remove(ctx, c.results.Key()); err != nil {
		errs = multierror.Append(errs, err)
	}
	if err := frame.RemoveFrom(ctx, c.store, c.segments); err != nil {
		errs = multierror.Append(errs, err)
	}
	return errs.ErrorOrNil()
}

// Load fetches the Container registered under key, attaching it to store and exec
func Load(ctx context.Context, store segments.Store, exec segments.Executor, key segments.Key, opts *Options) (*Container, error) {
	v, err := store.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	stored, ok := v.(*Container)
	if !ok {
		return nil, errors.UnexpectedValueError{Key: string(key), Value: v}
	}
	return &Container{
		key:      stored.key,
		segments: stored.segments,
		results:  stored.results,
		store:    store,
		exec:     exec,
		opts:     ensureDefaultOptionsValues(opts),
	}, nil
}

// Key returns the Key this Container is registered under
func (c *Container) Key() segments.Key {
	return c.key
}

// NumSegments returns the number of segments
func (c *Container) NumSegments() int64 {
	return c.results.Len()
}

// Segments returns the Container's copy of the segments Frame
func (c *Container) Segments() segments.Frame {
	return c.segments
}

// ResultKeys returns the Column of pre-allocated result Keys, one per segment
func (c *Container) ResultKeys() segments.Column {
	return c.results
}

func (c *Container) resultKey(segmentIdx int64) (segments.Key, error) {
	if c.removed.Load() {
		return "", fmt.Errorf("Container %s has been removed", c.key)
	}
	k, err := c.results.AtStr(segmentIdx)
	if err != nil {
		return "", err
	}
	return segments.Key(k), nil
}

// AddResult records the outcome of the computation for one segment, replacing
// any earlier outcome for the same segment. model is "" if no model was produced.
// Calls for distinct segments may run concurrently.
func (c *Container) AddResult(ctx context.Context, segmentIdx int64, model segments.Key, validationErrors []string, exc error, warnings []string) (*Record, error) {
	key, err := c.resultKey(segmentIdx)
	if err != nil {
		return nil, err
	}
	result := NewRecord(key, model, ResultErrors(validationErrors, exc), warnings)
	if err := c.store.Put(ctx, key, result); err != nil {
		return nil, err
	}
	level.Debug(c.opts.Logger).Log("msg", "recorded segment result", "container", c.key, "segment", segmentIdx, "failed", model == "")
	return result, nil
}

// Result fetches the Record of one segment. It returns a MissingKeyError if
// no result has been added for the segment.
func (c *Container) Result(ctx context.Context, segmentIdx int64) (*Record, error) {
	key, err := c.resultKey(segmentIdx)
	if err != nil {
		return nil, err
	}
	v, err := c.store.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	result, ok := v.(*Record)
	if !ok {
		return nil, errors.UnexpectedValueError{Key: string(key), Value: v}
	}
	return result, nil
}

// ToFrame produces a Frame holding the segments followed by the "Model ID",
// "Errors" and "Warnings" columns. Segments without a result have NA in all three.
func (c *Container) ToFrame(ctx context.Context) (segments.Frame, error) {
	out, err := c.exec.Do(ctx, &toFrame{store: c.store}, &segments.Job{
		Inputs:     []segments.Column{c.results},
		NumOutputs: 3,
	})
	if err != nil {
		return nil, err
	}
	return frame.Add("", c.segments, []string{ModelIDColumn, ErrorsColumn, WarningsColumn}, out)
}

// Remove unregisters the Container. If cascade is true, the segments copy, every
// Record and the result Keys are removed as well, and Remove returns once all of
// them are gone. Callers must stop adding results before a cascading Remove: an
// AddResult racing with it may write a Record after its Key was cleaned up.
func (c *Container) Remove(ctx context.Context, cascade bool) error {
	if err := c.store.Remove(ctx, c.key); err != nil {
		return err
	}
	if !cascade {
		return nil
	}
	c.removed.Store(true)
	pending := c.exec.Fork(ctx, &cleanUpResults{store: c.store, concurrency: c.opts.RemovalConcurrency}, &segments.Job{
		Inputs: []segments.Column{c.results},
	})
	var errs *multierror.Error
	if err := frame.RemoveFrom(ctx, c.store, c.segments); err != nil {
		errs = multierror.Append(errs, err)
	}
	if _, err := pending.Join(); err != nil {
		errs = multierror.Append(errs, err)
	}
	if err := errs.ErrorOrNil(); err != nil {
		return err
	}
	level.Info(c.opts.Logger).Log("msg", "removed segment results container", "key", c.key, "segments", c.results.Len())
	return nil
}
