// Package memory provides an in-process segments.Store, sharded by key hash.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/cespare/xxhash/v2"
	"github.com/docker/docker/pkg/locker"
	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/go-sif/segments"
	errors "github.com/go-sif/segments/errors"
	"github.com/go-sif/segments/logging"
)

const defaultNumShards = 32

// Options configures a Store
type Options struct {
	NumShards int        // the number of independently locked shards. Defaults to 32.
	Logger    log.Logger // destination for log messages. Defaults to a no-op Logger.
}

type shard struct {
	lock   sync.RWMutex
	values map[segments.Key]interface{}
}

// Store is an in-memory segments.Store. Values are stored by reference.
type Store struct {
	shards []*shard
	klocks *locker.Locker
	logger log.Logger
}

// New creates an empty Store
func New(opts *Options) *Store {
	if opts == nil {
		opts = &Options{}
	}
	numShards := opts.NumShards
	if numShards <= 0 {
		numShards = defaultNumShards
	}
	shards := make([]*shard, numShards)
	for i := range shards {
		shards[i] = &shard{values: make(map[segments.Key]interface{})}
	}
	return &Store{
		shards: shards,
		klocks: locker.New(),
		logger: logging.OrNop(opts.Logger),
	}
}

func (s *Store) shardFor(key segments.Key) *shard {
	return s.shards[xxhash.Sum64String(string(key))%uint64(len(s.shards))]
}

// Put stores a value, replacing any previous value for the Key
func (s *Store) Put(ctx context.Context, key segments.Key, value interface{}) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.klocks.Lock(string(key))
	defer s.klocks.Unlock(string(key))
	sh := s.shardFor(key)
	sh.lock.Lock()
	defer sh.lock.Unlock()
	sh.values[key] = value
	level.Debug(s.logger).Log("msg", "put", "key", key)
	return nil
}

// Get retrieves a value, or returns an errors.MissingKeyError if there is none
func (s *Store) Get(ctx context.Context, key segments.Key) (interface{}, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	sh := s.shardFor(key)
	sh.lock.RLock()
	defer sh.lock.RUnlock()
	value, ok := sh.values[key]
	if !ok {
		return nil, errors.MissingKeyError{Key: string(key)}
	}
	return value, nil
}

// Remove deletes the value for a Key. Removing an absent Key is a no-op.
func (s *Store) Remove(ctx context.Context, key segments.Key) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.klocks.Lock(string(key))
	defer s.klocks.Unlock(string(key))
	sh := s.shardFor(key)
	sh.lock.Lock()
	defer sh.lock.Unlock()
	if _, ok := sh.values[key]; ok {
		delete(sh.values, key)
		level.Debug(s.logger).Log("msg", "removed", "key", key)
	}
	return nil
}

// Keys enumerates the Keys in this Store in sorted order, skipping hidden Keys unless includeHidden is true
func (s *Store) Keys(ctx context.Context, includeHidden bool) ([]segments.Key, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	keys := make([]segments.Key, 0)
	for _, sh := range s.shards {
		sh.lock.RLock()
		for k := range sh.values {
			if includeHidden || !k.IsHidden() {
				keys = append(keys, k)
			}
		}
		sh.lock.RUnlock()
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys, nil
}

// Len returns the number of values in this Store, hidden or not
func (s *Store) Len() int {
	n := 0
	for _, sh := range s.shards {
		sh.lock.RLock()
		n += len(sh.values)
		sh.lock.RUnlock()
	}
	return n
}
