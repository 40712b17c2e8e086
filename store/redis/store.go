// Package redis provides a segments.Store backed by Redis.
package redis

import (
	"context"
	stderrors "errors"
	"sort"
	"strings"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/go-sif/segments"
	"github.com/go-sif/segments/codec"
	errors "github.com/go-sif/segments/errors"
	"github.com/go-sif/segments/logging"
	goredis "github.com/redis/go-redis/v9"
)

const scanBatchSize = 1000

// Store is a segments.Store which keeps codec-encoded values in Redis,
// under Keys prefixed with a namespace. Values are copied on every Put and Get,
// so they must be registered with codec.
type Store struct {
	client goredis.UniversalClient
	prefix string
	logger log.Logger
}

// New creates a Store. Every Key is stored in Redis with prefix prepended.
func New(client goredis.UniversalClient, prefix string, logger log.Logger) *Store {
	return &Store{
		client: client,
		prefix: prefix,
		logger: logging.OrNop(logger),
	}
}

func (s *Store) redisKey(key segments.Key) string {
	return s.prefix + string(key)
}

// Put stores a value under a Key, replacing any existing value
func (s *Store) Put(ctx context.Context, key segments.Key, value interface{}) error {
	data, err := codec.Marshal(value)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, s.redisKey(key), data, 0).Err()
}

// Get retrieves the value stored under a Key, or a MissingKeyError
func (s *Store) Get(ctx context.Context, key segments.Key) (interface{}, error) {
	data, err := s.client.Get(ctx, s.redisKey(key)).Bytes()
	if stderrors.Is(err, goredis.Nil) {
		return nil, errors.MissingKeyError{Key: string(key)}
	} else if err != nil {
		return nil, err
	}
	return codec.Unmarshal(data)
}

// Remove deletes the value stored under a Key, if any
func (s *Store) Remove(ctx context.Context, key segments.Key) error {
	n, err := s.client.Del(ctx, s.redisKey(key)).Result()
	if err != nil {
		return err
	}
	level.Debug(s.logger).Log("msg", "removed key", "key", key, "existed", n > 0)
	return nil
}

// Keys lists the Keys under this Store's prefix in sorted order, skipping hidden Keys unless includeHidden is true
func (s *Store) Keys(ctx context.Context, includeHidden bool) ([]segments.Key, error) {
	var (
		keys   []segments.Key
		cursor uint64
	)
	match := escapePattern(s.prefix) + "*"
	for {
		batch, next, err := s.client.Scan(ctx, cursor, match, scanBatchSize).Result()
		if err != nil {
			return nil, err
		}
		for _, rk := range batch {
			k := segments.Key(strings.TrimPrefix(rk, s.prefix))
			if k.IsHidden() && !includeHidden {
				continue
			}
			keys = append(keys, k)
		}
		cursor = next
		if cursor == 0 {
			break
		}
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return dedupe(keys), nil
}

// escapePattern escapes the glob metacharacters understood by SCAN MATCH
func escapePattern(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch r {
		case '*', '?', '[', ']', '\\':
			b.WriteRune('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}

// dedupe removes adjacent duplicates, which SCAN may return across batches
func dedupe(keys []segments.Key) []segments.Key {
	if len(keys) < 2 {
		return keys
	}
	res := keys[:1]
	for _, k := range keys[1:] {
		if k != res[len(res)-1] {
			res = append(res, k)
		}
	}
	return res
}
