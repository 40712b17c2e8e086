// Package config gathers the settings of the segments components, from YAML
// files and SEGMENTS_* environment variables.
package config

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/go-kit/log"
	"github.com/go-sif/segments/exec"
	"github.com/go-sif/segments/logging"
	"github.com/go-sif/segments/models"
	"github.com/go-sif/segments/store/memory"
	"github.com/go-sif/segments/store/rpc"
	"github.com/hashicorp/go-multierror"
	"github.com/prometheus/client_golang/prometheus"
	"gopkg.in/yaml.v3"
)

// Store backends
const (
	MemoryBackend = "memory"
	RedisBackend  = "redis"
)

// Options are the settings shared by the segments components
type Options struct {
	ChunkSize          int           `yaml:"chunk_size"`          // rows per chunk when loading segments
	Parallelism        int           `yaml:"parallelism"`         // partitions processed at once by the executor
	RemovalConcurrency int64         `yaml:"removal_concurrency"` // removals in flight per partition during cleanup
	StoreBackend       string        `yaml:"store_backend"`       // "memory" or "redis"
	StoreShards        int           `yaml:"store_shards"`        // shards of the in-memory store
	LogLevel           string        `yaml:"log_level"`           // one of trace, debug, info, warn, error, fatal
	ListenAddress      string        `yaml:"listen_address"`      // address the store server binds to
	StoreAddress       string        `yaml:"store_address"`       // address of a remote store server
	RPCTimeout         time.Duration `yaml:"rpc_timeout"`         // timeout for each store RPC
	MaxMessageSize     int           `yaml:"max_message_size"`    // largest store value, in bytes
	RedisAddress       string        `yaml:"redis_address"`       // address of the redis server backing the store
	RedisPrefix        string        `yaml:"redis_prefix"`        // namespace for keys in redis
}

// EnsureDefaults fills in every unset option
func (o *Options) EnsureDefaults() {
	if o.ChunkSize == 0 {
		o.ChunkSize = 1000
	}
	if o.RemovalConcurrency == 0 {
		o.RemovalConcurrency = 64
	}
	if len(o.StoreBackend) == 0 {
		o.StoreBackend = MemoryBackend
	}
	if o.StoreShards == 0 {
		o.StoreShards = 32
	}
	if len(o.LogLevel) == 0 {
		o.LogLevel = logging.LogLevelToString(logging.InfoLevel)
	}
	if len(o.ListenAddress) == 0 {
		o.ListenAddress = "0.0.0.0:1643"
	}
	if len(o.StoreAddress) == 0 {
		o.StoreAddress = "localhost:1643"
	}
	if o.RPCTimeout == 0 {
		o.RPCTimeout = 5 * time.Second
	}
	if o.MaxMessageSize == 0 {
		o.MaxMessageSize = 64 * 1024 * 1024
	}
	if len(o.RedisAddress) == 0 {
		o.RedisAddress = "localhost:6379"
	}
	if len(o.RedisPrefix) == 0 {
		o.RedisPrefix = "segments:"
	}
}

// Validate reports every invalid option
func (o *Options) Validate() error {
	var errs *multierror.Error
	if o.ChunkSize < 1 {
		errs = multierror.Append(errs, fmt.Errorf("chunk_size %d must be at least 1", o.ChunkSize))
	}
	if o.Parallelism < 0 {
		errs = multierror.Append(errs, fmt.Errorf("parallelism %d must not be negative", o.Parallelism))
	}
	if o.RemovalConcurrency < 1 {
		errs = multierror.Append(errs, fmt.Errorf("removal_concurrency %d must be at least 1", o.RemovalConcurrency))
	}
	if o.StoreBackend != MemoryBackend && o.StoreBackend != RedisBackend {
		errs = multierror.Append(errs, fmt.Errorf("store_backend %q must be %q or %q", o.StoreBackend, MemoryBackend, RedisBackend))
	}
	if o.StoreShards < 1 {
		errs = multierror.Append(errs, fmt.Errorf("store_shards %d must be at least 1", o.StoreShards))
	}
	if _, err := logging.ParseLevel(o.LogLevel); err != nil {
		errs = multierror.Append(errs, err)
	}
	if o.RPCTimeout <= 0 {
		errs = multierror.Append(errs, fmt.Errorf("rpc_timeout %s must be positive", o.RPCTimeout))
	}
	if o.MaxMessageSize < 1 {
		errs = multierror.Append(errs, fmt.Errorf("max_message_size %d must be at least 1", o.MaxMessageSize))
	}
	return errs.ErrorOrNil()
}

// Load reads Options from a YAML file. Unknown fields are rejected.
func Load(path string) (*Options, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Parse(f)
}

// Parse reads Options from YAML. Unknown fields are rejected.
func Parse(r io.Reader) (*Options, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	opts := &Options{}
	if len(bytes.TrimSpace(data)) == 0 {
		return opts, nil
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(opts); err != nil {
		return nil, fmt.Errorf("Unable to parse configuration: %w", err)
	}
	return opts, nil
}

// ApplyEnv overrides Options with SEGMENTS_* variables found by lookup, e.g. os.LookupEnv
func (o *Options) ApplyEnv(lookup func(string) (string, bool)) error {
	var errs *multierror.Error
	str := func(name string, dst *string) {
		if v, ok := lookup(name); ok {
			*dst = v
		}
	}
	num := func(name string, dst *int) {
		if v, ok := lookup(name); ok {
			n, err := strconv.Atoi(v)
			if err != nil {
				errs = multierror.Append(errs, fmt.Errorf("$%s: %w", name, err))
				return
			}
			*dst = n
		}
	}
	num("SEGMENTS_CHUNK_SIZE", &o.ChunkSize)
	num("SEGMENTS_PARALLELISM", &o.Parallelism)
	if v, ok := lookup("SEGMENTS_REMOVAL_CONCURRENCY"); ok {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			errs = multierror.Append(errs, fmt.Errorf("$SEGMENTS_REMOVAL_CONCURRENCY: %w", err))
		} else {
			o.RemovalConcurrency = n
		}
	}
	str("SEGMENTS_STORE_BACKEND", &o.StoreBackend)
	num("SEGMENTS_STORE_SHARDS", &o.StoreShards)
	str("SEGMENTS_LOG_LEVEL", &o.LogLevel)
	str("SEGMENTS_LISTEN_ADDRESS", &o.ListenAddress)
	str("SEGMENTS_STORE_ADDRESS", &o.StoreAddress)
	if v, ok := lookup("SEGMENTS_RPC_TIMEOUT"); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			errs = multierror.Append(errs, fmt.Errorf("$SEGMENTS_RPC_TIMEOUT: %w", err))
		} else {
			o.RPCTimeout = d
		}
	}
	num("SEGMENTS_MAX_MESSAGE_SIZE", &o.MaxMessageSize)
	str("SEGMENTS_REDIS_ADDRESS", &o.RedisAddress)
	str("SEGMENTS_REDIS_PREFIX", &o.RedisPrefix)
	return errs.ErrorOrNil()
}

// Logger creates a Logger writing to w at the configured level
func (o *Options) Logger(w io.Writer) (log.Logger, error) {
	lvl, err := logging.ParseLevel(o.LogLevel)
	if err != nil {
		return nil, err
	}
	return logging.New(w, lvl), nil
}

// ExecutorOptions derives the options of an exec.Executor
func (o *Options) ExecutorOptions(logger log.Logger, reg prometheus.Registerer) *exec.Options {
	return &exec.Options{Parallelism: o.Parallelism, Logger: logger, Registerer: reg}
}

// ContainerOptions derives the options of a models.Container
func (o *Options) ContainerOptions(logger log.Logger) *models.Options {
	return &models.Options{RemovalConcurrency: o.RemovalConcurrency, Logger: logger}
}

// MemoryStoreOptions derives the options of a memory.Store
func (o *Options) MemoryStoreOptions(logger log.Logger) *memory.Options {
	return &memory.Options{NumShards: o.StoreShards, Logger: logger}
}

// ServerOptions derives the options of an rpc.Server
func (o *Options) ServerOptions(logger log.Logger, reg prometheus.Registerer) *rpc.ServerOptions {
	return &rpc.ServerOptions{MaxMessageSize: o.MaxMessageSize, Logger: logger, Registerer: reg}
}

// ClientOptions derives the options of an rpc.Client
func (o *Options) ClientOptions() *rpc.ClientOptions {
	return &rpc.ClientOptions{Timeout: o.RPCTimeout, MaxMessageSize: o.MaxMessageSize}
}
