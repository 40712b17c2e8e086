package segments

import "context"

// A Store is a global namespace mapping Keys to arbitrary values.
// Put, Get and Remove are atomic per Key, and a Get which follows a
// completed Put observes it. Implementations must be safe for concurrent use.
type Store interface {
	Put(ctx context.Context, key Key, value interface{}) error   // Put stores a value, replacing any previous value for the Key
	Get(ctx context.Context, key Key) (interface{}, error)       // Get retrieves a value, or returns an errors.MissingKeyError if there is none
	Remove(ctx context.Context, key Key) error                   // Remove deletes the value for a Key. Removing an absent Key is a no-op.
	Keys(ctx context.Context, includeHidden bool) ([]Key, error) // Keys enumerates the Keys in this Store, skipping hidden Keys unless includeHidden is true
}

// A Keyed value knows the Key it is stored under
type Keyed interface {
	Key() Key
}
