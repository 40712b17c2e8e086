// Package vec provides the in-memory implementation of segments.Column: a
// partitioned column of nullable strings. Missing values are tracked per chunk
// in a roaring bitmap, and Columns serialize (via gob) to lz4-compressed bytes.
package vec
