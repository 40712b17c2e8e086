// Package codec converts values held in a segments.Store to and from bytes,
// for Stores which live outside of the process.
package codec

import (
	"bytes"
	"encoding/gob"
	"fmt"
	"log"

	"github.com/klauspost/compress/zstd"
)

var (
	compressor   *zstd.Encoder
	decompressor *zstd.Decoder
)

func init() {
	var err error
	compressor, err = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedFastest))
	if err != nil {
		log.Fatalf("Unable to initialize compressor: %v", err)
	}
	decompressor, err = zstd.NewReader(nil)
	if err != nil {
		log.Fatalf("Unable to initialize decompressor: %v", err)
	}
}

// Register records a concrete type which may be stored as a value.
// Types defined in this module register themselves.
func Register(value interface{}) {
	gob.Register(value)
}

// envelope wraps a value so that its concrete type travels with it
type envelope struct {
	Value interface{}
}

// Marshal serializes a value to compressed bytes
func Marshal(value interface{}) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(&envelope{Value: value}); err != nil {
		return nil, fmt.Errorf("Unable to encode value of type %T: %w", value, err)
	}
	return compressor.EncodeAll(buf.Bytes(), nil), nil
}

// Unmarshal deserializes a value produced by Marshal
func Unmarshal(data []byte) (interface{}, error) {
	raw, err := decompressor.DecodeAll(data, nil)
	if err != nil {
		return nil, fmt.Errorf("Unable to decompress value: %w", err)
	}
	var env envelope
	if err := gob.NewDecoder(bytes.NewReader(raw)).Decode(&env); err != nil {
		return nil, fmt.Errorf("Unable to decode value: %w", err)
	}
	return env.Value, nil
}
