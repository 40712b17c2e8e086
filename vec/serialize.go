package vec

import (
	"bytes"
	"encoding/gob"
	"fmt"
	"io"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/go-sif/segments"
	"github.com/pierrec/lz4/v4"
)

func init() {
	gob.Register(&Column{})
}

// wireColumn is the serialized form of a Column, before compression
type wireColumn struct {
	Key    string
	Layout []int64
	Values [][]string
	NA     [][]byte
}

// GobEncode serializes a Column to lz4-compressed bytes
func (c *Column) GobEncode() ([]byte, error) {
	wc := wireColumn{
		Key:    string(c.key),
		Layout: c.layout,
		Values: make([][]string, len(c.chunks)),
		NA:     make([][]byte, len(c.chunks)),
	}
	for i, ch := range c.chunks {
		wc.Values[i] = ch.values
		na, err := ch.na.ToBytes()
		if err != nil {
			return nil, err
		}
		wc.NA[i] = na
	}
	var buf bytes.Buffer
	compressor := lz4.NewWriter(&buf)
	if err := gob.NewEncoder(compressor).Encode(&wc); err != nil {
		return nil, err
	}
	if err := compressor.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// GobDecode deserializes a Column from lz4-compressed bytes
func (c *Column) GobDecode(in []byte) error {
	decompressor := lz4.NewReader(bytes.NewReader(in))
	raw, err := io.ReadAll(decompressor)
	if err != nil {
		return fmt.Errorf("Unable to decompress column data: %w", err)
	}
	var wc wireColumn
	if err := gob.NewDecoder(bytes.NewReader(raw)).Decode(&wc); err != nil {
		return err
	}
	layout := segments.Layout(wc.Layout)
	if len(wc.Values) != layout.NumChunks() || len(wc.NA) != layout.NumChunks() {
		return fmt.Errorf("Serialized column %s has %d chunks, expected %d", wc.Key, len(wc.Values), layout.NumChunks())
	}
	chunks := make([]*chunk, layout.NumChunks())
	for i := range chunks {
		na := roaring.New()
		if err := na.UnmarshalBinary(wc.NA[i]); err != nil {
			return err
		}
		values := wc.Values[i]
		if len(values) != layout.ChunkLen(i) {
			// gob drops empty slices, so an empty chunk may arrive as nil
			if layout.ChunkLen(i) != 0 {
				return fmt.Errorf("Serialized chunk %d has %d rows, expected %d", i, len(values), layout.ChunkLen(i))
			}
			values = []string{}
		}
		chunks[i] = &chunk{idx: i, start: layout.ChunkStart(i), values: values, na: na}
	}
	c.key = segments.Key(wc.Key)
	c.layout = layout
	c.chunks = chunks
	return nil
}
