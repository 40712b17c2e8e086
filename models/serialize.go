package models

import (
	"bytes"
	"encoding/gob"

	"github.com/go-sif/segments"
)

func init() {
	gob.Register(&Record{})
	gob.Register(&Container{})
}

// wireRecord is the serialized form of a Record
type wireRecord struct {
	Key      string
	Model    string
	Errors   []string
	Warnings []string
}

// GobEncode serializes a Record
func (r *Record) GobEncode() ([]byte, error) {
	var buf bytes.Buffer
	err := gob.NewEncoder(&buf).Encode(&wireRecord{
		Key:      string(r.key),
		Model:    string(r.model),
		Errors:   r.errors,
		Warnings: r.warnings,
	})
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// GobDecode deserializes a Record
func (r *Record) GobDecode(in []byte) error {
	var wr wireRecord
	if err := gob.NewDecoder(bytes.NewReader(in)).Decode(&wr); err != nil {
		return err
	}
	*r = *NewRecord(segments.Key(wr.Key), segments.Key(wr.Model), wr.Errors, wr.Warnings)
	return nil
}

// wireContainer is the serialized form of a Container. The store and
// executor are not serialized; Load attaches them.
type wireContainer struct {
	Key      string
	Segments segments.Frame
	Results  segments.Column
}

// GobEncode serializes a Container
func (c *Container) GobEncode() ([]byte, error) {
	var buf bytes.Buffer
	err := gob.NewEncoder(&buf).Encode(&wireContainer{
		Key:      string(c.key),
		Segments: c.segments,
		Results:  c.results,
	})
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// GobDecode deserializes a Container
func (c *Container) GobDecode(in []byte) error {
	var wc wireContainer
	if err := gob.NewDecoder(bytes.NewReader(in)).Decode(&wc); err != nil {
		return err
	}
	c.key = segments.Key(wc.Key)
	c.segments = wc.Segments
	c.results = wc.Results
	return nil
}
