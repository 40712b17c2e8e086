package frame

import (
	"bytes"
	"encoding/gob"

	"github.com/go-sif/segments"
)

func init() {
	gob.Register(&Frame{})
}

// wireFrame is the serialized form of a Frame
type wireFrame struct {
	Key     string
	Names   []string
	Columns []segments.Column
}

// GobEncode serializes a Frame
func (f *Frame) GobEncode() ([]byte, error) {
	var buf bytes.Buffer
	err := gob.NewEncoder(&buf).Encode(&wireFrame{
		Key:     string(f.key),
		Names:   f.names,
		Columns: f.cols,
	})
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// GobDecode deserializes a Frame
func (f *Frame) GobDecode(in []byte) error {
	var wf wireFrame
	if err := gob.NewDecoder(bytes.NewReader(in)).Decode(&wf); err != nil {
		return err
	}
	decoded, err := New(segments.Key(wf.Key), wf.Names, wf.Columns)
	if err != nil {
		return err
	}
	*f = *decoded
	return nil
}
