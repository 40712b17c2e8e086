package frame

import (
	"context"
	"fmt"

	"github.com/go-sif/segments"
	errors "github.com/go-sif/segments/errors"
	"github.com/go-sif/segments/vec"
)

// Frame is an ordered collection of named Columns sharing one Layout
type Frame struct {
	key    segments.Key
	names  []string
	cols   []segments.Column
	layout segments.Layout
}

// New creates a Frame. Every Column must share the same Layout, and names must be unique.
func New(key segments.Key, names []string, cols []segments.Column) (*Frame, error) {
	if len(names) != len(cols) {
		return nil, fmt.Errorf("Frame requires one name per column, got %d names and %d columns", len(names), len(cols))
	}
	seen := make(map[string]bool, len(names))
	for _, name := range names {
		if seen[name] {
			return nil, fmt.Errorf("Column %s appears more than once", name)
		}
		seen[name] = true
	}
	layout := segments.UniformLayout(0, 1)
	if len(cols) > 0 {
		layout = cols[0].Layout()
	}
	for _, col := range cols {
		if !col.Layout().Equals(layout) {
			return nil, errors.IncompatibleLayoutError{}
		}
	}
	return &Frame{
		key:    key,
		names:  append([]string(nil), names...),
		cols:   append([]segments.Column(nil), cols...),
		layout: layout,
	}, nil
}

// Key returns the Key of this Frame
func (f *Frame) Key() segments.Key {
	return f.key
}

// Names returns the column names of this Frame, in order
func (f *Frame) Names() []string {
	return append([]string(nil), f.names...)
}

// Columns returns the Columns of this Frame, in order
func (f *Frame) Columns() []segments.Column {
	return append([]segments.Column(nil), f.cols...)
}

// Column retrieves a Column by name
func (f *Frame) Column(name string) (segments.Column, error) {
	for i, n := range f.names {
		if n == name {
			return f.cols[i], nil
		}
	}
	return nil, errors.MissingColumnError{Name: name}
}

// NumRows returns the number of rows in this Frame
func (f *Frame) NumRows() int64 {
	return f.layout.NumRows()
}

// Layout returns the chunk boundaries shared by all Columns of this Frame
func (f *Frame) Layout() segments.Layout {
	return f.layout
}

// Add produces a new Frame under key, holding the Columns of f followed by the given Columns.
// An empty Frame adopts the Layout of the added Columns.
func Add(key segments.Key, f segments.Frame, names []string, cols []segments.Column) (*Frame, error) {
	allNames := append(f.Names(), names...)
	allCols := append(f.Columns(), cols...)
	return New(key, allNames, allCols)
}

// DeepCopy produces an independent copy of a Frame under key. Every Column is
// copied in parallel, and receives a fresh hidden Key.
func DeepCopy(ctx context.Context, exec segments.Executor, f segments.Frame, key segments.Key) (*Frame, error) {
	cols := f.Columns()
	if len(cols) == 0 {
		return New(key, nil, nil)
	}
	keys := make([]segments.Key, len(cols))
	for i := range keys {
		k, err := segments.MakeHiddenKey()
		if err != nil {
			return nil, err
		}
		keys[i] = k
	}
	copied, err := exec.Do(ctx, &vec.CopyTask{}, &segments.Job{
		Inputs:     cols,
		NumOutputs: len(cols),
		OutputKeys: keys,
	})
	if err != nil {
		return nil, err
	}
	return New(key, f.Names(), copied)
}
