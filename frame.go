package segments

// A Frame is a keyed, ordered collection of named Columns
// which all share the same Layout
type Frame interface {
	Keyed
	Names() []string                    // Names returns the column names of this Frame, in order
	Columns() []Column                  // Columns returns the Columns of this Frame, in order
	Column(name string) (Column, error) // Column retrieves a Column by name
	NumRows() int64                     // NumRows returns the number of rows in this Frame
	Layout() Layout                     // Layout returns the chunk boundaries shared by all Columns of this Frame
}
