package errors

import (
	"errors"
	"fmt"
)

// MissingKeyError occurs when a Key cannot be resolved in a Store
type MissingKeyError struct{ Key string }

// Error returns a textual representation of this MissingKeyError
func (e MissingKeyError) Error() string {
	return fmt.Sprintf("Key %s does not exist in store", e.Key)
}

// IsMissingKey returns true iff err is, or wraps, a MissingKeyError
func IsMissingKey(err error) bool {
	var mke MissingKeyError
	return errors.As(err, &mke)
}

// RowOutOfRangeError occurs when a row number falls outside of a Column
type RowOutOfRangeError struct {
	Row int64
	Len int64
}

// Error returns a textual representation of this RowOutOfRangeError
func (e RowOutOfRangeError) Error() string {
	return fmt.Sprintf("Row %d is out of range for a column of length %d", e.Row, e.Len)
}

// IncompatibleLayoutError occurs when Columns which must be aligned have different chunk boundaries
type IncompatibleLayoutError struct{}

// Error returns a textual representation of this IncompatibleLayoutError
func (e IncompatibleLayoutError) Error() string {
	return "Column layouts are not compatible"
}

// MissingColumnError occurs when a Frame does not contain a named Column
type MissingColumnError struct{ Name string }

// Error returns a textual representation of this MissingColumnError
func (e MissingColumnError) Error() string {
	return fmt.Sprintf("Column %s does not exist in frame", e.Name)
}

// UnexpectedValueError occurs when a Store holds a value of an unexpected type at a Key
type UnexpectedValueError struct {
	Key   string
	Value interface{}
}

// Error returns a textual representation of this UnexpectedValueError
func (e UnexpectedValueError) Error() string {
	return fmt.Sprintf("Key %s holds an unexpected value of type %T", e.Key, e.Value)
}

// StoreClosedError occurs when a Store is used after it has been closed
type StoreClosedError struct{}

// Error returns a textual representation of this StoreClosedError
func (e StoreClosedError) Error() string {
	return "Store is closed"
}
