package frame

import (
	"context"

	"github.com/go-sif/segments"
	"github.com/hashicorp/go-multierror"
)

// Put stores every Column of f under its own Key, then f itself under its Key
func Put(ctx context.Context, store segments.Store, f segments.Frame) error {
	for _, col := range f.Columns() {
		if err := store.Put(ctx, col.Key(), col); err != nil {
			return err
		}
	}
	return store.Put(ctx, f.Key(), f)
}

// RemoveFrom removes f and every one of its Columns from a Store. Removal
// continues past failures, and every failure is reported.
func RemoveFrom(ctx context.Context, store segments.Store, f segments.Frame) error {
	var errs *multierror.Error
	if err := store.Remove(ctx, f.Key()); err != nil {
		errs = multierror.Append(errs, err)
	}
	for _, col := range f.Columns() {
		if err := store.Remove(ctx, col.Key()); err != nil {
			errs = multierror.Append(errs, err)
		}
	}
	return errs.ErrorOrNil()
}
