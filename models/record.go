package models

import (
	"github.com/go-sif/segments"
)

// Record is the stored outcome of one segment's computation
type Record struct {
	key      segments.Key
	model    segments.Key
	errors   []string
	warnings []string
}

// NewRecord creates a Record. An empty model Key means no model was produced.
// Empty error and warning lists are stored as nil.
func NewRecord(key segments.Key, model segments.Key, errs []string, warns []string) *Record {
	return &Record{
		key:      key,
		model:    model,
		errors:   nilIfEmpty(errs),
		warnings: nilIfEmpty(warns),
	}
}

// Key returns the Key this Record is stored under
func (r *Record) Key() segments.Key {
	return r.key
}

// Model returns the Key of the model produced for the segment, or "" if there is none
func (r *Record) Model() segments.Key {
	return r.model
}

// Errors returns the errors encountered for the segment, or nil if there were none
func (r *Record) Errors() []string {
	return r.errors
}

// Warnings returns the warnings raised for the segment, or nil if there were none
func (r *Record) Warnings() []string {
	return r.warnings
}

// ResultErrors computes the error list of a Record: nil if there are no
// validation errors and no exception, otherwise the validation errors in
// order, followed by the text of the exception (if any).
func ResultErrors(validationErrors []string, exc error) []string {
	if len(validationErrors) == 0 && exc == nil {
		return nil
	}
	errs := make([]string, 0, len(validationErrors)+1)
	errs = append(errs, validationErrors...)
	if exc != nil {
		errs = append(errs, exc.Error())
	}
	return errs
}

func nilIfEmpty(s []string) []string {
	if len(s) == 0 {
		return nil
	}
	return append([]string(nil), s...)
}
