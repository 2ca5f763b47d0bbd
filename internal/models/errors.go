package models

import "errors"

// ErrNotFound is returned when the targeted task id does not exist,
// for example when it was deleted from another session.
var ErrNotFound = errors.New("task not found")

// ValidationError reports input the store or local validation rejected.
// It is never retried; the user has to correct the input.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return e.Field + " " + e.Reason
}

// StoreError wraps a transport or service failure from the store
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return e.Op + ": " + e.Err.Error()
}

func (e *StoreError) Unwrap() error {
	return e.Err
}
