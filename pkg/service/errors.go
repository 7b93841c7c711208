package service

import (
	"fmt"

	"chatrelay/pkg/store"
)

// ErrNotFound mirrors the store sentinel so boundary code only needs this
// package to classify failures.
var ErrNotFound = store.ErrNotFound

// ValidationError marks malformed caller input. It is never retried and its
// message is safe to surface verbatim.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string { return e.Reason }

func errValidation(format string, args ...any) error {
	return &ValidationError{Reason: fmt.Sprintf(format, args...)}
}

// StorageError wraps an unrecoverable backing-store failure. Callers may
// retry the operation.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string { return fmt.Sprintf("storage %s failed: %v", e.Op, e.Err) }

func (e *StorageError) Unwrap() error { return e.Err }
