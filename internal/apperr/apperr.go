// Package apperr defines the error kinds surfaced by the portal services.
package apperr

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when a referenced record does not exist.
var ErrNotFound = errors.New("not found")

// ValidationError is a user-facing rejection of input. Nothing was mutated.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// Invalid builds a ValidationError.
func Invalid(field, msg string) error {
	return &ValidationError{Field: field, Message: msg}
}

// PermissionError is returned when the current account may not perform an action.
type PermissionError struct {
	Message string
}

func (e *PermissionError) Error() string { return e.Message }

// Forbidden builds a PermissionError.
func Forbidden(msg string) error {
	return &PermissionError{Message: msg}
}

// StorageError wraps a failure of the record store.
type StorageError struct {
	Op  string
	Key string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage %s %q: %v", e.Op, e.Key, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// FileReadError is returned when an uploaded file could not be read.
type FileReadError struct {
	Name string
	Err  error
}

func (e *FileReadError) Error() string {
	return fmt.Sprintf("read file %q: %v", e.Name, e.Err)
}

func (e *FileReadError) Unwrap() error { return e.Err }

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}

// IsPermission reports whether err is a PermissionError.
func IsPermission(err error) bool {
	var p *PermissionError
	return errors.As(err, &p)
}

// IsStorage reports whether err is a StorageError.
func IsStorage(err error) bool {
	var s *StorageError
	return errors.As(err, &s)
}

// IsFileRead reports whether err is a FileReadError.
func IsFileRead(err error) bool {
	var f *FileReadError
	return errors.As(err, &f)
}
