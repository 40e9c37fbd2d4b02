package service

import (
	"errors"
	"fmt"
)

// ErrAuth is the one error returned for bad credentials and for invalid or
// revoked session tokens.  It never says which part was wrong.
var ErrAuth = errors.New("unable to login")

// ErrNotFound is returned for missing resources.  Avatar lookups use it
// for both an unknown user and a user without an avatar.
var ErrNotFound = errors.New("not found")

// ValidationError names the field that failed validation.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Reason
	}
	return e.Field + ": " + e.Reason
}

func invalid(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

// PersistenceError wraps a store failure together with the operation that
// hit it.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

func persistence(op string, err error) error {
	return &PersistenceError{Op: op, Err: err}
}
