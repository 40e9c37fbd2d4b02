// Package repository defines the persistence backends for user records and
// the error values they share.  Higher layers match these sentinels with
// errors.Is to tell a missing record or a uniqueness clash apart from a
// storage failure.
package repository

import "errors"

// ErrNotFound is returned when no user matches the lookup key.  Handlers
// translate it into a client error.
var ErrNotFound = errors.New("user not found")

// ErrEmailExists is returned by Insert and Update when another user already
// owns the email address.
var ErrEmailExists = errors.New("email already exists")
