package store

import "errors"

// ErrNotFound is returned when a record does not exist.
var ErrNotFound = errors.New("not found")

// ErrConflict is returned when an insert would violate a uniqueness
// constraint (duplicate username or email).
var ErrConflict = errors.New("already exists")
