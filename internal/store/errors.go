package store

import "errors"

// ErrNotFound is returned when a record does not exist.
var ErrNotFound = errors.New("not found")

// ErrCorrupt is returned when a backing file cannot be decoded.
var ErrCorrupt = errors.New("corrupt data file")
