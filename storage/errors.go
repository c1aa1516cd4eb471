package storage

import (
	"errors"
	"strings"
)

// Storage error constants
var (
	// ErrNotFound is returned when a single row lookup matches nothing
	ErrNotFound = errors.New("not found")

	// ErrDatabaseClosed is returned when a pool is used after Close
	ErrDatabaseClosed = errors.New("database is closed")

	// ErrInvalidListEncoding is returned when a stored JSON list cannot be decoded
	ErrInvalidListEncoding = errors.New("invalid list encoding")
)

// IsNotFound reports whether err marks a missing row
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// classifyErr maps driver-level closed-handle errors onto ErrDatabaseClosed
func classifyErr(err error) error {
	if err == nil {
		return nil
	}
	if strings.Contains(err.Error(), "database is closed") {
		return ErrDatabaseClosed
	}
	return err
}
