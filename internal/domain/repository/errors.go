package repository

import "errors"

var (
	// ErrNotFound is returned when the row does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrConflict is returned when a conditional transition matched no row
	// because the status or a guard no longer held.
	ErrConflict = errors.New("transition conflict")
	// ErrInvalidTransition is returned when a requested source status may
	// never move to the target status.
	ErrInvalidTransition = errors.New("invalid status transition")
	// ErrCacheMiss is returned by CacheRepository.Get for absent or expired keys.
	ErrCacheMiss = errors.New("cache miss")
)
