package repository

import "errors"

// Sentinel errors shared by the postgres and in-memory implementations so
// services stay storage-agnostic.
var (
	ErrNotFound = errors.New("record not found")

	// ErrVersionConflict means an optimistic-concurrency write lost the
	// race: the row's version no longer matches the loaded snapshot.
	ErrVersionConflict = errors.New("version conflict")
)
