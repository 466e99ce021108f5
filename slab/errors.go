package slab

import "errors"

var (
	// ErrObjSize indicates an object size outside [8, 4096].
	ErrObjSize = errors.New("slab: object size must be between 8 and 4096 bytes")

	// ErrMaxPages indicates a page cap below 1.
	ErrMaxPages = errors.New("slab: max pages must be at least 1")
)
