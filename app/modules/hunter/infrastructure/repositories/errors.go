package hunterdb

import "errors"

var (
	// ErrHunterNotFound indicates the requested hunter does not exist.
	ErrHunterNotFound = errors.New("hunter not found")

	// ErrHunterAlreadyExists indicates a hunter with the same Steam ID is
	// already registered.
	ErrHunterAlreadyExists = errors.New("hunter already exists")
)
