package repository

import "errors"

// Sentinel kinds for trial store errors.
var (
	ErrNotFound     = errors.New("trial not found")
	ErrDuplicate    = errors.New("trial already recorded")
	ErrInvalidLimit = errors.New("invalid trial limit")
	ErrClosed       = errors.New("trial store closed")
)
