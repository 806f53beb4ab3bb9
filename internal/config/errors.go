package config

import "errors"

// ErrInvalidConfig marks settings rejected by Validate; it is always joined
// with model.ErrConfiguration. ErrLoadConfig marks an unreadable source.
var (
	ErrInvalidConfig = errors.New("invalid spread config")
	ErrLoadConfig    = errors.New("load spread config")
)
