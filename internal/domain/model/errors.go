package model

import "errors"

// Error kinds shared by every stage of a training run. Packages wrap these
// with fmt.Errorf("...: %w", ...) so callers can branch with errors.Is.
var (
	// ErrDataIntegrity marks malformed or duplicate match and schedule records.
	ErrDataIntegrity = errors.New("data integrity")
	// ErrInsufficientHistory marks a match or entry without a usable prior match.
	ErrInsufficientHistory = errors.New("insufficient history")
	// ErrSearchExhausted marks a search whose best candidate did not beat the baseline.
	ErrSearchExhausted = errors.New("search exhausted")
	// ErrConfiguration marks invalid parameters or ranges.
	ErrConfiguration = errors.New("invalid configuration")
)
