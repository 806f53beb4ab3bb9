package search

import (
	"errors"
	"fmt"

	"github.com/okian/spread/internal/domain/model"
)

// Sentinel kinds for search errors.
var (
	ErrNoCandidate = fmt.Errorf("no candidate could be evaluated: %w", model.ErrSearchExhausted)
	ErrEmptyGrid   = fmt.Errorf("rating grid is empty: %w", model.ErrConfiguration)
	ErrFolds       = errors.New("invalid fold count")
)
