package predict

import (
	"errors"
	"fmt"

	"github.com/okian/spread/internal/domain/model"
)

// Reasons a schedule entry cannot be forecast.
const (
	ReasonNoPriorMatch   = "no_prior_match"
	ReasonIncompleteForm = "incomplete_form"
)

// ErrNoModel is returned when forecasting without a fitted model.
var ErrNoModel = errors.New("no fitted model")

// MissingPriorDataError reports an entry whose participant has no usable
// prior match. It wraps model.ErrInsufficientHistory.
type MissingPriorDataError struct {
	Key         model.MatchKey
	Participant string
	Reason      string
}

func (e *MissingPriorDataError) Error() string {
	return fmt.Sprintf("entry %s: %s has %s", e.Key, e.Participant, e.Reason)
}

func (e *MissingPriorDataError) Unwrap() error { return model.ErrInsufficientHistory }
