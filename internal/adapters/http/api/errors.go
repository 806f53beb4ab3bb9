package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	service "github.com/okian/spread/internal/app"
	"github.com/okian/spread/internal/domain/model"
	"github.com/okian/spread/internal/domain/predict"
)

// Sentinel kinds for API errors.
var (
	ErrBadRequest    = errors.New("bad request")
	ErrLimitExceeded = errors.New("limit exceeded")
)

// Error ties an upstream error to the operation that failed and, when the
// request itself was at fault, to a sentinel kind.
type Error struct {
	Op   string
	Kind error
	Err  error
}

func (e *Error) Error() string {
	switch {
	case e.Kind != nil && e.Err != nil:
		return fmt.Sprintf("%s: %v: %v", e.Op, e.Kind, e.Err)
	case e.Kind != nil:
		return fmt.Sprintf("%s: %v", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() []error {
	var out []error
	if e.Kind != nil {
		out = append(out, e.Kind)
	}
	if e.Err != nil {
		out = append(out, e.Err)
	}
	return out
}

// NewKind returns an error of the given kind for op.
func NewKind(op string, kind error) error {
	return &Error{Op: op, Kind: kind}
}

// WrapKind wraps err with op and kind.
func WrapKind(op string, kind, err error) error {
	return &Error{Op: op, Kind: kind, Err: err}
}

// Wrap wraps err with op.
func Wrap(op string, err error) error {
	return &Error{Op: op, Err: err}
}

// classify maps an error to a status code and a stable error code.
func classify(err error) (int, string) {
	var dup *service.DuplicateMatchError
	switch {
	case errors.Is(err, ErrLimitExceeded):
		return http.StatusBadRequest, "limit_exceeded"
	case errors.Is(err, ErrBadRequest):
		return http.StatusBadRequest, "bad_request"
	case errors.As(err, &dup):
		return http.StatusConflict, "duplicate_match"
	case errors.Is(err, service.ErrTrainingInProgress):
		return http.StatusConflict, "training_in_progress"
	case errors.Is(err, predict.ErrNoModel):
		return http.StatusConflict, "no_model"
	case errors.Is(err, service.ErrUnknownParticipant):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, service.ErrNoRun):
		return http.StatusNotFound, "no_run"
	case errors.Is(err, service.ErrUnknownStage):
		return http.StatusBadRequest, "bad_request"
	case errors.Is(err, service.ErrNotStarted):
		return http.StatusServiceUnavailable, "unavailable"
	case errors.Is(err, model.ErrDataIntegrity):
		return http.StatusBadRequest, "data_integrity"
	case errors.Is(err, model.ErrConfiguration):
		return http.StatusUnprocessableEntity, "invalid_configuration"
	case errors.Is(err, model.ErrInsufficientHistory):
		return http.StatusUnprocessableEntity, "insufficient_history"
	case errors.Is(err, model.ErrSearchExhausted):
		return http.StatusUnprocessableEntity, "search_exhausted"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable, "cancelled"
	}
	return http.StatusInternalServerError, "internal_error"
}
