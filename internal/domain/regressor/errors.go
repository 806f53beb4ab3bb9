package regressor

import "errors"

// Sentinel kinds for regressor errors.
var (
	ErrUnknownRegressor = errors.New("unknown regressor")
	ErrShape            = errors.New("design matrix shape mismatch")
	ErrFit              = errors.New("fit failed")
)
