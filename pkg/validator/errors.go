package validator

import "errors"

// ErrValidationFailed is returned when validation fails but no specific error is provided.
var ErrValidationFailed = errors.New("validation failed")
