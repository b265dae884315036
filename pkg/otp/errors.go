package otp

import "errors"

var (
	ErrIndexOutOfRange = errors.New("otp: cell index out of range")
	ErrInvalidLength   = errors.New("otp: length must be positive")
)
