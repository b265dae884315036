package authapi

import (
	"errors"
	"fmt"
)

var (
	ErrNoSession     = errors.New("authapi: response carried no session")
	ErrMissingUserID = errors.New("authapi: mfa challenge without user id")
)

// VerificationRequiredError is returned by Login and Register when the server
// refused the call because the email is not verified yet. The caller moves to
// the email verification step with Email and UserID.
type VerificationRequiredError struct {
	Email  string
	UserID string
	// Err is the gateway error of the refused call.
	Err error
}

func (e *VerificationRequiredError) Error() string {
	return fmt.Sprintf("authapi: email %s requires verification", e.Email)
}

func (e *VerificationRequiredError) Unwrap() error {
	return e.Err
}

// AsVerificationRequired unwraps err into a *VerificationRequiredError.
func AsVerificationRequired(err error) (*VerificationRequiredError, bool) {
	var v *VerificationRequiredError
	ok := errors.As(err, &v)
	return v, ok
}
