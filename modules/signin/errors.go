package signin

import "errors"

var (
	// ErrStale is returned when the answer to a call arrived after the user
	// left the step that made it (back to login, restart). The answer is
	// discarded.
	ErrStale = errors.New("signin: response belongs to an abandoned attempt")
	// ErrWrongStep is returned when an action does not apply to the current
	// step, such as submitting an MFA code while on the credentials screen.
	ErrWrongStep = errors.New("signin: action not available in this step")
	// ErrIncompleteCode is returned when a code is submitted before every
	// cell is filled. Nothing is sent.
	ErrIncompleteCode = errors.New("signin: code is incomplete")
	// ErrResendCooldown is returned while the resend countdown runs. Nothing
	// is sent.
	ErrResendCooldown = errors.New("signin: resend is not available yet")
)
