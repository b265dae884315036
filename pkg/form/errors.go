package form

import "errors"

// ErrInvalid is returned by a submit handler when the validator reported at
// least one field error and the submit callback was not invoked.
var ErrInvalid = errors.New("form: validation failed")
