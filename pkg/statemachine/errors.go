package statemachine

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidTransition = errors.New("invalid transition: from, to, or event cannot be empty")
	ErrInvalidEvent      = errors.New("invalid event: event cannot be empty")

	// ErrNoTransition means the current state has no transition for the event.
	ErrNoTransition = errors.New("no transition for event")
	// ErrRejected means transitions exist but every guard refused.
	ErrRejected = errors.New("transition rejected by guards")
)

// TransitionError is returned by Fire when the event cannot move the machine.
// It unwraps to ErrNoTransition or ErrRejected.
type TransitionError struct {
	State string
	Event string
	Err   error
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("%s: state %q, event %q", e.Err, e.State, e.Event)
}

func (e *TransitionError) Unwrap() error { return e.Err }
