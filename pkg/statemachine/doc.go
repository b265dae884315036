// Package statemachine provides a small, type-safe finite state machine.
//
// States and events are any string-based types, so a domain can declare them
// as constants and get compile-time checking:
//
//	type Step string
//	type Signal string
//
//	const (
//	    Draft    Step   = "draft"
//	    InReview Step   = "in_review"
//	    Submit   Signal = "submit"
//	)
//
//	m := statemachine.MustNew(Draft,
//	    statemachine.WithTransition(Draft, InReview, Submit),
//	    statemachine.WithTerminal[Step, Signal](InReview),
//	)
//	_ = m.Fire(ctx, Submit, nil)
//
// # Guards, actions and listeners
//
// Several transitions may share a from/event pair; the first whose guards all
// pass is taken. Actions run in order before the state changes and any error
// aborts the transition, leaving the state untouched. Listeners run after the
// change, outside the lock.
//
// # Errors
//
// Fire distinguishes "no transition defined" from "guards rejected":
//
//	if errors.Is(err, statemachine.ErrNoTransition) { /* ... */ }
//	if errors.Is(err, statemachine.ErrRejected)     { /* ... */ }
//
// Both come wrapped in a *TransitionError naming the state and event.
//
// # Concurrency
//
// Machine uses a RWMutex; Current, Is and CanFire take the read lock. Guards
// and actions run under the write lock and must not call back into the
// machine.
package statemachine
