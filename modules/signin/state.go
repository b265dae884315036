package signin

import (
	"context"

	"github.com/dmitrymomot/taskdesk/pkg/statemachine"
)

// State is the step of a sign-in attempt.
type State string

const (
	StateCredentials        State = "credentials"
	StateMFAChallenge       State = "mfa_challenge"
	StateEmailVerification  State = "email_verification_pending"
	StateSessionEstablished State = "session_established"
)

// Event moves the attempt between steps.
type Event string

const (
	EventMFARequired          Event = "mfa_required"
	EventVerificationRequired Event = "verification_required"
	EventAuthenticated        Event = "authenticated"
	EventBackToLogin          Event = "back_to_login"
)

// MFAMethod selects which code the MFA step expects.
type MFAMethod string

const (
	// MethodOTP is a 6 digit authenticator code.
	MethodOTP MFAMethod = "otp"
	// MethodBackup is an 8 character backup code.
	MethodBackup MFAMethod = "backup"
)

// newMachine builds the step table. session_established is terminal: a new
// session needs Restart and a fresh credentials submission.
func newMachine(listener statemachine.Listener[State, Event]) *statemachine.Machine[State, Event] {
	return statemachine.MustNew(StateCredentials,
		statemachine.WithTransition[State, Event](StateCredentials, StateMFAChallenge, EventMFARequired),
		statemachine.WithTransition[State, Event](StateCredentials, StateEmailVerification, EventVerificationRequired),
		statemachine.WithTransition[State, Event](StateCredentials, StateSessionEstablished, EventAuthenticated),
		statemachine.WithTransition[State, Event](StateMFAChallenge, StateSessionEstablished, EventAuthenticated),
		statemachine.WithTransition[State, Event](StateMFAChallenge, StateCredentials, EventBackToLogin),
		statemachine.WithTransition[State, Event](StateEmailVerification, StateSessionEstablished, EventAuthenticated),
		statemachine.WithTransition[State, Event](StateEmailVerification, StateCredentials, EventBackToLogin),
		statemachine.WithTerminal[State, Event](StateSessionEstablished),
		statemachine.WithListener(listener),
	)
}

func fire(ctx context.Context, m *statemachine.Machine[State, Event], e Event) error {
	return m.Fire(ctx, e, nil)
}
