package signin

import "github.com/dmitrymomot/taskdesk/pkg/session"

// View is a snapshot of what the sign-in screen should show.
type View struct {
	State State
	// Error is the inline message of the last failed call, or "".
	Error string
	// Busy is true while a call is in flight; submit controls should be
	// disabled.
	Busy bool

	// MFA step.
	MFAMethod MFAMethod
	MFACode   []string

	// Email verification step.
	VerificationEmail string
	OTP               []string
	// ResendIn is the number of seconds before resend is allowed.
	ResendIn int

	// Session is set once the attempt succeeded.
	Session *session.Session
}

// View returns the current snapshot.
func (f *Flow) View() View {
	f.mu.Lock()
	defer f.mu.Unlock()

	v := View{
		State: f.machine.Current(),
		Error: f.inline,
		Busy:  f.busy,
	}
	if f.mfa != nil {
		v.MFAMethod = f.mfa.method
		v.MFACode = f.mfa.code.Cells()
	}
	if f.verify != nil {
		v.VerificationEmail = f.verify.email
		v.OTP = f.verify.code.Cells()
		v.ResendIn = f.cooldown.Remaining()
	}
	if f.session != nil {
		cp := *f.session
		v.Session = &cp
	}
	return v
}
