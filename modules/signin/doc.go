// Package signin implements the multi-step sign-in of the marketplace client.
//
// A Flow walks one attempt through explicit steps:
//
//	credentials ──mfa_required──────────▶ mfa_challenge ──authenticated──▶ session_established
//	     │                                     │
//	     ├──verification_required──▶ email_verification_pending ──authenticated──▶ session_established
//	     └──authenticated──────────────────────────────────────────────────▶ session_established
//
// mfa_challenge and email_verification_pending return to credentials with
// BackToLogin. session_established is terminal; Restart begins a new attempt.
//
// The MFA step takes a 6 digit authenticator code or, after ToggleMFAMethod,
// an 8 character backup code. The verification step takes the 6 digit code
// sent by email; pasting a full code submits it, and resending is refused
// while the 60 second countdown runs.
//
// On success the session is saved and the Navigator is sent to the role's
// home from routes.Config. Answers that arrive after the user left the step
// that asked are dropped with ErrStale.
package signin
