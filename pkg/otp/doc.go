// Package otp holds the input helpers for one-time codes.
//
// Entry models the per-character code grid: typing advances focus, backspace
// on an empty cell steps back, and pasting fills the grid from the allowed
// characters of the clipboard text:
//
//	e, _ := otp.NewEntry(6, otp.Digits)
//	if e.Paste("123456abc") {
//		submit(e.Value()) // "123456"
//	}
//
// Cooldown is the resend timer. It counts down whole seconds from its period
// and reports each tick to an optional handler. Tests inject a ManualClock to
// move time without sleeping.
package otp
