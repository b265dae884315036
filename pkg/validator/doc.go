// Package validator checks credential and contact input before it reaches the
// network.
//
// There are two layers. The message helpers (Email, Password, PasswordMatch,
// Required, MinLength, MaxLength, Phone) are pure functions returning an empty
// string for valid input and a user-facing message otherwise; forms call them
// directly from their validate functions. The Rule layer wraps the same checks
// with translation metadata so several can be evaluated together with Apply,
// which aggregates failures into ValidationErrors.
//
// # Usage
//
//	if msg := validator.Password(pw); msg != "" {
//	    // render msg next to the field
//	}
//
//	err := validator.Apply(
//	    validator.ValidEmail("email", email),
//	    validator.StrongPassword("password", pw),
//	    validator.PasswordsMatch("confirmPassword", pw, confirm),
//	)
//	if verrs := validator.ExtractValidationErrors(err); verrs != nil {
//	    errs := verrs.Map() // field -> first message
//	}
//
// # Password policy
//
// Passwords must be at least MinPasswordLength characters and contain an
// uppercase letter, a lowercase letter, a digit and one symbol from
// PasswordSymbols. Missing classes are named in the message in that order,
// for example "Password needs: one uppercase letter, one number".
package validator
