package validator

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

// MinPasswordLength is the shortest password accepted by the sign-up and
// change-password forms.
const MinPasswordLength = 12

// PasswordSymbols is the fixed punctuation set that satisfies the symbol class.
const PasswordSymbols = `!@#$%^&*(),.?":{}|<>`

var (
	uppercaseRegex = regexp.MustCompile(`[A-Z]`)
	lowercaseRegex = regexp.MustCompile(`[a-z]`)
	digitRegex     = regexp.MustCompile(`[0-9]`)
	symbolRegex    = regexp.MustCompile(`[` + regexp.QuoteMeta(PasswordSymbols) + `]`)
)

// CharClass is one of the character classes a password must contain.
type CharClass string

const (
	ClassUppercase CharClass = "one uppercase letter"
	ClassLowercase CharClass = "one lowercase letter"
	ClassDigit     CharClass = "one number"
	ClassSymbol    CharClass = "one special character"
)

// passwordClasses is ordered: messages list missing classes in this order.
var passwordClasses = []struct {
	class CharClass
	re    *regexp.Regexp
}{
	{ClassUppercase, uppercaseRegex},
	{ClassLowercase, lowercaseRegex},
	{ClassDigit, digitRegex},
	{ClassSymbol, symbolRegex},
}

// MissingPasswordClasses returns the classes absent from value, ordered
// uppercase, lowercase, digit, symbol.
func MissingPasswordClasses(value string) []CharClass {
	var missing []CharClass
	for _, pc := range passwordClasses {
		if !pc.re.MatchString(value) {
			missing = append(missing, pc.class)
		}
	}
	return missing
}

// Password returns "" for an acceptable password, otherwise a message. Length
// is checked before character classes so short passwords get a single, stable
// message.
func Password(value string) string {
	if value == "" {
		return "Password is required"
	}
	if utf8.RuneCountInString(value) < MinPasswordLength {
		return fmt.Sprintf("Password must be at least %d characters", MinPasswordLength)
	}
	missing := MissingPasswordClasses(value)
	if len(missing) == 0 {
		return ""
	}
	labels := make([]string, len(missing))
	for i, c := range missing {
		labels[i] = string(c)
	}
	return "Password needs: " + strings.Join(labels, ", ")
}

// PasswordMatch compares a password with its confirmation.
func PasswordMatch(password, confirm string) string {
	if password != confirm {
		return "Passwords do not match"
	}
	return ""
}

// StrongPassword is the Rule form of Password.
func StrongPassword(field, value string) Rule {
	missing := MissingPasswordClasses(value)
	return messageRule(field, Password(value), "validation.password_strength", map[string]any{
		"min_length": MinPasswordLength,
		"missing":    missing,
	})
}

// PasswordsMatch is the Rule form of PasswordMatch; the error is reported on
// the confirmation field.
func PasswordsMatch(field, password, confirm string) Rule {
	return messageRule(field, PasswordMatch(password, confirm), "validation.password_match", nil)
}
