package validator

import (
	"regexp"
	"strings"
)

var (
	// local@domain.tld with no whitespace and no second '@'.
	emailRegex = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

	// Optional leading '+', then 10-15 digits once separators are stripped.
	phoneRegex = regexp.MustCompile(`^\+?[0-9]{10,15}$`)

	phoneSeparators = strings.NewReplacer(" ", "", "-", "", "(", "", ")", "", ".", "")
)

// Email checks the basic local@domain.tld shape. It does not try to be RFC 5322
// complete; the server is the authority on deliverability.
func Email(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return "Email is required"
	}
	if !emailRegex.MatchString(value) {
		return "Please enter a valid email address"
	}
	return ""
}

// Phone accepts common separators (spaces, dashes, dots, parentheses).
func Phone(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return "Phone number is required"
	}
	if !phoneRegex.MatchString(phoneSeparators.Replace(value)) {
		return "Please enter a valid phone number"
	}
	return ""
}

// ValidEmail validates that a string is a valid email address.
func ValidEmail(field, value string) Rule {
	return messageRule(field, Email(value), "validation.email", nil)
}

// ValidPhone validates that a string is a plausible phone number.
func ValidPhone(field, value string) Rule {
	return messageRule(field, Phone(value), "validation.phone", nil)
}
