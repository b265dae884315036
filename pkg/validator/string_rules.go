package validator

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// Required returns "<label> is required" when value is empty after trimming.
func Required(value, label string) string {
	if strings.TrimSpace(value) == "" {
		return fmt.Sprintf("%s is required", label)
	}
	return ""
}

// MinLength counts runes, not bytes.
func MinLength(value string, min int, label string) string {
	if utf8.RuneCountInString(value) < min {
		return fmt.Sprintf("%s must be at least %d characters", label, min)
	}
	return ""
}

func MaxLength(value string, max int, label string) string {
	if utf8.RuneCountInString(value) > max {
		return fmt.Sprintf("%s must be at most %d characters", label, max)
	}
	return ""
}

// RequiredString validates that a string is not empty after trimming whitespace.
func RequiredString(field, value, label string) Rule {
	return messageRule(field, Required(value, label), "validation.required", nil)
}

func MinLenString(field, value string, min int, label string) Rule {
	return messageRule(field, MinLength(value, min, label), "validation.min_length", map[string]any{"min": min})
}

func MaxLenString(field, value string, max int, label string) Rule {
	return messageRule(field, MaxLength(value, max, label), "validation.max_length", map[string]any{"max": max})
}
