package validator

import (
	"fmt"
	"unicode"
)

// OTPLength and BackupCodeLength are the code sizes the marketplace issues.
const (
	OTPLength        = 6
	BackupCodeLength = 8
)

// ValidOTP validates that a string is a valid OTP code with the specified length.
// The OTP must contain exactly the specified number of digits (0-9 only).
func ValidOTP(field, value string, length int) Rule {
	return Rule{
		Check: func() bool {
			return exactly(value, length, isASCIIDigit)
		},
		Error: ValidationError{
			Field:          field,
			Message:        fmt.Sprintf("Enter all %d digits of the code", length),
			TranslationKey: "validation.otp_code",
			TranslationValues: map[string]any{
				"field":  field,
				"length": length,
			},
		},
	}
}

// ValidBackupCode validates a recovery code: exactly length ASCII letters or digits.
func ValidBackupCode(field, value string, length int) Rule {
	return Rule{
		Check: func() bool {
			return exactly(value, length, isASCIIAlnum)
		},
		Error: ValidationError{
			Field:          field,
			Message:        fmt.Sprintf("Enter all %d characters of the backup code", length),
			TranslationKey: "validation.backup_code",
			TranslationValues: map[string]any{
				"field":  field,
				"length": length,
			},
		},
	}
}

func exactly(value string, length int, accept func(rune) bool) bool {
	if length <= 0 || len(value) != length {
		return false
	}
	for _, r := range value {
		if !accept(r) {
			return false
		}
	}
	return true
}

func isASCIIDigit(r rune) bool {
	return r >= '0' && r <= '9'
}

func isASCIIAlnum(r rune) bool {
	return r < unicode.MaxASCII && (isASCIIDigit(r) || unicode.IsLetter(r))
}
