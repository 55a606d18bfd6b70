package auth

import (
	"unicode"
	"unicode/utf8"
)

// MinPasswordLength is the shortest password IsStrongPassword accepts.
const MinPasswordLength = 8

// IsStrongPassword reports whether password has at least MinPasswordLength
// characters, at least one letter and at least one digit.
func IsStrongPassword(password string) bool {
	if utf8.RuneCountInString(password) < MinPasswordLength {
		return false
	}

	var hasLetter, hasDigit bool
	for _, r := range password {
		switch {
		case unicode.IsLetter(r):
			hasLetter = true
		case unicode.IsDigit(r):
			hasDigit = true
		}
		if hasLetter && hasDigit {
			return true
		}
	}
	return false
}
