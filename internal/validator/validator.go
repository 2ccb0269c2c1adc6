package validator

import (
	"errors"
	"regexp"
	"unicode"
)

var (
	ErrInvalidHandle   = errors.New("handle must be 3-30 letters")
	ErrInvalidPassword = errors.New("password must be at least 8 characters and contain a letter and a digit")
)

var handleRegex = regexp.MustCompile(`^\p{L}{3,30}$`)

func ValidateHandle(handle string) error {
	if !handleRegex.MatchString(handle) {
		return ErrInvalidHandle
	}
	return nil
}

func ValidatePassword(password string) error {
	if len(password) < 8 {
		return ErrInvalidPassword
	}
	var hasLetter, hasDigit bool
	for _, r := range password {
		switch {
		case unicode.IsLetter(r):
			hasLetter = true
		case unicode.IsDigit(r):
			hasDigit = true
		}
	}
	if !hasLetter || !hasDigit {
		return ErrInvalidPassword
	}
	return nil
}
