package utils

import (
	"regexp"
	"unicode"

	"medportal/pkg/xerrors"
)

var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)

func ValidateEmail(email string) error {
	if !emailRegex.MatchString(email) {
		return xerrors.ErrInvalidEmailFormat
	}
	return nil
}

// ValidatePassword enforces minimum length plus at least one upper,
// one lower and one digit.
func ValidatePassword(password string) error {
	if len(password) < 8 {
		return xerrors.ErrPasswordTooShort
	}
	if len(password) > 100 {
		return xerrors.ErrPasswordTooLong
	}
	var hasUpper, hasLower, hasDigit bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsDigit(r):
			hasDigit = true
		}
	}
	if !hasUpper {
		return xerrors.ErrPasswordUppercase
	}
	if !hasLower {
		return xerrors.ErrPasswordLowercase
	}
	if !hasDigit {
		return xerrors.ErrPasswordDigit
	}
	return nil
}
