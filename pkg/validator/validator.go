package validator

import (
	"errors"
	"fmt"
	"unicode"
)

var (
	ErrPasswordTooShort = errors.New("password is too short")
	ErrPasswordTooWeak  = errors.New("password must contain at least one digit and one letter")
	ErrPasswordTooLong  = fmt.Errorf("password must be at most %d bytes long", MaxPasswordBytes)
)

const (
	DefaultMinPasswordLength = 5
	// MaxPasswordBytes is the bcrypt input limit.
	MaxPasswordBytes = 72
)

type Validator interface {
	ValidatePassword(password string) error
}

type passwordValidator struct {
	minLength int
}

func NewValidator(minLength int) Validator {
	if minLength <= 0 {
		minLength = DefaultMinPasswordLength
	}

	return &passwordValidator{minLength: minLength}
}

func (v *passwordValidator) ValidatePassword(password string) error {
	if len([]rune(password)) < v.minLength {
		return fmt.Errorf("%w: must be at least %d characters long", ErrPasswordTooShort, v.minLength)
	}

	if len(password) > MaxPasswordBytes {
		return ErrPasswordTooLong
	}

	var hasLetter, hasDigit bool
	for _, r := range password {
		if unicode.IsLetter(r) {
			hasLetter = true
		}
		if unicode.IsDigit(r) {
			hasDigit = true
		}
	}

	if !hasLetter || !hasDigit {
		return ErrPasswordTooWeak
	}

	return nil
}
