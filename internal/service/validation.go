package service

import (
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
)

const (
	minPasswordLength = 6
	// bcrypt only hashes the first 72 bytes and rejects longer input.
	maxPasswordBytes = 72
	minNameLength     = 2
)

var validate = validator.New()

func validateEmail(email string) error {
	if err := validate.Var(email, "required,email"); err != nil {
		return invalid("Invalid email address")
	}
	return nil
}

func validatePassword(password string) error {
	if utf8.RuneCountInString(password) < minPasswordLength {
		return invalid("Password must be at least 6 characters")
	}
	if len(password) > maxPasswordBytes {
		return invalid("Password must be at most 72 bytes")
	}
	return nil
}

func validateName(name string) error {
	if utf8.RuneCountInString(name) < minNameLength {
		return invalid("Name must be at least 2 characters")
	}
	return nil
}
