package core

import (
	"fmt"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
)

const (
	minNameLength = 1
	maxNameLength = 20
)

var fieldValidator = validator.New()

// registerCheck validates one aspect of a registration before anything is written.
type registerCheck func(in RegisterInput) error

// registerChecks run in order; the first failure is reported.
var registerChecks = []registerCheck{
	func(in RegisterInput) error { return checkName("first name", in.FirstName) },
	func(in RegisterInput) error { return checkName("last name", in.LastName) },
	func(in RegisterInput) error { return checkEmail(in.Email) },
}

func validateRegisterInput(in RegisterInput) error {
	for _, check := range registerChecks {
		if err := check(in); err != nil {
			return err
		}
	}
	return nil
}

func checkName(field, v string) error {
	n := utf8.RuneCountInString(v)
	if n < minNameLength || n > maxNameLength {
		return fmt.Errorf("%w: %s must be %d-%d characters", ErrInvalidInput, field, minNameLength, maxNameLength)
	}
	if containsSeparator(v) {
		return fmt.Errorf("%w: %s contains a tab or newline", ErrInvalidInput, field)
	}
	return nil
}

func checkEmail(v string) error {
	if err := fieldValidator.Var(v, "required,email"); err != nil {
		return fmt.Errorf("%w: enter a valid email", ErrInvalidInput)
	}
	if containsSeparator(v) {
		return fmt.Errorf("%w: email contains a tab or newline", ErrInvalidInput)
	}
	return nil
}

// containsSeparator reports characters that would break the TSV record layout.
func containsSeparator(v string) bool {
	for _, r := range v {
		if r == '\t' || r == '\n' || r == '\r' {
			return true
		}
	}
	return false
}
