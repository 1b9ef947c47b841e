package users

import (
	"context"
	"errors"
	"regexp"
	"unicode"
	"unicode/utf8"

	"github.com/uptrace/bun"
)

var emailPattern = regexp.MustCompile(`^[^@]+@[^@]+\.[^@]+$`)

const (
	minPasswordLen = 10
	minNameLen     = 2
)

// ValidationError carrega a mensagem devolvida ao cliente com 400.
type ValidationError struct{ Msg string }

func (e *ValidationError) Error() string { return e.Msg }

func invalid(msg string) error { return &ValidationError{Msg: msg} }

// ValidateCreate checa os campos na ordem em que a mensagem deve aparecer e,
// por último, se o email já existe.
func ValidateCreate(ctx context.Context, db bun.IDB, in CreateInput) error {
	if in.Name == "" || in.Email == "" || in.Password == "" {
		return invalid("Missing name or email or password")
	}
	if !emailPattern.MatchString(in.Email) {
		return invalid("Invalid email format")
	}
	if in.Password != in.ConfirmPassword {
		return invalid("Passwords do not match")
	}
	if err := validatePassword(in.Password); err != nil {
		return err
	}
	if err := validateName(in.Name); err != nil {
		return err
	}

	exists, err := EmailExists(ctx, db, in.Email)
	if err != nil {
		return err
	}
	if exists {
		return invalid("Email already exists")
	}
	return nil
}

// ValidateUpdate exige que o id do caminho e o do corpo sejam iguais.
func ValidateUpdate(pathID int64, in UpdateInput) error {
	if pathID != in.ID {
		return invalid("User id in path does not match user id in body")
	}
	if in.Name == "" {
		return invalid("Missing name")
	}
	return validateName(in.Name)
}

func validatePassword(pw string) error {
	if utf8.RuneCountInString(pw) < minPasswordLen {
		return invalid("Password must be at least 10 characters long")
	}
	var upper, lower, digit, special bool
	for _, r := range pw {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		case !unicode.IsLetter(r):
			special = true
		}
	}
	if !upper || !lower || !digit || !special {
		return invalid("Password must contain uppercase, lowercase, digit, and special character")
	}
	return nil
}

func validateName(name string) error {
	if utf8.RuneCountInString(name) < minNameLen {
		return invalid("Name must be at least 2 characters long")
	}
	return nil
}

// IsValidation informa se err deve virar 400.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
