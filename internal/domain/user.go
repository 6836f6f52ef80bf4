package domain

import (
	"fmt"
	"strings"
	"unicode"
)

// User is an account that owns projects.
type User struct {
	ID           int64  `json:"id"`
	Email        string `json:"email"`
	Name         string `json:"name"`
	PasswordHash string `json:"-"`
	CreatedAt    int64  `json:"createdAt"`
}

// CreateUserInput carries a sign-up request. Password is plaintext and is
// hashed before it reaches the store.
type CreateUserInput struct {
	Email    string `json:"email" validate:"required,email"`
	Name     string `json:"name" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// Normalize lowercases and trims the email and trims the name.
func (in *CreateUserInput) Normalize() {
	in.Email = NormalizeEmail(in.Email)
	in.Name = strings.TrimSpace(in.Name)
}

func (in CreateUserInput) Validate() error {
	if err := check(in); err != nil {
		return err
	}
	return ValidatePassword(in.Password)
}

// NormalizeEmail is the canonical form used for storage and lookup.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ValidatePassword enforces the sign-up password policy.
func ValidatePassword(pw string) error {
	if len(pw) < 6 {
		return fmt.Errorf("%w: password must be at least 6 characters", ErrValidation)
	}
	var upper, digit, special bool
	for _, r := range pw {
		switch {
		case unicode.IsUpper(r) && r < unicode.MaxASCII:
			upper = true
		case unicode.IsDigit(r) && r < unicode.MaxASCII:
			digit = true
		case !(r >= 'a' && r <= 'z') && !(r >= 'A' && r <= 'Z') && !(r >= '0' && r <= '9'):
			special = true
		}
	}
	switch {
	case !upper:
		return fmt.Errorf("%w: password must contain at least one uppercase letter", ErrValidation)
	case !digit:
		return fmt.Errorf("%w: password must contain at least one number", ErrValidation)
	case !special:
		return fmt.Errorf("%w: password must contain at least one special character", ErrValidation)
	}
	return nil
}
