package domain

import "errors"

var (
	// ErrNotFound covers both a missing row and a row owned by someone else,
	// so callers cannot probe for existence.
	ErrNotFound = errors.New("not found or access denied")

	ErrDuplicateEmail      = errors.New("an account with this email already exists")
	ErrInvalidCredentials  = errors.New("invalid email or password")
	ErrValidation          = errors.New("validation failed")
	ErrNoRequirements      = errors.New("project has no requirements to generate from")
	ErrGeneratorNotReady   = errors.New("spec generator is not configured")
	ErrGeneratorBusy       = errors.New("spec generator is temporarily unavailable")
	ErrUnsupportedSpecType = errors.New("unsupported spec type")
)
