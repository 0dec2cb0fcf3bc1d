package errors

import (
	"errors"
	"fmt"
)

// Common error types for the auth core
var (
	// Credential errors
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrEmailNotConfirmed  = errors.New("email not confirmed")
	ErrEmailInUse         = errors.New("email already registered")
	ErrWeakPassword       = errors.New("password too weak")
	ErrInvalidEmail       = errors.New("invalid email address")

	// Session errors
	ErrNoSession      = errors.New("no active session")
	ErrSessionExpired = errors.New("session expired")

	// Profile errors
	ErrProfileUnavailable = errors.New("profile unavailable")

	// Storage errors
	ErrNotFound  = errors.New("not found")
	ErrDuplicate = errors.New("duplicate row")

	// General errors
	ErrUnexpected = errors.New("unexpected error")
)

// Wrapf wraps an error with context using fmt.Errorf
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf(format+": %w", append(args, err)...)
}

// Is reports whether any error in err's chain matches target
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}
