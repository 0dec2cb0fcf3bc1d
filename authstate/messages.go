package authstate

import (
	"fmt"

	autherrors "github.com/vowquiz/go-quiz-auth/internal/errors"
	"github.com/vowquiz/go-quiz-auth/session"
)

// Message maps an action error to its user-facing text. A failed sign-in
// never reveals whether the email exists.
func Message(err error) string {
	switch {
	case autherrors.Is(err, autherrors.ErrInvalidCredentials):
		return "incorrect email or password"
	case autherrors.Is(err, autherrors.ErrEmailNotConfirmed):
		return "email not confirmed. check your inbox."
	case autherrors.Is(err, autherrors.ErrEmailInUse):
		return "this email is already registered"
	case autherrors.Is(err, autherrors.ErrWeakPassword):
		return fmt.Sprintf("password must be at least %d characters", session.MinPasswordLength)
	case autherrors.Is(err, autherrors.ErrInvalidEmail):
		return "invalid email address"
	default:
		return "an unexpected error occurred"
	}
}
