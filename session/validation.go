package session

import (
	"strings"

	autherrors "github.com/vowquiz/go-quiz-auth/internal/errors"
)

// MinPasswordLength matches the hosted backend's sign-up policy.
const MinPasswordLength = 6

// ValidateEmail performs a shape check before any backend call. It is
// deliberately loose: the backend remains the authority on deliverability.
func ValidateEmail(email string) error {
	email = strings.TrimSpace(email)
	at := strings.Index(email, "@")
	if at <= 0 || at == len(email)-1 {
		return autherrors.ErrInvalidEmail
	}
	domain := email[at+1:]
	if !strings.Contains(domain, ".") || strings.HasPrefix(domain, ".") || strings.HasSuffix(domain, ".") {
		return autherrors.ErrInvalidEmail
	}
	return nil
}

// ValidatePassword enforces the minimum length the backend would reject
// anyway, so weak passwords fail fast without a round trip.
func ValidatePassword(password string) error {
	if len(password) < MinPasswordLength {
		return autherrors.ErrWeakPassword
	}
	return nil
}

// LocalPart returns the part of an email before the '@', used as the default
// display name when sign-up metadata carries none.
func LocalPart(email string) string {
	if at := strings.Index(email, "@"); at > 0 {
		return email[:at]
	}
	return email
}
