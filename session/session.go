package session

import "time"

// Session is the backend-issued proof of authentication for a subject. The
// auth core only observes sessions, it never persists them; the backend's
// cookie/token is the durable artifact.
type Session struct {
	UserID       string    // Subject identifier, matches the profile row ID
	Email        string    // Email the subject authenticated with
	Name         string    // Best-effort display name from sign-up metadata
	AccessToken  string    // Opaque to the core
	RefreshToken string    // Opaque to the core
	ExpiresAt    time.Time // When the access token stops being valid
}

// Expired reports whether the session's access token has passed its expiry.
func (s *Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && now.After(s.ExpiresAt)
}

// Credentials carries an email/password pair for sign-in.
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// SignupCredentials carries the sign-up form fields.
type SignupCredentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}
