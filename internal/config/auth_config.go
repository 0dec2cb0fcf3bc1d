package config

import "time"

type AuthConfig interface {
	GetJWTSecret() string
	GetAccessTokenTTL() time.Duration
	GetInitTimeout() time.Duration
	GetAutoConfirm() bool
}

type Auth struct{}

var _ AuthConfig = Auth{}

func (Auth) GetJWTSecret() string {
	return GetEnv("JWT_SECRET", "dev-only-secret")
}

func (Auth) GetAccessTokenTTL() time.Duration {
	return durationEnv("ACCESS_TOKEN_TTL", time.Hour)
}

// GetInitTimeout bounds the auth state machine's startup resolution. After
// this window the machine reports "not signed in" instead of blocking the UI.
func (Auth) GetInitTimeout() time.Duration {
	return durationEnv("AUTH_INIT_TIMEOUT", 5*time.Second)
}

// GetAutoConfirm controls whether new sign-ups are usable immediately or must
// confirm their email address first.
func (Auth) GetAutoConfirm() bool {
	return GetEnv("AUTH_AUTO_CONFIRM", "true") == "true"
}

func durationEnv(envVar string, defaultValue time.Duration) time.Duration {
	value := GetEnv(envVar, "")
	if value == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return defaultValue
	}
	return d
}
