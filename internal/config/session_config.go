package config

import "time"

const (
	sessionExpirationEnvVar = "LIGHT_AUTH_SESSION_EXPIRATION"

	DefaultSessionExpiry = 30 * 24 * time.Hour
)

type Session struct{}

var _ SessionConfig = Session{}

// GetSessionExpiry reads the session TTL in seconds. Invalid or non-positive values
// fall back to 30 days.
func (Session) GetSessionExpiry() time.Duration {
	seconds := GetPositiveInt(sessionExpirationEnvVar, 0)
	if seconds == 0 {
		return DefaultSessionExpiry
	}
	return time.Duration(seconds) * time.Second
}
