package config

import "time"

// Config is the full set of environment-driven settings for the server binary.
type Config interface {
	EnvConfig
	SecurityConfig
	SessionConfig
	OAuthConfig
	CredentialsConfig
	RateLimitConfig
	StorageConfig
}

type EnvConfig interface {
	GetPort() string
	GetAppName() string
	GetBaseURL() string
	GetBasePath() string
	GetProvidersFile() string
	GetEnv() string
	IsProduction() bool
}

type SessionConfig interface {
	GetSessionExpiry() time.Duration
}

type RateLimitConfig interface {
	GetRateLimitWindow() time.Duration
	GetRateLimitMax() int
}

type StorageConfig interface {
	GetRedisURL() string
	GetDatabaseURL() string
}

type mainConfig struct {
	EnvVars
	Security
	Session
	OAuth
	Credentials
	RateLimit
	Storage
}

func New() Config {
	return mainConfig{}
}
