package config

import "strconv"

const (
	// SecretEnvVar holds the secret every key and CSRF hash is derived from.
	SecretEnvVar = "LIGHT_AUTH_SECRET_VALUE"

	trustProxyEnvVar = "LIGHT_AUTH_TRUST_PROXY_HEADERS"
)

type SecurityConfig interface {
	GetSecret() string
	TrustProxyHeaders() bool
}

type Security struct{}

var _ SecurityConfig = Security{}

// GetSecret has no default: a missing secret is a startup failure.
func (Security) GetSecret() string {
	return GetEnv(SecretEnvVar, "")
}

// TrustProxyHeaders reports whether X-Forwarded-For and X-Real-IP identify the client.
// Only enable it behind a proxy that overwrites those headers.
func (Security) TrustProxyHeaders() bool {
	trust, err := strconv.ParseBool(GetEnv(trustProxyEnvVar, "false"))
	return err == nil && trust
}
