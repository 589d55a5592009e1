package config

import "strconv"

const (
	credentialsEnabledEnvVar = "LIGHT_AUTH_CREDENTIALS_ENABLED"
	credentialsNameEnvVar    = "LIGHT_AUTH_CREDENTIALS_PROVIDER"
)

type CredentialsConfig interface {
	IsCredentialsEnabled() bool
	GetCredentialsProviderName() string
}

type Credentials struct{}

var _ CredentialsConfig = Credentials{}

// IsCredentialsEnabled turns on the in-memory email/password provider.
func (Credentials) IsCredentialsEnabled() bool {
	enabled, err := strconv.ParseBool(GetEnv(credentialsEnabledEnvVar, "false"))
	return err == nil && enabled
}

func (Credentials) GetCredentialsProviderName() string {
	return GetEnv(credentialsNameEnvVar, "credentials")
}
