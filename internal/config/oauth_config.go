package config

import "time"

const exchangeTimeoutEnvVar = "LIGHT_AUTH_EXCHANGE_TIMEOUT_SECONDS"

type OAuthConfig interface {
	GetTokenExchangeTimeout() time.Duration
}

type OAuth struct{}

var _ OAuthConfig = OAuth{}

// GetTokenExchangeTimeout bounds each request to a provider's token and revocation endpoints.
func (OAuth) GetTokenExchangeTimeout() time.Duration {
	return time.Duration(GetPositiveInt(exchangeTimeoutEnvVar, 10)) * time.Second
}
