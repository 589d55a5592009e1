package config

import "time"

type RateLimit struct{}

var _ RateLimitConfig = RateLimit{}

func (RateLimit) GetRateLimitWindow() time.Duration {
	return time.Duration(GetPositiveInt("LIGHT_AUTH_RATE_LIMIT_WINDOW_MS", 1000)) * time.Millisecond
}

func (RateLimit) GetRateLimitMax() int {
	return GetPositiveInt("LIGHT_AUTH_RATE_LIMIT_MAX", 10)
}
