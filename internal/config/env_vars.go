package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

const (
	portEnvVar          = "PORT"
	appNameVar          = "APP_NAME"
	baseURLVar          = "BASE_URL"
	basePathVar         = "LIGHT_AUTH_BASE_PATH"
	providersFileEnvVar = "LIGHT_AUTH_PROVIDERS_FILE"

	// DefaultBasePath is where the well-known endpoints are mounted
	DefaultBasePath = "/api/auth"
)

type EnvVars struct{}

var _ EnvConfig = EnvVars{}

func (EnvVars) GetPort() string {
	port := GetEnv(portEnvVar, "8080")
	if !strings.HasPrefix(port, ":") {
		port = fmt.Sprintf(":%s", port)
	}
	return port
}

func (EnvVars) GetAppName() string {
	return GetEnv(appNameVar, "Light Auth")
}

// GetBaseURL returns the public base URL (e.g., "https://app.example.com").
// Provider redirect URIs are built from it.
func (EnvVars) GetBaseURL() string {
	return strings.TrimSuffix(GetEnv(baseURLVar, "http://localhost:8080"), "/")
}

func (EnvVars) GetBasePath() string {
	path := "/" + strings.Trim(GetEnv(basePathVar, DefaultBasePath), "/")
	if path == "/" {
		return DefaultBasePath
	}
	return path
}

func (EnvVars) GetProvidersFile() string {
	return GetEnv(providersFileEnvVar, "./providers.yaml")
}

func (EnvVars) GetEnv() string {
	env := os.Getenv("ENV")
	if env == "" {
		return "DEV"
	}
	return env
}

// IsProduction controls the Secure cookie attribute.
func (e EnvVars) IsProduction() bool {
	env := strings.ToUpper(e.GetEnv())
	return env == "PROD" || env == "PRODUCTION"
}

func GetEnv(envVar, defaultValue string) string {
	value := os.Getenv(envVar)
	if value == "" {
		return defaultValue
	}
	return value
}

// GetPositiveInt reads a positive integer env var. Anything else yields defaultValue.
func GetPositiveInt(envVar string, defaultValue int) int {
	value, err := strconv.Atoi(strings.TrimSpace(os.Getenv(envVar)))
	if err != nil || value <= 0 {
		return defaultValue
	}
	return value
}
