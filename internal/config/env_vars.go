package config

import "os"

const (
	appNameVar = "APP_NAME"
	baseURLVar = "BASE_URL"
)

type EnvVars struct{}

var _ EnvConfig = EnvVars{}

func (EnvVars) GetAppName() string {
	return GetEnv(appNameVar, "Portal Session")
}

// GetBaseURL returns the portal API base URL, e.g. "https://portal.example.com".
func (EnvVars) GetBaseURL() string {
	return GetEnv(baseURLVar, "http://localhost:8080")
}

func (EnvVars) GetLoginIdentifier() string {
	return GetEnv("PORTAL_USER", "")
}

func (EnvVars) GetLoginSecret() string {
	return GetEnv("PORTAL_PASSWORD", "")
}

func (EnvVars) GetEnv() string {
	env := os.Getenv("ENV")
	if env == "" {
		return "DEV"
	}
	return env
}

func GetEnv(envVar, defaultValue string) string {
	value := os.Getenv(envVar)
	if value == "" {
		return defaultValue
	}
	return value
}
