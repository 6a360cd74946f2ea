package config

import "time"

type Config interface {
	EnvConfig
	SessionConfig
	StorageConfig
}

type EnvConfig interface {
	GetAppName() string
	GetBaseURL() string
	GetEnv() string
	GetLoginIdentifier() string
	GetLoginSecret() string
}

type SessionConfig interface {
	GetPollInterval() time.Duration
}

type StorageConfig interface {
	GetStorageBackend() string
	GetRedisAddr() string
	GetRedisSessionID() string
}

type mainConfig struct {
	EnvVars
	Session
	Storage
}

func New() Config {
	return mainConfig{}
}
