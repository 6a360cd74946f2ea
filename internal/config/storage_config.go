package config

type Storage struct{}

var _ StorageConfig = Storage{}

// GetStorageBackend selects the session store: "memory" (default) or "redis".
func (Storage) GetStorageBackend() string {
	return GetEnv("SESSION_STORE", "memory")
}

func (Storage) GetRedisAddr() string {
	return GetEnv("REDIS_ADDR", "localhost:6379")
}

// GetRedisSessionID scopes the Redis-backed store; workers sharing one
// portal session must agree on it.
func (Storage) GetRedisSessionID() string {
	return GetEnv("REDIS_SESSION_ID", "")
}
