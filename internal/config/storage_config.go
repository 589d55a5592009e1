package config

type Storage struct{}

var _ StorageConfig = Storage{}

// GetRedisURL selects the shared rate-limit store. Empty keeps counters in memory.
func (Storage) GetRedisURL() string {
	return GetEnv("REDIS_URL", "")
}

// GetDatabaseURL selects the Postgres user adapter. Empty keeps users in memory.
func (Storage) GetDatabaseURL() string {
	return GetEnv("DATABASE_URL", "")
}
