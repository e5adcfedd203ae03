package orchestrate

// Backend identifies a store implementation.
type Backend string

const (
	// BackendMemory is the in-process map store.
	BackendMemory Backend = "memory"
	// BackendSQLite is the embedded relational store.
	BackendSQLite Backend = "sqlite"
	// BackendRedis is the remote key-value/sorted-set store.
	BackendRedis Backend = "redis"
)

// Config holds configuration for constructing a workflow Provider.
type Config struct {
	// Backend selects the store implementation.
	Backend Backend

	// SQLitePath is the database file path for the sqlite backend.
	// ":memory:" gives a non-durable in-process database.
	SQLitePath string

	// RedisAddr is the host:port of the redis backend.
	RedisAddr string

	// RedisPassword authenticates against the redis backend. Empty means
	// no auth.
	RedisPassword string

	// RedisDB is the redis logical database number.
	RedisDB int
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Backend:    BackendMemory,
		SQLitePath: "orchestrate.db",
		RedisAddr:  "localhost:6379",
	}
}
