package session

import (
	"database/sql"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/redis/go-redis/v9"

	"github.com/chatrelay/relay/observability"
)

// Config holds session store initialization parameters.
type Config struct {
	// Driver selects the store backend: "memory" (default), "redis" or "sqlite".
	Driver string `json:"driver,omitempty"`

	// MaxTurns is the number of user/assistant exchanges retained per session.
	MaxTurns int `json:"max_turns,omitempty"`

	// SnapshotPath enables JSON snapshot persistence for the memory driver.
	// Empty disables persistence.
	SnapshotPath string `json:"snapshot_path,omitempty"`

	// RedisAddr is the host:port of the Redis server for the redis driver.
	RedisAddr string `json:"redis_addr,omitempty"`

	// RedisTTLSeconds is the session key expiry for the redis driver.
	RedisTTLSeconds int `json:"redis_ttl_seconds,omitempty"`

	// SQLitePath is the database file for the sqlite driver.
	SQLitePath string `json:"sqlite_path,omitempty"`
}

// DefaultConfig returns the default session configuration: in-memory
// store, 25 retained turns, no persistence.
func DefaultConfig() Config {
	return Config{
		Driver:   string(StoreTypeMemory),
		MaxTurns: defaultMaxTurns,
	}
}

// Merge applies non-zero values from source into c.
func (c *Config) Merge(source *Config) {
	if source.Driver != "" {
		c.Driver = source.Driver
	}
	if source.MaxTurns > 0 {
		c.MaxTurns = source.MaxTurns
	}
	if source.SnapshotPath != "" {
		c.SnapshotPath = source.SnapshotPath
	}
	if source.RedisAddr != "" {
		c.RedisAddr = source.RedisAddr
	}
	if source.RedisTTLSeconds > 0 {
		c.RedisTTLSeconds = source.RedisTTLSeconds
	}
	if source.SQLitePath != "" {
		c.SQLitePath = source.SQLitePath
	}
}

// New creates a Store from configuration, opening driver connections as
// needed. The observer receives store events; nil means NoOpObserver.
func New(cfg *Config, observer observability.Observer) (Store, error) {
	opts := []StoreOption{
		WithMaxTurns(cfg.MaxTurns),
		WithObserver(observer),
	}

	switch StoreType(cfg.Driver) {
	case StoreTypeMemory, "":
		opts = append(opts, WithSnapshotPath(cfg.SnapshotPath))
		return NewStore(StoreTypeMemory, opts...)

	case StoreTypeRedis:
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		opts = append(opts,
			WithRedisClient(client),
			WithRedisTTL(time.Duration(cfg.RedisTTLSeconds)*time.Second),
		)
		return NewStore(StoreTypeRedis, opts...)

	case StoreTypeSQLite:
		db, err := sql.Open("sqlite3", cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		opts = append(opts, WithSQLiteDB(db))
		return NewStore(StoreTypeSQLite, opts...)

	default:
		return nil, ErrInvalidStoreType
	}
}
