package session

import (
	"database/sql"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/chatrelay/relay/observability"
)

// StoreOption is a functional option for configuring a session store.
type StoreOption func(*storeConfig)

// storeConfig holds construction parameters shared across drivers.
type storeConfig struct {
	maxTurns     int
	snapshotPath string
	observer     observability.Observer
	redisClient  *redis.Client
	redisTTL     time.Duration
	sqliteDB     *sql.DB
}

// WithMaxTurns sets the number of user/assistant exchanges retained per
// session. Values below 1 fall back to the default.
func WithMaxTurns(turns int) StoreOption {
	return func(c *storeConfig) {
		if turns > 0 {
			c.maxTurns = turns
		}
	}
}

// WithSnapshotPath enables JSON snapshot persistence for the memory driver.
// The file is rewritten in full on every commit and clear.
func WithSnapshotPath(path string) StoreOption {
	return func(c *storeConfig) {
		c.snapshotPath = path
	}
}

// WithObserver sets the observer that receives store events (snapshot
// load results and failures). Defaults to NoOpObserver.
func WithObserver(observer observability.Observer) StoreOption {
	return func(c *storeConfig) {
		if observer != nil {
			c.observer = observer
		}
	}
}

// WithRedisClient sets the Redis client for the redis driver.
func WithRedisClient(client *redis.Client) StoreOption {
	return func(c *storeConfig) {
		c.redisClient = client
	}
}

// WithRedisTTL sets the expiry applied to session keys by the redis driver.
func WithRedisTTL(ttl time.Duration) StoreOption {
	return func(c *storeConfig) {
		c.redisTTL = ttl
	}
}

// WithSQLiteDB sets the database handle for the sqlite driver.
func WithSQLiteDB(db *sql.DB) StoreOption {
	return func(c *storeConfig) {
		c.sqliteDB = db
	}
}
