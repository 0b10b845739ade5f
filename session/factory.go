package session

import (
	"github.com/chatrelay/relay/observability"
)

// StoreType selects a session store driver.
type StoreType string

const (
	StoreTypeMemory StoreType = "memory"
	StoreTypeRedis  StoreType = "redis"
	StoreTypeSQLite StoreType = "sqlite"
)

const defaultMaxTurns = 25

// NewStore creates a session Store for the given driver type.
// The redis driver requires WithRedisClient; the sqlite driver requires
// WithSQLiteDB. Snapshot persistence applies to the memory driver only.
func NewStore(storeType StoreType, opts ...StoreOption) (Store, error) {
	cfg := &storeConfig{
		maxTurns: defaultMaxTurns,
		observer: observability.NoOpObserver{},
	}
	for _, opt := range opts {
		opt(cfg)
	}

	switch storeType {
	case StoreTypeMemory:
		return newMemoryStore(cfg), nil
	case StoreTypeRedis:
		return newRedisStore(cfg)
	case StoreTypeSQLite:
		return newSQLiteStore(cfg)
	default:
		return nil, ErrInvalidStoreType
	}
}
