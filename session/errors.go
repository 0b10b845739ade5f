package session

import "errors"

// Sentinel errors for store construction and persistence.
var (
	// ErrInvalidStoreType is returned by NewStore for an unknown driver.
	ErrInvalidStoreType = errors.New("invalid store type")

	// ErrInvalidConfig is returned when a driver is missing a required
	// option (e.g. the redis driver without a client).
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrEmptySessionID is returned by CommitTurn for an empty id.
	ErrEmptySessionID = errors.New("session id cannot be empty")

	// ErrSnapshot wraps snapshot read/write failures. Snapshot errors are
	// reported to the observer and never fail the triggering operation:
	// the in-memory history remains authoritative.
	ErrSnapshot = errors.New("session snapshot failed")
)
