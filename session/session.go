// Package session manages per-session conversation history for the relay.
//
// A session is an opaque string id mapped to an ordered message sequence.
// History only ever changes through CommitTurn, which appends one full
// user/assistant exchange atomically and trims the oldest entries beyond
// the retention limit. Partial turns are never stored.
//
// Three drivers implement the Store contract: an in-memory map with
// optional JSON snapshot persistence, a Redis-backed store, and a
// SQLite-backed store.
package session

import (
	"context"

	"github.com/google/uuid"

	"github.com/chatrelay/relay/core/protocol"
)

// Store holds ordered per-session conversation history. Implementations
// must be safe for concurrent use and must never hold internal locks
// across network I/O.
type Store interface {
	// History returns a copy of the session's message sequence, oldest
	// first. Unknown sessions yield an empty slice, not an error.
	History(ctx context.Context, id string) ([]protocol.Message, error)

	// CommitTurn appends the user and assistant messages atomically with
	// respect to other store operations, then trims the history to the
	// most recent 2×MaxTurns messages. This is the only mutation path.
	CommitTurn(ctx context.Context, id string, user, assistant protocol.Message) error

	// Clear removes the session entirely. Idempotent.
	Clear(ctx context.Context, id string) error

	// Close releases any resources held by the store.
	Close() error
}

// NewID generates a collision-resistant session identifier. Used when the
// caller does not supply one.
func NewID() string {
	return uuid.Must(uuid.NewV7()).String()
}
