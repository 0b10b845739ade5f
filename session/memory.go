package session

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/chatrelay/relay/core/protocol"
	"github.com/chatrelay/relay/observability"
)

// Event types emitted by the store around snapshot persistence.
const (
	EventSnapshotLoad  observability.EventType = "session.snapshot.load"
	EventSnapshotError observability.EventType = "session.snapshot.error"
)

// memoryStore keeps all sessions behind a single mutex. The lock is held
// only for in-memory list operations and the snapshot file write, never
// across network I/O. This serializes all sessions behind one lock, which
// is acceptable for moderate session counts.
type memoryStore struct {
	mu           sync.Mutex
	sessions     map[string][]protocol.Message
	maxTurns     int
	snapshotPath string
	observer     observability.Observer
}

func newMemoryStore(cfg *storeConfig) *memoryStore {
	store := &memoryStore{
		sessions:     make(map[string][]protocol.Message),
		maxTurns:     cfg.maxTurns,
		snapshotPath: cfg.snapshotPath,
		observer:     cfg.observer,
	}
	store.loadSnapshot()
	return store
}

func (s *memoryStore) History(_ context.Context, id string) ([]protocol.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	history := s.sessions[id]
	copied := make([]protocol.Message, len(history))
	copy(copied, history)
	return copied, nil
}

func (s *memoryStore) CommitTurn(_ context.Context, id string, user, assistant protocol.Message) error {
	if id == "" {
		return ErrEmptySessionID
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	history := append(s.sessions[id], user, assistant)
	if max := 2 * s.maxTurns; len(history) > max {
		history = history[len(history)-max:]
	}
	s.sessions[id] = history

	s.writeSnapshotLocked()
	return nil
}

func (s *memoryStore) Clear(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.sessions, id)
	s.writeSnapshotLocked()
	return nil
}

func (s *memoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sessions = nil
	return nil
}

// snapshotMessage uses pointer fields so records with a missing role or
// content key can be told apart from ones with empty values.
type snapshotMessage struct {
	Role    *string `json:"role"`
	Content *string `json:"content"`
}

// loadSnapshot restores sessions from the snapshot file. Malformed records
// are dropped rather than failing the whole load; a missing file is not an
// error. Called once from the constructor, before the store is shared.
func (s *memoryStore) loadSnapshot() {
	if s.snapshotPath == "" {
		return
	}

	data, err := os.ReadFile(s.snapshotPath)
	if err != nil {
		if !os.IsNotExist(err) {
			s.snapshotEvent(EventSnapshotError, fmt.Errorf("%w: reading %s: %v", ErrSnapshot, s.snapshotPath, err))
		}
		return
	}

	var raw map[string][]snapshotMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		s.snapshotEvent(EventSnapshotError, fmt.Errorf("%w: parsing %s: %v", ErrSnapshot, s.snapshotPath, err))
		return
	}

	for id, records := range raw {
		var history []protocol.Message
		for _, record := range records {
			if record.Role == nil || record.Content == nil {
				continue
			}
			role := protocol.Role(*record.Role)
			if !role.IsValid() {
				continue
			}
			history = append(history, protocol.Message{Role: role, Content: *record.Content})
		}
		if len(history) > 0 {
			s.sessions[id] = history
		}
	}

	s.observer.OnEvent(context.Background(), observability.Event{
		Type:      EventSnapshotLoad,
		Level:     observability.LevelInfo,
		Timestamp: time.Now(),
		Source:    "session.memoryStore",
		Data:      map[string]any{"path": s.snapshotPath, "sessions": len(s.sessions)},
	})
}

// writeSnapshotLocked rewrites the whole snapshot file. Failures are
// reported to the observer and never propagated: the in-memory store
// remains authoritative. Caller must hold s.mu.
func (s *memoryStore) writeSnapshotLocked() {
	if s.snapshotPath == "" {
		return
	}

	data, err := json.Marshal(s.sessions)
	if err != nil {
		s.snapshotEvent(EventSnapshotError, fmt.Errorf("%w: encoding: %v", ErrSnapshot, err))
		return
	}

	dir := filepath.Dir(s.snapshotPath)
	tmp, err := os.CreateTemp(dir, ".snapshot-*")
	if err != nil {
		s.snapshotEvent(EventSnapshotError, fmt.Errorf("%w: %v", ErrSnapshot, err))
		return
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		s.snapshotEvent(EventSnapshotError, fmt.Errorf("%w: %v", ErrSnapshot, err))
		return
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		s.snapshotEvent(EventSnapshotError, fmt.Errorf("%w: %v", ErrSnapshot, err))
		return
	}
	if err := os.Rename(tmpName, s.snapshotPath); err != nil {
		os.Remove(tmpName)
		s.snapshotEvent(EventSnapshotError, fmt.Errorf("%w: %v", ErrSnapshot, err))
	}
}

func (s *memoryStore) snapshotEvent(eventType observability.EventType, err error) {
	s.observer.OnEvent(context.Background(), observability.Event{
		Type:      eventType,
		Level:     observability.LevelWarning,
		Timestamp: time.Now(),
		Source:    "session.memoryStore",
		Data:      map[string]any{"path": s.snapshotPath, "error": err.Error()},
	})
}
