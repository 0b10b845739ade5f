package session

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/chatrelay/relay/core/protocol"
)

const sqliteSchema = `CREATE TABLE IF NOT EXISTS history (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	session_id TEXT NOT NULL,
	role TEXT NOT NULL,
	content TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_history_session ON history(session_id);`

// sqliteStore persists history rows in a SQLite table. The user/assistant
// pair is inserted in a single transaction that also trims rows older than
// the newest 2×MaxTurns for the session.
type sqliteStore struct {
	db       *sql.DB
	maxTurns int
}

func newSQLiteStore(cfg *storeConfig) (*sqliteStore, error) {
	if cfg.sqliteDB == nil {
		return nil, fmt.Errorf("%w: sqlite driver requires a database handle", ErrInvalidConfig)
	}

	if _, err := cfg.sqliteDB.Exec(sqliteSchema); err != nil {
		return nil, fmt.Errorf("session: sqlite schema: %w", err)
	}

	return &sqliteStore{db: cfg.sqliteDB, maxTurns: cfg.maxTurns}, nil
}

func (s *sqliteStore) History(ctx context.Context, id string) ([]protocol.Message, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT role, content FROM history WHERE session_id = ? ORDER BY id DESC LIMIT ?",
		id, 2*s.maxTurns,
	)
	if err != nil {
		return nil, fmt.Errorf("session: sqlite query: %w", err)
	}
	defer rows.Close()

	var history []protocol.Message
	for rows.Next() {
		var role, content string
		if err := rows.Scan(&role, &content); err != nil {
			return nil, fmt.Errorf("session: sqlite scan: %w", err)
		}
		history = append(history, protocol.Message{Role: protocol.Role(role), Content: content})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("session: sqlite rows: %w", err)
	}

	// Rows come back newest first; reverse to chronological order.
	for i, j := 0, len(history)-1; i < j; i, j = i+1, j-1 {
		history[i], history[j] = history[j], history[i]
	}
	if history == nil {
		history = []protocol.Message{}
	}
	return history, nil
}

func (s *sqliteStore) CommitTurn(ctx context.Context, id string, user, assistant protocol.Message) error {
	if id == "" {
		return ErrEmptySessionID
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("session: sqlite begin: %w", err)
	}
	defer tx.Rollback()

	insert := "INSERT INTO history (session_id, role, content) VALUES (?, ?, ?)"
	if _, err := tx.ExecContext(ctx, insert, id, string(user.Role), user.Content); err != nil {
		return fmt.Errorf("session: sqlite insert: %w", err)
	}
	if _, err := tx.ExecContext(ctx, insert, id, string(assistant.Role), assistant.Content); err != nil {
		return fmt.Errorf("session: sqlite insert: %w", err)
	}

	// Trim everything older than the newest 2×MaxTurns rows.
	_, err = tx.ExecContext(ctx,
		`DELETE FROM history WHERE session_id = ? AND id NOT IN (
			SELECT id FROM history WHERE session_id = ? ORDER BY id DESC LIMIT ?
		)`,
		id, id, 2*s.maxTurns,
	)
	if err != nil {
		return fmt.Errorf("session: sqlite trim: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("session: sqlite commit: %w", err)
	}
	return nil
}

func (s *sqliteStore) Clear(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM history WHERE session_id = ?", id); err != nil {
		return fmt.Errorf("session: sqlite clear: %w", err)
	}
	return nil
}

func (s *sqliteStore) Close() error {
	return s.db.Close()
}
