package session

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "modernc.org/sqlite"
)

const schema = `CREATE TABLE IF NOT EXISTS sessions (
	session_key TEXT PRIMARY KEY,
	session_id TEXT NOT NULL,
	updated_at TIMESTAMP NOT NULL
)`

// SQLiteStore keeps session ids in a SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

var _ Store = (*SQLiteStore)(nil)

// OpenSQLite opens (or creates) the database at dsn and ensures the schema.
// dsn is anything the modernc.org/sqlite driver accepts, including
// "file:name?mode=memory&cache=shared".
func OpenSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open session database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL; PRAGMA busy_timeout=5000;"); err != nil {
		_ = db.Close()

		return nil, fmt.Errorf("configure session database: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()

		return nil, fmt.Errorf("create sessions table: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Load implements Store.
func (s *SQLiteStore) Load(ctx context.Context, key string) (string, error) {
	if key == "" {
		return "", nil
	}

	var id string

	err := s.db.QueryRowContext(ctx,
		`SELECT session_id FROM sessions WHERE session_key = ?`, key,
	).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}

	if err != nil {
		return "", fmt.Errorf("load session %q: %w", key, err)
	}

	return id, nil
}

// Save implements Store. Empty keys and ids are ignored.
func (s *SQLiteStore) Save(ctx context.Context, key, sessionID string) error {
	if key == "" || sessionID == "" {
		return nil
	}

	_, err := s.db.ExecContext(ctx, `
	INSERT INTO sessions (session_key, session_id, updated_at)
	VALUES (?, ?, CURRENT_TIMESTAMP)
	ON CONFLICT(session_key) DO UPDATE SET session_id=excluded.session_id, updated_at=CURRENT_TIMESTAMP`,
		key, sessionID)
	if err != nil {
		return fmt.Errorf("save session %q: %w", key, err)
	}

	return nil
}

// Close releases the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
