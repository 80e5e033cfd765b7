package journal

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"github.com/adrg/xdg"
	_ "modernc.org/sqlite" // SQLite driver
)

// NewDatabase opens the SQLite journal at dbPath and applies the schema.
// ":memory:" opens a private in-memory database.
func NewDatabase(dbPath string) (*sql.DB, error) {
	if dbPath != ":memory:" {
		dir := filepath.Dir(dbPath)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// every pooled connection to :memory: would get its own empty database
	if dbPath == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 10000",
		"PRAGMA temp_store = MEMORY",
		"PRAGMA user_version = 1",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to set pragma: %w", err)
		}
	}

	if err := ensureSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ensure schema: %w", err)
	}

	return db, nil
}

func ensureSchema(db *sql.DB) error {
	schema := `
CREATE TABLE IF NOT EXISTS playback_events (
    id          INTEGER PRIMARY KEY,
    timestamp   INTEGER NOT NULL,
    session_id  TEXT    NOT NULL,
    source_id   INTEGER NOT NULL,
    event       TEXT    NOT NULL,
    offset_ms   INTEGER NOT NULL,
    error_code  TEXT,
    description TEXT
);

CREATE INDEX IF NOT EXISTS idx_playback_timestamp ON playback_events(timestamp DESC);
CREATE INDEX IF NOT EXISTS idx_playback_session ON playback_events(session_id);
CREATE INDEX IF NOT EXISTS idx_playback_event ON playback_events(event);
`
	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// GetDatabasePath returns the XDG cache path for the journal, creating its directory
func GetDatabasePath() (string, error) {
	path, err := xdg.CacheFile(filepath.Join("audiochan", "journal.db"))
	if err != nil {
		return "", fmt.Errorf("failed to resolve journal path: %w", err)
	}
	return path, nil
}
