package internal

import (
	"database/sql"
	"fmt"
	"os"

	_ "modernc.org/sqlite"
)

// catalogSchema creates the catalog tables. Statements are idempotent.
var catalogSchema = []string{
	`CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		source TEXT NOT NULL,
		input TEXT NOT NULL,
		created_at TEXT NOT NULL,
		conversation_count INTEGER NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS conversations (
		pk INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL REFERENCES runs(id),
		conversation_id TEXT NOT NULL,
		source TEXT NOT NULL,
		title TEXT NOT NULL,
		model TEXT,
		created_at TEXT,
		message_count INTEGER NOT NULL,
		path TEXT,
		metadata TEXT
	)`,
	`CREATE INDEX IF NOT EXISTS idx_conversations_conversation_id ON conversations(conversation_id)`,
	`CREATE TABLE IF NOT EXISTS messages (
		conversation_pk INTEGER NOT NULL REFERENCES conversations(pk),
		position INTEGER NOT NULL,
		role TEXT NOT NULL,
		content TEXT NOT NULL,
		model TEXT,
		created_at TEXT,
		attachments TEXT,
		PRIMARY KEY (conversation_pk, position)
	)`,
}

// OpenDatabase opens an existing SQLite database in read-only mode
func OpenDatabase(path string) (*sql.DB, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db, err := sql.Open("sqlite", "file:"+path+"?mode=ro")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Test connection
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("database ping failed: %w", err)
	}

	return db, nil
}

// CreateDatabase opens or creates a writable SQLite database and applies
// the catalog schema
func CreateDatabase(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// A single writer avoids SQLITE_BUSY between pooled connections
	db.SetMaxOpenConns(1)

	if err := migrate(db); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

func migrate(db *sql.DB) error {
	for _, stmt := range catalogSchema {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}
	return nil
}

// HasTable reports whether the database has a table with the given name
func HasTable(db *sql.DB, name string) (bool, error) {
	var count int
	err := db.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?", name).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("query failed: %w", err)
	}
	return count > 0, nil
}
