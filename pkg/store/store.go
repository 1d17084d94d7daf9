package store

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite" // SQLite driver

	"boardroom/pkg/logx"
)

// CurrentSchemaVersion defines the schema version for migration support.
const CurrentSchemaVersion = 1

// Store wraps the SQLite connection and exposes workspace-scoped operations.
type Store struct {
	db     *sql.DB
	logger *logx.Logger
}

// Open opens (creating if needed) the SQLite database at dbPath and ensures
// the schema is at the current version. Safe to call on an existing database.
func Open(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", fmt.Sprintf(
		"file:%s?_foreign_keys=ON&_journal_mode=WAL&_busy_timeout=5000",
		dbPath,
	))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	// SQLite supports a single writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := initializeSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &Store{
		db:     db,
		logger: logx.NewLogger("store"),
	}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}
	return nil
}

func initializeSchema(db *sql.DB) error {
	version, err := schemaVersion(db)
	if err != nil {
		return err
	}
	if version == CurrentSchemaVersion {
		return nil
	}
	if version == 0 {
		return createSchema(db)
	}
	return fmt.Errorf("unknown schema version %d (current is %d)", version, CurrentSchemaVersion)
}

func schemaVersion(db *sql.DB) (int, error) {
	var count int
	err := db.QueryRow(
		"SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='schema_version'",
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to check schema_version table: %w", err)
	}
	if count == 0 {
		return 0, nil
	}

	var version int
	if err := db.QueryRow("SELECT version FROM schema_version LIMIT 1").Scan(&version); err != nil {
		return 0, fmt.Errorf("failed to read schema version: %w", err)
	}
	return version, nil
}

func createSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE schema_version (
		version INTEGER NOT NULL
	);

	CREATE TABLE threads (
		id TEXT PRIMARY KEY,
		workspace TEXT NOT NULL,
		title TEXT NOT NULL DEFAULT '',
		last_status TEXT NOT NULL DEFAULT 'done',
		lease_token TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL
	);
	CREATE INDEX idx_threads_workspace ON threads(workspace);

	CREATE TABLE messages (
		id TEXT PRIMARY KEY,
		thread_id TEXT NOT NULL REFERENCES threads(id),
		workspace TEXT NOT NULL,
		role TEXT NOT NULL,
		content TEXT NOT NULL,
		chips TEXT NOT NULL DEFAULT '[]',
		is_error INTEGER NOT NULL DEFAULT 0,
		created_at TIMESTAMP NOT NULL
	);
	CREATE INDEX idx_messages_thread ON messages(thread_id, created_at);

	CREATE TABLE attachments (
		id TEXT PRIMARY KEY,
		thread_id TEXT NOT NULL REFERENCES threads(id),
		message_id TEXT NOT NULL REFERENCES messages(id),
		workspace TEXT NOT NULL,
		filename TEXT NOT NULL,
		mime TEXT NOT NULL,
		size INTEGER NOT NULL,
		storage_path TEXT NOT NULL,
		extracted_text TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMP NOT NULL
	);
	CREATE INDEX idx_attachments_message ON attachments(message_id);

	CREATE TABLE knowledge_records (
		id TEXT PRIMARY KEY,
		workspace TEXT NOT NULL,
		content_hash TEXT NOT NULL,
		source_locator TEXT NOT NULL,
		title TEXT NOT NULL DEFAULT '',
		search_text TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMP NOT NULL,
		UNIQUE(workspace, content_hash, source_locator)
	);

	CREATE TABLE knowledge_links (
		id TEXT PRIMARY KEY,
		workspace TEXT NOT NULL,
		record_id TEXT NOT NULL REFERENCES knowledge_records(id),
		thread_id TEXT NOT NULL REFERENCES threads(id),
		created_at TIMESTAMP NOT NULL,
		UNIQUE(record_id, thread_id)
	);
	`

	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	if _, err := db.Exec("INSERT INTO schema_version (version) VALUES (?)", CurrentSchemaVersion); err != nil {
		return fmt.Errorf("failed to set schema version: %w", err)
	}
	return nil
}
