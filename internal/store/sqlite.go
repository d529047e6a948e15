package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// SQLiteStore implements JournalStore using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLite-based journal store.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Hour)

	store := &SQLiteStore{db: db}

	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return store, nil
}

// initSchema creates all required tables and indexes.
func (s *SQLiteStore) initSchema() error {
	schema := `
	-- Journal of completed gateway actions
	CREATE TABLE IF NOT EXISTS alert_journal (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		guid TEXT NOT NULL DEFAULT '',
		user_id INTEGER NOT NULL,
		action TEXT NOT NULL,
		kind TEXT NOT NULL,
		symbol TEXT NOT NULL,
		price REAL NOT NULL,
		operator TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		created_at DATETIME NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_journal_user ON alert_journal(user_id, created_at);
	CREATE INDEX IF NOT EXISTS idx_journal_created ON alert_journal(created_at);
	`

	_, err := s.db.Exec(schema)
	return err
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Record appends one completed gateway action to the journal.
func (s *SQLiteStore) Record(ctx context.Context, entry *JournalEntry) error {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	result, err := s.db.ExecContext(ctx, `
		INSERT INTO alert_journal (guid, user_id, action, kind, symbol, price, operator, description, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.GUID, entry.UserID, entry.Action, entry.Kind, entry.Symbol,
		entry.Price, entry.Operator, entry.Description, entry.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("recording journal entry: %w", err)
	}

	if id, err := result.LastInsertId(); err == nil {
		entry.ID = id
	}
	return nil
}

// Recent returns the newest journal entries, most recent first.
func (s *SQLiteStore) Recent(ctx context.Context, limit int) ([]JournalEntry, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, guid, user_id, action, kind, symbol, price, operator, description, created_at
		FROM alert_journal
		ORDER BY created_at DESC, id DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying journal: %w", err)
	}
	defer rows.Close()

	var entries []JournalEntry
	for rows.Next() {
		var e JournalEntry
		if err := rows.Scan(&e.ID, &e.GUID, &e.UserID, &e.Action, &e.Kind,
			&e.Symbol, &e.Price, &e.Operator, &e.Description, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning journal entry: %w", err)
		}
		entries = append(entries, e)
	}

	return entries, rows.Err()
}
