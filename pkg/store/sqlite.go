package store

import (
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"
)

// SchemaVersion is the current database layout.
const SchemaVersion = "1"

// SQLite is a SQLite-backed store.
type SQLite struct {
	mu  sync.Mutex
	db  *sql.DB
	now func() time.Time
}

// NewSQLite opens or creates a store at path.
func NewSQLite(path string) (*SQLite, error) {
	db, err := sql.Open(driverName, path)
	if err != nil {
		return nil, fmt.Errorf("store: open %s: %w", path, err)
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS programs (
			name TEXT PRIMARY KEY,
			source TEXT NOT NULL,
			version INTEGER NOT NULL,
			updated_at INTEGER NOT NULL
		);
		CREATE TABLE IF NOT EXISTS program_versions (
			name TEXT NOT NULL,
			version INTEGER NOT NULL,
			source TEXT NOT NULL,
			updated_at INTEGER NOT NULL,
			PRIMARY KEY (name, version)
		);
		CREATE TABLE IF NOT EXISTS metadata (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("store: create schema: %w", err)
	}

	s := &SQLite{db: db, now: time.Now}

	version, err := s.getMetadataUnlocked("schema_version")
	if err != nil {
		db.Close()
		return nil, err
	}
	switch version {
	case "":
		if err := s.setMetadataUnlocked("schema_version", SchemaVersion); err != nil {
			db.Close()
			return nil, err
		}
	case SchemaVersion:
	default:
		db.Close()
		return nil, fmt.Errorf("store: unsupported schema version: %s (expected %s)", version, SchemaVersion)
	}

	return s, nil
}

// Get retrieves a program by name.
func (s *SQLite) Get(name string) (*Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e := Entry{Name: name}
	var updated int64
	err := s.db.QueryRow(
		"SELECT source, version, updated_at FROM programs WHERE name = ?", name,
	).Scan(&e.Source, &e.Version, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("store: get %q: %w", name, err)
	}
	e.Updated = time.UnixMilli(updated)
	return &e, nil
}

// Put stores a program by name and records a new version when the source
// changed.
func (s *SQLite) Put(name, source string) error {
	if err := checkName(name); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("store: put %q: %w", name, err)
	}
	defer tx.Rollback()

	var current string
	var version int
	err = tx.QueryRow("SELECT source, version FROM programs WHERE name = ?", name).Scan(&current, &version)
	switch {
	case errors.Is(err, sql.ErrNoRows):
	case err != nil:
		return fmt.Errorf("store: put %q: %w", name, err)
	case current == source:
		return nil
	}

	version++
	now := s.now().UnixMilli()
	if _, err := tx.Exec(`
		INSERT INTO programs (name, source, version, updated_at) VALUES (?, ?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET
			source = excluded.source,
			version = excluded.version,
			updated_at = excluded.updated_at
	`, name, source, version, now); err != nil {
		return fmt.Errorf("store: put %q: %w", name, err)
	}
	if _, err := tx.Exec(
		"INSERT INTO program_versions (name, version, source, updated_at) VALUES (?, ?, ?, ?)",
		name, version, source, now,
	); err != nil {
		return fmt.Errorf("store: put %q: %w", name, err)
	}
	return tx.Commit()
}

// Delete removes a program and its history.
func (s *SQLite) Delete(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("store: delete %q: %w", name, err)
	}
	defer tx.Rollback()
	if _, err := tx.Exec("DELETE FROM programs WHERE name = ?", name); err != nil {
		return fmt.Errorf("store: delete %q: %w", name, err)
	}
	if _, err := tx.Exec("DELETE FROM program_versions WHERE name = ?", name); err != nil {
		return fmt.Errorf("store: delete %q: %w", name, err)
	}
	return tx.Commit()
}

// List returns every program sorted by name.
func (s *SQLite) List() ([]Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.Query("SELECT name, source, version, updated_at FROM programs ORDER BY name")
	if err != nil {
		return nil, fmt.Errorf("store: list: %w", err)
	}
	defer rows.Close()

	entries := []Entry{}
	for rows.Next() {
		var e Entry
		var updated int64
		if err := rows.Scan(&e.Name, &e.Source, &e.Version, &updated); err != nil {
			return nil, fmt.Errorf("store: list: %w", err)
		}
		e.Updated = time.UnixMilli(updated)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: list: %w", err)
	}
	return entries, nil
}

// History returns the versions of a program, newest first.
func (s *SQLite) History(name string, limit int) ([]Version, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if limit <= 0 {
		limit = -1 // SQLite: no limit
	}
	rows, err := s.db.Query(
		"SELECT version, source, updated_at FROM program_versions WHERE name = ? ORDER BY version DESC LIMIT ?",
		name, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("store: history %q: %w", name, err)
	}
	defer rows.Close()

	var versions []Version
	for rows.Next() {
		var v Version
		var updated int64
		if err := rows.Scan(&v.Version, &v.Source, &updated); err != nil {
			return nil, fmt.Errorf("store: history %q: %w", name, err)
		}
		v.Updated = time.UnixMilli(updated)
		versions = append(versions, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: history %q: %w", name, err)
	}
	return versions, nil
}

// Close closes the database connection.
func (s *SQLite) Close() error {
	return s.db.Close()
}

// GetMetadata retrieves a metadata value by key.
func (s *SQLite) GetMetadata(key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.getMetadataUnlocked(key)
}

// getMetadataUnlocked retrieves metadata without locking (caller must hold lock).
func (s *SQLite) getMetadataUnlocked(key string) (string, error) {
	var value string
	err := s.db.QueryRow("SELECT value FROM metadata WHERE key = ?", key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("store: metadata %q: %w", key, err)
	}
	return value, nil
}

// SetMetadata stores a metadata value by key.
func (s *SQLite) SetMetadata(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.setMetadataUnlocked(key, value)
}

// setMetadataUnlocked stores metadata without locking (caller must hold lock).
func (s *SQLite) setMetadataUnlocked(key, value string) error {
	_, err := s.db.Exec(`
		INSERT INTO metadata (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, key, value)
	if err != nil {
		return fmt.Errorf("store: set metadata %q: %w", key, err)
	}
	return nil
}
