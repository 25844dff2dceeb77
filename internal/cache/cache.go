// Package cache records source checksums of compiled artifacts in SQLite so
// unchanged articles can skip recompilation.
package cache

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS artifacts (
	key        TEXT PRIMARY KEY,
	checksum   TEXT NOT NULL DEFAULT '',
	output     TEXT NOT NULL DEFAULT '',
	updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);
`

// Store is the checksum lookup used by compile tasks.
type Store interface {
	Checksum(key string) (string, error)
	Record(key, checksum, output string) error
	Forget(key string) error
}

// Verify *DB satisfies Store at compile time.
var _ Store = (*DB)(nil)

// DB wraps a sql.DB holding the artifact table.
type DB struct {
	conn *sql.DB
}

// Open opens (or creates) the SQLite database and applies the schema.
// Missing parent directories of dsn are created.
func Open(dsn string) (*DB, error) {
	if err := os.MkdirAll(filepath.Dir(dsn), 0o755); err != nil {
		return nil, fmt.Errorf("cache: create dir: %w", err)
	}
	conn, err := sql.Open("sqlite3", dsn+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("cache: open db: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("cache: ping: %w", err)
	}
	if _, err := conn.Exec(schemaSQL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("cache: apply schema: %w", err)
	}
	return &DB{conn: conn}, nil
}

// Close closes the underlying database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Checksum returns the recorded checksum for key, or empty string if unknown.
func (db *DB) Checksum(key string) (string, error) {
	var cs string
	err := db.conn.QueryRow(`SELECT checksum FROM artifacts WHERE key = ?`, key).Scan(&cs)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("cache: checksum %s: %w", key, err)
	}
	return cs, nil
}

// Record stores the checksum a successful compile of key was based on.
func (db *DB) Record(key, checksum, output string) error {
	_, err := db.conn.Exec(`
		INSERT INTO artifacts (key, checksum, output, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			checksum   = excluded.checksum,
			output     = excluded.output,
			updated_at = excluded.updated_at
	`, key, checksum, output, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("cache: record %s: %w", key, err)
	}
	return nil
}

// Forget drops the entry for key.
func (db *DB) Forget(key string) error {
	if _, err := db.conn.Exec(`DELETE FROM artifacts WHERE key = ?`, key); err != nil {
		return fmt.Errorf("cache: forget %s: %w", key, err)
	}
	return nil
}

// Keys returns every recorded key with its checksum.
func (db *DB) Keys() (map[string]string, error) {
	rows, err := db.conn.Query(`SELECT key, checksum FROM artifacts`)
	if err != nil {
		return nil, fmt.Errorf("cache: keys: %w", err)
	}
	defer rows.Close()
	out := make(map[string]string)
	for rows.Next() {
		var k, cs string
		if err := rows.Scan(&k, &cs); err != nil {
			return nil, err
		}
		out[k] = cs
	}
	return out, rows.Err()
}

// Prune removes entries whose key is not in live.
func (db *DB) Prune(live map[string]struct{}) (int, error) {
	keys, err := db.Keys()
	if err != nil {
		return 0, err
	}
	n := 0
	for k := range keys {
		if _, ok := live[k]; ok {
			continue
		}
		if err := db.Forget(k); err != nil {
			return n, err
		}
		n++
	}
	return n, nil
}
