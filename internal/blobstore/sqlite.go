package blobstore

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

// SQLite stores blobs in a single-table embedded database. Useful when the
// outputs tree should travel as one file.
type SQLite struct {
	dbPath string
	db     *sql.DB
	mu     sync.RWMutex
}

// NewSQLite creates a SQLite-backed store at dbPath.
func NewSQLite(dbPath string) (*SQLite, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o750); err != nil {
		return nil, fmt.Errorf("creating store directory: %w", err)
	}

	// WAL mode for concurrent readers
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &SQLite{dbPath: dbPath, db: db}
	if err := s.migrate(); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			return nil, fmt.Errorf("running migrations: %w (close error: %v)", err, closeErr)
		}
		return nil, fmt.Errorf("running migrations: %w", err)
	}
	return s, nil
}

func (s *SQLite) migrate() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS blobs (
			key        TEXT PRIMARY KEY,
			value      BLOB NOT NULL,
			updated_at TEXT NOT NULL
		)`)
	return err
}

// Put upserts a blob. The transaction gives the same atomicity guarantee
// as the filesystem backend's rename.
func (s *SQLite) Put(key string, data []byte) error {
	cleaned, err := cleanKey(key)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err = s.db.Exec(`
		INSERT INTO blobs (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		cleaned, data, time.Now().UTC().Format(time.RFC3339Nano))
	return err
}

// Get reads a blob.
func (s *SQLite) Get(key string) ([]byte, error) {
	cleaned, err := cleanKey(key)
	if err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	var data []byte
	err = s.db.QueryRow(`SELECT value FROM blobs WHERE key = ?`, cleaned).Scan(&data)
	if err == sql.ErrNoRows {
		return nil, &NotFoundError{Key: key}
	}
	if err != nil {
		return nil, err
	}
	return data, nil
}

// Exists reports whether a blob is present.
func (s *SQLite) Exists(key string) (bool, error) {
	cleaned, err := cleanKey(key)
	if err != nil {
		return false, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	var one int
	err = s.db.QueryRow(`SELECT 1 FROM blobs WHERE key = ?`, cleaned).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// ScanPrefix returns keys under prefix in lexical order. An empty prefix
// scans the whole store.
func (s *SQLite) ScanPrefix(prefix string) ([]string, error) {
	cleaned := ""
	if prefix != "" {
		var err error
		cleaned, err = cleanKey(prefix)
		if err != nil {
			return nil, err
		}
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	if cleaned == "" {
		rows, err := s.db.Query(`SELECT key FROM blobs ORDER BY key`)
		if err != nil {
			return nil, err
		}
		defer rows.Close()
		return collectKeys(rows)
	}

	rows, err := s.db.Query(
		`SELECT key FROM blobs WHERE key = ? OR key LIKE ? ESCAPE '\' ORDER BY key`,
		cleaned, likePrefix(cleaned))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectKeys(rows)
}

// likePrefix builds the LIKE pattern for everything under a key, escaping
// the wildcard characters keys may legitimately contain (module names use
// underscores).
func likePrefix(cleaned string) string {
	escaped := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(cleaned)
	return escaped + "/%"
}

func collectKeys(rows *sql.Rows) ([]string, error) {
	var keys []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, err
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}

// Delete removes one blob. Missing keys are not an error.
func (s *SQLite) Delete(key string) error {
	cleaned, err := cleanKey(key)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err = s.db.Exec(`DELETE FROM blobs WHERE key = ?`, cleaned)
	return err
}

// DeletePrefix removes every key under prefix.
func (s *SQLite) DeletePrefix(prefix string) (bool, error) {
	cleaned, err := cleanKey(prefix)
	if err != nil {
		return false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.Exec(
		`DELETE FROM blobs WHERE key = ? OR key LIKE ? ESCAPE '\'`,
		cleaned, likePrefix(cleaned))
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Close closes the database connection.
func (s *SQLite) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}
