package session

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
	_ "modernc.org/sqlite"

	"synaptogram/pkg/labels"
)

// Store persists label snapshots. Load returns an empty snapshot when
// nothing has been saved yet.
type Store interface {
	Load() (labels.Snapshot, error)
	Save(labels.Snapshot) error
	Close() error
}

// YAMLStore keeps the labels in a YAML file
type YAMLStore struct {
	path string
}

// yamlSession is the on-disk layout of a YAML session file
type yamlSession struct {
	SavedAt string          `yaml:"savedAt"`
	Labels  labels.Snapshot `yaml:"labels"`
}

// NewYAMLStore creates a store backed by the file at path
func NewYAMLStore(path string) *YAMLStore {
	return &YAMLStore{path: path}
}

// Load reads the labels from the file
func (s *YAMLStore) Load() (labels.Snapshot, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return labels.Snapshot{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("error reading session file: %w", err)
	}

	var doc yamlSession
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("error parsing session file: %w", err)
	}
	if doc.Labels == nil {
		doc.Labels = labels.Snapshot{}
	}
	return doc.Labels, nil
}

// Save writes the labels, replacing the file atomically
func (s *YAMLStore) Save(snap labels.Snapshot) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return fmt.Errorf("error creating session directory: %w", err)
	}

	data, err := yaml.Marshal(yamlSession{
		SavedAt: time.Now().UTC().Format(time.RFC3339),
		Labels:  snap,
	})
	if err != nil {
		return fmt.Errorf("error marshaling session: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("error writing session file: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("error replacing session file: %w", err)
	}
	return nil
}

// Close is a no-op
func (s *YAMLStore) Close() error {
	return nil
}

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS labels (
	name  TEXT    NOT NULL,
	point INTEGER NOT NULL,
	PRIMARY KEY (name, point)
);
CREATE TABLE IF NOT EXISTS saves (
	id       INTEGER PRIMARY KEY AUTOINCREMENT,
	saved_at TEXT NOT NULL,
	count    INTEGER NOT NULL
);
`

// SQLiteStore keeps the labels in a SQLite database
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLiteStore opens or creates a database at the given path
func OpenSQLiteStore(path string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode=WAL&_pragma=synchronous=NORMAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// Load reads every label row
func (s *SQLiteStore) Load() (labels.Snapshot, error) {
	rows, err := s.db.Query("SELECT name, point FROM labels ORDER BY name, point")
	if err != nil {
		return nil, fmt.Errorf("failed to query labels: %w", err)
	}
	defer rows.Close()

	snap := labels.Snapshot{}
	for rows.Next() {
		var name string
		var point int
		if err := rows.Scan(&name, &point); err != nil {
			return nil, fmt.Errorf("failed to scan label: %w", err)
		}
		snap[name] = append(snap[name], point)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read labels: %w", err)
	}
	return snap, nil
}

// Save replaces the stored labels in a single transaction
func (s *SQLiteStore) Save(snap labels.Snapshot) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM labels"); err != nil {
		return fmt.Errorf("failed to clear labels: %w", err)
	}

	stmt, err := tx.Prepare("INSERT OR IGNORE INTO labels (name, point) VALUES (?, ?)")
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	count := 0
	for name, points := range snap {
		for _, p := range points {
			if _, err := stmt.Exec(name, p); err != nil {
				return fmt.Errorf("failed to insert label %s/%d: %w", name, p, err)
			}
			count++
		}
	}

	if _, err := tx.Exec(
		"INSERT INTO saves (saved_at, count) VALUES (?, ?)",
		time.Now().UTC().Format(time.RFC3339),
		count,
	); err != nil {
		return fmt.Errorf("failed to record save: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// Close closes the database connection
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
