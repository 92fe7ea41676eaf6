package docstore

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/go-logr/logr"
	_ "modernc.org/sqlite"
)

// SQLiteOpener keeps every named store as rows of one SQLite database
type SQLiteOpener struct {
	db  *sql.DB
	log logr.Logger

	mu     sync.Mutex
	stores map[string]*SQLiteStore
}

// NewSQLiteOpener opens (or creates) the database at path and initialises the schema
func NewSQLiteOpener(path string, log logr.Logger) (*SQLiteOpener, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("docstore: open %q: %w", path, err)
	}

	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=FULL",
		"PRAGMA busy_timeout=5000",
	} {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("docstore: %s: %w", pragma, err)
		}
	}

	const ddl = `
CREATE TABLE IF NOT EXISTS documents (
  store TEXT NOT NULL,
  key TEXT NOT NULL,
  value TEXT NOT NULL,
  PRIMARY KEY (store, key)
);`
	if _, err := db.Exec(ddl); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("docstore: init schema: %w", err)
	}

	return &SQLiteOpener{
		db:     db,
		log:    log,
		stores: make(map[string]*SQLiteStore),
	}, nil
}

// Close closes the underlying database
func (o *SQLiteOpener) Close() error {
	return o.db.Close()
}

// Open implements Opener. A cached store is reloaded from the table first, so
// rows written through another connection are visible and unsaved changes
// are discarded.
func (o *SQLiteOpener) Open(name string) (Store, error) {
	if err := ValidateName(name); err != nil {
		return nil, err
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	if store, ok := o.stores[name]; ok {
		if err := store.load(); err != nil {
			return nil, err
		}
		return store, nil
	}

	store := &SQLiteStore{db: o.db, name: name}
	if err := store.load(); err != nil {
		return nil, err
	}

	o.log.V(1).Info("Opened document store", "store", name, "backend", "sqlite", "keys", len(store.data))
	o.stores[name] = store
	return store, nil
}

// SQLiteStore is a Store backed by the documents table. Set only touches
// memory; Save writes the changed keys in one transaction.
type SQLiteStore struct {
	db   *sql.DB
	name string

	mu    sync.RWMutex
	data  map[string]json.RawMessage
	dirty map[string]bool
}

// load replaces the in-memory documents with the table's rows and clears
// the dirty set
func (s *SQLiteStore) load() error {
	rows, err := s.db.Query(`SELECT key, value FROM documents WHERE store = ?`, s.name)
	if err != nil {
		return fmt.Errorf("docstore: load %q: %w", s.name, err)
	}
	defer rows.Close()

	fresh := make(map[string]json.RawMessage)
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return fmt.Errorf("docstore: scan %q: %w", s.name, err)
		}
		fresh[key] = json.RawMessage(value)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("docstore: load %q: %w", s.name, err)
	}

	s.mu.Lock()
	s.data = fresh
	s.dirty = make(map[string]bool)
	s.mu.Unlock()
	return nil
}

// Get implements Store
func (s *SQLiteStore) Get(key string) (json.RawMessage, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	raw, ok := s.data[key]
	return cloneRaw(raw), ok
}

// Set implements Store
func (s *SQLiteStore) Set(key string, value json.RawMessage) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.data[key] = cloneRaw(value)
	s.dirty[key] = true
}

// Save implements Store
func (s *SQLiteStore) Save() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.dirty) == 0 {
		return nil
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("docstore: begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.Prepare(
		`INSERT INTO documents (store, key, value) VALUES (?, ?, ?)
		 ON CONFLICT(store, key) DO UPDATE SET value = excluded.value`,
	)
	if err != nil {
		return fmt.Errorf("docstore: prepare upsert: %w", err)
	}
	defer stmt.Close()

	for key := range s.dirty {
		value := s.data[key]
		if value == nil {
			value = json.RawMessage("null")
		}
		if !json.Valid(value) {
			return fmt.Errorf("docstore: value for key %q is not valid JSON", key)
		}
		if _, err := stmt.Exec(s.name, key, string(value)); err != nil {
			return fmt.Errorf("docstore: write %q/%q: %w", s.name, key, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("docstore: commit: %w", err)
	}

	s.dirty = make(map[string]bool)
	return nil
}
