package store

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

// Store is the SQLite data access layer for the Java class index.
type Store struct {
	db *sql.DB
}

// NewStore opens a SQLite database at dbPath with WAL mode enabled.
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=ON&_busy_timeout=30000")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB returns the underlying *sql.DB for use in transactions.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Migrate creates all tables and indexes. Idempotent.
func (s *Store) Migrate() error {
	_, err := s.db.Exec(schemaDDL)
	if err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

const schemaDDL = `
CREATE TABLE IF NOT EXISTS files (
  id              INTEGER PRIMARY KEY,
  path            TEXT NOT NULL UNIQUE,
  language        TEXT NOT NULL,
  package         TEXT NOT NULL DEFAULT '',
  hash            TEXT,
  line_count      INTEGER NOT NULL DEFAULT 0,
  last_indexed    TIMESTAMP
);

CREATE TABLE IF NOT EXISTS imports (
  id              INTEGER PRIMARY KEY,
  file_id         INTEGER NOT NULL REFERENCES files(id),
  path            TEXT NOT NULL,
  is_static       BOOLEAN DEFAULT FALSE,
  is_wildcard     BOOLEAN DEFAULT FALSE
);

CREATE TABLE IF NOT EXISTS classes (
  id              INTEGER PRIMARY KEY,
  file_id         INTEGER NOT NULL REFERENCES files(id),
  name            TEXT NOT NULL,
  qualified_name  TEXT NOT NULL,
  kind            TEXT NOT NULL,
  modifiers       TEXT,
  type_params     TEXT,
  superclass_expr TEXT,
  superclass_base TEXT,
  signature_hash  TEXT,
  parent_class_id INTEGER REFERENCES classes(id),
  start_byte      INTEGER,
  end_byte        INTEGER,
  start_line      INTEGER,
  end_line        INTEGER,
  resolved_super  TEXT
);

CREATE TABLE IF NOT EXISTS methods (
  id              INTEGER PRIMARY KEY,
  class_id        INTEGER NOT NULL REFERENCES classes(id),
  file_id         INTEGER NOT NULL REFERENCES files(id),
  name            TEXT NOT NULL,
  modifiers       TEXT,
  type_params     TEXT,
  is_constructor  BOOLEAN DEFAULT FALSE,
  has_body        BOOLEAN DEFAULT FALSE,
  body_empty      BOOLEAN DEFAULT FALSE,
  return_expr     TEXT,
  return_base     TEXT,
  return_dims     INTEGER DEFAULT 0,
  return_prim     BOOLEAN DEFAULT FALSE,
  resolved_return TEXT,
  start_byte      INTEGER,
  end_byte        INTEGER,
  start_line      INTEGER,
  end_line        INTEGER
);

CREATE TABLE IF NOT EXISTS parameters (
  id              INTEGER PRIMARY KEY,
  method_id       INTEGER NOT NULL REFERENCES methods(id),
  name            TEXT,
  ordinal         INTEGER NOT NULL,
  type_expr       TEXT,
  base_type       TEXT,
  dimensions      INTEGER DEFAULT 0,
  is_primitive    BOOLEAN DEFAULT FALSE,
  is_varargs      BOOLEAN DEFAULT FALSE,
  resolved_type   TEXT
);

CREATE TABLE IF NOT EXISTS metadata (
  key             TEXT PRIMARY KEY,
  value           TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_imports_file ON imports(file_id);
CREATE INDEX IF NOT EXISTS idx_classes_file ON classes(file_id);
CREATE INDEX IF NOT EXISTS idx_classes_qualified ON classes(qualified_name);
CREATE INDEX IF NOT EXISTS idx_methods_class ON methods(class_id);
CREATE INDEX IF NOT EXISTS idx_methods_file ON methods(file_id);
CREATE INDEX IF NOT EXISTS idx_parameters_method ON parameters(method_id);
`

// DeleteFileData removes a file record and everything extracted from it.
func (s *Store) DeleteFileData(fileID int64) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := deleteFileDataTx(tx, fileID); err != nil {
		return err
	}
	return tx.Commit()
}

func deleteFileDataTx(tx *sql.Tx, fileID int64) error {
	stmts := []struct {
		label string
		query string
	}{
		{"parameters", "DELETE FROM parameters WHERE method_id IN (SELECT id FROM methods WHERE file_id = ?)"},
		{"methods", "DELETE FROM methods WHERE file_id = ?"},
		// Children first so parent_class_id never dangles mid-delete.
		{"classes", "DELETE FROM classes WHERE file_id = ? AND parent_class_id IS NOT NULL"},
		{"classes", "DELETE FROM classes WHERE file_id = ?"},
		{"imports", "DELETE FROM imports WHERE file_id = ?"},
		{"file", "DELETE FROM files WHERE id = ?"},
	}
	for _, st := range stmts {
		if _, err := tx.Exec(st.query, fileID); err != nil {
			return fmt.Errorf("delete %s: %w", st.label, err)
		}
	}
	return nil
}

// GetMetadata returns the value stored under key, or "" if unset.
func (s *Store) GetMetadata(key string) (string, error) {
	var v string
	err := s.db.QueryRow("SELECT value FROM metadata WHERE key = ?", key).Scan(&v)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("get metadata %q: %w", key, err)
	}
	return v, nil
}

// SetMetadata upserts a metadata value.
func (s *Store) SetMetadata(key, value string) error {
	_, err := s.db.Exec(
		"INSERT INTO metadata (key, value) VALUES (?, ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value",
		key, value,
	)
	if err != nil {
		return fmt.Errorf("set metadata %q: %w", key, err)
	}
	return nil
}
