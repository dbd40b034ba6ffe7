// Package sqlite implements the store interfaces on a single SQLite file.
// Similarity search scans all rows and scores them in Go, which is the
// right trade for corpora of a few hundred documents: no extension to
// install, one file to back up.
package sqlite

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS chunks (
    id          TEXT PRIMARY KEY,
    document_id TEXT NOT NULL,
    section     TEXT NOT NULL DEFAULT '',
    ordinal     INTEGER NOT NULL,
    token_count INTEGER NOT NULL,
    page        INTEGER,
    source_type TEXT NOT NULL DEFAULT '',
    year        INTEGER,
    text        TEXT NOT NULL,
    meta        TEXT NOT NULL DEFAULT '{}',
    embedding   BLOB NOT NULL
);
CREATE INDEX IF NOT EXISTS chunks_document_id_idx ON chunks (document_id);

CREATE TABLE IF NOT EXISTS claims (
    id           TEXT PRIMARY KEY,
    document_id  TEXT NOT NULL DEFAULT '',
    text         TEXT NOT NULL,
    distilled    TEXT NOT NULL DEFAULT '',
    ts           TIMESTAMP NOT NULL,
    confidence   REAL NOT NULL DEFAULT 0,
    embedding    BLOB NOT NULL,
    duplicate_of TEXT REFERENCES claims (id)
);

CREATE TABLE IF NOT EXISTS clusters (
    id            INTEGER PRIMARY KEY,
    label         TEXT NOT NULL,
    description   TEXT NOT NULL DEFAULT '',
    keywords      TEXT NOT NULL DEFAULT '[]',
    x             REAL NOT NULL,
    y             REAL NOT NULL,
    paper_count   INTEGER NOT NULL DEFAULT 0,
    primary_count INTEGER NOT NULL DEFAULT 0,
    centroid      BLOB NOT NULL
);

CREATE TABLE IF NOT EXISTS paper_clusters (
    document_id TEXT NOT NULL,
    cluster_id  INTEGER NOT NULL REFERENCES clusters (id) ON DELETE CASCADE,
    confidence  REAL NOT NULL,
    is_primary  INTEGER NOT NULL DEFAULT 0,
    PRIMARY KEY (document_id, cluster_id)
);

CREATE TABLE IF NOT EXISTS claim_clusters (
    claim_id   TEXT NOT NULL,
    cluster_id INTEGER NOT NULL REFERENCES clusters (id) ON DELETE CASCADE,
    confidence REAL NOT NULL,
    PRIMARY KEY (claim_id, cluster_id)
);

CREATE TABLE IF NOT EXISTS index_meta (
    key   TEXT PRIMARY KEY,
    value TEXT NOT NULL
);
`

// CorpusLiteStorage implements the store interfaces on SQLite.
type CorpusLiteStorage struct {
	db *sql.DB
}

// New opens (creating if necessary) the SQLite database at path and
// ensures the schema exists.
func New(path string) (*CorpusLiteStorage, error) {
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// a single writer avoids SQLITE_BUSY under concurrent pipelines
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("initialize sqlite schema: %w", err)
	}
	return &CorpusLiteStorage{db: db}, nil
}

// Close closes the underlying database.
func (s *CorpusLiteStorage) Close() {
	s.db.Close()
}
