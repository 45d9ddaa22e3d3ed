package store

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

const SchemaSQL = `
CREATE TABLE IF NOT EXISTS sentences (
    id INTEGER PRIMARY KEY,
    content_hash TEXT NOT NULL,
    document_id INTEGER NOT NULL,
    line_num INTEGER NOT NULL,
    sent_num INTEGER NOT NULL,
    byte_offset INTEGER NOT NULL,
    UNIQUE (document_id, line_num, sent_num)
);

CREATE INDEX IF NOT EXISTS idx_sentences_hash ON sentences(content_hash);
CREATE INDEX IF NOT EXISTS idx_sentences_coord ON sentences(document_id, line_num, sent_num);

CREATE TABLE IF NOT EXISTS repetition_runs (
    id INTEGER PRIMARY KEY,
    content_hash TEXT NOT NULL,
    document_id INTEGER NOT NULL,
    line_num INTEGER NOT NULL,
    start_sent_num INTEGER NOT NULL,
    run_length INTEGER NOT NULL,
    UNIQUE (document_id, line_num, start_sent_num)
);

CREATE INDEX IF NOT EXISTS idx_runs_hash ON repetition_runs(content_hash);
CREATE INDEX IF NOT EXISTS idx_runs_length ON repetition_runs(run_length);

CREATE TABLE IF NOT EXISTS sentence_texts (
    content_hash TEXT PRIMARY KEY,
    text TEXT NOT NULL
);
`

// Open opens (creating if needed) the pipeline store at path and applies
// the schema.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if _, err := db.Exec(SchemaSQL); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &Store{db: db}, nil
}
