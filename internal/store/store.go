// Package store persists the sentence index, the repetition-run store and
// the audit text table in a single SQLite database. Every write path is
// insert-or-ignore on the table's unique key, so re-running any stage over
// unchanged input is a no-op.
package store

import (
	"database/sql"
	"fmt"
	"sort"
)

// Occurrence is one sentence's position and content fingerprint in the
// corpus. Rows are immutable once written.
type Occurrence struct {
	Hash       string
	DocumentID int
	LineNum    int
	SentNum    int
	ByteOffset int
}

// Run is a maximal contiguous block of occurrences sharing one content
// hash within a single (document, line).
type Run struct {
	Hash         string
	DocumentID   int
	LineNum      int
	StartSentNum int
	RunLength    int
}

// SentenceText maps a content hash to its human-readable sentence, for
// auditing only.
type SentenceText struct {
	Hash string
	Text string
}

// Store wraps the SQLite database. Safe for concurrent use; database/sql
// serializes access per connection.
type Store struct {
	db *sql.DB
}

func (s *Store) Close() error {
	return s.db.Close()
}

// InsertSentences writes one batch of occurrence rows in a single
// transaction. Rows colliding on (document_id, line_num, sent_num) are
// ignored.
func (s *Store) InsertSentences(rows []Occurrence) error {
	if len(rows) == 0 {
		return nil
	}
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`INSERT OR IGNORE INTO sentences(content_hash, document_id, line_num, sent_num, byte_offset) VALUES(?,?,?,?,?)`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, row := range rows {
		if _, err := stmt.Exec(row.Hash, row.DocumentID, row.LineNum, row.SentNum, row.ByteOffset); err != nil {
			return fmt.Errorf("insert sentence: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// InsertRuns writes one batch of repetition runs in a single transaction,
// ignoring rows that collide on (document_id, line_num, start_sent_num).
func (s *Store) InsertRuns(rows []Run) error {
	if len(rows) == 0 {
		return nil
	}
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`INSERT OR IGNORE INTO repetition_runs(content_hash, document_id, line_num, start_sent_num, run_length) VALUES(?,?,?,?,?)`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, row := range rows {
		if _, err := stmt.Exec(row.Hash, row.DocumentID, row.LineNum, row.StartSentNum, row.RunLength); err != nil {
			return fmt.Errorf("insert run: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// InsertTexts writes audit hash-to-text rows; the primary key on
// content_hash keeps the first-seen text.
func (s *Store) InsertTexts(rows []SentenceText) error {
	if len(rows) == 0 {
		return nil
	}
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`INSERT OR IGNORE INTO sentence_texts(content_hash, text) VALUES(?,?)`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, row := range rows {
		if _, err := stmt.Exec(row.Hash, row.Text); err != nil {
			return fmt.Errorf("insert sentence text: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// TextFor returns the materialized text of one hash, if present.
func (s *Store) TextFor(hash string) (string, bool, error) {
	var text string
	err := s.db.QueryRow(`SELECT text FROM sentence_texts WHERE content_hash = ?`, hash).Scan(&text)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("query sentence text: %w", err)
	}
	return text, true, nil
}

// CandidateHashes returns every content hash whose total occurrence count
// across the index is at least minCount.
func (s *Store) CandidateHashes(minCount int) ([]string, error) {
	rows, err := s.db.Query(`SELECT content_hash FROM sentences GROUP BY content_hash HAVING COUNT(*) >= ?`, minCount)
	if err != nil {
		return nil, fmt.Errorf("query candidate hashes: %w", err)
	}
	defer rows.Close()

	var hashes []string
	for rows.Next() {
		var h string
		if err := rows.Scan(&h); err != nil {
			return nil, fmt.Errorf("scan candidate hash: %w", err)
		}
		hashes = append(hashes, h)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate candidate hashes: %w", err)
	}
	return hashes, nil
}

// ScanOccurrences streams every occurrence of one hash ordered by
// (document_id, line_num, sent_num), calling fn for each row. The result
// set is iterated row by row and never materialized here.
func (s *Store) ScanOccurrences(hash string, fn func(Occurrence) error) error {
	rows, err := s.db.Query(`
		SELECT content_hash, document_id, line_num, sent_num, byte_offset
		FROM sentences
		WHERE content_hash = ?
		ORDER BY document_id, line_num, sent_num`, hash)
	if err != nil {
		return fmt.Errorf("query occurrences: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var o Occurrence
		if err := rows.Scan(&o.Hash, &o.DocumentID, &o.LineNum, &o.SentNum, &o.ByteOffset); err != nil {
			return fmt.Errorf("scan occurrence: %w", err)
		}
		if err := fn(o); err != nil {
			return err
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate occurrences: %w", err)
	}
	return nil
}

// RunsForDocument returns every run of one document with run_length >=
// minLength, ordered by (line_num, start_sent_num).
func (s *Store) RunsForDocument(docID, minLength int) ([]Run, error) {
	rows, err := s.db.Query(`
		SELECT content_hash, document_id, line_num, start_sent_num, run_length
		FROM repetition_runs
		WHERE document_id = ? AND run_length >= ?
		ORDER BY line_num, start_sent_num`, docID, minLength)
	if err != nil {
		return nil, fmt.Errorf("query document runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var r Run
		if err := rows.Scan(&r.Hash, &r.DocumentID, &r.LineNum, &r.StartSentNum, &r.RunLength); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate document runs: %w", err)
	}
	return runs, nil
}

// RunHashSites returns, for every distinct run hash, the lexicographically
// smallest run coordinate, grouped by document so callers can decode each
// document file once. Document ids in the returned map key the slice of
// sites to resolve there.
func (s *Store) RunHashSites() (map[int][]Run, error) {
	rows, err := s.db.Query(`
		SELECT content_hash, document_id, line_num, start_sent_num, run_length
		FROM repetition_runs
		ORDER BY content_hash, document_id, line_num, start_sent_num`)
	if err != nil {
		return nil, fmt.Errorf("query run sites: %w", err)
	}
	defer rows.Close()

	sites := make(map[int][]Run)
	lastHash := ""
	for rows.Next() {
		var r Run
		if err := rows.Scan(&r.Hash, &r.DocumentID, &r.LineNum, &r.StartSentNum, &r.RunLength); err != nil {
			return nil, fmt.Errorf("scan run site: %w", err)
		}
		if r.Hash == lastHash {
			continue
		}
		lastHash = r.Hash
		sites[r.DocumentID] = append(sites[r.DocumentID], r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate run sites: %w", err)
	}
	return sites, nil
}

// LengthCount is one bucket of the run-length histogram.
type LengthCount struct {
	RunLength int
	Count     int
}

// RunLengthHistogram returns how many runs exist per run length, ascending.
func (s *Store) RunLengthHistogram() ([]LengthCount, error) {
	rows, err := s.db.Query(`SELECT run_length, COUNT(*) FROM repetition_runs GROUP BY run_length ORDER BY run_length`)
	if err != nil {
		return nil, fmt.Errorf("query run histogram: %w", err)
	}
	defer rows.Close()

	var hist []LengthCount
	for rows.Next() {
		var lc LengthCount
		if err := rows.Scan(&lc.RunLength, &lc.Count); err != nil {
			return nil, fmt.Errorf("scan run histogram: %w", err)
		}
		hist = append(hist, lc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate run histogram: %w", err)
	}
	return hist, nil
}

// Counts reports the row count of every pipeline table.
type Counts struct {
	Sentences     int
	Runs          int
	SentenceTexts int
}

func (s *Store) Counts() (Counts, error) {
	var c Counts
	tables := []struct {
		name string
		dst  *int
	}{
		{"sentences", &c.Sentences},
		{"repetition_runs", &c.Runs},
		{"sentence_texts", &c.SentenceTexts},
	}
	for _, tbl := range tables {
		row := s.db.QueryRow(`SELECT COUNT(*) FROM ` + tbl.name)
		if err := row.Scan(tbl.dst); err != nil {
			return Counts{}, fmt.Errorf("count %s: %w", tbl.name, err)
		}
	}
	return c, nil
}

// DocumentIDs returns every distinct document id present in the sentence
// index, ascending.
func (s *Store) DocumentIDs() ([]int, error) {
	rows, err := s.db.Query(`SELECT DISTINCT document_id FROM sentences`)
	if err != nil {
		return nil, fmt.Errorf("query document ids: %w", err)
	}
	defer rows.Close()

	var ids []int
	for rows.Next() {
		var id int
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan document id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate document ids: %w", err)
	}
	sort.Ints(ids)
	return ids, nil
}
