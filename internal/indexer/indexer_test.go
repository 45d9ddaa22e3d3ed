package indexer

import (
	"os"
	"path/filepath"
	"testing"

	"hlc/internal/corpus"
	"hlc/internal/fingerprint"
	"hlc/internal/store"
)

func doc(id int, elements ...corpus.Element) corpus.Document {
	return corpus.Document{ID: id, Elements: elements}
}

func sent(tokens ...string) corpus.Element {
	return corpus.SentenceElement(tokens)
}

func TestOccurrencesCoordinates(t *testing.T) {
	d := doc(7,
		sent("first", "sentence"), // line 0, sent 0, offset 0
		sent("second"),            // line 0, sent 1, offset 15
		corpus.BoundaryElement(),
		sent("third"), // line 1, sent 0, offset 0
	)

	rows := Occurrences(d)
	if len(rows) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(rows))
	}

	want := []store.Occurrence{
		{Hash: fingerprint.SumHex([]string{"first", "sentence"}), DocumentID: 7, LineNum: 0, SentNum: 0, ByteOffset: 0},
		{Hash: fingerprint.SumHex([]string{"second"}), DocumentID: 7, LineNum: 0, SentNum: 1, ByteOffset: len("first sentence") + 1},
		{Hash: fingerprint.SumHex([]string{"third"}), DocumentID: 7, LineNum: 1, SentNum: 0, ByteOffset: 0},
	}
	for i, w := range want {
		if rows[i] != w {
			t.Fatalf("row %d: expected %+v, got %+v", i, w, rows[i])
		}
	}
}

func TestOccurrencesSkipsEmptySentences(t *testing.T) {
	d := doc(1,
		sent("a"),
		sent(), // no row, no coordinate
		sent("b"),
	)
	rows := Occurrences(d)
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}
	if rows[1].SentNum != 1 {
		t.Fatalf("empty sentence must not consume a sent_num, got %d", rows[1].SentNum)
	}
}

func TestOccurrencesBoundaryEmitsNoRow(t *testing.T) {
	d := doc(1, corpus.BoundaryElement(), corpus.BoundaryElement())
	if rows := Occurrences(d); len(rows) != 0 {
		t.Fatalf("boundaries must not produce rows, got %+v", rows)
	}
	d = doc(1, corpus.BoundaryElement(), sent("x"))
	rows := Occurrences(d)
	if len(rows) != 1 || rows[0].LineNum != 1 || rows[0].SentNum != 0 {
		t.Fatalf("expected (line 1, sent 0), got %+v", rows)
	}
}

func TestOccurrencesUniqueCoordinates(t *testing.T) {
	d := doc(1,
		sent("a"), sent("a"), sent("a"),
		corpus.BoundaryElement(),
		sent("a"), sent("a"),
	)
	rows := Occurrences(d)
	seen := make(map[[3]int]bool)
	for _, row := range rows {
		key := [3]int{row.DocumentID, row.LineNum, row.SentNum}
		if seen[key] {
			t.Fatalf("duplicate coordinate %v", key)
		}
		seen[key] = true
	}
}

func TestIndexCorpusIdempotent(t *testing.T) {
	dir := t.TempDir()
	marker := corpus.Marker{"zz", "turn", "zz"}
	raw := []byte(`[["a","b"],["a","b"],["zz","turn","zz"],["c"]]`)
	if err := os.WriteFile(filepath.Join(dir, "slc1.json"), raw, 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	st, err := store.Open(filepath.Join(t.TempDir(), "corpus.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	defer st.Close()

	refs, err := corpus.Finder{Dir: dir, Prefix: "slc", Ext: ".json"}.Documents()
	if err != nil {
		t.Fatalf("list documents: %v", err)
	}

	cfg := Config{BatchSize: 2, Workers: 1, OnFlushError: store.FlushFail}
	for pass := 0; pass < 2; pass++ {
		if err := IndexCorpus(st, refs, marker, cfg); err != nil {
			t.Fatalf("index corpus pass %d: %v", pass, err)
		}
	}

	counts, err := st.Counts()
	if err != nil {
		t.Fatalf("counts: %v", err)
	}
	if counts.Sentences != 3 {
		t.Fatalf("expected 3 occurrence rows after re-indexing, got %d", counts.Sentences)
	}
}

func TestIndexCorpusSkipsMalformedDocument(t *testing.T) {
	dir := t.TempDir()
	marker := corpus.Marker{"zz"}
	if err := os.WriteFile(filepath.Join(dir, "slc1.json"), []byte(`{"bad":true}`), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "slc2.json"), []byte(`[["fine"]]`), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	st, err := store.Open(filepath.Join(t.TempDir(), "corpus.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	defer st.Close()

	refs, err := corpus.Finder{Dir: dir, Prefix: "slc", Ext: ".json"}.Documents()
	if err != nil {
		t.Fatalf("list documents: %v", err)
	}

	if err := IndexCorpus(st, refs, marker, Config{Workers: 1}); err != nil {
		t.Fatalf("index corpus: %v", err)
	}

	counts, err := st.Counts()
	if err != nil {
		t.Fatalf("counts: %v", err)
	}
	if counts.Sentences != 1 {
		t.Fatalf("expected only the well-formed document indexed, got %d rows", counts.Sentences)
	}
}
