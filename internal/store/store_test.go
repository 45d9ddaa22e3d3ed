package store

import (
	"path/filepath"
	"testing"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	st, err := Open(filepath.Join(t.TempDir(), "corpus.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })
	return st
}

func TestInsertSentencesIgnoresDuplicateCoordinates(t *testing.T) {
	st := openTestStore(t)
	rows := []Occurrence{
		{Hash: "aa", DocumentID: 1, LineNum: 0, SentNum: 0, ByteOffset: 0},
		{Hash: "bb", DocumentID: 1, LineNum: 0, SentNum: 1, ByteOffset: 3},
	}
	if err := st.InsertSentences(rows); err != nil {
		t.Fatalf("insert sentences: %v", err)
	}
	// Same coordinates again, even with a different hash: must be a no-op.
	again := []Occurrence{
		{Hash: "cc", DocumentID: 1, LineNum: 0, SentNum: 0, ByteOffset: 0},
		{Hash: "bb", DocumentID: 1, LineNum: 0, SentNum: 1, ByteOffset: 3},
	}
	if err := st.InsertSentences(again); err != nil {
		t.Fatalf("re-insert sentences: %v", err)
	}

	counts, err := st.Counts()
	if err != nil {
		t.Fatalf("counts: %v", err)
	}
	if counts.Sentences != 2 {
		t.Fatalf("expected 2 sentence rows, got %d", counts.Sentences)
	}
}

func TestCandidateHashes(t *testing.T) {
	st := openTestStore(t)
	rows := []Occurrence{
		{Hash: "aa", DocumentID: 1, LineNum: 0, SentNum: 0},
		{Hash: "aa", DocumentID: 1, LineNum: 0, SentNum: 1},
		{Hash: "aa", DocumentID: 2, LineNum: 0, SentNum: 0},
		{Hash: "bb", DocumentID: 1, LineNum: 0, SentNum: 2},
	}
	if err := st.InsertSentences(rows); err != nil {
		t.Fatalf("insert sentences: %v", err)
	}

	hashes, err := st.CandidateHashes(2)
	if err != nil {
		t.Fatalf("candidate hashes: %v", err)
	}
	if len(hashes) != 1 || hashes[0] != "aa" {
		t.Fatalf("expected [aa], got %v", hashes)
	}

	hashes, err = st.CandidateHashes(1)
	if err != nil {
		t.Fatalf("candidate hashes: %v", err)
	}
	if len(hashes) != 2 {
		t.Fatalf("expected 2 candidates at threshold 1, got %v", hashes)
	}
}

func TestScanOccurrencesOrdered(t *testing.T) {
	st := openTestStore(t)
	// Insert deliberately out of coordinate order.
	rows := []Occurrence{
		{Hash: "aa", DocumentID: 2, LineNum: 0, SentNum: 0},
		{Hash: "aa", DocumentID: 1, LineNum: 1, SentNum: 5},
		{Hash: "aa", DocumentID: 1, LineNum: 0, SentNum: 3},
		{Hash: "aa", DocumentID: 1, LineNum: 1, SentNum: 4},
		{Hash: "bb", DocumentID: 1, LineNum: 0, SentNum: 0},
	}
	if err := st.InsertSentences(rows); err != nil {
		t.Fatalf("insert sentences: %v", err)
	}

	var got []Occurrence
	if err := st.ScanOccurrences("aa", func(o Occurrence) error {
		got = append(got, o)
		return nil
	}); err != nil {
		t.Fatalf("scan occurrences: %v", err)
	}

	if len(got) != 4 {
		t.Fatalf("expected 4 occurrences of aa, got %d", len(got))
	}
	for i := 1; i < len(got); i++ {
		prev, cur := got[i-1], got[i]
		before := prev.DocumentID < cur.DocumentID ||
			(prev.DocumentID == cur.DocumentID && prev.LineNum < cur.LineNum) ||
			(prev.DocumentID == cur.DocumentID && prev.LineNum == cur.LineNum && prev.SentNum < cur.SentNum)
		if !before {
			t.Fatalf("occurrences out of order at %d: %+v then %+v", i, prev, cur)
		}
	}
}

func TestInsertRunsIdempotent(t *testing.T) {
	st := openTestStore(t)
	runs := []Run{
		{Hash: "aa", DocumentID: 1, LineNum: 0, StartSentNum: 1, RunLength: 4},
		{Hash: "bb", DocumentID: 1, LineNum: 2, StartSentNum: 0, RunLength: 5},
	}
	for i := 0; i < 3; i++ {
		if err := st.InsertRuns(runs); err != nil {
			t.Fatalf("insert runs (pass %d): %v", i, err)
		}
	}

	counts, err := st.Counts()
	if err != nil {
		t.Fatalf("counts: %v", err)
	}
	if counts.Runs != 2 {
		t.Fatalf("expected 2 run rows after repeated insertion, got %d", counts.Runs)
	}
}

func TestRunsForDocumentFiltersByLength(t *testing.T) {
	st := openTestStore(t)
	runs := []Run{
		{Hash: "aa", DocumentID: 1, LineNum: 0, StartSentNum: 0, RunLength: 3},
		{Hash: "bb", DocumentID: 1, LineNum: 1, StartSentNum: 2, RunLength: 6},
		{Hash: "cc", DocumentID: 2, LineNum: 0, StartSentNum: 0, RunLength: 9},
	}
	if err := st.InsertRuns(runs); err != nil {
		t.Fatalf("insert runs: %v", err)
	}

	got, err := st.RunsForDocument(1, 4)
	if err != nil {
		t.Fatalf("runs for document: %v", err)
	}
	if len(got) != 1 || got[0].Hash != "bb" {
		t.Fatalf("expected only bb, got %+v", got)
	}
}

func TestRunHashSitesOnePerHash(t *testing.T) {
	st := openTestStore(t)
	runs := []Run{
		{Hash: "aa", DocumentID: 2, LineNum: 3, StartSentNum: 0, RunLength: 4},
		{Hash: "aa", DocumentID: 1, LineNum: 0, StartSentNum: 5, RunLength: 4},
		{Hash: "bb", DocumentID: 2, LineNum: 1, StartSentNum: 1, RunLength: 5},
	}
	if err := st.InsertRuns(runs); err != nil {
		t.Fatalf("insert runs: %v", err)
	}

	sites, err := st.RunHashSites()
	if err != nil {
		t.Fatalf("run hash sites: %v", err)
	}

	total := 0
	for _, docSites := range sites {
		total += len(docSites)
	}
	if total != 2 {
		t.Fatalf("expected one site per distinct hash, got %d", total)
	}
	// The smallest coordinate for aa lives in document 1.
	if len(sites[1]) != 1 || sites[1][0].Hash != "aa" {
		t.Fatalf("expected aa site in document 1, got %+v", sites)
	}
	if len(sites[2]) != 1 || sites[2][0].Hash != "bb" {
		t.Fatalf("expected bb site in document 2, got %+v", sites)
	}
}

func TestInsertTextsKeepsFirstSeen(t *testing.T) {
	st := openTestStore(t)
	if err := st.InsertTexts([]SentenceText{{Hash: "aa", Text: "first"}}); err != nil {
		t.Fatalf("insert texts: %v", err)
	}
	if err := st.InsertTexts([]SentenceText{{Hash: "aa", Text: "second"}}); err != nil {
		t.Fatalf("re-insert texts: %v", err)
	}
	counts, err := st.Counts()
	if err != nil {
		t.Fatalf("counts: %v", err)
	}
	if counts.SentenceTexts != 1 {
		t.Fatalf("expected 1 text row, got %d", counts.SentenceTexts)
	}
}

func TestRunLengthHistogram(t *testing.T) {
	st := openTestStore(t)
	runs := []Run{
		{Hash: "aa", DocumentID: 1, LineNum: 0, StartSentNum: 0, RunLength: 4},
		{Hash: "bb", DocumentID: 1, LineNum: 1, StartSentNum: 0, RunLength: 4},
		{Hash: "cc", DocumentID: 1, LineNum: 2, StartSentNum: 0, RunLength: 7},
	}
	if err := st.InsertRuns(runs); err != nil {
		t.Fatalf("insert runs: %v", err)
	}

	hist, err := st.RunLengthHistogram()
	if err != nil {
		t.Fatalf("run length histogram: %v", err)
	}
	if len(hist) != 2 {
		t.Fatalf("expected 2 buckets, got %+v", hist)
	}
	if hist[0].RunLength != 4 || hist[0].Count != 2 {
		t.Fatalf("expected bucket {4 2}, got %+v", hist[0])
	}
	if hist[1].RunLength != 7 || hist[1].Count != 1 {
		t.Fatalf("expected bucket {7 1}, got %+v", hist[1])
	}
}
