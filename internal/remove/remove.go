// Package remove applies detected repetition runs to freshly re-read
// documents, eliding a run only after re-verifying every sentence in it.
package remove

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"hlc/internal/corpus"
	"hlc/internal/fingerprint"
	"hlc/internal/pipeline"
	"hlc/internal/store"
)

type Config struct {
	// MinRunLength is the shortest recorded run that is actually deleted.
	MinRunLength int
	OutputDir    string
	OutputPrefix string
	Workers      int
}

// Stats summarizes one document's removal pass.
type Stats struct {
	RunsApplied      int
	RunsRejected     int
	SentencesRemoved int
}

type coordinate struct {
	line int
	sent int
}

// CleanDocument walks the document re-deriving coordinates exactly as the
// indexer did and elides every run whose full slice re-verifies against the
// recorded hash. A run with any mismatching sentence (content drift since
// indexing) is left completely untouched: its start position is treated as
// an ordinary sentence and copied through. Boundary markers always pass
// through and reset the sentence counter.
func CleanDocument(doc corpus.Document, runs []store.Run) (corpus.Document, Stats) {
	byStart := make(map[coordinate]store.Run, len(runs))
	for _, r := range runs {
		byStart[coordinate{r.LineNum, r.StartSentNum}] = r
	}

	var stats Stats
	out := make([]corpus.Element, 0, len(doc.Elements))
	line, sent := 0, 0
	for i := 0; i < len(doc.Elements); {
		el := doc.Elements[i]
		if el.Boundary {
			out = append(out, el)
			line++
			sent = 0
			i++
			continue
		}
		if len(el.Tokens) == 0 {
			out = append(out, el)
			i++
			continue
		}

		if run, ok := byStart[coordinate{line, sent}]; ok {
			if verifyRun(doc.Elements, i, run) {
				stats.RunsApplied++
				stats.SentencesRemoved += run.RunLength
				slog.Debug("removed repeated run",
					"document", doc.ID, "line", line, "start_sent", sent, "length", run.RunLength)
				i += run.RunLength
				sent += run.RunLength
				continue
			}
			stats.RunsRejected++
			slog.Warn("run verification failed, keeping sentences",
				"document", doc.ID, "line", line, "start_sent", sent, "length", run.RunLength)
		}

		out = append(out, el)
		sent++
		i++
	}

	return corpus.Document{ID: doc.ID, Elements: out}, stats
}

// verifyRun re-hashes every sentence of the slice [start, start+length) and
// accepts the run only if all of them match the recorded hash. A slice that
// overruns the document, crosses a boundary or contains an empty sentence
// cannot be the indexed run and is rejected outright.
func verifyRun(elements []corpus.Element, start int, run store.Run) bool {
	if start+run.RunLength > len(elements) {
		return false
	}
	for _, el := range elements[start : start+run.RunLength] {
		if el.Boundary || len(el.Tokens) == 0 {
			return false
		}
		if fingerprint.SumHex(el.Tokens) != run.Hash {
			return false
		}
	}
	return true
}

// CleanCorpus removes verified runs from every referenced document and
// writes the cleaned documents to the output directory as
// <output_prefix><id>.json. Parallel across documents; each document reads
// only its own runs. Malformed documents are logged and skipped.
func CleanCorpus(st *store.Store, refs []corpus.Ref, marker corpus.Marker, cfg Config) error {
	if err := os.MkdirAll(cfg.OutputDir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	out := corpus.Finder{Dir: cfg.OutputDir, Prefix: cfg.OutputPrefix, Ext: ".json"}
	errs := pipeline.Run(refs, cfg.Workers, func(ref corpus.Ref) error {
		doc, err := corpus.DecodeFile(ref.Path, ref.ID, marker)
		if err != nil {
			slog.Warn("skipping document", "path", ref.Path, "error", err)
			return nil
		}

		runs, err := st.RunsForDocument(ref.ID, cfg.MinRunLength)
		if err != nil {
			return fmt.Errorf("load runs for document %d: %w", ref.ID, err)
		}

		cleaned, stats := CleanDocument(doc, runs)
		if err := corpus.EncodeFile(out.Path(ref.ID), cleaned, marker); err != nil {
			return fmt.Errorf("write cleaned document %d: %w", ref.ID, err)
		}
		slog.Info("cleaned document",
			"document", ref.ID,
			"runs_applied", stats.RunsApplied,
			"runs_rejected", stats.RunsRejected,
			"sentences_removed", stats.SentencesRemoved)
		return nil
	})
	if len(errs) > 0 {
		return fmt.Errorf("clean corpus: %w", errors.Join(errs...))
	}
	slog.Info("run removal complete", "documents", len(refs))
	return nil
}
