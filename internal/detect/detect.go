// Package detect scans the sentence index for repeated runs: maximal
// contiguous blocks of identical sentences within one line of one document.
package detect

import (
	"errors"
	"fmt"
	"log/slog"

	"hlc/internal/pipeline"
	"hlc/internal/store"
)

type Config struct {
	// MinOccurrences is the coarse candidate filter: only hashes occurring
	// at least this often corpus-wide are scanned for contiguity.
	MinOccurrences int
	// MinRunLength is the shortest run worth recording.
	MinRunLength int
	BatchSize    int
	Workers      int
	OnFlushError store.FlushPolicy
}

// DetectRuns finds and persists every repetition run in the index.
// Detection is parallel across hashes; the contiguity scan within a hash is
// strictly sequential because it depends on the total occurrence order. A
// failed per-hash scan is logged and skipped without invalidating runs
// already emitted. Persistence is insert-or-ignore, so re-running over an
// unchanged index adds nothing.
func DetectRuns(st *store.Store, cfg Config) error {
	hashes, err := st.CandidateHashes(cfg.MinOccurrences)
	if err != nil {
		return fmt.Errorf("detect runs: %w", err)
	}
	slog.Info("candidate hashes selected", "hashes", len(hashes), "min_occurrences", cfg.MinOccurrences)

	batcher := store.NewBatcher(cfg.BatchSize, cfg.OnFlushError, st.InsertRuns)

	errs := pipeline.Run(hashes, cfg.Workers, func(hash string) error {
		runs, err := hashRuns(st, hash, cfg.MinRunLength)
		if err != nil {
			slog.Warn("skipping hash after scan failure", "hash", hash, "error", err)
			return nil
		}
		for _, run := range runs {
			if err := batcher.Add(run); err != nil {
				return fmt.Errorf("emit runs for hash %s: %w", hash, err)
			}
		}
		return nil
	})
	if len(errs) > 0 {
		return fmt.Errorf("detect runs: %w", errors.Join(errs...))
	}

	if err := batcher.Flush(); err != nil {
		return fmt.Errorf("detect runs: %w", err)
	}
	if dropped := batcher.Dropped(); dropped > 0 {
		slog.Warn("run rows lost to dropped batches", "rows", dropped)
	}
	slog.Info("run detection complete", "hashes", len(hashes))
	return nil
}

// hashRuns streams one hash's occurrences in coordinate order and closes
// maximal runs greedily: an occurrence extends the open run iff it shares
// document and line with the previous one and follows it by exactly one
// sentence. Runs shorter than minLength are discarded on close.
func hashRuns(st *store.Store, hash string, minLength int) ([]store.Run, error) {
	var (
		runs    []store.Run
		start   store.Occurrence
		prev    store.Occurrence
		length  int
		scanned bool
	)

	closeRun := func() {
		if length >= minLength {
			runs = append(runs, store.Run{
				Hash:         hash,
				DocumentID:   start.DocumentID,
				LineNum:      start.LineNum,
				StartSentNum: start.SentNum,
				RunLength:    length,
			})
		}
	}

	err := st.ScanOccurrences(hash, func(o store.Occurrence) error {
		if scanned && o.DocumentID == prev.DocumentID && o.LineNum == prev.LineNum && o.SentNum == prev.SentNum+1 {
			length++
		} else {
			if scanned {
				closeRun()
			}
			start = o
			length = 1
		}
		prev = o
		scanned = true
		return nil
	})
	if err != nil {
		return nil, err
	}
	if scanned {
		closeRun()
	}
	return runs, nil
}
