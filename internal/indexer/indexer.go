// Package indexer builds the sentence index: one content-addressed
// occurrence row per sentence of every corpus document.
package indexer

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"hlc/internal/corpus"
	"hlc/internal/fingerprint"
	"hlc/internal/pipeline"
	"hlc/internal/store"
)

type Config struct {
	BatchSize    int
	Workers      int
	OnFlushError store.FlushPolicy
}

// Occurrences derives the occurrence rows of one document. A boundary
// advances line_num and resets sent_num and byte_offset; empty sentences
// produce no row and consume no coordinate; every other sentence is hashed
// at its (line_num, sent_num) and advances byte_offset by the rendered
// sentence length plus one trailing space.
func Occurrences(doc corpus.Document) []store.Occurrence {
	rows := make([]store.Occurrence, 0, len(doc.Elements))
	line, sent, offset := 0, 0, 0
	for _, el := range doc.Elements {
		if el.Boundary {
			line++
			sent = 0
			offset = 0
			continue
		}
		if len(el.Tokens) == 0 {
			continue
		}
		rows = append(rows, store.Occurrence{
			Hash:       fingerprint.SumHex(el.Tokens),
			DocumentID: doc.ID,
			LineNum:    line,
			SentNum:    sent,
			ByteOffset: offset,
		})
		sent++
		offset += len(strings.Join(el.Tokens, " ")) + 1
	}
	return rows
}

// IndexCorpus indexes every referenced document, parallel across documents.
// A malformed document is logged and skipped; the store's unique coordinate
// key makes re-indexing (and racing workers) harmless. Batch flush failures
// follow the configured policy.
func IndexCorpus(st *store.Store, refs []corpus.Ref, marker corpus.Marker, cfg Config) error {
	batcher := store.NewBatcher(cfg.BatchSize, cfg.OnFlushError, st.InsertSentences)

	errs := pipeline.Run(refs, cfg.Workers, func(ref corpus.Ref) error {
		doc, err := corpus.DecodeFile(ref.Path, ref.ID, marker)
		if err != nil {
			slog.Warn("skipping document", "path", ref.Path, "error", err)
			return nil
		}
		rows := Occurrences(doc)
		for _, row := range rows {
			if err := batcher.Add(row); err != nil {
				return fmt.Errorf("index document %d: %w", ref.ID, err)
			}
		}
		slog.Debug("indexed document", "document", ref.ID, "sentences", len(rows))
		return nil
	})
	if len(errs) > 0 {
		return fmt.Errorf("index corpus: %w", errors.Join(errs...))
	}

	if err := batcher.Flush(); err != nil {
		return fmt.Errorf("index corpus: %w", err)
	}
	if dropped := batcher.Dropped(); dropped > 0 {
		slog.Warn("occurrence rows lost to dropped batches", "rows", dropped)
	}
	slog.Info("sentence indexing complete", "documents", len(refs))
	return nil
}
