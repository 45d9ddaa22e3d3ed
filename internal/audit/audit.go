// Package audit resolves repetition-run hashes back to human-readable
// sentence text. The table it fills is purely informational: removal does
// its own hash re-verification and never reads it.
package audit

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"hlc/internal/corpus"
	"hlc/internal/fingerprint"
	"hlc/internal/store"
)

type Config struct {
	BatchSize    int
	OnFlushError store.FlushPolicy
}

// MaterializeTexts picks one recorded coordinate per distinct run hash,
// re-reads the document there, re-derives the coordinate mapping by a
// forward scan, and persists hash → text for every sentence whose
// recomputed hash matches. Sites are grouped by document so each file is
// decoded once. Resolution failures are logged and skipped, never fatal to
// the pass.
func MaterializeTexts(st *store.Store, find corpus.Finder, marker corpus.Marker, cfg Config) error {
	sites, err := st.RunHashSites()
	if err != nil {
		return fmt.Errorf("materialize texts: %w", err)
	}

	docIDs := make([]int, 0, len(sites))
	for id := range sites {
		docIDs = append(docIDs, id)
	}
	sort.Ints(docIDs)

	batcher := store.NewBatcher(cfg.BatchSize, cfg.OnFlushError, st.InsertTexts)

	resolved := 0
	for _, docID := range docIDs {
		doc, err := corpus.DecodeFile(find.Path(docID), docID, marker)
		if err != nil {
			slog.Warn("skipping document for audit", "document", docID, "error", err)
			continue
		}
		for _, site := range sites[docID] {
			tokens, err := resolve(doc, site.LineNum, site.StartSentNum)
			if err != nil {
				slog.Warn("cannot resolve run coordinate",
					"hash", site.Hash, "document", docID, "line", site.LineNum, "sent", site.StartSentNum, "error", err)
				continue
			}
			if fingerprint.SumHex(tokens) != site.Hash {
				slog.Warn("hash mismatch resolving run text",
					"hash", site.Hash, "document", docID, "line", site.LineNum, "sent", site.StartSentNum)
				continue
			}
			if err := batcher.Add(store.SentenceText{Hash: site.Hash, Text: strings.Join(tokens, " ")}); err != nil {
				return fmt.Errorf("materialize texts: %w", err)
			}
			resolved++
		}
	}

	if err := batcher.Flush(); err != nil {
		return fmt.Errorf("materialize texts: %w", err)
	}
	slog.Info("sentence texts materialized", "hashes", resolved)
	return nil
}

// resolve walks the document with the indexer's coordinate rules and
// returns the tokens of the sentence at (line, sent).
func resolve(doc corpus.Document, line, sent int) ([]string, error) {
	curLine, curSent := 0, 0
	for _, el := range doc.Elements {
		if el.Boundary {
			curLine++
			curSent = 0
			continue
		}
		if len(el.Tokens) == 0 {
			continue
		}
		if curLine == line && curSent == sent {
			return el.Tokens, nil
		}
		if curLine > line {
			break
		}
		curSent++
	}
	return nil, errors.New("coordinate out of range")
}
