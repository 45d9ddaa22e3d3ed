// Package fingerprint computes the 64-bit content hash that identifies a
// sentence across the whole pipeline. Indexing, detection, removal and
// auditing all hash through this package so the fingerprints cannot drift
// between stages.
package fingerprint

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/cespare/xxhash/v2"
)

// Sum fingerprints a sentence: xxhash64 over the lowercased tokens joined
// by single spaces.
func Sum(tokens []string) uint64 {
	d := xxhash.New()
	for i, tok := range tokens {
		if i > 0 {
			_, _ = d.WriteString(" ")
		}
		_, _ = d.WriteString(strings.ToLower(tok))
	}
	return d.Sum64()
}

// Hex renders a fingerprint as 16 lowercase hex characters, the form
// persisted in the store.
func Hex(sum uint64) string {
	return fmt.Sprintf("%016x", sum)
}

// SumHex is Hex(Sum(tokens)).
func SumHex(tokens []string) string {
	return Hex(Sum(tokens))
}

// Parse decodes a hex fingerprint back to its numeric form.
func Parse(s string) (uint64, error) {
	sum, err := strconv.ParseUint(s, 16, 64)
	if err != nil {
		return 0, fmt.Errorf("parse fingerprint %q: %w", s, err)
	}
	return sum, nil
}
