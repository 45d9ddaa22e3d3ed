package corpus

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
)

// ErrBadDocument marks a document whose wire form is not a well-formed
// sequence of token arrays. Stages skip such documents rather than abort.
var ErrBadDocument = errors.New("malformed document")

// Marker is the reserved token sequence that represents a boundary on the
// wire. It is compared by exact token equality.
type Marker []string

func (m Marker) matches(tokens []string) bool {
	if len(m) == 0 || len(tokens) != len(m) {
		return false
	}
	for i, tok := range m {
		if tokens[i] != tok {
			return false
		}
	}
	return true
}

// Decode parses the JSON interchange form of one document: a single array
// whose entries are arrays of string tokens. Entries equal to the marker
// become boundary elements. Malformed entries fail the whole document with
// an error wrapping ErrBadDocument.
func Decode(raw []byte, marker Marker) ([]Element, error) {
	var entries []json.RawMessage
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, fmt.Errorf("%w: not a JSON array: %v", ErrBadDocument, err)
	}

	elements := make([]Element, 0, len(entries))
	for i, entry := range entries {
		var tokens []string
		if err := json.Unmarshal(entry, &tokens); err != nil {
			return nil, fmt.Errorf("%w: element %d is not a token array: %v", ErrBadDocument, i, err)
		}
		if marker.matches(tokens) {
			elements = append(elements, BoundaryElement())
			continue
		}
		elements = append(elements, SentenceElement(tokens))
	}
	return elements, nil
}

// Encode renders elements back to the interchange form, substituting the
// marker for boundary elements.
func Encode(elements []Element, marker Marker) ([]byte, error) {
	entries := make([][]string, 0, len(elements))
	for _, el := range elements {
		if el.Boundary {
			entries = append(entries, marker)
			continue
		}
		tokens := el.Tokens
		if tokens == nil {
			tokens = []string{}
		}
		entries = append(entries, tokens)
	}
	raw, err := json.Marshal(entries)
	if err != nil {
		return nil, fmt.Errorf("encode document: %w", err)
	}
	return raw, nil
}

// DecodeFile reads and decodes one document file.
func DecodeFile(path string, id int, marker Marker) (Document, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Document{}, fmt.Errorf("read document: %w", err)
	}
	elements, err := Decode(raw, marker)
	if err != nil {
		return Document{}, fmt.Errorf("decode %s: %w", path, err)
	}
	return Document{ID: id, Elements: elements}, nil
}

// EncodeFile writes one document file in the interchange form.
func EncodeFile(path string, doc Document, marker Marker) error {
	raw, err := Encode(doc.Elements, marker)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		return fmt.Errorf("write document: %w", err)
	}
	return nil
}
