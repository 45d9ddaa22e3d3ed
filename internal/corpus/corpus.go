// Package corpus defines the document model shared by every pipeline stage
// and the JSON interchange codec used at the corpus boundary.
//
// A document is an ordered sequence of elements, each either a boundary
// marker (a structural separator between original source units, e.g.
// transcript turns) or a sentence of word tokens. On the wire a boundary is
// represented by a reserved token sequence inside the same array as real
// sentences; in memory it is an explicit tagged variant so no sentence can
// collide with it.
package corpus

// Element is one entry of a document: either a boundary marker or a
// sentence. When Boundary is true, Tokens is nil.
type Element struct {
	Boundary bool
	Tokens   []string
}

// BoundaryElement returns a boundary marker element.
func BoundaryElement() Element {
	return Element{Boundary: true}
}

// SentenceElement returns a sentence element over the given tokens.
func SentenceElement(tokens []string) Element {
	return Element{Tokens: tokens}
}

// Document is one source document of the corpus.
type Document struct {
	ID       int
	Elements []Element
}

// Boundaries counts the boundary markers in the document.
func (d Document) Boundaries() int {
	n := 0
	for _, el := range d.Elements {
		if el.Boundary {
			n++
		}
	}
	return n
}

// Sentences counts the non-empty sentence elements in the document.
func (d Document) Sentences() int {
	n := 0
	for _, el := range d.Elements {
		if !el.Boundary && len(el.Tokens) > 0 {
			n++
		}
	}
	return n
}
