// Package corpus holds the document model shared by the ranking stages and
// the sources that supply raw document text.
package corpus

import (
	"fmt"

	apperrors "github.com/Adithya-Monish-Kumar-K/corpus-qa/pkg/errors"
)

// Document is an identifier plus its normalised tokens. For the file stage
// the identifier is a file name; for the sentence stage it is the sentence
// text itself.
type Document struct {
	ID     string
	Tokens []string
}

// Corpus is an ordered set of documents with unique identifiers. Insertion
// order is the enumeration order used to break ranking ties.
type Corpus struct {
	docs  []Document
	index map[string]int
}

func New(capacity int) *Corpus {
	return &Corpus{
		docs:  make([]Document, 0, capacity),
		index: make(map[string]int, capacity),
	}
}

// FromMap builds a corpus from ids in the given order, taking tokens from
// tokensByID. It is mostly a convenience for tests and small callers.
func FromMap(order []string, tokensByID map[string][]string) (*Corpus, error) {
	c := New(len(order))
	for _, id := range order {
		tokens, ok := tokensByID[id]
		if !ok {
			return nil, fmt.Errorf("%w: no tokens for %q", apperrors.ErrInvalidInput, id)
		}
		if err := c.Add(id, tokens); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// Add appends a document. The token slice is copied.
func (c *Corpus) Add(id string, tokens []string) error {
	if _, exists := c.index[id]; exists {
		return fmt.Errorf("%w: %q", apperrors.ErrDuplicateID, id)
	}
	copied := make([]string, len(tokens))
	copy(copied, tokens)
	c.index[id] = len(c.docs)
	c.docs = append(c.docs, Document{ID: id, Tokens: copied})
	return nil
}

func (c *Corpus) Contains(id string) bool {
	_, ok := c.index[id]
	return ok
}

func (c *Corpus) Get(id string) (Document, bool) {
	i, ok := c.index[id]
	if !ok {
		return Document{}, false
	}
	return c.docs[i], true
}

func (c *Corpus) Len() int {
	return len(c.docs)
}

// Documents returns the documents in enumeration order. Callers must not
// modify the returned slice or its token slices.
func (c *Corpus) Documents() []Document {
	return c.docs
}

func (c *Corpus) IDs() []string {
	ids := make([]string, len(c.docs))
	for i, d := range c.docs {
		ids[i] = d.ID
	}
	return ids
}
