package ranking

import (
	"math"

	"github.com/Adithya-Monish-Kumar-K/corpus-qa/internal/corpus"
	apperrors "github.com/Adithya-Monish-Kumar-K/corpus-qa/pkg/errors"
)

// IDFTable maps every token of one corpus to ln(N / df). A table belongs to
// exactly one corpus; file-level and sentence-level tables are never mixed.
type IDFTable struct {
	values    map[string]float64
	documents int
}

// ComputeIDFs counts, for each token, the number of distinct documents that
// contain it and returns ln(N / df). Tokens present in every document get 0.
func ComputeIDFs(c *corpus.Corpus) (IDFTable, error) {
	if c == nil || c.Len() == 0 {
		return IDFTable{}, apperrors.Wrapf(apperrors.ErrEmptyCorpus, "cannot compute idf over zero documents")
	}
	docFreq := make(map[string]int)
	for _, doc := range c.Documents() {
		seen := make(map[string]struct{}, len(doc.Tokens))
		for _, token := range doc.Tokens {
			if _, ok := seen[token]; ok {
				continue
			}
			seen[token] = struct{}{}
			docFreq[token]++
		}
	}
	n := float64(c.Len())
	values := make(map[string]float64, len(docFreq))
	for token, df := range docFreq {
		values[token] = math.Log(n / float64(df))
	}
	return IDFTable{values: values, documents: c.Len()}, nil
}

// Lookup returns the IDF of token and whether the corpus contains it.
func (t IDFTable) Lookup(token string) (float64, bool) {
	v, ok := t.values[token]
	return v, ok
}

// Len is the vocabulary size.
func (t IDFTable) Len() int {
	return len(t.values)
}

// Documents is the number of documents the table was computed over.
func (t IDFTable) Documents() int {
	return t.documents
}

// Unknown returns the query terms absent from the table in Terms order. They
// contribute nothing to any score.
func (t IDFTable) Unknown(q Query) []string {
	unknown := make([]string, 0)
	for _, term := range q.terms {
		if _, ok := t.values[term]; !ok {
			unknown = append(unknown, term)
		}
	}
	return unknown
}
