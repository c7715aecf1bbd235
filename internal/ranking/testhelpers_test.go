package ranking

import (
	"testing"

	"github.com/Adithya-Monish-Kumar-K/corpus-qa/internal/corpus"
)

type entry struct {
	id     string
	tokens []string
}

func buildCorpus(t testing.TB, docs ...entry) *corpus.Corpus {
	t.Helper()
	c := corpus.New(len(docs))
	for _, d := range docs {
		if err := c.Add(d.id, d.tokens); err != nil {
			t.Fatalf("Add(%q): %v", d.id, err)
		}
	}
	return c
}

func mustIDFs(t testing.TB, c *corpus.Corpus) IDFTable {
	t.Helper()
	idfs, err := ComputeIDFs(c)
	if err != nil {
		t.Fatalf("ComputeIDFs: %v", err)
	}
	return idfs
}
