package ranking

import (
	"fmt"
	"testing"

	"github.com/Adithya-Monish-Kumar-K/corpus-qa/internal/corpus"
)

func syntheticCorpus(b *testing.B, numDocs, docLen int) *corpus.Corpus {
	b.Helper()
	c := corpus.New(numDocs)
	for i := 0; i < numDocs; i++ {
		tokens := make([]string, docLen)
		for j := range tokens {
			tokens[j] = fmt.Sprintf("term%d", (i*7+j*13)%500)
		}
		if err := c.Add(fmt.Sprintf("doc-%d", i), tokens); err != nil {
			b.Fatal(err)
		}
	}
	return c
}

// BenchmarkComputeIDFs measures document-frequency counting for corpora of
// increasing size.
func BenchmarkComputeIDFs(b *testing.B) {
	for _, numDocs := range []int{100, 1000, 10000} {
		b.Run(fmt.Sprintf("docs_%d", numDocs), func(b *testing.B) {
			c := syntheticCorpus(b, numDocs, 150)
			b.ReportAllocs()
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				if _, err := ComputeIDFs(c); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}

// BenchmarkRankFiles measures TF-IDF file ranking with an increasing number
// of query terms.
func BenchmarkRankFiles(b *testing.B) {
	c := syntheticCorpus(b, 1000, 200)
	idfs, err := ComputeIDFs(c)
	if err != nil {
		b.Fatal(err)
	}
	for _, tc := range []int{1, 3, 5, 10} {
		b.Run(fmt.Sprintf("terms_%d", tc), func(b *testing.B) {
			tokens := make([]string, tc)
			for t := range tokens {
				tokens[t] = fmt.Sprintf("term%d", t*37)
			}
			q := NewQuery(tokens)
			b.ReportAllocs()
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				_ = RankFiles(q, c, idfs)
			}
		})
	}
}

// BenchmarkRankSentences measures sentence ranking over many short
// documents.
func BenchmarkRankSentences(b *testing.B) {
	for _, numSentences := range []int{100, 1000, 10000} {
		b.Run(fmt.Sprintf("sentences_%d", numSentences), func(b *testing.B) {
			c := syntheticCorpus(b, numSentences, 12)
			idfs, err := ComputeIDFs(c)
			if err != nil {
				b.Fatal(err)
			}
			q := NewQuery([]string{"term1", "term13", "term42"})
			b.ReportAllocs()
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				_ = RankSentences(q, c, idfs)
			}
		})
	}
}
