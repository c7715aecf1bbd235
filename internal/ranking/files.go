package ranking

import "github.com/Adithya-Monish-Kumar-K/corpus-qa/internal/corpus"

// RankFiles scores every file by the sum, over query terms, of the term's
// raw count in the file times its IDF. Terms missing from idfs contribute
// zero. The result covers all files, best first, ties in corpus order.
func RankFiles(q Query, files *corpus.Corpus, idfs IDFTable) []FileScore {
	docs := files.Documents()
	scores := make([]FileScore, len(docs))
	for i, doc := range docs {
		scores[i] = FileScore{ID: doc.ID, Score: tfidf(q, doc.Tokens, idfs)}
	}
	sortRanked(scores)
	return scores
}

// TopFiles returns the names of the n best files, or every file when the
// corpus is smaller than n.
func TopFiles(q Query, files *corpus.Corpus, idfs IDFTable, n int) ([]string, error) {
	if err := validateLimit(n); err != nil {
		return nil, err
	}
	ranked := limit(RankFiles(q, files, idfs), n)
	names := make([]string, len(ranked))
	for i, s := range ranked {
		names[i] = s.ID
	}
	return names, nil
}

func tfidf(q Query, tokens []string, idfs IDFTable) float64 {
	if q.Empty() {
		return 0
	}
	tf := make(map[string]int, q.Len())
	for _, token := range tokens {
		if q.Contains(token) {
			tf[token]++
		}
	}
	var score float64
	for _, term := range q.terms {
		idf, ok := idfs.Lookup(term)
		if !ok {
			continue
		}
		score += float64(tf[term]) * idf
	}
	return score
}
