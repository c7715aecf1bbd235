package ranking

import "github.com/Adithya-Monish-Kumar-K/corpus-qa/internal/corpus"

// RankSentences scores each sentence by the summed IDF of the distinct query
// terms it contains, breaking ties by query-term density: matched distinct
// terms over the sentence's token count.
func RankSentences(q Query, sentences *corpus.Corpus, idfs IDFTable) []SentenceScore {
	docs := sentences.Documents()
	scores := make([]SentenceScore, len(docs))
	for i, doc := range docs {
		scores[i] = scoreSentence(q, doc, idfs)
	}
	sortRanked(scores)
	return scores
}

// TopSentences returns the text of the n best sentences.
func TopSentences(q Query, sentences *corpus.Corpus, idfs IDFTable, n int) ([]string, error) {
	if err := validateLimit(n); err != nil {
		return nil, err
	}
	ranked := limit(RankSentences(q, sentences, idfs), n)
	texts := make([]string, len(ranked))
	for i, s := range ranked {
		texts[i] = s.ID
	}
	return texts, nil
}

func scoreSentence(q Query, doc corpus.Document, idfs IDFTable) SentenceScore {
	score := SentenceScore{ID: doc.ID}
	if len(doc.Tokens) == 0 || q.Empty() {
		return score
	}
	present := make(map[string]struct{}, q.Len())
	for _, token := range doc.Tokens {
		if q.Contains(token) {
			present[token] = struct{}{}
		}
	}
	for _, term := range q.terms {
		if _, ok := present[term]; !ok {
			continue
		}
		if idf, ok := idfs.Lookup(term); ok {
			score.MatchScore += idf
		}
	}
	score.Density = float64(len(present)) / float64(len(doc.Tokens))
	return score
}
