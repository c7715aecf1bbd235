package ranking

import (
	"fmt"
	"sort"

	apperrors "github.com/Adithya-Monish-Kumar-K/corpus-qa/pkg/errors"
)

// FileScore is the cumulative TF-IDF of one file.
type FileScore struct {
	ID    string  `json:"file"`
	Score float64 `json:"score"`
}

// Outranks orders files by score, highest first.
func (a FileScore) Outranks(b FileScore) bool {
	return a.Score > b.Score
}

// SentenceScore ranks lexicographically on (MatchScore, Density).
type SentenceScore struct {
	ID         string  `json:"sentence"`
	MatchScore float64 `json:"match_score"`
	Density    float64 `json:"density"`
}

// Outranks reports whether a sorts strictly before b.
func (a SentenceScore) Outranks(b SentenceScore) bool {
	if a.MatchScore != b.MatchScore {
		return a.MatchScore > b.MatchScore
	}
	return a.Density > b.Density
}

// sortRanked is a stable sort, so equal scores keep enumeration order.
func sortRanked[T interface{ Outranks(T) bool }](scores []T) {
	sort.SliceStable(scores, func(i, j int) bool {
		return scores[i].Outranks(scores[j])
	})
}

func validateLimit(n int) error {
	if n < 1 {
		return fmt.Errorf("%w: result count must be positive, got %d", apperrors.ErrInvalidInput, n)
	}
	return nil
}

func limit[T any](items []T, n int) []T {
	if len(items) > n {
		return items[:n]
	}
	return items
}
