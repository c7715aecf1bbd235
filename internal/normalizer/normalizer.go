// Package normalizer turns raw text into the token and sentence sequences the
// ranking core works on. It lower-cases input, deletes punctuation, removes
// English stop-words and optionally applies the Snowball English stemmer.
package normalizer

import (
	"strings"
	"unicode"

	"github.com/kljensen/snowball/english"
)

// asciiPunctuation is deleted outright, so "don't" becomes "dont" and
// "e-mail" becomes "email".
const asciiPunctuation = "!\"#$%&'()*+,-./:;<=>?@[\\]^_`{|}~"

// Options configures a Normalizer.
type Options struct {
	// Stem applies the Snowball English stemmer to every retained token.
	Stem bool
	// Stopwords replaces the default English list when non-nil.
	Stopwords map[string]struct{}
	// ExtraStopwords are added on top of the active list.
	ExtraStopwords []string
}

// Normalizer is safe for concurrent use; it holds no mutable state after
// construction.
type Normalizer struct {
	stop map[string]struct{}
	stem bool
}

func New(opts Options) *Normalizer {
	stop := opts.Stopwords
	if stop == nil {
		stop = DefaultStopwords()
	} else {
		copied := make(map[string]struct{}, len(stop)+len(opts.ExtraStopwords))
		for w := range stop {
			copied[w] = struct{}{}
		}
		stop = copied
	}
	for _, w := range opts.ExtraStopwords {
		w = strings.ToLower(strings.TrimSpace(w))
		if w != "" {
			stop[w] = struct{}{}
		}
	}
	return &Normalizer{stop: stop, stem: opts.Stem}
}

// Tokenize returns the ordered, normalised words of text with stop-words
// removed.
func (n *Normalizer) Tokenize(text string) []string {
	var b strings.Builder
	b.Grow(len(text))
	for _, r := range strings.ToLower(text) {
		switch {
		case r < unicode.MaxASCII && strings.ContainsRune(asciiPunctuation, r):
			continue
		case unicode.IsPunct(r) || unicode.IsSymbol(r):
			b.WriteByte(' ')
		default:
			b.WriteRune(r)
		}
	}
	words := strings.Fields(b.String())
	tokens := make([]string, 0, len(words))
	for _, word := range words {
		if n.IsStopword(word) {
			continue
		}
		if n.stem {
			word = english.Stem(word, false)
			if word == "" {
				continue
			}
		}
		tokens = append(tokens, word)
	}
	return tokens
}

// IsStopword reports whether the lower-cased word is filtered by Tokenize.
func (n *Normalizer) IsStopword(word string) bool {
	_, ok := n.stop[word]
	return ok
}

// SplitIntoPassages splits text on line breaks and drops blank lines.
func SplitIntoPassages(text string) []string {
	lines := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
	passages := make([]string, 0, len(lines))
	for _, line := range lines {
		if strings.TrimSpace(line) != "" {
			passages = append(passages, line)
		}
	}
	return passages
}
