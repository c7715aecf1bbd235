package normalizer

import (
	"strings"
	"unicode"
)

var abbreviations = map[string]struct{}{
	"mr": {}, "mrs": {}, "ms": {}, "dr": {}, "prof": {}, "sr": {}, "jr": {},
	"st": {}, "mt": {}, "ft": {}, "vs": {}, "etc": {}, "e.g": {}, "i.e": {},
	"cf": {}, "al": {}, "approx": {}, "fig": {}, "no": {}, "vol": {},
	"inc": {}, "ltd": {}, "co": {}, "corp": {}, "gen": {}, "gov": {},
	"sen": {}, "rep": {}, "u.s": {}, "u.k": {}, "jan": {}, "feb": {},
	"mar": {}, "apr": {}, "jun": {}, "jul": {}, "aug": {}, "sep": {},
	"sept": {}, "oct": {}, "nov": {}, "dec": {}, "a.m": {}, "p.m": {},
}

// SplitIntoSentences implements the sentence half of the normaliser
// contract.
func (n *Normalizer) SplitIntoSentences(passage string) []string {
	return SplitIntoSentences(passage)
}

// SplitIntoSentences segments a passage at sentence-final punctuation.
// A period does not end a sentence after a known abbreviation, after a
// single-letter initial, or when the following word starts in lower case.
func SplitIntoSentences(passage string) []string {
	runes := []rune(passage)
	sentences := make([]string, 0, 4)
	start := 0
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		if !isTerminal(r) {
			continue
		}
		end := i + 1
		for end < len(runes) && (isTerminal(runes[end]) || isCloser(runes[end])) {
			end++
		}
		if end < len(runes) && !unicode.IsSpace(runes[end]) {
			// "3.14", "a.m.", "?!x" and friends stay inside the sentence.
			i = end - 1
			continue
		}
		next := end
		for next < len(runes) && unicode.IsSpace(runes[next]) {
			next++
		}
		if r == '.' && next < len(runes) && !periodEndsSentence(runes[start:i], runes[next]) {
			i = end - 1
			continue
		}
		if s := strings.TrimSpace(string(runes[start:end])); s != "" {
			sentences = append(sentences, s)
		}
		start = end
		i = end - 1
	}
	if s := strings.TrimSpace(string(runes[start:])); s != "" {
		sentences = append(sentences, s)
	}
	return sentences
}

func periodEndsSentence(before []rune, next rune) bool {
	if unicode.IsLower(next) {
		return false
	}
	word := lastWord(before)
	if _, ok := abbreviations[word]; ok {
		return false
	}
	w := []rune(word)
	return !(len(w) == 1 && unicode.IsLetter(w[0]))
}

// lastWord returns the lower-cased word immediately preceding the end of
// text, stripped of leading quotes and brackets.
func lastWord(text []rune) string {
	i := len(text)
	for i > 0 && !unicode.IsSpace(text[i-1]) {
		i--
	}
	word := strings.TrimLeftFunc(string(text[i:]), func(r rune) bool {
		return isCloser(r) || r == '(' || r == '[' || r == '{' || r == '“' || r == '‘'
	})
	return strings.ToLower(word)
}

func isTerminal(r rune) bool {
	return r == '.' || r == '!' || r == '?' || r == '…'
}

func isCloser(r rune) bool {
	switch r {
	case '"', '\'', ')', ']', '}', '”', '’', '»':
		return true
	}
	return false
}
