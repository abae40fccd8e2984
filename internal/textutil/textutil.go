// Package textutil holds the sentence and word rules shared by the chunker,
// the TF-IDF embedder, the preview summarizer and the lexical fallback.
package textutil

import (
	"regexp"
	"strings"
	"unicode"
)

var (
	sentenceRe = regexp.MustCompile(`[^.!?]*[.!?]+`)
	wordRe     = regexp.MustCompile(`[\p{L}\p{N}]+(?:['’][\p{L}\p{N}]+)*`)
	stopwords  = buildStopwords()
)

// Span is a half-open byte range [Start, End) into a string.
type Span struct {
	Start int
	End   int
}

// SentenceSpans splits text into sentence spans that cover it without gaps.
// Whitespace following a terminator belongs to the next sentence, and text
// after the last terminator forms a final sentence of its own.
func SentenceSpans(text string) []Span {
	if text == "" {
		return nil
	}
	var spans []Span
	prev := 0
	for _, loc := range sentenceRe.FindAllStringIndex(text, -1) {
		if loc[1] <= prev {
			continue
		}
		spans = append(spans, Span{Start: prev, End: loc[1]})
		prev = loc[1]
	}
	if prev < len(text) {
		spans = append(spans, Span{Start: prev, End: len(text)})
	}
	return spans
}

// Sentences returns the trimmed, non-empty sentences of text.
func Sentences(text string) []string {
	var out []string
	for _, sp := range SentenceSpans(text) {
		if s := strings.TrimSpace(text[sp.Start:sp.End]); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// WordStarts returns the byte offsets at which whitespace-separated words begin.
func WordStarts(text string) []int {
	var starts []int
	inWord := false
	for i, r := range text {
		space := unicode.IsSpace(r)
		if !space && !inWord {
			starts = append(starts, i)
		}
		inWord = !space
	}
	return starts
}

// CountWords counts whitespace-separated words.
func CountWords(text string) int {
	return len(strings.Fields(text))
}

// Tokens lowercases text and returns its word tokens.
func Tokens(text string) []string {
	return wordRe.FindAllString(strings.ToLower(text), -1)
}

// ContentTokens is Tokens without stopwords.
func ContentTokens(text string) []string {
	raw := Tokens(text)
	out := raw[:0]
	for _, t := range raw {
		if IsStopword(t) {
			continue
		}
		out = append(out, t)
	}
	return out
}

// TokenSet returns the distinct tokens of text.
func TokenSet(text string) map[string]struct{} {
	tokens := Tokens(text)
	m := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		m[t] = struct{}{}
	}
	return m
}

// IsStopword reports whether a lowercased token is an English stopword.
func IsStopword(token string) bool {
	_, ok := stopwords[token]
	return ok
}

func buildStopwords() map[string]struct{} {
	words := []string{
		"a", "an", "the", "and", "or", "but", "if", "then", "else", "for", "to", "of", "in", "on", "at", "by", "with", "as", "is", "are", "was", "were", "be", "been", "being", "it", "this", "that", "these", "those", "from", "up", "down", "over", "under", "again", "further", "than", "so", "such", "into", "about", "between", "through", "during", "before", "after", "above", "below", "out", "off", "own", "same", "too", "very", "can", "will", "just", "don", "should", "now",
	}
	m := make(map[string]struct{}, len(words))
	for _, w := range words {
		m[w] = struct{}{}
	}
	return m
}
