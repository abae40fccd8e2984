// Package summarizer builds the short extractive preview shown after a
// document is loaded.
package summarizer

import (
	"math"
	"sort"
	"strings"

	"pdfqa/internal/domain"
	"pdfqa/internal/textutil"
)

var (
	_ domain.Summarizer = (*FrequencySummarizer)(nil)
	_ domain.Summarizer = (*LeadSummarizer)(nil)
)

// DefaultMaxSentences is used when the caller passes a non-positive limit.
const DefaultMaxSentences = 3

// FrequencySummarizer ranks sentences by content-word frequency.
type FrequencySummarizer struct{}

// NewFrequencySummarizer creates a frequency-based sentence ranker summarizer.
func NewFrequencySummarizer() *FrequencySummarizer {
	return &FrequencySummarizer{}
}

// Summarize returns the top-ranked sentences in document order.
func (s *FrequencySummarizer) Summarize(text string, maxSentences int) (string, error) {
	if maxSentences <= 0 {
		maxSentences = DefaultMaxSentences
	}
	sentences := textutil.Sentences(text)
	if len(sentences) == 0 {
		return strings.TrimSpace(text), nil
	}

	tokens := make([][]string, len(sentences))
	freq := map[string]float64{}
	for i, sent := range sentences {
		tokens[i] = textutil.ContentTokens(sent)
		for _, tok := range tokens[i] {
			freq[tok]++
		}
	}
	maxF := 0.0
	for _, v := range freq {
		maxF = math.Max(maxF, v)
	}
	if maxF > 0 {
		for k, v := range freq {
			freq[k] = v / maxF
		}
	}

	type pair struct {
		idx   int
		score float64
	}
	scores := make([]pair, len(sentences))
	for i, toks := range tokens {
		score := 0.0
		for _, tok := range toks {
			score += freq[tok]
		}
		// Square-root length normalisation keeps long sentences from dominating.
		if n := len(textutil.Tokens(sentences[i])); n > 0 {
			score /= math.Sqrt(float64(n))
		}
		scores[i] = pair{i, score}
	}
	sort.SliceStable(scores, func(i, j int) bool { return scores[i].score > scores[j].score })
	if maxSentences > len(scores) {
		maxSentences = len(scores)
	}

	selected := make([]int, maxSentences)
	for i := range selected {
		selected[i] = scores[i].idx
	}
	sort.Ints(selected)
	out := make([]string, 0, len(selected))
	for _, idx := range selected {
		out = append(out, sentences[idx])
	}
	return strings.Join(out, " "), nil
}

// LeadSummarizer returns the opening sentences of the text.
type LeadSummarizer struct{}

func NewLeadSummarizer() *LeadSummarizer { return &LeadSummarizer{} }

func (LeadSummarizer) Summarize(text string, maxSentences int) (string, error) {
	if maxSentences <= 0 {
		maxSentences = DefaultMaxSentences
	}
	sentences := textutil.Sentences(text)
	if len(sentences) > maxSentences {
		sentences = sentences[:maxSentences]
	}
	return strings.Join(sentences, " "), nil
}

// New returns the summarizer registered under kind, or nil when unknown.
func New(kind string) domain.Summarizer {
	switch kind {
	case "frequency", "":
		return NewFrequencySummarizer()
	case "lead":
		return NewLeadSummarizer()
	}
	return nil
}
