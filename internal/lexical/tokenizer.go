package lexical

import (
	"strings"
	"unicode"
)

// EnglishStopWords is the stop list applied when Config.StopWords is set.
var EnglishStopWords = []string{
	"a", "an", "and", "are", "as", "at", "be", "but", "by", "for", "from",
	"had", "has", "have", "he", "her", "his", "if", "in", "into", "is", "it",
	"its", "not", "of", "on", "or", "she", "such", "that", "the", "their",
	"then", "there", "these", "they", "this", "to", "was", "were", "which",
	"will", "with",
}

// Tokenizer lowercases text and splits it on anything that is not a letter
// or digit.
type Tokenizer struct {
	minLen    int
	stopWords map[string]struct{}
}

// NewTokenizer creates a Tokenizer for cfg.
func NewTokenizer(cfg Config) *Tokenizer {
	t := &Tokenizer{minLen: cfg.MinTokenLength}
	if cfg.StopWords {
		t.stopWords = BuildStopWordMap(EnglishStopWords)
	}
	return t
}

// Tokenize returns the tokens of text in order, duplicates included.
func (t *Tokenizer) Tokenize(text string) []string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})

	out := fields[:0]
	for _, f := range fields {
		if len([]rune(f)) < t.minLen {
			continue
		}
		if _, stop := t.stopWords[f]; stop {
			continue
		}
		out = append(out, f)
	}
	return out
}

// BuildStopWordMap converts a slice of stop words to a lookup set.
func BuildStopWordMap(words []string) map[string]struct{} {
	m := make(map[string]struct{}, len(words))
	for _, w := range words {
		m[strings.ToLower(w)] = struct{}{}
	}
	return m
}
