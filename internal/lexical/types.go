// Package lexical scores paragraphs against a query with BM25.
//
// Three backends implement Scorer:
//   - okapi: in-process BM25 Okapi model, persisted between runs (default)
//   - bleve: in-memory bleve index using bleve's relevance scoring
//   - sqlite: in-memory SQLite FTS5 table using its bm25() function
//
// All backends share the prose Tokenizer so the same query matches the same
// terms regardless of backend.
package lexical

import "context"

// Document is one unit of the lexical corpus.
type Document struct {
	ID      string
	Content string
}

// Scorer scores a query against a fixed corpus.
type Scorer interface {
	// Score returns a BM25 score for every document that matches at least
	// one query term. Unmatched documents are absent from the map.
	Score(ctx context.Context, query string) (map[string]float64, error)

	// Len returns the number of documents in the corpus.
	Len() int

	Close() error
}

// Builder constructs a Scorer over a corpus snapshot.
type Builder interface {
	Build(ctx context.Context, docs []Document) (Scorer, error)
}

// BuilderFunc adapts a function to Builder.
type BuilderFunc func(ctx context.Context, docs []Document) (Scorer, error)

// Build calls f.
func (f BuilderFunc) Build(ctx context.Context, docs []Document) (Scorer, error) {
	return f(ctx, docs)
}

// Config holds BM25 parameters and tokenization settings.
type Config struct {
	// K1 controls term frequency saturation.
	K1 float64
	// B controls document length normalization (0 = none, 1 = full).
	B float64
	// MinTokenLength drops shorter tokens.
	MinTokenLength int
	// StopWords enables English stop word removal.
	StopWords bool
}

// DefaultConfig returns the BM25 Okapi defaults.
func DefaultConfig() Config {
	return Config{
		K1:             1.5,
		B:              0.75,
		MinTokenLength: 2,
	}
}
