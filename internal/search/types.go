// Package search ranks paragraphs for a query.
//
// The Hybrid Ranker fuses a dense ranking from the Vector Index with a
// sparse BM25 ranking over the whole corpus: the top-limit vector neighbours
// contribute a Reciprocal Rank Fusion score 1/(k+rank), every corpus
// paragraph contributes its BM25 score, and the weighted sum is sorted and
// truncated. The Vector Ranker returns the raw neighbours.
package search

import (
	"context"

	"github.com/Aman-CERP/wikigraph/internal/config"
	wgerrors "github.com/Aman-CERP/wikigraph/internal/errors"
	"github.com/Aman-CERP/wikigraph/internal/store"
)

// DefaultRRFConstant is the RRF smoothing constant k.
const DefaultRRFConstant = 60

// DefaultLimit is the result count when none is given.
const DefaultLimit = 5

// Normalization modes applied to each signal before weighting.
const (
	NormalizeNone   = "none"
	NormalizeMinMax = "minmax"
)

var (
	// ErrEmptyQuery is returned when the query is blank after trimming.
	ErrEmptyQuery = wgerrors.New(wgerrors.ErrCodeQueryEmpty, "query is empty", nil).
		WithSuggestion("Pass a non-empty query")

	// ErrEmptyCorpus is returned when there are no paragraphs to rank.
	ErrEmptyCorpus = wgerrors.New(wgerrors.ErrCodeCorpusEmpty, "corpus is empty", nil).
		WithSuggestion("Run 'wikigraph setup' to ingest paragraphs")

	// ErrSchemaMismatch marks a vector index that disagrees with the
	// paragraph store or the embedder.
	ErrSchemaMismatch = wgerrors.New(wgerrors.ErrCodeSchemaMismatch, "vector index does not match paragraph store", nil)

	// ErrInvalidLimit is returned for a negative limit.
	ErrInvalidLimit = wgerrors.New(wgerrors.ErrCodeInvalidLimit, "limit must be positive", nil)
)

// FusionConfig controls how the two signals are combined.
type FusionConfig struct {
	RRFConstant   int
	VectorWeight  float64
	LexicalWeight float64
	Normalization string
}

// DefaultFusionConfig returns k=60, unit weights and no normalization, which
// is the plain sum of RRF and BM25.
func DefaultFusionConfig() FusionConfig {
	return FusionConfig{
		RRFConstant:   DefaultRRFConstant,
		VectorWeight:  1.0,
		LexicalWeight: 1.0,
		Normalization: NormalizeNone,
	}
}

// Result is one fused ranking entry.
type Result struct {
	ID    string  `json:"id"`
	Score float64 `json:"score"`

	// VectorRank is the 1-based neighbour rank, 0 when not a neighbour.
	VectorRank int     `json:"vector_rank,omitempty"`
	VectorRRF  float64 `json:"vector_rrf"`
	Distance   float32 `json:"distance,omitempty"`
	Lexical    float64 `json:"lexical"`
}

// VectorHit is one Vector Ranker entry.
type VectorHit struct {
	ID       string  `json:"id"`
	Rank     int     `json:"rank"`
	Distance float32 `json:"distance"`
}

// QueryEmbedder turns the query into an embedding. embed.Embedder satisfies it.
type QueryEmbedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	ModelName() string
}

// NeighborSearcher is the Vector Index query surface. store.VectorIndex satisfies it.
type NeighborSearcher interface {
	Search(ctx context.Context, query []float32, k int) ([]store.VectorResult, error)
	Count() int
}

// FusionFrom maps the search section of the configuration file.
func FusionFrom(c config.SearchConfig) FusionConfig {
	cfg := DefaultFusionConfig()
	if c.RRFConstant > 0 {
		cfg.RRFConstant = c.RRFConstant
	}
	cfg.VectorWeight = c.VectorWeight
	cfg.LexicalWeight = c.LexicalWeight
	if c.Normalization != "" {
		cfg.Normalization = c.Normalization
	}
	return cfg
}
