// Package store holds the Vector Index: paragraph embeddings keyed by
// paragraph id, searched by nearest neighbour.
package store

import (
	"context"
	"fmt"

	wgerrors "github.com/Aman-CERP/wikigraph/internal/errors"
)

// Distance metrics.
const (
	MetricL2     = "l2"
	MetricCosine = "cos"
)

// VectorResult represents a single nearest-neighbour hit.
type VectorResult struct {
	ID       string  // Paragraph ID
	Distance float32 // Lower is closer
	Score    float32 // Distance mapped into (0, 1], higher is closer
}

// VectorIndexConfig configures the vector index.
type VectorIndexConfig struct {
	// Dimensions is the embedding width (384 for all-minilm).
	Dimensions int

	// Metric is "l2" (euclidean) or "cos" (cosine). Default: "l2".
	Metric string

	// M is the HNSW max connections per layer (default: 16).
	M int

	// EfSearch is the HNSW search-time candidate list size (default: 64).
	EfSearch int

	// Model names the embedding model the vectors came from. It is recorded
	// alongside the index so a later query with a different model is caught.
	Model string
}

// DefaultVectorIndexConfig returns defaults for the given dimension.
func DefaultVectorIndexConfig(dimensions int) VectorIndexConfig {
	return VectorIndexConfig{
		Dimensions: dimensions,
		Metric:     MetricL2,
		M:          16,
		EfSearch:   64,
	}
}

// VectorIndex provides nearest-neighbour search over paragraph embeddings.
type VectorIndex interface {
	// Add inserts vectors with their IDs. If an ID exists, it is replaced.
	Add(ctx context.Context, ids []string, vectors [][]float32) error

	// Search returns up to k nearest neighbours, closest first.
	Search(ctx context.Context, query []float32, k int) ([]VectorResult, error)

	// AllIDs returns every stored ID, sorted.
	AllIDs() []string

	// Contains checks if ID exists.
	Contains(id string) bool

	// Count returns number of vectors.
	Count() int

	// Config returns the index configuration.
	Config() VectorIndexConfig

	// Save persists the index to path.
	Save(path string) error

	// Close releases resources.
	Close() error
}

// ErrDimensionMismatch indicates a vector whose width differs from the index.
type ErrDimensionMismatch struct {
	Expected int
	Got      int
}

func (e ErrDimensionMismatch) Error() string {
	return fmt.Sprintf("dimension mismatch: expected %d, got %d (run 'wikigraph cleanup' then 'wikigraph setup')", e.Expected, e.Got)
}

// Unwrap exposes the coded form so errors.Is matches ErrCodeDimensionMismatch.
func (e ErrDimensionMismatch) Unwrap() error {
	return wgerrors.New(wgerrors.ErrCodeDimensionMismatch, e.Error(), nil).
		WithDetail("expected", fmt.Sprint(e.Expected)).
		WithDetail("got", fmt.Sprint(e.Got))
}
