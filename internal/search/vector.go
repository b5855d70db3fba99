package search

import (
	"context"
)

// VectorRanker returns the Vector Index neighbours of a query, closest first.
type VectorRanker struct {
	embedder QueryEmbedder
	index    NeighborSearcher
}

// NewVectorRanker creates a ranker.
func NewVectorRanker(embedder QueryEmbedder, index NeighborSearcher) *VectorRanker {
	return &VectorRanker{embedder: embedder, index: index}
}

// Rank returns up to limit neighbours with their raw distance, ascending.
// A limit of 0 means DefaultLimit.
func (r *VectorRanker) Rank(ctx context.Context, query string, limit int) ([]VectorHit, error) {
	query, limit, err := checkInputs(query, limit)
	if err != nil {
		return nil, err
	}
	if r.index.Count() == 0 {
		return nil, ErrEmptyCorpus
	}

	hits, err := neighbours(ctx, r.embedder, r.index, query, limit)
	if err != nil {
		return nil, err
	}

	out := make([]VectorHit, len(hits))
	for i, h := range hits {
		out[i] = VectorHit{ID: h.ID, Rank: i + 1, Distance: h.Distance}
	}
	return out, nil
}
