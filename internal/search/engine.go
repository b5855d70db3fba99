package search

import (
	"context"
	"strings"

	"github.com/Aman-CERP/wikigraph/internal/graph"
	"github.com/Aman-CERP/wikigraph/internal/lexical"
)

// Hit is a ranked paragraph with its content resolved from the paragraph store.
type Hit struct {
	Rank      int     `json:"rank"`
	ID        string  `json:"id"`
	Score     float64 `json:"score,omitempty"`
	Distance  float32 `json:"distance,omitempty"`
	Lexical   float64 `json:"lexical,omitempty"`
	VectorRRF float64 `json:"vector_rrf,omitempty"`
	PageTitle string  `json:"page_title"`
	PageURL   string  `json:"page_url"`
	Content   string  `json:"content"`
}

// Engine answers queries against the paragraph store and vector index.
type Engine struct {
	paragraphs graph.Store
	vector     *VectorRanker
	hybrid     *HybridRanker
}

// NewEngine wires the rankers to their collaborators.
func NewEngine(paragraphs graph.Store, embedder QueryEmbedder, index NeighborSearcher, builder lexical.Builder, fusion FusionConfig) *Engine {
	return &Engine{
		paragraphs: paragraphs,
		vector:     NewVectorRanker(embedder, index),
		hybrid:     NewHybridRanker(embedder, index, builder, fusion),
	}
}

// Query runs the Vector Ranker and resolves content.
func (e *Engine) Query(ctx context.Context, query string, limit int) ([]Hit, error) {
	hits, err := e.vector.Rank(ctx, query, limit)
	if err != nil {
		return nil, err
	}

	ids := make([]string, len(hits))
	for i, h := range hits {
		ids[i] = h.ID
	}
	paras, err := e.paragraphs.FetchByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}

	out := make([]Hit, len(hits))
	for i, h := range hits {
		out[i] = hitFrom(paras[i])
		out[i].Rank = h.Rank
		out[i].Distance = h.Distance
	}
	return out, nil
}

// HybridQuery loads the corpus from the paragraph store, runs the Hybrid
// Ranker and resolves content. A blank query fails before the store is read.
func (e *Engine) HybridQuery(ctx context.Context, query string, limit int) ([]Hit, error) {
	if strings.TrimSpace(query) == "" {
		return nil, ErrEmptyQuery
	}

	paras, err := e.paragraphs.FetchAll(ctx)
	if err != nil {
		return nil, err
	}
	corpus := Corpus(paras)

	results, err := e.hybrid.Rank(ctx, query, corpus, limit)
	if err != nil {
		return nil, err
	}

	ids := make([]string, len(results))
	for i, r := range results {
		ids[i] = r.ID
	}
	resolved, err := e.paragraphs.FetchByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}

	out := make([]Hit, len(results))
	for i, r := range results {
		out[i] = hitFrom(resolved[i])
		out[i].Rank = i + 1
		out[i].Score = r.Score
		out[i].Distance = r.Distance
		out[i].Lexical = r.Lexical
		out[i].VectorRRF = r.VectorRRF
	}
	return out, nil
}

// Close releases the hybrid ranker's cached scorer.
func (e *Engine) Close() error {
	return e.hybrid.Close()
}

// Corpus converts stored paragraphs to lexical documents, keeping order.
func Corpus(paras []graph.Paragraph) []lexical.Document {
	docs := make([]lexical.Document, len(paras))
	for i, p := range paras {
		docs[i] = lexical.Document{ID: p.ID, Content: p.Content}
	}
	return docs
}

func hitFrom(p graph.Paragraph) Hit {
	return Hit{
		ID:        p.ID,
		PageTitle: p.PageTitle,
		PageURL:   p.PageURL,
		Content:   p.Content,
	}
}
