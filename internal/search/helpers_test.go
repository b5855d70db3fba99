package search

import (
	"context"
	"sync/atomic"

	"github.com/Aman-CERP/wikigraph/internal/lexical"
	"github.com/Aman-CERP/wikigraph/internal/store"
)

// fakeEmbedder returns a fixed vector and counts calls.
type fakeEmbedder struct {
	vec   []float32
	err   error
	calls atomic.Int32
}

func (f *fakeEmbedder) Embed(context.Context, string) ([]float32, error) {
	f.calls.Add(1)
	if f.err != nil {
		return nil, f.err
	}
	return f.vec, nil
}

func (f *fakeEmbedder) ModelName() string { return "fake" }

// fakeIndex returns preset neighbours, truncated to k, and counts calls.
type fakeIndex struct {
	hits  []store.VectorResult
	err   error
	count int
	calls atomic.Int32
}

func (f *fakeIndex) Search(_ context.Context, _ []float32, k int) ([]store.VectorResult, error) {
	f.calls.Add(1)
	if f.err != nil {
		return nil, f.err
	}
	out := append([]store.VectorResult(nil), f.hits...)
	if len(out) > k {
		out = out[:k]
	}
	return out, nil
}

func (f *fakeIndex) Count() int {
	if f.count > 0 {
		return f.count
	}
	return len(f.hits)
}

// countingBuilder builds okapi scorers and counts builds.
type countingBuilder struct {
	builds atomic.Int32
	err    error
}

func (b *countingBuilder) Build(_ context.Context, docs []lexical.Document) (lexical.Scorer, error) {
	b.builds.Add(1)
	if b.err != nil {
		return nil, b.err
	}
	return lexical.BuildOkapi(docs, lexical.DefaultConfig()), nil
}

func catDogCorpus() []lexical.Document {
	return []lexical.Document{
		{ID: "1", Content: "the cat sat"},
		{ID: "2", Content: "the dog ran"},
	}
}

func catDogHits() []store.VectorResult {
	return []store.VectorResult{{ID: "1", Distance: 0.1}, {ID: "2", Distance: 0.9}}
}

func newCatDogRanker(fusion FusionConfig) (*HybridRanker, *fakeEmbedder, *fakeIndex, *countingBuilder) {
	emb := &fakeEmbedder{vec: []float32{1, 0, 0}}
	idx := &fakeIndex{hits: catDogHits()}
	b := &countingBuilder{}
	return NewHybridRanker(emb, idx, b, fusion), emb, idx, b
}
