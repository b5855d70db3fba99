package search

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/wikigraph/internal/lexical"
	"github.com/Aman-CERP/wikigraph/internal/store"
)

func TestRRF(t *testing.T) {
	assert.Equal(t, 1.0/61, RRF(DefaultRRFConstant, 1))
	assert.Equal(t, 1.0/65, RRF(DefaultRRFConstant, 5))
	assert.Greater(t, RRF(60, 1), RRF(60, 2))
}

func TestFuse_SumsRRFAndLexical(t *testing.T) {
	// Given: neighbours [1, 2] and a lexical score only for 1
	lex := map[string]float64{"1": 0.5}

	// When
	results := Fuse(catDogHits(), catDogCorpus(), lex, DefaultFusionConfig())

	// Then: combined = RRF + lexical, missing lexical counts as 0
	require.Len(t, results, 2)
	assert.Equal(t, "1", results[0].ID)
	assert.InDelta(t, 1.0/61+0.5, results[0].Score, 1e-12)
	assert.Equal(t, 1, results[0].VectorRank)
	assert.Equal(t, "2", results[1].ID)
	assert.InDelta(t, 1.0/62, results[1].Score, 1e-12)
	assert.Equal(t, float32(0.9), results[1].Distance)
}

func TestFuse_EveryCorpusDocumentEntersTheMerge(t *testing.T) {
	corpus := []lexical.Document{{ID: "a"}, {ID: "b"}, {ID: "c"}, {ID: "d"}}
	hits := []store.VectorResult{{ID: "c"}}

	results := Fuse(hits, corpus, nil, DefaultFusionConfig())

	require.Len(t, results, 4)
	ids := []string{results[0].ID, results[1].ID, results[2].ID, results[3].ID}
	// c has the only positive score; the zero-score rest keep corpus order.
	assert.Equal(t, []string{"c", "a", "b", "d"}, ids)
}

func TestFuse_TiesKeepFirstSeenOrder(t *testing.T) {
	// Given: lexical-only weighting and equal lexical scores for y and z
	corpus := []lexical.Document{{ID: "x"}, {ID: "y"}, {ID: "z"}}
	hits := []store.VectorResult{{ID: "z"}, {ID: "y"}}
	cfg := DefaultFusionConfig()
	cfg.VectorWeight = 0
	lex := map[string]float64{"y": 1, "z": 1}

	// When
	results := Fuse(hits, corpus, lex, cfg)

	// Then: z (neighbour rank 1) stays ahead of y, and x trails
	require.Len(t, results, 3)
	assert.Equal(t, results[0].Score, results[1].Score)
	assert.Equal(t, "z", results[0].ID)
	assert.Equal(t, "y", results[1].ID)
	assert.Equal(t, "x", results[2].ID)
}

func TestFuse_Weights(t *testing.T) {
	// Lexical prefers 2, vector prefers 1.
	lex := map[string]float64{"2": 0.3}

	vectorOnly := DefaultFusionConfig()
	vectorOnly.LexicalWeight = 0
	assert.Equal(t, "1", Fuse(catDogHits(), catDogCorpus(), lex, vectorOnly)[0].ID)

	lexicalOnly := DefaultFusionConfig()
	lexicalOnly.VectorWeight = 0
	assert.Equal(t, "2", Fuse(catDogHits(), catDogCorpus(), lex, lexicalOnly)[0].ID)

	// Unweighted, a BM25 score dwarfs RRF differences.
	assert.Equal(t, "2", Fuse(catDogHits(), catDogCorpus(), lex, DefaultFusionConfig())[0].ID)
}

func TestFuse_MinMaxPutsSignalsOnOneScale(t *testing.T) {
	// Given: neighbours [1, 2], lexical 6 for 1 and 12 for 2, and 3 unmatched
	corpus := []lexical.Document{{ID: "1"}, {ID: "2"}, {ID: "3"}}
	lex := map[string]float64{"2": 12.0, "1": 6.0}
	cfg := DefaultFusionConfig()
	cfg.Normalization = NormalizeMinMax

	// When
	results := Fuse(catDogHits(), corpus, lex, cfg)

	// Then: each signal is rescaled to [0,1] before weighting
	require.Len(t, results, 3)
	for _, r := range results {
		assert.GreaterOrEqual(t, r.Score, 0.0)
		assert.LessOrEqual(t, r.Score, 2.0)
	}
	assert.Equal(t, "2", results[0].ID)
	assert.InDelta(t, 61.0/62+1, results[0].Score, 1e-12)
	assert.Equal(t, "1", results[1].ID)
	assert.InDelta(t, 1.5, results[1].Score, 1e-12)
	assert.Equal(t, "3", results[2].ID)
	assert.Equal(t, 0.0, results[2].Score)

	// Raw signals are reported unnormalized.
	assert.Equal(t, 6.0, results[1].Lexical)
	assert.Equal(t, 1.0/61, results[1].VectorRRF)
}

func TestFuse_DoesNotMutateInputs(t *testing.T) {
	hits := catDogHits()
	corpus := catDogCorpus()
	lex := map[string]float64{"1": 1}

	_ = Fuse(hits, corpus, lex, DefaultFusionConfig())

	assert.Equal(t, catDogHits(), hits)
	assert.Equal(t, catDogCorpus(), corpus)
	assert.Equal(t, map[string]float64{"1": 1}, lex)
}

func TestFuse_DuplicateNeighbourCountsOnce(t *testing.T) {
	hits := []store.VectorResult{{ID: "1"}, {ID: "1"}}

	results := Fuse(hits, catDogCorpus(), nil, DefaultFusionConfig())

	require.Len(t, results, 2)
	assert.InDelta(t, 1.0/61, results[0].Score, 1e-12)
}

func TestMinMax(t *testing.T) {
	v := []float64{2, 4, 6}
	minMax(v)
	assert.Equal(t, []float64{0, 0.5, 1}, v)

	same := []float64{3, 3}
	minMax(same)
	assert.Equal(t, []float64{1, 1}, same)

	zeros := []float64{0, 0}
	minMax(zeros)
	assert.Equal(t, []float64{0, 0}, zeros)

	negative := []float64{-2, -2}
	minMax(negative)
	assert.Equal(t, []float64{0, 0}, negative)

	minMax(nil)
}
