package search

import (
	"sort"

	"github.com/Aman-CERP/wikigraph/internal/lexical"
	"github.com/Aman-CERP/wikigraph/internal/store"
)

// RRF returns the reciprocal rank fusion contribution 1/(k+rank) of a
// 1-based rank.
func RRF(k, rank int) float64 {
	return 1.0 / float64(k+rank)
}

// Fuse merges vector neighbours and lexical scores by id.
//
// Every corpus document enters the merge: documents the lexical scorer did not
// match score 0. Vector contributions exist only for the neighbours. The
// result is sorted by combined score, descending, with ties kept in
// first-seen order: neighbours by rank, then corpus order. Inputs are not
// modified.
func Fuse(hits []store.VectorResult, corpus []lexical.Document, lexScores map[string]float64, cfg FusionConfig) []Result {
	if cfg.RRFConstant <= 0 {
		cfg.RRFConstant = DefaultRRFConstant
	}

	results := make([]Result, 0, len(hits)+len(corpus))
	index := make(map[string]int, len(hits)+len(corpus))

	for i, h := range hits {
		if _, dup := index[h.ID]; dup {
			continue
		}
		index[h.ID] = len(results)
		results = append(results, Result{
			ID:         h.ID,
			VectorRank: i + 1,
			VectorRRF:  RRF(cfg.RRFConstant, i+1),
			Distance:   h.Distance,
		})
	}
	for _, d := range corpus {
		if _, seen := index[d.ID]; seen {
			continue
		}
		index[d.ID] = len(results)
		results = append(results, Result{ID: d.ID})
	}
	for i := range results {
		results[i].Lexical = lexScores[results[i].ID]
	}

	vec := make([]float64, len(results))
	lex := make([]float64, len(results))
	for i, r := range results {
		vec[i] = r.VectorRRF
		lex[i] = r.Lexical
	}
	if cfg.Normalization == NormalizeMinMax {
		minMax(vec)
		minMax(lex)
	}
	for i := range results {
		results[i].Score = cfg.VectorWeight*vec[i] + cfg.LexicalWeight*lex[i]
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	return results
}

// minMax rescales v in place to [0,1]. A constant slice maps to 1 when its
// value is positive and to 0 otherwise.
func minMax(v []float64) {
	if len(v) == 0 {
		return
	}
	lo, hi := v[0], v[0]
	for _, x := range v[1:] {
		lo = min(lo, x)
		hi = max(hi, x)
	}
	span := hi - lo
	for i, x := range v {
		switch {
		case span > 0:
			v[i] = (x - lo) / span
		case x > 0:
			v[i] = 1
		default:
			v[i] = 0
		}
	}
}
