package lexical

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"math"
	"time"
)

// OkapiModel is a BM25 Okapi model over a fixed corpus.
// It is immutable after construction and safe for concurrent use.
type OkapiModel struct {
	config      Config
	tokenizer   *Tokenizer
	ids         []string
	docLen      []int
	termFreqs   []map[string]int
	docFreq     map[string]int
	avgDocLen   float64
	fingerprint string
	builtAt     time.Time
}

var _ Scorer = (*OkapiModel)(nil)

// BuildOkapi tokenizes docs and computes term statistics.
func BuildOkapi(docs []Document, cfg Config) *OkapiModel {
	m := &OkapiModel{
		config:      cfg,
		tokenizer:   NewTokenizer(cfg),
		ids:         make([]string, len(docs)),
		docLen:      make([]int, len(docs)),
		termFreqs:   make([]map[string]int, len(docs)),
		docFreq:     make(map[string]int),
		fingerprint: Fingerprint(docs),
		builtAt:     time.Now().UTC(),
	}

	total := 0
	for i, d := range docs {
		tokens := m.tokenizer.Tokenize(d.Content)
		tf := make(map[string]int, len(tokens))
		for _, tok := range tokens {
			tf[tok]++
		}
		for term := range tf {
			m.docFreq[term]++
		}

		m.ids[i] = d.ID
		m.docLen[i] = len(tokens)
		m.termFreqs[i] = tf
		total += len(tokens)
	}
	if len(docs) > 0 {
		m.avgDocLen = float64(total) / float64(len(docs))
	}
	return m
}

// idf is the non-negative BM25 inverse document frequency.
func (m *OkapiModel) idf(term string) float64 {
	n := float64(m.docFreq[term])
	N := float64(len(m.ids))
	return math.Log((N-n+0.5)/(n+0.5) + 1)
}

// Score implements Scorer. Repeated query terms contribute once per occurrence.
func (m *OkapiModel) Score(ctx context.Context, query string) (map[string]float64, error) {
	terms := m.tokenizer.Tokenize(query)
	scores := make(map[string]float64)
	if len(terms) == 0 || len(m.ids) == 0 {
		return scores, nil
	}

	k1, b := m.config.K1, m.config.B
	avg := m.avgDocLen
	if avg == 0 {
		avg = 1
	}

	for _, term := range terms {
		if m.docFreq[term] == 0 {
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		idf := m.idf(term)
		for i, tf := range m.termFreqs {
			f := float64(tf[term])
			if f == 0 {
				continue
			}
			norm := k1 * (1 - b + b*float64(m.docLen[i])/avg)
			scores[m.ids[i]] += idf * f * (k1 + 1) / (f + norm)
		}
	}
	return scores, nil
}

// Len implements Scorer.
func (m *OkapiModel) Len() int { return len(m.ids) }

// Close implements Scorer.
func (m *OkapiModel) Close() error { return nil }

// Fingerprint returns the corpus fingerprint recorded at build time.
func (m *OkapiModel) Fingerprint() string { return m.fingerprint }

// BuiltAt returns the build timestamp.
func (m *OkapiModel) BuiltAt() time.Time { return m.builtAt }

// Config returns the parameters the model was built with.
func (m *OkapiModel) Config() Config { return m.config }

// Fingerprint identifies a corpus by its ordered ids and content.
func Fingerprint(docs []Document) string {
	h := sha256.New()
	for _, d := range docs {
		h.Write([]byte(d.ID))
		h.Write([]byte{0})
		h.Write([]byte(d.Content))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}
