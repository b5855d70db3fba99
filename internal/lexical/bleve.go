package lexical

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/custom"
	"github.com/blevesearch/bleve/v2/mapping"
	"github.com/blevesearch/bleve/v2/registry"
)

const (
	// ProseTokenizerType is the registered bleve tokenizer type.
	ProseTokenizerType = "wikigraph_prose"

	proseTokenizerName = "wikigraph_prose_configured"
	proseAnalyzerName  = "wikigraph_prose_analyzer"
	contentField       = "content"
)

func init() {
	_ = registry.RegisterTokenizer(ProseTokenizerType, proseTokenizerConstructor)
}

// BleveScorer scores with an in-memory bleve index.
type BleveScorer struct {
	mu     sync.RWMutex
	index  bleve.Index
	count  int
	closed bool
}

var _ Scorer = (*BleveScorer)(nil)

type bleveDocument struct {
	Content string `json:"content"`
}

// NewBleveScorer indexes docs into a memory-only bleve index.
func NewBleveScorer(ctx context.Context, docs []Document, cfg Config) (*BleveScorer, error) {
	im, err := proseIndexMapping(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create index mapping: %w", err)
	}

	idx, err := bleve.NewMemOnly(im)
	if err != nil {
		return nil, fmt.Errorf("failed to create bleve index: %w", err)
	}

	batch := idx.NewBatch()
	for _, d := range docs {
		if err := ctx.Err(); err != nil {
			_ = idx.Close()
			return nil, err
		}
		if err := batch.Index(d.ID, bleveDocument{Content: d.Content}); err != nil {
			_ = idx.Close()
			return nil, fmt.Errorf("failed to index document %s: %w", d.ID, err)
		}
	}
	if err := idx.Batch(batch); err != nil {
		_ = idx.Close()
		return nil, fmt.Errorf("failed to execute batch: %w", err)
	}

	return &BleveScorer{index: idx, count: len(docs)}, nil
}

// proseIndexMapping wires the prose tokenizer into the default analyzer.
// Lowercasing and stop words happen inside the tokenizer.
func proseIndexMapping(cfg Config) (*mapping.IndexMappingImpl, error) {
	im := bleve.NewIndexMapping()

	err := im.AddCustomTokenizer(proseTokenizerName, map[string]interface{}{
		"type":       ProseTokenizerType,
		"min_length": float64(cfg.MinTokenLength),
		"stop_words": cfg.StopWords,
	})
	if err != nil {
		return nil, err
	}

	err = im.AddCustomAnalyzer(proseAnalyzerName, map[string]interface{}{
		"type":      custom.Name,
		"tokenizer": proseTokenizerName,
	})
	if err != nil {
		return nil, err
	}

	im.DefaultAnalyzer = proseAnalyzerName
	return im, nil
}

// Score implements Scorer.
func (s *BleveScorer) Score(ctx context.Context, query string) (map[string]float64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, fmt.Errorf("index is closed")
	}

	scores := make(map[string]float64)
	if strings.TrimSpace(query) == "" || s.count == 0 {
		return scores, nil
	}

	q := bleve.NewMatchQuery(query)
	q.SetField(contentField)

	req := bleve.NewSearchRequest(q)
	req.Size = s.count

	res, err := s.index.SearchInContext(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("search failed: %w", err)
	}
	for _, hit := range res.Hits {
		scores[hit.ID] = hit.Score
	}
	return scores, nil
}

// Len implements Scorer.
func (s *BleveScorer) Len() int { return s.count }

// Close implements Scorer.
func (s *BleveScorer) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	return s.index.Close()
}

func proseTokenizerConstructor(config map[string]interface{}, _ *registry.Cache) (analysis.Tokenizer, error) {
	cfg := Config{MinTokenLength: 2}
	if v, ok := config["min_length"].(float64); ok {
		cfg.MinTokenLength = int(v)
	}
	if v, ok := config["stop_words"].(bool); ok {
		cfg.StopWords = v
	}
	return &bleveProseTokenizer{tokenizer: NewTokenizer(cfg)}, nil
}

type bleveProseTokenizer struct {
	tokenizer *Tokenizer
}

// Tokenize implements analysis.Tokenizer. Offsets are approximate; only
// terms and positions matter for scoring.
func (t *bleveProseTokenizer) Tokenize(input []byte) analysis.TokenStream {
	lower := strings.ToLower(string(input))
	tokens := t.tokenizer.Tokenize(lower)

	stream := make(analysis.TokenStream, 0, len(tokens))
	offset := 0
	for i, tok := range tokens {
		start := offset
		if at := strings.Index(lower[offset:], tok); at >= 0 {
			start = offset + at
		}
		end := start + len(tok)
		if end <= len(lower) {
			offset = end
		}

		stream = append(stream, &analysis.Token{
			Term:     []byte(tok),
			Start:    start,
			End:      end,
			Position: i + 1,
			Type:     analysis.AlphaNumeric,
		})
	}
	return stream
}
